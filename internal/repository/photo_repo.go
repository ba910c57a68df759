package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/matchfeed/internal/db"
)

// ErrPhotoLimit is returned when a user already holds db.MaxPhotos photos.
var ErrPhotoLimit = errors.New("photo limit reached")

// resequenceOffset moves orders into a disjoint range during renumbering.
const resequenceOffset = 1000

// PhotoRepository provides data access methods for the Photo model.
type PhotoRepository struct {
	db *gorm.DB
}

func NewPhotoRepository(database *gorm.DB) *PhotoRepository {
	return &PhotoRepository{db: database}
}

// List returns a user's photos in display order.
func (r *PhotoRepository) List(ctx context.Context, userID string) ([]db.Photo, error) {
	var photos []db.Photo
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("sort_order ASC").
		Find(&photos).Error
	return photos, err
}

// Count returns how many photos userID holds.
func (r *PhotoRepository) Count(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Photo{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// Append adds a photo at the next free order.
//
// Behavior:
//   - Count and insert share a transaction; order = current count.
//   - Returns ErrPhotoLimit at db.MaxPhotos.
//   - Two concurrent uploads may compute the same order; the loser fails on
//     the unique (user_id, sort_order) index with gorm.ErrDuplicatedKey.
func (r *PhotoRepository) Append(ctx context.Context, userID, url string) (*db.Photo, error) {
	var photo db.Photo
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.Photo{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count >= db.MaxPhotos {
			return ErrPhotoLimit
		}
		photo = db.Photo{UserID: userID, URL: url, Order: int(count)}
		return tx.Create(&photo).Error
	})
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

// FindForUser returns the photo if userID owns it, or gorm.ErrRecordNotFound.
func (r *PhotoRepository) FindForUser(ctx context.Context, userID, photoID string) (*db.Photo, error) {
	var p db.Photo
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", photoID, userID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteAndResequence removes one photo and renumbers the rest to 0..n-1.
//
// Behavior:
//   - One transaction covers the delete, the read of remaining orders and
//     both renumbering passes.
//   - The first pass moves every row to i+1000 so the second pass (i) never
//     collides with a row that has not been renumbered yet.
//   - Relative order is preserved.
//   - Returns the deleted row so the caller can remove its blob.
//
// Example:
//
//	// orders 0,1,2,3; delete order 1 -> remaining orders 0,1,2
//	repo.DeleteAndResequence(ctx, userID, photoID)
func (r *PhotoRepository) DeleteAndResequence(ctx context.Context, userID, photoID string) (*db.Photo, error) {
	var deleted db.Photo
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", photoID, userID).First(&deleted).Error; err != nil {
			return err
		}
		if err := tx.Delete(&db.Photo{}, "id = ?", deleted.ID).Error; err != nil {
			return err
		}

		var rest []db.Photo
		if err := tx.Where("user_id = ?", userID).Order("sort_order ASC").Find(&rest).Error; err != nil {
			return err
		}
		for i, p := range rest {
			if err := tx.Model(&db.Photo{}).Where("id = ?", p.ID).
				Update("sort_order", i+resequenceOffset).Error; err != nil {
				return err
			}
		}
		for i, p := range rest {
			if err := tx.Model(&db.Photo{}).Where("id = ?", p.ID).
				Update("sort_order", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}
