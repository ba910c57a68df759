package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/matchfeed/internal/db"
)

// BlockRepository provides data access methods for the Block model.
type BlockRepository struct {
	db *gorm.DB
}

func NewBlockRepository(database *gorm.DB) *BlockRepository {
	return &BlockRepository{db: database}
}

// Create inserts blocker -> blocked. A repeat yields gorm.ErrDuplicatedKey.
func (r *BlockRepository) Create(ctx context.Context, blockerID, blockedID string) (*db.Block, error) {
	b := db.Block{BlockerID: blockerID, BlockedID: blockedID}
	if err := r.db.WithContext(ctx).Create(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// Exists reports whether blocker has blocked blocked.
func (r *BlockRepository) Exists(ctx context.Context, blockerID, blockedID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Block{}).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Count(&count).Error
	return count > 0, err
}

// ExistsEither reports whether a block exists in either direction.
func (r *BlockRepository) ExistsEither(ctx context.Context, a, b string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

// Delete removes blocker -> blocked. Deleting a missing block is not an error.
func (r *BlockRepository) Delete(ctx context.Context, blockerID, blockedID string) error {
	return r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&db.Block{}).Error
}

// BlockedBy lists the users blockerID has blocked.
func (r *BlockRepository) BlockedBy(ctx context.Context, blockerID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&db.Block{}).
		Where("blocker_id = ?", blockerID).
		Pluck("blocked_id", &ids).Error
	return ids, err
}

// BlockersOf lists the users who blocked blockedID.
func (r *BlockRepository) BlockersOf(ctx context.Context, blockedID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&db.Block{}).
		Where("blocked_id = ?", blockedID).
		Pluck("blocker_id", &ids).Error
	return ids, err
}
