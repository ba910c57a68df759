package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchfeed/internal/db"
)

// PreferencesRepository provides data access methods for the Preferences model.
type PreferencesRepository struct {
	db *gorm.DB
}

func NewPreferencesRepository(database *gorm.DB) *PreferencesRepository {
	return &PreferencesRepository{db: database}
}

// Find returns the stored preferences, or nil when none exist. It never writes.
func (r *PreferencesRepository) Find(ctx context.Context, userID string) (*db.Preferences, error) {
	var p db.Preferences
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetOrCreate returns the stored preferences, persisting defaults first if absent.
//
// Behavior:
//   - INSERT ... ON CONFLICT DO NOTHING, then read, so concurrent first
//     reads converge on one row.
func (r *PreferencesRepository) GetOrCreate(ctx context.Context, userID string) (*db.Preferences, error) {
	defaults := db.DefaultPreferences(userID)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&defaults).Error
	if err != nil {
		return nil, err
	}

	var p db.Preferences
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert writes every preference column for p.UserID.
func (r *PreferencesRepository) Upsert(ctx context.Context, p *db.Preferences) error {
	p.UpdatedAt = db.Now()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"age_min", "age_max", "distance_km", "show_genders", "only_verified", "updated_at",
			}),
		}).
		Create(p).Error
}
