package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchfeed/internal/db"
)

// InteractionRepository provides data access methods for the Interaction model.
// It encapsulates all queries related to likes/passes between users.
type InteractionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository creates a new repository bound to the given DB connection.
func NewInteractionRepository(database *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: database}
}

// Upsert inserts or updates the decision made by from -> to.
//
// Behavior:
//   - If (from_user_id, to_user_id) exists → the row is updated with the new is_like value.
//   - If it doesn’t exist → a new row is inserted.
//   - Runs as a single statement, so rapid double submissions never race.
//
// Example:
//
//	repo.Upsert(ctx, alice, bob, true) // alice liked bob
func (r *InteractionRepository) Upsert(ctx context.Context, fromUserID, toUserID string, isLike bool) error {
	interaction := db.Interaction{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		IsLike:     isLike,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "from_user_id"}, {Name: "to_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_like", "updated_at"}),
		}).
		Create(&interaction).Error
}

// HasLiked checks whether from currently likes to.
//
// Behavior:
//   - Returns true if a row (from, to) exists with is_like = true.
//   - Used for mutual-like detection.
//
// Example:
//
//	repo.HasLiked(ctx, bob, alice) // -> true if bob liked alice
func (r *InteractionRepository) HasLiked(ctx context.Context, fromUserID, toUserID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Interaction{}).
		Where("from_user_id = ? AND to_user_id = ? AND is_like = ?", fromUserID, toUserID, true).
		Count(&count).Error
	return count > 0, err
}

// Exists reports whether from has decided on to at all (like or pass).
func (r *InteractionRepository) Exists(ctx context.Context, fromUserID, toUserID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Interaction{}).
		Where("from_user_id = ? AND to_user_id = ?", fromUserID, toUserID).
		Count(&count).Error
	return count > 0, err
}
