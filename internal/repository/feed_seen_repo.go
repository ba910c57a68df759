package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchfeed/internal/db"
)

// FeedSeenRepository tracks which candidates a viewer was recently shown.
type FeedSeenRepository struct {
	db *gorm.DB
}

func NewFeedSeenRepository(database *gorm.DB) *FeedSeenRepository {
	return &FeedSeenRepository{db: database}
}

// Touch upserts (viewer, seen) rows with seen_at = at.
//
// Behavior:
//   - One multi-row INSERT ... ON CONFLICT UPDATE seen_at.
//   - Re-showing a candidate moves its seen_at forward instead of adding a row.
//
// Example:
//
//	repo.Touch(ctx, viewer, []string{a, b}, db.Now())
func (r *FeedSeenRepository) Touch(ctx context.Context, viewerID string, seenIDs []string, at time.Time) error {
	if len(seenIDs) == 0 {
		return nil
	}
	rows := make([]db.FeedSeen, 0, len(seenIDs))
	for _, id := range seenIDs {
		rows = append(rows, db.FeedSeen{ViewerID: viewerID, SeenUserID: id, SeenAt: at})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "viewer_id"}, {Name: "seen_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"seen_at"}),
		}).
		Create(&rows).Error
}

// RecentIDs lists candidates shown to viewer strictly after since.
func (r *FeedSeenRepository) RecentIDs(ctx context.Context, viewerID string, since time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&db.FeedSeen{}).
		Where("viewer_id = ? AND seen_at > ?", viewerID, since).
		Pluck("seen_user_id", &ids).Error
	return ids, err
}

// MostRecent returns the latest row after since, or nil when there is none.
// Rows touched in one batch share seen_at; the highest id among them wins.
func (r *FeedSeenRepository) MostRecent(ctx context.Context, viewerID string, since time.Time) (*db.FeedSeen, error) {
	var fs db.FeedSeen
	err := r.db.WithContext(ctx).
		Where("viewer_id = ? AND seen_at > ?", viewerID, since).
		Order("seen_at DESC").
		Order("seen_user_id DESC").
		Take(&fs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fs, nil
}
