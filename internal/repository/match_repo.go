package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchfeed/internal/db"
	"github.com/oggyb/matchfeed/internal/utils/pagination"
)

// MatchRepository provides data access methods for the Match model.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// CreateIfAbsent returns the match for the pair, creating it if needed.
//
// Behavior:
//   - The pair is canonicalized (smaller id first) before touching the table.
//   - INSERT ... ON CONFLICT DO NOTHING on the unique (user_a_id, user_b_id) index,
//     then a read of the surviving row. Concurrent callers converge on one row
//     and never see a duplicate-key error.
//
// Example:
//
//	m, _ := repo.CreateIfAbsent(ctx, bob, alice) // m.UserAID == min(bob, alice)
func (r *MatchRepository) CreateIfAbsent(ctx context.Context, x, y string) (*db.Match, error) {
	a, b := db.CanonicalPair(x, y)

	candidate := db.Match{UserAID: a, UserBID: b}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_a_id"}, {Name: "user_b_id"}},
			DoNothing: true,
		}).
		Create(&candidate).Error
	if err != nil {
		return nil, err
	}

	var m db.Match
	if err := r.db.WithContext(ctx).
		Where("user_a_id = ? AND user_b_id = ?", a, b).
		First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// FindByID returns the match or gorm.ErrRecordNotFound.
func (r *MatchRepository) FindByID(ctx context.Context, id string) (*db.Match, error) {
	var m db.Match
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListForUser returns the matches userID takes part in.
//
// Behavior:
//   - Ordered by id ASC.
//   - paginationToken is an IDCursor; rows strictly after it are returned.
//     A malformed token is treated as the first page.
//   - nextToken is set only when the page is full.
//
// Example:
//
//	repo.ListForUser(ctx, alice, nil, 20)
func (r *MatchRepository) ListForUser(
	ctx context.Context,
	userID string,
	paginationToken *string,
	limit int,
) ([]db.Match, *string, error) {
	var matches []db.Match

	query := r.db.WithContext(ctx).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("id ASC").
		Limit(limit)

	if after := pagination.DecodeID(getString(paginationToken)); after != "" {
		query = query.Where("id > ?", after)
	}

	if err := query.Find(&matches).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(matches) == limit && limit > 0 {
		token, err := pagination.Encode(pagination.IDCursor{ID: matches[len(matches)-1].ID})
		if err != nil {
			return nil, nil, err
		}
		nextToken = &token
	}
	return matches, nextToken, nil
}

// PeerIDs lists everyone userID is matched with.
func (r *MatchRepository) PeerIDs(ctx context.Context, userID string) ([]string, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Select("user_a_id", "user_b_id").
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Find(&matches).Error
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.PeerOf(userID))
	}
	return ids, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
