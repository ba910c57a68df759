package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/matchfeed/internal/db"
	"github.com/oggyb/matchfeed/internal/utils/pagination"
)

// UserRepository provides data access methods for the User model,
// including the candidate queries behind the discovery feed.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// CandidateScope is the eligibility predicate over users for one viewer.
//
// Prefs nil selects the unconstrained pool: only the viewer and the
// exclusion set are removed.
type CandidateScope struct {
	ViewerID string
	Exclude  []string
	Prefs    *CandidatePrefs
}

// CandidatePrefs holds the preference part of the predicate.
// Birthdays must fall in [BornFrom, BornTo], both inclusive.
type CandidatePrefs struct {
	Genders      []string
	OnlyVerified bool
	BornFrom     time.Time
	BornTo       time.Time
}

func (s CandidateScope) apply(query *gorm.DB) *gorm.DB {
	query = query.Where("users.id <> ?", s.ViewerID)
	// NOT IN () is invalid SQL on some dialects.
	if len(s.Exclude) > 0 {
		query = query.Where("users.id NOT IN ?", s.Exclude)
	}
	if s.Prefs == nil {
		return query
	}
	query = query.Where("users.gender IN ?", s.Prefs.Genders)
	if s.Prefs.OnlyVerified {
		query = query.Where("users.is_verified = ?", true)
	}
	// NULL birthdays fail BETWEEN and drop out here.
	return query.Where("users.birthday BETWEEN ? AND ?", s.Prefs.BornFrom, s.Prefs.BornTo)
}

func preloadPhotos(query *gorm.DB) *gorm.DB {
	return query.Preload("Photos", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("sort_order ASC")
	})
}

// ListCandidates returns one page of eligible users ordered by id.
//
// Behavior:
//   - Ordered by id ASC.
//   - paginationToken is an IDCursor; the cursor row itself is skipped.
//     A malformed token is treated as the first page.
//   - Photos are preloaded in display order.
//   - nextToken is set only when the page is full.
//
// Example:
//
//	users, next, _ := repo.ListCandidates(ctx, scope, nil, 20)
func (r *UserRepository) ListCandidates(
	ctx context.Context,
	scope CandidateScope,
	paginationToken *string,
	limit int,
) ([]db.User, *string, error) {
	var users []db.User

	query := scope.apply(r.db.WithContext(ctx).Model(&db.User{})).
		Order("users.id ASC").
		Limit(limit)

	if after := pagination.DecodeID(getString(paginationToken)); after != "" {
		query = query.Where("users.id > ?", after)
	}

	if err := preloadPhotos(query).Find(&users).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(users) == limit && limit > 0 {
		token, err := pagination.Encode(pagination.IDCursor{ID: users[len(users)-1].ID})
		if err != nil {
			return nil, nil, err
		}
		nextToken = &token
	}
	return users, nextToken, nil
}

// CountCandidates counts the users matching scope.
func (r *UserRepository) CountCandidates(ctx context.Context, scope CandidateScope) (int64, error) {
	var count int64
	err := scope.apply(r.db.WithContext(ctx).Model(&db.User{})).Count(&count).Error
	return count, err
}

// CandidateAt returns the eligible user at offset under id order, or nil
// when offset is past the end.
//
// Behavior:
//   - O(offset) on the database side; callers draw offset from CountCandidates.
func (r *UserRepository) CandidateAt(ctx context.Context, scope CandidateScope, offset int) (*db.User, error) {
	var users []db.User
	query := scope.apply(r.db.WithContext(ctx).Model(&db.User{})).
		Order("users.id ASC").
		Offset(offset).
		Limit(1)
	if err := preloadPhotos(query).Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// FindCandidate returns userID if it still satisfies scope, nil otherwise.
func (r *UserRepository) FindCandidate(ctx context.Context, scope CandidateScope, userID string) (*db.User, error) {
	var users []db.User
	query := scope.apply(r.db.WithContext(ctx).Model(&db.User{})).
		Where("users.id = ?", userID).
		Limit(1)
	if err := preloadPhotos(query).Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// CreateWithPreferences inserts a user and their default preferences in one transaction.
func (r *UserRepository) CreateWithPreferences(ctx context.Context, u *db.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Photos", "Preferences").Create(u).Error; err != nil {
			return err
		}
		prefs := db.DefaultPreferences(u.ID)
		return tx.Create(&prefs).Error
	})
}

// FindByID returns the user or gorm.ErrRecordNotFound.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByEmail returns the user or nil when no account uses email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*db.User, error) {
	var u db.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// EmailOrUsernameTaken reports whether either value is already registered.
func (r *UserRepository) EmailOrUsernameTaken(ctx context.Context, email, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("email = ? OR username = ?", email, username).
		Count(&count).Error
	return count > 0, err
}

// Exists reports whether a user with id exists.
func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Update applies column updates and returns the fresh row.
// A missing user yields gorm.ErrRecordNotFound.
func (r *UserRepository) Update(ctx context.Context, id string, fields map[string]any) (*db.User, error) {
	if len(fields) > 0 {
		res := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return nil, res.Error
		}
	}
	return r.FindByID(ctx, id)
}

// FindWithPhotos loads users by id with photos in display order, keyed by id.
func (r *UserRepository) FindWithPhotos(ctx context.Context, ids []string) (map[string]db.User, error) {
	out := make(map[string]db.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []db.User
	if err := preloadPhotos(r.db.WithContext(ctx).Where("id IN ?", ids)).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}
