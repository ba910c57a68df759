package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/matchfeed/internal/db"
)

// RefreshTokenRepository stores issued refresh tokens.
type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(database *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: database}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, userID, token string, expiresAt time.Time) error {
	row := db.RefreshToken{UserID: userID, Token: token, ExpiresAt: expiresAt}
	return r.db.WithContext(ctx).Create(&row).Error
}

// Find returns the stored token or gorm.ErrRecordNotFound.
func (r *RefreshTokenRepository) Find(ctx context.Context, token string) (*db.RefreshToken, error) {
	var row db.RefreshToken
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// Delete removes every row holding token. Missing tokens are not an error.
func (r *RefreshTokenRepository) Delete(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Where("token = ?", token).Delete(&db.RefreshToken{}).Error
}
