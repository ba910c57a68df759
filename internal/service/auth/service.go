// Package auth issues and rotates the credentials the rest of the API consumes.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/matchfeed/internal/app"
	"github.com/oggyb/matchfeed/internal/db"
	svcErr "github.com/oggyb/matchfeed/internal/errors"
	"github.com/oggyb/matchfeed/internal/repository"
	"github.com/oggyb/matchfeed/internal/security"
	"github.com/oggyb/matchfeed/internal/service/feed"
)

type Service struct {
	appCtx    *app.AppContext
	userRepo  *repository.UserRepository
	tokenRepo *repository.RefreshTokenRepository
	now       func() time.Time
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:    appCtx,
		userRepo:  repository.NewUserRepository(appCtx.DB),
		tokenRepo: repository.NewRefreshTokenRepository(appCtx.DB),
		now:       db.Now,
	}
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=24"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type RefreshInput struct {
	Refresh string `json:"refresh" validate:"required,min=10"`
}

type User struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	OnboardingDone bool   `json:"onboardingDone"`
}

// Session is returned by register and login.
type Session struct {
	User    User   `json:"user"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Register creates the account with default preferences and signs it in.
//
// Behavior:
//   - Emails are compared lower-cased.
//   - A taken email or username is ALREADY_EXISTS, both from the pre-check
//     and from a unique-index race.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	s.appCtx.Logger.Debug("Register called", "email", email, "username", in.Username)

	taken, err := s.userRepo.EmailOrUsernameTaken(ctx, email, in.Username)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if taken {
		return nil, svcErr.AlreadyExists("Email or username in use")
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, svcErr.Internal(err)
	}

	u := &db.User{Email: email, Username: in.Username, PasswordHash: hash}
	if err := s.userRepo.CreateWithPreferences(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, svcErr.AlreadyExists("Email or username in use")
		}
		s.appCtx.Logger.Error("Create user failed", "err", err)
		return nil, svcErr.Map(err)
	}

	feed.InvalidateCounts(ctx, s.appCtx)
	s.appCtx.Logger.Info("User registered", "user", u.ID)
	return s.session(ctx, u)
}

// Login checks the password and issues a fresh token pair.
// Unknown email and wrong password are indistinguishable.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	s.appCtx.Logger.Debug("Login called", "email", email)

	u, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if u == nil || !security.CheckPassword(u.PasswordHash, in.Password) {
		return nil, svcErr.InvalidCredentials("Wrong email or password")
	}
	return s.session(ctx, u)
}

func (s *Service) session(ctx context.Context, u *db.User) (*Session, error) {
	access, err := s.appCtx.Tokens.IssueAccess(u.ID)
	if err != nil {
		return nil, svcErr.Internal(err)
	}
	refresh, expiresAt, err := s.appCtx.Tokens.IssueRefresh(u.ID)
	if err != nil {
		return nil, svcErr.Internal(err)
	}
	if err := s.tokenRepo.Create(ctx, u.ID, refresh, expiresAt); err != nil {
		s.appCtx.Logger.Error("Store refresh token failed", "user", u.ID, "err", err)
		return nil, svcErr.Map(err)
	}
	return &Session{
		User:    User{ID: u.ID, Email: u.Email, Username: u.Username, OnboardingDone: u.OnboardingDone},
		Access:  access,
		Refresh: refresh,
	}, nil
}

// Refresh exchanges a stored, unexpired refresh token for a new access token.
//
// Behavior:
//   - Bad signature, unknown token and expired row are all INVALID_TOKEN
//     with distinct messages.
//   - An expired row is deleted when detected.
func (s *Service) Refresh(ctx context.Context, in RefreshInput) (string, error) {
	if _, err := s.appCtx.Tokens.VerifyRefresh(in.Refresh); err != nil {
		return "", svcErr.InvalidToken("Invalid refresh token")
	}

	row, err := s.tokenRepo.Find(ctx, in.Refresh)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", svcErr.InvalidToken("Refresh token not found")
	}
	if err != nil {
		return "", svcErr.Map(err)
	}

	if row.ExpiresAt.Before(s.now()) {
		if err := s.tokenRepo.Delete(ctx, in.Refresh); err != nil {
			s.appCtx.Logger.Warn("Delete expired refresh token failed", "user", row.UserID, "err", err)
		}
		return "", svcErr.InvalidToken("Refresh token expired")
	}

	access, err := s.appCtx.Tokens.IssueAccess(row.UserID)
	if err != nil {
		return "", svcErr.Internal(err)
	}
	return access, nil
}

// Logout forgets the refresh token. Unknown tokens are fine.
func (s *Service) Logout(ctx context.Context, in RefreshInput) error {
	if err := s.tokenRepo.Delete(ctx, in.Refresh); err != nil {
		return svcErr.Map(err)
	}
	return nil
}
