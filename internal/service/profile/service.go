// Package profile serves the signed-in user's own profile, preferences and photos.
package profile

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/matchfeed/internal/app"
	"github.com/oggyb/matchfeed/internal/db"
	svcErr "github.com/oggyb/matchfeed/internal/errors"
	"github.com/oggyb/matchfeed/internal/repository"
	"github.com/oggyb/matchfeed/internal/service/feed"
)

// BirthdayLayout is the wire format of birthdays.
const BirthdayLayout = "2006-01-02"

// MinAge is the youngest allowed account holder.
const MinAge = 18

type Service struct {
	appCtx    *app.AppContext
	userRepo  *repository.UserRepository
	prefsRepo *repository.PreferencesRepository
	photoRepo *repository.PhotoRepository
	now       func() time.Time
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:    appCtx,
		userRepo:  repository.NewUserRepository(appCtx.DB),
		prefsRepo: repository.NewPreferencesRepository(appCtx.DB),
		photoRepo: repository.NewPhotoRepository(appCtx.DB),
		now:       db.Now,
	}
}

// User is the body of GET /me.
type User struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	Username       string  `json:"username"`
	Name           *string `json:"name"`
	Bio            *string `json:"bio"`
	City           *string `json:"city"`
	Gender         *string `json:"gender"`
	Birthday       *string `json:"birthday"`
	IsVerified     bool    `json:"isVerified"`
	OnboardingDone bool    `json:"onboardingDone"`
}

func newUser(u *db.User) *User {
	out := &User{
		ID:             u.ID,
		Email:          u.Email,
		Username:       u.Username,
		Name:           u.Name,
		Bio:            u.Bio,
		City:           u.City,
		IsVerified:     u.IsVerified,
		OnboardingDone: u.OnboardingDone,
	}
	if u.Gender != "" {
		g := u.Gender
		out.Gender = &g
	}
	if u.Birthday != nil {
		b := u.Birthday.UTC().Format(BirthdayLayout)
		out.Birthday = &b
	}
	return out
}

// MeUpdate is a partial profile update; nil fields are left alone.
type MeUpdate struct {
	Name           *string `json:"name" validate:"omitnil,min=1,max=100"`
	Bio            *string `json:"bio" validate:"omitnil,min=1,max=1000"`
	City           *string `json:"city" validate:"omitnil,min=1,max=100"`
	Gender         *string `json:"gender" validate:"omitnil,oneof=male female other"`
	Birthday       *string `json:"birthday" validate:"omitnil,datetime=2006-01-02"`
	OnboardingDone *bool   `json:"onboardingDone"`
}

func (s *Service) Me(ctx context.Context, userID string) (*User, error) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("User not found")
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return newUser(u), nil
}

// UpdateMe applies a partial update.
//
// Behavior:
//   - birthday must parse as YYYY-MM-DD and be at least MinAge years ago.
//   - A user deleted in the meantime is NOT_FOUND.
func (s *Service) UpdateMe(ctx context.Context, userID string, in MeUpdate) (*User, error) {
	s.appCtx.Logger.Debug("UpdateMe called", "user", userID)

	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Bio != nil {
		fields["bio"] = *in.Bio
	}
	if in.City != nil {
		fields["city"] = *in.City
	}
	if in.Gender != nil {
		fields["gender"] = *in.Gender
	}
	if in.OnboardingDone != nil {
		fields["onboarding_done"] = *in.OnboardingDone
	}
	if in.Birthday != nil {
		b, err := time.ParseInLocation(BirthdayLayout, *in.Birthday, time.UTC)
		if err != nil {
			return nil, svcErr.BadInput("birthday: must be YYYY-MM-DD")
		}
		if b.After(s.now().AddDate(-MinAge, 0, 0)) {
			return nil, svcErr.BadInput("birthday: must be at least 18 years ago")
		}
		fields["birthday"] = b
	}

	u, err := s.userRepo.Update(ctx, userID, fields)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("User not found")
	}
	if err != nil {
		s.appCtx.Logger.Error("Update user failed", "user", userID, "err", err)
		return nil, svcErr.Map(err)
	}
	if in.Gender != nil || in.Birthday != nil {
		feed.InvalidateCounts(ctx, s.appCtx)
	}
	return newUser(u), nil
}
