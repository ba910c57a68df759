package profile

import (
	"context"

	"github.com/oggyb/matchfeed/internal/db"
	svcErr "github.com/oggyb/matchfeed/internal/errors"
)

// Preferences is the body of GET|PATCH /me/preferences.
type Preferences struct {
	AgeMin       int      `json:"ageMin"`
	AgeMax       int      `json:"ageMax"`
	DistanceKm   int      `json:"distanceKm"`
	ShowGenders  []string `json:"showGenders"`
	OnlyVerified bool     `json:"onlyVerified"`
}

func newPreferences(p *db.Preferences) *Preferences {
	return &Preferences{
		AgeMin:       p.AgeMin,
		AgeMax:       p.AgeMax,
		DistanceKm:   p.DistanceKm,
		ShowGenders:  append([]string{}, p.ShowGenders...),
		OnlyVerified: p.OnlyVerified,
	}
}

// PreferencesUpdate is a partial update. An explicit empty showGenders is invalid.
type PreferencesUpdate struct {
	AgeMin       *int      `json:"ageMin" validate:"omitnil,min=18,max=99"`
	AgeMax       *int      `json:"ageMax" validate:"omitnil,min=18,max=99"`
	DistanceKm   *int      `json:"distanceKm" validate:"omitnil,min=1,max=500"`
	ShowGenders  *[]string `json:"showGenders" validate:"omitnil,min=1,max=3,dive,oneof=male female other"`
	OnlyVerified *bool     `json:"onlyVerified"`
}

// GetPreferences returns stored preferences, persisting defaults on first read.
func (s *Service) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	p, err := s.prefsRepo.GetOrCreate(ctx, userID)
	if err != nil {
		s.appCtx.Logger.Error("GetOrCreate preferences failed", "user", userID, "err", err)
		return nil, svcErr.Map(err)
	}
	return newPreferences(p), nil
}

// UpdatePreferences merges in over the current values (or defaults) and upserts.
//
// Behavior:
//   - ageMin <= ageMax is checked on the merged result, so a patch of only
//     ageMin is validated against the stored ageMax.
//   - distanceKm is stored but never used by the feed filter.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, in PreferencesUpdate) (*Preferences, error) {
	s.appCtx.Logger.Debug("UpdatePreferences called", "user", userID)

	current, err := s.prefsRepo.Find(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	merged := db.DefaultPreferences(userID)
	if current != nil {
		merged = *current
	}

	if in.AgeMin != nil {
		merged.AgeMin = *in.AgeMin
	}
	if in.AgeMax != nil {
		merged.AgeMax = *in.AgeMax
	}
	if in.DistanceKm != nil {
		merged.DistanceKm = *in.DistanceKm
	}
	if in.ShowGenders != nil {
		merged.ShowGenders = dedupe(*in.ShowGenders)
	}
	if in.OnlyVerified != nil {
		merged.OnlyVerified = *in.OnlyVerified
	}

	if merged.AgeMin > merged.AgeMax {
		return nil, svcErr.BadInput("ageMin must be <= ageMax")
	}
	if len(merged.ShowGenders) == 0 {
		return nil, svcErr.BadInput("showGenders: must not be empty")
	}

	if err := s.prefsRepo.Upsert(ctx, &merged); err != nil {
		s.appCtx.Logger.Error("Upsert preferences failed", "user", userID, "err", err)
		return nil, svcErr.Map(err)
	}
	return newPreferences(&merged), nil
}

func dedupe(genders []string) db.GenderList {
	seen := make(map[string]bool, len(genders))
	out := make(db.GenderList, 0, len(genders))
	for _, g := range genders {
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	return out
}
