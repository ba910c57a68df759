package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/oggyb/matchfeed/internal/db"
	"github.com/oggyb/matchfeed/internal/repository"
)

// Prefs are the preference values the filter reads.
type Prefs struct {
	AgeMin       int      `json:"ageMin"`
	AgeMax       int      `json:"ageMax"`
	ShowGenders  []string `json:"showGenders"`
	OnlyVerified bool     `json:"onlyVerified"`
}

// resolvePrefs falls back to defaults without persisting anything.
func resolvePrefs(stored *db.Preferences) Prefs {
	if stored == nil {
		d := db.DefaultPreferences("")
		stored = &d
	}
	return Prefs{
		AgeMin:       stored.AgeMin,
		AgeMax:       stored.AgeMax,
		ShowGenders:  append([]string(nil), stored.ShowGenders...),
		OnlyVerified: stored.OnlyVerified,
	}
}

// candidatePrefs converts ages to an inclusive birthday window:
// born no earlier than now-ageMax years and no later than now-ageMin years.
func (p Prefs) candidatePrefs(now time.Time) *repository.CandidatePrefs {
	return &repository.CandidatePrefs{
		Genders:      p.ShowGenders,
		OnlyVerified: p.OnlyVerified,
		BornFrom:     now.AddDate(-p.AgeMax, 0, 0),
		BornTo:       now.AddDate(-p.AgeMin, 0, 0),
	}
}

// fingerprint identifies the preference predicate for count caching.
func (p Prefs) fingerprint() string {
	return fmt.Sprintf("%d-%d-%s-%t", p.AgeMin, p.AgeMax, strings.Join(p.ShowGenders, "."), p.OnlyVerified)
}

// baseScope is the primary predicate: preferences plus exclusions.
func baseScope(viewerID string, p Prefs, exclude []string, now time.Time) repository.CandidateScope {
	return repository.CandidateScope{ViewerID: viewerID, Exclude: exclude, Prefs: p.candidatePrefs(now)}
}

// eligibleScope ignores every exclusion; it answers "does anyone match at all".
func eligibleScope(viewerID string, p Prefs, now time.Time) repository.CandidateScope {
	return baseScope(viewerID, p, nil, now)
}

// fallbackScope drops every preference constraint.
func fallbackScope(viewerID string, exclude []string) repository.CandidateScope {
	return repository.CandidateScope{ViewerID: viewerID, Exclude: exclude}
}
