// Package feed implements discovery: list and sticky candidate selection
// with recency dedup and a fallback pool for sparse populations.
package feed

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/oggyb/matchfeed/internal/app"
	"github.com/oggyb/matchfeed/internal/db"
	svcErr "github.com/oggyb/matchfeed/internal/errors"
	"github.com/oggyb/matchfeed/internal/repository"
	"github.com/oggyb/matchfeed/internal/service/view"
)

const (
	ModeList   = "list"
	ModeSticky = "sticky"

	DefaultLimit = 20
	MaxLimit     = 50
)

// Request is one feed call.
type Request struct {
	ViewerID string
	Limit    int
	Cursor   *string
	Mode     string
	Debug    bool
}

// Response is the feed body. RetryAfterSec is set only when exhausted.
type Response struct {
	Items         []view.Candidate `json:"items"`
	NextCursor    *string          `json:"nextCursor,omitempty"`
	Exhausted     bool             `json:"exhausted"`
	RetryAfterSec *int             `json:"retryAfterSec,omitempty"`
	Debug         *Debug           `json:"debug,omitempty"`
}

type ExcludeCounts struct {
	BlockedByMe  int `json:"blockedByMe"`
	BlockedMe    int `json:"blockedMe"`
	SeenRecent   int `json:"seenRecent"`
	MatchedPeers int `json:"matchedPeers"`
}

// Debug explains why a feed came back the way it did.
type Debug struct {
	ViewerID      string        `json:"viewerId"`
	Prefs         Prefs         `json:"prefs"`
	ExcludeCounts ExcludeCounts `json:"excludeCounts"`
	EligibleTotal int64         `json:"eligibleTotal"`
	UsedFallback  bool          `json:"usedFallback"`
}

// Service is the feed engine.
type Service struct {
	appCtx *app.AppContext

	userRepo  *repository.UserRepository
	prefsRepo *repository.PreferencesRepository
	blockRepo *repository.BlockRepository
	matchRepo *repository.MatchRepository
	seenRepo  *repository.FeedSeenRepository
	interRepo *repository.InteractionRepository

	window time.Duration
	now    func() time.Time
	intN   func(n int) int
}

// Option customizes a Service; used by tests to pin time and randomness.
type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithRandom(intN func(n int) int) Option { return func(s *Service) { s.intN = intN } }

// NewService wires the feed engine from AppContext.
// The dedup window comes from FEED_DEDUP_WINDOW.
func NewService(appCtx *app.AppContext, opts ...Option) *Service {
	s := &Service{
		appCtx:    appCtx,
		userRepo:  repository.NewUserRepository(appCtx.DB),
		prefsRepo: repository.NewPreferencesRepository(appCtx.DB),
		blockRepo: repository.NewBlockRepository(appCtx.DB),
		matchRepo: repository.NewMatchRepository(appCtx.DB),
		seenRepo:  repository.NewFeedSeenRepository(appCtx.DB),
		interRepo: repository.NewInteractionRepository(appCtx.DB),
		window:    appCtx.Config.Feed.DedupWindow,
		now:       db.Now,
		intN:      rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// state is everything both modes compute up front.
type state struct {
	viewerID      string
	now           time.Time
	prefs         Prefs
	ex            Exclusions
	exclude       []string
	eligibleTotal int64
	debug         *Debug
}

// Get serves one feed call in the requested mode.
//
// Behavior:
//   - Preferences are read, never created; missing ones mean defaults.
//   - Exclusions: blocks both ways, candidates seen within the window, matched peers.
//   - eligibleTotal counts the preference predicate with no exclusions.
//     Zero means nobody in the system matches, which enables the fallback pool.
//
// Example:
//
//	svc.Get(ctx, feed.Request{ViewerID: me, Limit: 20, Mode: feed.ModeList})
func (s *Service) Get(ctx context.Context, req Request) (*Response, error) {
	s.appCtx.Logger.Debug("Feed called", "viewer", req.ViewerID, "mode", req.Mode, "limit", req.Limit)

	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}

	st, err := s.prepare(ctx, req)
	if err != nil {
		s.appCtx.Logger.Error("Feed prepare failed", "viewer", req.ViewerID, "err", err)
		return nil, svcErr.Map(err)
	}

	var resp *Response
	if req.Mode == ModeSticky {
		resp, err = s.sticky(ctx, st)
	} else {
		resp, err = s.list(ctx, st, req)
	}
	if err != nil {
		s.appCtx.Logger.Error("Feed query failed", "viewer", req.ViewerID, "mode", req.Mode, "err", err)
		return nil, svcErr.Map(err)
	}

	if resp.Exhausted {
		retry := int(s.window / time.Second)
		resp.RetryAfterSec = &retry
	}
	resp.Debug = st.debug

	s.appCtx.Logger.Debug("Feed result", "viewer", req.ViewerID, "items", len(resp.Items), "exhausted", resp.Exhausted)
	return resp, nil
}

func (s *Service) prepare(ctx context.Context, req Request) (*state, error) {
	now := s.now()
	stored, err := s.prefsRepo.Find(ctx, req.ViewerID)
	if err != nil {
		return nil, err
	}
	prefs := resolvePrefs(stored)

	ex, err := s.exclusions(ctx, req.ViewerID, now.Add(-s.window))
	if err != nil {
		return nil, err
	}

	total, err := s.eligibleTotal(ctx, req.ViewerID, prefs, now)
	if err != nil {
		return nil, err
	}

	st := &state{
		viewerID:      req.ViewerID,
		now:           now,
		prefs:         prefs,
		ex:            ex,
		exclude:       ex.All(),
		eligibleTotal: total,
	}
	if req.Debug {
		st.debug = &Debug{
			ViewerID:      req.ViewerID,
			Prefs:         prefs,
			ExcludeCounts: ex.counts(),
			EligibleTotal: total,
		}
	}
	return st, nil
}

// eligibleTotal is cache-first when Redis is configured.
// Cache errors degrade to a DB count.
func (s *Service) eligibleTotal(ctx context.Context, viewerID string, p Prefs, now time.Time) (int64, error) {
	rc := s.appCtx.RedisCache
	ttl := s.appCtx.Config.Feed.CountCacheTTL

	var key string
	if rc != nil && ttl > 0 {
		key = s.countKey(ctx, viewerID, p)
	}
	if key != "" {
		n, ok, err := rc.GetCount(ctx, key)
		if err != nil {
			s.appCtx.Logger.Warn("Eligible count cache read failed", "key", key, "err", err)
		} else if ok {
			return n, nil
		}
	}

	n, err := s.userRepo.CountCandidates(ctx, eligibleScope(viewerID, p, now))
	if err != nil {
		return 0, err
	}

	if key != "" {
		if err := rc.SetCount(ctx, key, n, ttl); err != nil {
			s.appCtx.Logger.Warn("Eligible count cache write failed", "key", key, "err", err)
		}
	}
	return n, nil
}

// countKey returns "" when the population version is unreadable, which
// bypasses the cache for this call.
func (s *Service) countKey(ctx context.Context, viewerID string, p Prefs) string {
	rc := s.appCtx.RedisCache
	version, err := rc.PopulationVersion(ctx)
	if err != nil {
		s.appCtx.Logger.Warn("Population version read failed", "err", err)
		return ""
	}
	return rc.KeyForEligibleCount(viewerID, p.fingerprint(), version)
}

// InvalidateCounts drops every cached eligible count. Call it after a user
// is created or deleted, or changes gender, birthday or verification.
// Failures are logged; cached counts then live out their TTL.
func InvalidateCounts(ctx context.Context, appCtx *app.AppContext) {
	if appCtx.RedisCache == nil {
		return
	}
	if err := appCtx.RedisCache.BumpPopulation(ctx); err != nil {
		appCtx.Logger.Warn("Population version bump failed", "err", err)
	}
}

// list serves a page ordered by id.
//
// Behavior:
//   - Empty page with eligibleTotal == 0 reruns the query on the fallback
//     pool with the same cursor.
//   - Every returned row is recorded in FeedSeen before responding.
//   - nextCursor iff the page is full; exhausted iff it is empty.
func (s *Service) list(ctx context.Context, st *state, req Request) (*Response, error) {
	users, next, err := s.userRepo.ListCandidates(ctx, baseScope(st.viewerID, st.prefs, st.exclude, st.now), req.Cursor, req.Limit)
	if err != nil {
		return nil, err
	}

	if len(users) == 0 && st.eligibleTotal == 0 {
		users, next, err = s.userRepo.ListCandidates(ctx, fallbackScope(st.viewerID, st.exclude), req.Cursor, req.Limit)
		if err != nil {
			return nil, err
		}
		if st.debug != nil && len(users) > 0 {
			st.debug.UsedFallback = true
		}
	}

	ids := make([]string, 0, len(users))
	items := make([]view.Candidate, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
		items = append(items, view.NewCandidate(u, st.now))
	}
	if err := s.seenRepo.Touch(ctx, st.viewerID, ids, st.now); err != nil {
		return nil, err
	}

	return &Response{Items: items, NextCursor: next, Exhausted: len(items) == 0}, nil
}

// sticky returns at most one candidate and keeps returning it until the
// viewer decides on it or the window lapses.
//
// Behavior:
//   - Anchor: the most recent FeedSeen within the window, re-used when the
//     viewer has no interaction with it and it still passes the predicate
//     (without the recency exclusion it necessarily fails).
//   - Otherwise a uniform random offset into the base pool.
//   - Base empty and eligibleTotal == 0: random pick from the fallback pool.
//   - Base empty and eligibleTotal > 0: exhausted, no fallback.
//   - A newly picked candidate is recorded in FeedSeen as the next anchor.
func (s *Service) sticky(ctx context.Context, st *state) (*Response, error) {
	candidate, err := s.stickyAnchor(ctx, st)
	if err != nil {
		return nil, err
	}

	if candidate == nil {
		candidate, err = s.pickRandom(ctx, baseScope(st.viewerID, st.prefs, st.exclude, st.now))
		if err != nil {
			return nil, err
		}
		if candidate == nil && st.eligibleTotal == 0 {
			candidate, err = s.pickRandom(ctx, fallbackScope(st.viewerID, st.exclude))
			if err != nil {
				return nil, err
			}
			if st.debug != nil && candidate != nil {
				st.debug.UsedFallback = true
			}
		}
		if candidate != nil {
			if err := s.seenRepo.Touch(ctx, st.viewerID, []string{candidate.ID}, st.now); err != nil {
				return nil, err
			}
		}
	}

	if candidate == nil {
		return &Response{Items: []view.Candidate{}, Exhausted: true}, nil
	}
	return &Response{Items: []view.Candidate{view.NewCandidate(*candidate, st.now)}}, nil
}

func (s *Service) stickyAnchor(ctx context.Context, st *state) (*db.User, error) {
	recent, err := s.seenRepo.MostRecent(ctx, st.viewerID, st.now.Add(-s.window))
	if err != nil || recent == nil {
		return nil, err
	}

	decided, err := s.interRepo.Exists(ctx, st.viewerID, recent.SeenUserID)
	if err != nil || decided {
		return nil, err
	}

	scope := baseScope(st.viewerID, st.prefs, st.ex.Durable(), st.now)
	if st.eligibleTotal == 0 {
		scope = fallbackScope(st.viewerID, st.ex.Durable())
	}
	return s.userRepo.FindCandidate(ctx, scope, recent.SeenUserID)
}

// pickRandom counts the pool and fetches the row at a uniform offset.
// This is O(n) in the pool size on the database side.
func (s *Service) pickRandom(ctx context.Context, scope repository.CandidateScope) (*db.User, error) {
	total, err := s.userRepo.CountCandidates(ctx, scope)
	if err != nil || total == 0 {
		return nil, err
	}
	return s.userRepo.CandidateAt(ctx, scope, s.intN(int(total)))
}
