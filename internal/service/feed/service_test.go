package feed_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchfeed/internal/app/apptest"
	"github.com/oggyb/matchfeed/internal/db"
	"github.com/oggyb/matchfeed/internal/db/dbtest"
	"github.com/oggyb/matchfeed/internal/repository"
	"github.com/oggyb/matchfeed/internal/service/feed"
	"github.com/oggyb/matchfeed/internal/service/profile"
)

//
// Test helpers
//

// clock is a settable time source for the dedup window.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock { return &clock{t: db.Now()} }

// firstOffset makes random picks deterministic: always the lowest id.
func firstOffset(int) int { return 0 }

func ids(resp *feed.Response) (out []string) {
	for _, it := range resp.Items {
		out = append(out, it.ID)
	}
	return out
}

type fixture struct {
	env   *apptest.Env
	clock *clock
	svc   *feed.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	env := apptest.New(t)
	c := newClock()
	return &fixture{
		env:   env,
		clock: c,
		svc:   feed.NewService(env.App, feed.WithClock(c.now), feed.WithRandom(firstOffset)),
	}
}

func (f *fixture) user(t *testing.T, o dbtest.UserOpts) db.User {
	t.Helper()
	return dbtest.CreateUser(t, f.env.App.DB, o)
}

func (f *fixture) list(t *testing.T, viewerID string, limit int, cursor *string) *feed.Response {
	t.Helper()
	resp, err := f.svc.Get(context.Background(), feed.Request{ViewerID: viewerID, Limit: limit, Cursor: cursor, Mode: feed.ModeList})
	require.NoError(t, err)
	return resp
}

func (f *fixture) sticky(t *testing.T, viewerID string) *feed.Response {
	t.Helper()
	resp, err := f.svc.Get(context.Background(), feed.Request{ViewerID: viewerID, Mode: feed.ModeSticky, Debug: true})
	require.NoError(t, err)
	return resp
}

func (f *fixture) clearSeen(t *testing.T) {
	t.Helper()
	require.NoError(t, f.env.App.DB.Exec("DELETE FROM feed_seen").Error)
}

//
// Tests
//

func TestFeedRespectsPreferences(t *testing.T) {
	f := setup(t)
	viewer := f.user(t, dbtest.UserOpts{Username: "viewer", Gender: db.GenderMale, Age: 30})
	dbtest.SetPreferences(t, f.env.App.DB, db.Preferences{
		UserID: viewer.ID, AgeMin: 20, AgeMax: 40, DistanceKm: 100,
		ShowGenders: db.GenderList{db.GenderFemale},
	})

	f.user(t, dbtest.UserOpts{Username: "male25", Gender: db.GenderMale, Age: 25})
	f.user(t, dbtest.UserOpts{Username: "female50", Gender: db.GenderFemale, Age: 50})
	f.user(t, dbtest.UserOpts{Username: "female18", Gender: db.GenderFemale, Age: 18})
	f.user(t, dbtest.UserOpts{Username: "nobirthday", Gender: db.GenderFemale})
	unverified := f.user(t, dbtest.UserOpts{Username: "female25", Gender: db.GenderFemale, Age: 25})
	verified := f.user(t, dbtest.UserOpts{Username: "verified", Gender: db.GenderFemale, Age: 33, Verified: true})

	resp := f.list(t, viewer.ID, 50, nil)
	assert.ElementsMatch(t, []string{unverified.ID, verified.ID}, ids(resp))
	assert.False(t, resp.Exhausted)
	for _, it := range resp.Items {
		require.NotNil(t, it.Age)
		assert.GreaterOrEqual(t, *it.Age, 20)
		assert.LessOrEqual(t, *it.Age, 40)
	}

	require.NoError(t, f.env.App.DB.Model(&db.Preferences{}).
		Where("user_id = ?", viewer.ID).Update("only_verified", true).Error)
	f.clearSeen(t)

	resp = f.list(t, viewer.ID, 50, nil)
	assert.Equal(t, []string{verified.ID}, ids(resp))
}

func TestFeedDedupWindow(t *testing.T) {
	f := setup(t)
	viewer := f.user(t, dbtest.UserOpts{Username: "viewer", Age: 30})
	a := f.user(t, dbtest.UserOpts{Username: "a", Gender: db.GenderFemale, Age: 25})
	b := f.user(t, dbtest.UserOpts{Username: "b", Gender: db.GenderOther, Age: 26})

	first := f.list(t, viewer.ID, 1, nil)
	require.Len(t, first.Items, 1)
	assert.Equal(t, a.ID, first.Items[0].ID)

	f.clock.advance(5 * time.Second)
	second := f.list(t, viewer.ID, 1, nil)
	assert.Equal(t, []string{b.ID}, ids(second))

	f.clock.advance(5 * time.Second)
	third := f.list(t, viewer.ID, 1, nil)
	assert.Empty(t, third.Items)
	assert.True(t, third.Exhausted)
	require.NotNil(t, third.RetryAfterSec)
	assert.Equal(t, 30, *third.RetryAfterSec)
	assert.Nil(t, third.NextCursor)

	// a was seen 40s ago, b 35s ago
	f.clock.advance(30 * time.Second)
	again := f.list(t, viewer.ID, 50, nil)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids(again))
	assert.Nil(t, again.RetryAfterSec)
}

func TestFeedPaginationTermination(t *testing.T) {
	f := setup(t)
	viewer := f.user(t, dbtest.UserOpts{Username: "viewer", Age: 30})
	want := map[string]bool{}
	for _, name := range []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7"} {
		want[f.user(t, dbtest.UserOpts{Username: name, Gender: db.GenderFemale, Age: 27}).ID] = true
	}

	got := map[string]bool{}
	var cursor *string
	for {
		resp := f.list(t, viewer.ID, 3, cursor)
		if len(resp.Items) == 3 {
			assert.NotNil(t, resp.NextCursor)
		} else {
			assert.Nil(t, resp.NextCursor)
		}
		for _, id := range ids(resp) {
			assert.False(t, got[id], "duplicate id %s", id)
			got[id] = true
		}
		if resp.NextCursor == nil {
			break
		}
		cursor = resp.NextCursor
	}
	assert.Equal(t, want, got)
}

func TestFeedExcludesBlocksAndMatches(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	viewer := f.user(t, dbtest.UserOpts{Username: "viewer", Age: 30})
	blocked := f.user(t, dbtest.UserOpts{Username: "blocked", Gender: db.GenderFemale, Age: 25})
	blocker := f.user(t, dbtest.UserOpts{Username: "blocker", Gender: db.GenderFemale, Age: 25})
	matched := f.user(t, dbtest.UserOpts{Username: "matched", Gender: db.GenderFemale, Age: 25})
	visible := f.user(t, dbtest.UserOpts{Username: "visible", Gender: db.GenderFemale, Age: 25})

	blocks := repository.NewBlockRepository(f.env.App.DB)
	_, err := blocks.Create(ctx, viewer.ID, blocked.ID)
	require.NoError(t, err)
	_, err = blocks.Create(ctx, blocker.ID, viewer.ID)
	require.NoError(t, err)
	_, err = repository.NewMatchRepository(f.env.App.DB).CreateIfAbsent(ctx, matched.ID, viewer.ID)
	require.NoError(t, err)

	resp, err := f.svc.Get(ctx, feed.Request{ViewerID: viewer.ID, Limit: 20, Mode: feed.ModeList, Debug: true})
	require.NoError(t, err)
	assert.Equal(t, []string{visible.ID}, ids(resp))

	require.NotNil(t, resp.Debug)
	assert.Equal(t, feed.ExcludeCounts{BlockedByMe: 1, BlockedMe: 1, MatchedPeers: 1}, resp.Debug.ExcludeCounts)
	assert.EqualValues(t, 4, resp.Debug.EligibleTotal)
	assert.False(t, resp.Debug.UsedFallback)
}

func TestFeedFallbackOnlyWhenNobodyMatches(t *testing.T) {
	f := setup(t)
	viewer := f.user(t, dbtest.UserOpts{Username: "viewer", Age: 30})
	dbtest.SetPreferences(t, f.env.App.DB, db.Preferences{
		UserID: viewer.ID, AgeMin: 18, AgeMax: 60, DistanceKm: 100,
		ShowGenders: db.GenderList{db.GenderOther}, OnlyVerified: true,
	})
	m := f.user(t, dbtest.UserOpts{Username: "m", Gender: db.GenderMale, Age: 40})
	n := f.user(t, dbtest.UserOpts{Username: "n"})

	resp, err := f.svc.Get(context.Background(), feed.Request{ViewerID: viewer.ID, Limit: 20, Mode: feed.ModeList, Debug: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{m.ID, n.ID}, ids(resp))
	require.NotNil(t, resp.Debug)
	assert.True(t, resp.Debug.UsedFallback)
	assert.Zero(t, resp.Debug.EligibleTotal)

	// fallback rows are recorded as seen too
	f.clock.advance(time.Second)
	resp = f.list(t, viewer.ID, 20, nil)
	assert.True(t, resp.Exhausted)
}

func TestFeedNoFallbackWhenEligibleButSeen(t *testing.T) {
	f := setup(t)
	viewer := f.user(t, dbtest.UserOpts{Username: "viewer", Age: 30})
	dbtest.SetPreferences(t, f.env.App.DB, db.Preferences{
		UserID: viewer.ID, AgeMin: 18, AgeMax: 60, DistanceKm: 100,
		ShowGenders: db.GenderList{db.GenderFemale},
	})
	only := f.user(t, dbtest.UserOpts{Username: "only", Gender: db.GenderFemale, Age: 22})
	f.user(t, dbtest.UserOpts{Username: "male", Gender: db.GenderMale, Age: 22})

	resp := f.list(t, viewer.ID, 20, nil)
	assert.Equal(t, []string{only.ID}, ids(resp))

	resp = f.list(t, viewer.ID, 20, nil)
	assert.Empty(t, resp.Items)
	assert.True(t, resp.Exhausted)
}

func TestStickyKeepsCandidateUntilDecision(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	viewer := f.user(t, dbtest.UserOpts{Username: "viewer", Age: 30})
	a := f.user(t, dbtest.UserOpts{Username: "a", Gender: db.GenderFemale, Age: 25})
	b := f.user(t, dbtest.UserOpts{Username: "b", Gender: db.GenderFemale, Age: 25})

	first := f.sticky(t, viewer.ID)
	require.Len(t, first.Items, 1)
	assert.Equal(t, a.ID, first.Items[0].ID)
	assert.Nil(t, first.NextCursor)
	assert.False(t, first.Exhausted)

	f.clock.advance(2 * time.Second)
	again := f.sticky(t, viewer.ID)
	assert.Equal(t, []string{a.ID}, ids(again))

	require.NoError(t, repository.NewInteractionRepository(f.env.App.DB).Upsert(ctx, viewer.ID, a.ID, false))

	next := f.sticky(t, viewer.ID)
	assert.Equal(t, []string{b.ID}, ids(next))

	require.NoError(t, repository.NewInteractionRepository(f.env.App.DB).Upsert(ctx, viewer.ID, b.ID, true))

	done := f.sticky(t, viewer.ID)
	assert.Empty(t, done.Items)
	assert.True(t, done.Exhausted)
	require.NotNil(t, done.RetryAfterSec)
	assert.False(t, done.Debug.UsedFallback)
}

func TestStickyDropsAnchorThatNoLongerQualifies(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	viewer := f.user(t, dbtest.UserOpts{Username: "viewer", Age: 30})
	a := f.user(t, dbtest.UserOpts{Username: "a", Gender: db.GenderFemale, Age: 25})
	b := f.user(t, dbtest.UserOpts{Username: "b", Gender: db.GenderFemale, Age: 25})

	first := f.sticky(t, viewer.ID)
	assert.Equal(t, []string{a.ID}, ids(first))

	_, err := repository.NewBlockRepository(f.env.App.DB).Create(ctx, a.ID, viewer.ID)
	require.NoError(t, err)

	next := f.sticky(t, viewer.ID)
	assert.Equal(t, []string{b.ID}, ids(next))
}

func TestStickyFallbackPool(t *testing.T) {
	f := setup(t)
	viewer := f.user(t, dbtest.UserOpts{Username: "viewer", Age: 30})
	dbtest.SetPreferences(t, f.env.App.DB, db.Preferences{
		UserID: viewer.ID, AgeMin: 90, AgeMax: 99, DistanceKm: 100,
		ShowGenders: db.GenderList{db.GenderFemale},
	})
	other := f.user(t, dbtest.UserOpts{Username: "other", Gender: db.GenderMale, Age: 25})

	resp := f.sticky(t, viewer.ID)
	assert.Equal(t, []string{other.ID}, ids(resp))
	assert.True(t, resp.Debug.UsedFallback)

	// the fallback pick stays sticky
	f.clock.advance(time.Second)
	resp = f.sticky(t, viewer.ID)
	assert.Equal(t, []string{other.ID}, ids(resp))
}

func TestEligibleCountIsCached(t *testing.T) {
	f := setup(t)
	viewer := f.user(t, dbtest.UserOpts{Username: "viewer", Age: 30})
	f.user(t, dbtest.UserOpts{Username: "a", Gender: db.GenderFemale, Age: 25})

	resp, err := f.svc.Get(context.Background(), feed.Request{ViewerID: viewer.ID, Mode: feed.ModeList, Debug: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, resp.Debug.EligibleTotal)

	keys := f.env.Redis.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], viewer.ID)
	val, err := f.env.Redis.Get(keys[0])
	require.NoError(t, err)
	assert.Equal(t, "1", val)

	// a raw insert does not invalidate, so the count holds until the TTL lapses
	f.user(t, dbtest.UserOpts{Username: "b", Gender: db.GenderFemale, Age: 25})
	resp, err = f.svc.Get(context.Background(), feed.Request{ViewerID: viewer.ID, Mode: feed.ModeList, Debug: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, resp.Debug.EligibleTotal)

	f.env.Redis.FastForward(31 * time.Second)
	resp, err = f.svc.Get(context.Background(), feed.Request{ViewerID: viewer.ID, Mode: feed.ModeList, Debug: true})
	require.NoError(t, err)
	assert.EqualValues(t, 2, resp.Debug.EligibleTotal)

	// invalidation is immediate
	f.user(t, dbtest.UserOpts{Username: "c", Gender: db.GenderFemale, Age: 25})
	feed.InvalidateCounts(context.Background(), f.env.App)
	resp, err = f.svc.Get(context.Background(), feed.Request{ViewerID: viewer.ID, Mode: feed.ModeList, Debug: true})
	require.NoError(t, err)
	assert.EqualValues(t, 3, resp.Debug.EligibleTotal)
}

func TestFeedFallsBackWhenLastEligibleUserChangesProfile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	profiles := profile.NewService(f.env.App)

	viewer := f.user(t, dbtest.UserOpts{Username: "viewer", Gender: db.GenderMale, Age: 30})
	dbtest.SetPreferences(t, f.env.App.DB, db.Preferences{
		UserID: viewer.ID, AgeMin: 18, AgeMax: 60, DistanceKm: 100,
		ShowGenders: db.GenderList{db.GenderFemale},
	})
	her := f.user(t, dbtest.UserOpts{Username: "her", Gender: db.GenderFemale, Age: 28})
	him := f.user(t, dbtest.UserOpts{Username: "him", Gender: db.GenderMale, Age: 35})

	resp := f.list(t, viewer.ID, 20, nil)
	assert.Equal(t, []string{her.ID}, ids(resp))

	other := db.GenderOther
	_, err := profiles.UpdateMe(ctx, her.ID, profile.MeUpdate{Gender: &other})
	require.NoError(t, err)
	f.clock.advance(5 * time.Second)

	resp, err = f.svc.Get(ctx, feed.Request{ViewerID: viewer.ID, Limit: 20, Mode: feed.ModeList, Debug: true})
	require.NoError(t, err)
	assert.Equal(t, []string{him.ID}, ids(resp))
	assert.False(t, resp.Exhausted)
	assert.Zero(t, resp.Debug.EligibleTotal)
	assert.True(t, resp.Debug.UsedFallback)
}

func TestFeedStopsFallingBackOnceSomeoneQualifies(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	profiles := profile.NewService(f.env.App)

	viewer := f.user(t, dbtest.UserOpts{Username: "viewer", Gender: db.GenderMale, Age: 30})
	dbtest.SetPreferences(t, f.env.App.DB, db.Preferences{
		UserID: viewer.ID, AgeMin: 18, AgeMax: 60, DistanceKm: 100,
		ShowGenders: db.GenderList{db.GenderFemale},
	})
	later := f.user(t, dbtest.UserOpts{Username: "later", Gender: db.GenderOther, Age: 28})

	resp, err := f.svc.Get(ctx, feed.Request{ViewerID: viewer.ID, Limit: 20, Mode: feed.ModeList, Debug: true})
	require.NoError(t, err)
	assert.Equal(t, []string{later.ID}, ids(resp))
	assert.True(t, resp.Debug.UsedFallback)

	female := db.GenderFemale
	_, err = profiles.UpdateMe(ctx, later.ID, profile.MeUpdate{Gender: &female})
	require.NoError(t, err)
	f.clock.advance(5 * time.Second)

	// she is eligible but seen within the window: exhausted, not fallback
	resp, err = f.svc.Get(ctx, feed.Request{ViewerID: viewer.ID, Limit: 20, Mode: feed.ModeList, Debug: true})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.True(t, resp.Exhausted)
	assert.EqualValues(t, 1, resp.Debug.EligibleTotal)
	assert.False(t, resp.Debug.UsedFallback)
}
