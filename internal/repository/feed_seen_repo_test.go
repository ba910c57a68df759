package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchfeed/internal/db"
	"github.com/oggyb/matchfeed/internal/db/dbtest"
	"github.com/oggyb/matchfeed/internal/repository"
)

func TestFeedSeenTouchUpserts(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.New(t)
	repo := repository.NewFeedSeenRepository(gdb)

	v := dbtest.CreateUser(t, gdb, dbtest.UserOpts{Username: "viewer"})
	a := dbtest.CreateUser(t, gdb, dbtest.UserOpts{Username: "a"})
	b := dbtest.CreateUser(t, gdb, dbtest.UserOpts{Username: "b"})

	old := db.Now().Add(-time.Minute)
	require.NoError(t, repo.Touch(ctx, v.ID, []string{a.ID, b.ID}, old))
	require.NoError(t, repo.Touch(ctx, v.ID, nil, old))

	recent, err := repo.RecentIDs(ctx, v.ID, db.Now().Add(-30*time.Second))
	require.NoError(t, err)
	assert.Empty(t, recent)

	now := db.Now()
	require.NoError(t, repo.Touch(ctx, v.ID, []string{b.ID}, now))

	var count int64
	require.NoError(t, gdb.Model(&db.FeedSeen{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	recent, err = repo.RecentIDs(ctx, v.ID, now.Add(-30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, recent)

	latest, err := repo.MostRecent(ctx, v.ID, now.Add(-30*time.Second))
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, b.ID, latest.SeenUserID)

	none, err := repo.MostRecent(ctx, a.ID, now.Add(-30*time.Second))
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestFeedSeenMostRecentBreaksTiesByID(t *testing.T) {
	ctx := context.Background()
	gdb := dbtest.New(t)
	repo := repository.NewFeedSeenRepository(gdb)

	v := dbtest.CreateUser(t, gdb, dbtest.UserOpts{Username: "viewer"})
	a := dbtest.CreateUser(t, gdb, dbtest.UserOpts{Username: "a"})
	b := dbtest.CreateUser(t, gdb, dbtest.UserOpts{Username: "b"})
	c := dbtest.CreateUser(t, gdb, dbtest.UserOpts{Username: "c"})

	now := db.Now()
	require.NoError(t, repo.Touch(ctx, v.ID, []string{c.ID, a.ID, b.ID}, now))

	want := a.ID
	for _, id := range []string{b.ID, c.ID} {
		if id > want {
			want = id
		}
	}
	for i := 0; i < 3; i++ {
		latest, err := repo.MostRecent(ctx, v.ID, now.Add(-30*time.Second))
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, want, latest.SeenUserID)
	}
}
