package profile_test

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchfeed/internal/app/apptest"
	"github.com/oggyb/matchfeed/internal/db"
	"github.com/oggyb/matchfeed/internal/db/dbtest"
	svcErr "github.com/oggyb/matchfeed/internal/errors"
	"github.com/oggyb/matchfeed/internal/service/profile"
)

func ptr[T any](v T) *T { return &v }

func setup(t *testing.T) (*apptest.Env, *profile.Service, db.User) {
	t.Helper()
	env := apptest.New(t)
	u := dbtest.CreateUser(t, env.App.DB, dbtest.UserOpts{Username: "alice"})
	return env, profile.NewService(env.App), u
}

func TestMeAndUpdateMe(t *testing.T) {
	_, svc, u := setup(t)
	ctx := context.Background()

	me, err := svc.Me(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)
	assert.Nil(t, me.Gender)
	assert.Nil(t, me.Birthday)

	updated, err := svc.UpdateMe(ctx, u.ID, profile.MeUpdate{
		Name:           ptr("Alice"),
		City:           ptr("Porto"),
		Gender:         ptr(db.GenderFemale),
		Birthday:       ptr("1995-04-02"),
		OnboardingDone: ptr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", *updated.Name)
	assert.Equal(t, "Porto", *updated.City)
	assert.Equal(t, db.GenderFemale, *updated.Gender)
	assert.Equal(t, "1995-04-02", *updated.Birthday)
	assert.True(t, updated.OnboardingDone)
	assert.Nil(t, updated.Bio)

	_, err = svc.UpdateMe(ctx, u.ID, profile.MeUpdate{Birthday: ptr("2020-01-01")})
	assert.True(t, svcErr.Is(err, svcErr.CodeBadInput))

	_, err = svc.UpdateMe(ctx, u.ID, profile.MeUpdate{Birthday: ptr("02/04/1995")})
	assert.True(t, svcErr.Is(err, svcErr.CodeBadInput))

	_, err = svc.UpdateMe(ctx, "missing", profile.MeUpdate{Name: ptr("x")})
	assert.True(t, svcErr.Is(err, svcErr.CodeNotFound))

	_, err = svc.Me(ctx, "missing")
	assert.True(t, svcErr.Is(err, svcErr.CodeNotFound))
}

func TestPreferences(t *testing.T) {
	env, svc, u := setup(t)
	ctx := context.Background()

	p, err := svc.GetPreferences(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, profile.Preferences{AgeMin: 18, AgeMax: 60, DistanceKm: 100, ShowGenders: db.AllGenders}, *p)

	var count int64
	require.NoError(t, env.App.DB.Model(&db.Preferences{}).Where("user_id = ?", u.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	p, err = svc.UpdatePreferences(ctx, u.ID, profile.PreferencesUpdate{
		AgeMin:      ptr(25),
		ShowGenders: ptr([]string{db.GenderFemale, db.GenderFemale}),
	})
	require.NoError(t, err)
	assert.Equal(t, 25, p.AgeMin)
	assert.Equal(t, 60, p.AgeMax)
	assert.Equal(t, []string{db.GenderFemale}, p.ShowGenders)

	// merged ageMin 25 > ageMax 20
	_, err = svc.UpdatePreferences(ctx, u.ID, profile.PreferencesUpdate{AgeMax: ptr(20)})
	require.Error(t, err)
	assert.True(t, svcErr.Is(err, svcErr.CodeBadInput))
	assert.Contains(t, err.Error(), "ageMin must be <= ageMax")

	_, err = svc.UpdatePreferences(ctx, u.ID, profile.PreferencesUpdate{ShowGenders: ptr([]string{})})
	assert.True(t, svcErr.Is(err, svcErr.CodeBadInput))

	again, err := svc.GetPreferences(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, again.AgeMin)
}

func TestUpdatePreferencesWithoutStoredRow(t *testing.T) {
	_, svc, u := setup(t)
	p, err := svc.UpdatePreferences(context.Background(), u.ID, profile.PreferencesUpdate{OnlyVerified: ptr(true)})
	require.NoError(t, err)
	assert.True(t, p.OnlyVerified)
	assert.Equal(t, 18, p.AgeMin)
}

func upload(t *testing.T, svc *profile.Service, userID string, i int) *profile.Photo {
	t.Helper()
	p, err := svc.UploadPhoto(context.Background(), userID, profile.Upload{
		Filename:    fmt.Sprintf("p%d.jpg", i),
		ContentType: "image/jpeg",
		Body:        strings.NewReader("jpeg bytes"),
	})
	require.NoError(t, err)
	return p
}

func TestPhotoOrderInvariant(t *testing.T) {
	env, svc, u := setup(t)
	ctx := context.Background()

	var uploaded []*profile.Photo
	for i := 0; i < 4; i++ {
		p := upload(t, svc, u.ID, i)
		assert.Equal(t, i, p.Order)
		uploaded = append(uploaded, p)
	}

	_, err := svc.UploadPhoto(ctx, u.ID, profile.Upload{Filename: "x.jpg", ContentType: "image/jpeg", Body: strings.NewReader("x")})
	assert.True(t, svcErr.Is(err, svcErr.CodeBadInput))

	blob := filepath.Join(env.App.Config.Storage.UploadDir, path.Base(uploaded[1].URL))
	_, err = os.Stat(blob)
	require.NoError(t, err)

	require.NoError(t, svc.DeletePhoto(ctx, u.ID, uploaded[1].ID))

	_, err = os.Stat(blob)
	assert.True(t, os.IsNotExist(err))

	photos, err := svc.ListPhotos(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, photos, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{photos[0].Order, photos[1].Order, photos[2].Order})
	assert.Equal(t, []string{uploaded[0].ID, uploaded[2].ID, uploaded[3].ID}, []string{photos[0].ID, photos[1].ID, photos[2].ID})

	err = svc.DeletePhoto(ctx, u.ID, uploaded[1].ID)
	assert.True(t, svcErr.Is(err, svcErr.CodeNotFound))
}

func TestUploadRejectsBadInput(t *testing.T) {
	env, svc, u := setup(t)
	ctx := context.Background()

	_, err := svc.UploadPhoto(ctx, u.ID, profile.Upload{})
	assert.True(t, svcErr.Is(err, svcErr.CodeBadInput))

	_, err = svc.UploadPhoto(ctx, u.ID, profile.Upload{Filename: "a.txt", ContentType: "text/plain", Body: strings.NewReader("x")})
	assert.True(t, svcErr.Is(err, svcErr.CodeBadInput))

	entries, err := os.ReadDir(env.App.Config.Storage.UploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
