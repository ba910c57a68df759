// Package apptest wires an AppContext for tests: in-memory sqlite, miniredis
// and a temp-dir photo store.
package apptest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchfeed/internal/app"
	"github.com/oggyb/matchfeed/internal/cache"
	"github.com/oggyb/matchfeed/internal/config"
	"github.com/oggyb/matchfeed/internal/db/dbtest"
	"github.com/oggyb/matchfeed/internal/logger"
	"github.com/oggyb/matchfeed/internal/storage"
)

// Config returns the defaults the service runs with, minus the environment.
func Config(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.DB.Driver = "sqlite"
	cfg.HTTP.CORSOrigin = "http://localhost:5173"
	cfg.JWT.AccessSecret = "test-access-secret-0123456789"
	cfg.JWT.RefreshSecret = "test-refresh-secret-0123456789"
	cfg.JWT.AccessTTL = 15 * time.Minute
	cfg.JWT.RefreshTTL = 30 * 24 * time.Hour
	cfg.Storage.Driver = "local"
	cfg.Storage.UploadDir = filepath.Join(t.TempDir(), "uploads")
	cfg.Storage.MaxUploadBytes = 10 << 20
	cfg.Feed.DedupWindow = 30 * time.Second
	cfg.Feed.CountCacheTTL = 30 * time.Second
	cfg.RateLimit.AuthRPS = 1000
	cfg.RateLimit.AuthBurst = 1000
	return cfg
}

// Env bundles the pieces tests poke at directly.
type Env struct {
	App   *app.AppContext
	Redis *miniredis.Miniredis
}

// New builds a fully wired AppContext.
func New(t *testing.T) *Env {
	t.Helper()
	return NewWithConfig(t, Config(t))
}

func NewWithConfig(t *testing.T, cfg *config.Config) *Env {
	t.Helper()

	gdb := dbtest.New(t)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	cfg.Redis.Addr = mr.Addr()
	rc := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = rc.Close() })

	store, err := storage.NewLocalStore(cfg.Storage.UploadDir)
	require.NoError(t, err)

	return &Env{
		App:   app.New(cfg, gdb, rc, logger.Discard(), store),
		Redis: mr,
	}
}
