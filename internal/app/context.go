package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/matchfeed/internal/cache"
	"github.com/oggyb/matchfeed/internal/config"
	"github.com/oggyb/matchfeed/internal/security"
	"github.com/oggyb/matchfeed/internal/storage"
)

// AppContext holds shared dependencies (DB, Redis, Logger, etc.)
// RedisCache may be nil; callers then skip caching.
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Tokens     *security.TokenManager
	Storage    storage.Store
}

// New creates a new AppContext
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, store storage.Store) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Tokens:     security.NewTokenManager(cfg),
		Storage:    store,
	}
}
