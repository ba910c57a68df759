package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	App struct {
		Env        string `env:"APP_ENV" envDefault:"development"`
		SeedOnBoot bool   `env:"SEED_ON_BOOT" envDefault:"false"`
	}

	Log struct {
		Level     string `env:"LOG_LEVEL" envDefault:"info"`
		Format    string `env:"LOG_FORMAT" envDefault:"text"`
		Component string `env:"LOG_COMPONENT" envDefault:"api"`
		Source    bool   `env:"LOG_SOURCE" envDefault:"false"`
	}

	DB struct {
		Driver     string `env:"DB_DRIVER" envDefault:"mysql"`
		DSN        string `env:"MYSQL_DSN"`
		Host       string `env:"DB_HOST" envDefault:"localhost"`
		Port       string `env:"DB_PORT" envDefault:"3306"`
		User       string `env:"DB_USER" envDefault:"root"`
		Password   string `env:"DB_PASSWORD" envDefault:"root"`
		Name       string `env:"DB_NAME" envDefault:"matchfeed"`
		SQLitePath string `env:"SQLITE_PATH" envDefault:"matchfeed.db"`
	}

	Redis struct {
		Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	HTTP struct {
		Host       string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
		Port       string `env:"HTTP_PORT" envDefault:"8080"`
		CORSOrigin string `env:"CORS_ORIGIN" envDefault:"http://localhost:5173"`
	}

	GRPC struct {
		Enabled bool   `env:"GRPC_ENABLED" envDefault:"true"`
		Host    string `env:"GRPC_HOST" envDefault:"127.0.0.1"`
		Port    string `env:"GRPC_PORT" envDefault:"50051"`
	}

	JWT struct {
		AccessSecret  string        `env:"JWT_ACCESS_SECRET,required"`
		RefreshSecret string        `env:"JWT_REFRESH_SECRET,required"`
		AccessTTL     time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
		RefreshTTL    time.Duration `env:"JWT_REFRESH_TTL" envDefault:"30d"`
	}

	Storage struct {
		Driver          string `env:"STORAGE_DRIVER" envDefault:"local"`
		UploadDir       string `env:"UPLOAD_DIR" envDefault:"./uploads"`
		MaxUploadBytes  int64  `env:"UPLOAD_MAX_BYTES" envDefault:"10485760"`
		S3Bucket        string `env:"S3_BUCKET"`
		S3Region        string `env:"S3_REGION"`
		S3Prefix        string `env:"S3_PREFIX" envDefault:"photos/"`
		S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
		S3Endpoint      string `env:"S3_ENDPOINT"`
	}

	Feed struct {
		DedupWindow   time.Duration `env:"FEED_DEDUP_WINDOW" envDefault:"30s"`
		CountCacheTTL time.Duration `env:"FEED_COUNT_CACHE_TTL" envDefault:"30s"`
	}

	RateLimit struct {
		AuthRPS   float64 `env:"AUTH_RATE_RPS" envDefault:"5"`
		AuthBurst int     `env:"AUTH_RATE_BURST" envDefault:"10"`
	}
}

const minSecretLen = 16

// New reads the configuration from the process environment.
func New() (*Config, error) {
	cfg := &Config{}
	opts := env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(time.Duration(0)): func(v string) (any, error) {
				return ParseTTL(v)
			},
		},
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DB.DSN == "" {
		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if len(c.JWT.AccessSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("JWT_ACCESS_SECRET must be at least %d characters", minSecretLen))
	}
	if len(c.JWT.RefreshSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("JWT_REFRESH_SECRET must be at least %d characters", minSecretLen))
	}
	switch c.DB.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.DB.Driver))
	}
	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when STORAGE_DRIVER=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}
	if c.Feed.DedupWindow <= 0 {
		errs = append(errs, errors.New("FEED_DEDUP_WINDOW must be positive"))
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether APP_ENV selects the development profile.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.App.Env, "development")
}

// ParseTTL accepts Go durations plus a whole-day form like "30d".
func ParseTTL(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", v)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return d, nil
}
