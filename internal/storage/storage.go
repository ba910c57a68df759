// Package storage keeps uploaded photo blobs. The database only stores the URL.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oggyb/matchfeed/internal/config"
)

// Store saves and removes photo blobs.
type Store interface {
	// Save writes body under name and returns the public URL.
	Save(ctx context.Context, name, contentType string, body io.Reader) (string, error)
	// Remove deletes the blob behind url. Missing blobs are not an error.
	Remove(ctx context.Context, url string) error
}

// New builds the store selected by STORAGE_DRIVER.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Driver {
	case "s3":
		return NewS3Store(ctx, cfg)
	case "local", "":
		return NewLocalStore(cfg.Storage.UploadDir)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// ObjectName builds a collision-free blob name keeping the original extension.
func ObjectName(original string) string {
	ext := strings.ToLower(path.Ext(original))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	return fmt.Sprintf("%d_%s%s", time.Now().UnixMilli(), uuid.NewString()[:8], ext)
}
