package storage_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchfeed/internal/config"
	"github.com/oggyb/matchfeed/internal/storage"
)

func TestLocalStoreSaveAndRemove(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := storage.NewLocalStore(dir)
	require.NoError(t, err)

	url, err := s.Save(ctx, "123_abc.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/123_abc.png", url)

	b, err := os.ReadFile(filepath.Join(dir, "123_abc.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(b))

	require.NoError(t, s.Remove(ctx, url))
	_, err = os.Stat(filepath.Join(dir, "123_abc.png"))
	assert.True(t, os.IsNotExist(err))

	// removing twice is fine
	assert.NoError(t, s.Remove(ctx, url))
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := storage.NewLocalStore(dir)
	require.NoError(t, err)

	url, err := s.Save(ctx, "../../escape.png", "image/png", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/escape.png", url)
	_, err = os.Stat(filepath.Join(dir, "escape.png"))
	assert.NoError(t, err)
}

func TestObjectName(t *testing.T) {
	a := storage.ObjectName("me.JPG")
	b := storage.ObjectName("me.JPG")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, ".jpg"))
	assert.False(t, strings.Contains(storage.ObjectName("noext"), "."))
}

type fakeS3 struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	switch r.Method {
	case http.MethodPut:
		b, _ := io.ReadAll(r.Body)
		f.bodies[r.URL.Path] = string(b)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.bodies, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3StoreAgainstFakeEndpoint(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{bodies: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Storage.S3Bucket = "photos-bucket"
	cfg.Storage.S3Prefix = "photos/"
	cfg.Storage.S3Endpoint = srv.URL

	s := storage.NewS3StoreFromConfig(aws.Config{
		Region:      "us-east-1",
		Credentials: aws.AnonymousCredentials{},
	}, cfg)

	url, err := s.Save(ctx, "1_a.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/photos-bucket/photos/1_a.png", url)

	fake.mu.Lock()
	assert.Contains(t, fake.requests, "PUT /photos-bucket/photos/1_a.png")
	assert.Contains(t, fake.bodies["/photos-bucket/photos/1_a.png"], "png-bytes")
	fake.mu.Unlock()

	require.NoError(t, s.Remove(ctx, url))
	fake.mu.Lock()
	assert.Contains(t, fake.requests, "DELETE /photos-bucket/photos/1_a.png")
	fake.mu.Unlock()

	// foreign URLs are ignored
	require.NoError(t, s.Remove(ctx, "/uploads/local.png"))
}
