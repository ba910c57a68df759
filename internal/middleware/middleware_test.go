package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchfeed/internal/config"
	"github.com/oggyb/matchfeed/internal/logger"
	"github.com/oggyb/matchfeed/internal/security"
)

func newTokens() *security.TokenManager {
	cfg := &config.Config{}
	cfg.JWT.AccessSecret = "test-access-secret-0123456789"
	cfg.JWT.RefreshSecret = "test-refresh-secret-0123456789"
	cfg.JWT.AccessTTL = time.Minute
	cfg.JWT.RefreshTTL = time.Hour
	return security.NewTokenManager(cfg)
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestJWTAuth(t *testing.T) {
	tokens := newTokens()
	var seen string
	h := JWTAuth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	access, err := tokens.IssueAccess("user-1")
	require.NoError(t, err)
	refresh, _, err := tokens.IssueRefresh("user-1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, "NO_TOKEN"},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"garbage", "Bearer nope", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"refresh token", "Bearer " + refresh, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"valid", "Bearer " + access, http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				body := decodeErr(t, rec)
				assert.Equal(t, tt.code, body["code"])
				assert.Equal(t, "Unauthorized", body["message"])
				assert.Empty(t, seen)
			} else {
				assert.Equal(t, "user-1", seen)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(0.001, 2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, do("10.0.0.1:1001").Code)

	rec := do("10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "TOO_MANY_REQUESTS", decodeErr(t, rec)["code"])

	// other clients keep their own bucket
	assert.Equal(t, http.StatusOK, do("10.0.0.2:1000").Code)
}

func TestRateLimiterSweep(t *testing.T) {
	rl := newIPRateLimiter(1, 1)
	now := time.Now()
	rl.getLimiter("a", now.Add(-2*visitorTTL))
	rl.getLimiter("b", now)
	require.Equal(t, 2, rl.size())

	rl.sweep(now)
	assert.Equal(t, 1, rl.size())
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(&logger.Config{Level: "info", Format: logger.FormatJSON, Output: &buf})
	t.Cleanup(func() { logger.Init(&logger.Config{Level: "info", Format: logger.FormatText, Output: os.Stdout}) })

	var scoped bool
	h := chimw.RequestID(RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scoped = logger.FromContext(r.Context()) != logger.L()
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hi"))
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed", nil))

	assert.True(t, scoped)
	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "request", line["msg"])
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "/feed", line["path"])
	assert.EqualValues(t, http.StatusTeapot, line["status"])
	assert.EqualValues(t, 2, line["bytes"])
	assert.NotEmpty(t, line["request_id"])
}
