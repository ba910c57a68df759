package pagination_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchfeed/internal/utils/pagination"
)

func TestIDCursorRoundTrip(t *testing.T) {
	token, err := pagination.Encode(pagination.IDCursor{ID: "0192f3a1-7c4e-7000-8000-000000000001"})
	require.NoError(t, err)

	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
	assert.Equal(t, "0192f3a1-7c4e-7000-8000-000000000001", pagination.DecodeID(token))
}

func TestTimeCursorRoundTrip(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 30, 15, 123_000_000, time.UTC)
	token, err := pagination.Encode(pagination.TimeCursor{CreatedAt: ts, ID: "m1"})
	require.NoError(t, err)

	c, ok := pagination.DecodeTime(token)
	require.True(t, ok)
	assert.True(t, ts.Equal(c.CreatedAt))
	assert.Equal(t, "m1", c.ID)
}

func TestDecodeAcceptsTimestampOnlyTokens(t *testing.T) {
	token := base64.RawURLEncoding.EncodeToString([]byte(`{"createdAt":"2025-03-01T12:30:15.123Z"}`))

	c, ok := pagination.DecodeTime(token)
	require.True(t, ok)
	assert.Empty(t, c.ID)
	assert.Equal(t, 2025, c.CreatedAt.Year())
}

func TestDecodeAcceptsPaddedTokens(t *testing.T) {
	token := base64.URLEncoding.EncodeToString([]byte(`{"id":"ab"}`))
	assert.Equal(t, "ab", pagination.DecodeID(token))
}

func TestDecodeFailsClosed(t *testing.T) {
	for _, token := range []string{
		"",
		"not base64 !!",
		base64.RawURLEncoding.EncodeToString([]byte("not json")),
		base64.RawURLEncoding.EncodeToString([]byte(`["array"]`)),
	} {
		assert.Empty(t, pagination.DecodeID(token), token)
		_, ok := pagination.DecodeTime(token)
		assert.False(t, ok, token)
	}

	// valid JSON without the expected key decodes to an empty position
	token := base64.RawURLEncoding.EncodeToString([]byte(`{"other":1}`))
	assert.Empty(t, pagination.DecodeID(token))
	_, ok := pagination.DecodeTime(token)
	assert.False(t, ok)
}
