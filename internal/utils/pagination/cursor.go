package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// IDCursor marks the last row of a page ordered by id.
type IDCursor struct {
	ID string `json:"id"`
}

// TimeCursor marks the last row of a page ordered by (createdAt, id).
// ID may be empty for tokens that only carry the timestamp.
type TimeCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id,omitempty"`
}

// Encode converts a position into an opaque URL-safe token.
func Encode(position any) (string, error) {
	b, err := json.Marshal(position)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Decode parses token into dst and reports whether it succeeded.
// Malformed tokens never error: callers treat false as "no cursor".
func Decode(token string, dst any) bool {
	if token == "" {
		return false
	}

	// Accept padded tokens as well.
	b, err := base64.RawURLEncoding.DecodeString(trimPadding(token))
	if err != nil {
		return false
	}
	return json.Unmarshal(b, dst) == nil
}

// DecodeID returns the id of an IDCursor token, or "" when absent or invalid.
func DecodeID(token string) string {
	var c IDCursor
	if !Decode(token, &c) {
		return ""
	}
	return c.ID
}

// DecodeTime returns a TimeCursor and whether it carries a usable timestamp.
func DecodeTime(token string) (TimeCursor, bool) {
	var c TimeCursor
	if !Decode(token, &c) || c.CreatedAt.IsZero() {
		return TimeCursor{}, false
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, true
}

func trimPadding(s string) string {
	for len(s) > 0 && s[len(s)-1] == '=' {
		s = s[:len(s)-1]
	}
	return s
}
