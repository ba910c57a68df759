package middleware

import (
	"context"
	"net/http"
	"strings"

	svcErr "github.com/oggyb/matchfeed/internal/errors"
	"github.com/oggyb/matchfeed/internal/logger"
	"github.com/oggyb/matchfeed/internal/security"
)

type contextKey string

const userIDKey contextKey = "userID"

// JWTAuth returns middleware that validates a Bearer access token from the
// Authorization header. A missing header is NO_TOKEN, anything else that
// fails verification is INVALID_TOKEN.
func JWTAuth(tokens *security.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, svcErr.NoToken("Unauthorized"))
				return
			}

			token, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || token == "" {
				writeError(w, svcErr.InvalidToken("Unauthorized"))
				return
			}

			userID, err := tokens.VerifyAccess(token)
			if err != nil {
				writeError(w, svcErr.InvalidToken("Unauthorized"))
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			ctx = logger.WithContext(ctx, logger.FromContext(ctx).With("user", userID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext extracts the authenticated user ID from the request context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// WithUserID is the context JWTAuth produces; handlers under test use it directly.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}
