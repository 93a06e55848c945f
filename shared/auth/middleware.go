package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chepyr/go-task-manager/shared"
	"github.com/google/uuid"
)

type contextKey string

const userIDKey contextKey = "user_id"

// RequireUser verifies the bearer token and puts the caller's user id into
// the request context before calling next.
func RequireUser(tokens *TokenManager, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.SendError(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			shared.SendError(w, "Invalid Authorization header", http.StatusUnauthorized)
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			slog.Debug("rejected token", "error", err)
			shared.SendError(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			shared.SendError(w, "Invalid token claims", http.StatusUnauthorized)
			return
		}

		next(w, r.WithContext(WithUserID(r.Context(), userID)))
	}
}

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}
