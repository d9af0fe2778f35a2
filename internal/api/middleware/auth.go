package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/fleetcal/backend/internal/storage"
)

type contextKey string

const accountIDKey contextKey = "account_id"

// WithAccountID returns a context carrying the authenticated account ID.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

// AccountID extracts the authenticated account ID from the context.
func AccountID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDKey).(string)
	return id, ok && id != ""
}

// RequireAuth validates the bearer API key and populates the account ID in
// the request context.
func RequireAuth(accounts *storage.AccountRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := bearerToken(r)
			if key == "" {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Missing API key")
				return
			}

			acct, err := accounts.GetByAPIKey(r.Context(), key)
			if err != nil {
				WriteError(w, http.StatusInternalServerError, ErrInternalError, "Failed to authenticate")
				return
			}
			if acct == nil {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Invalid API key")
				return
			}

			ctx := WithAccountID(r.Context(), acct.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
