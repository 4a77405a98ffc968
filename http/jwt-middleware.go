package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5/request"

	"github.com/botarena/backend/auth"
)

type ctxKeyType string

const ctxUsernameKey ctxKeyType = "username"

// getJwtAuthMiddleware resolves the caller's username from a bearer
// token when one is present. Requests without a token pass through
// anonymously; handlers that need an identity reject them themselves.
func getJwtAuthMiddleware(jwtKey []byte) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, err := request.BearerExtractor{}.ExtractToken(r)
			if err != nil {
				if errors.Is(err, request.ErrNoTokenInRequest) {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			claims, err := auth.ValidateUserToken(token, jwtKey)
			if err != nil {
				// the bearer token may be a match or compile
				// token headed for a callback endpoint
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ctxUsernameKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(hfn)
	}
}

func usernameFromCtx(ctx context.Context) string {
	if username, ok := ctx.Value(ctxUsernameKey).(string); ok {
		return username
	}
	return ""
}
