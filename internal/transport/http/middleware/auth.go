package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/baechuer/tokenauth/internal/domain"
)

// HeaderXAuth carries the raw session token.
const HeaderXAuth = "x-auth"

type TokenAuthenticator interface {
	AuthenticateByToken(ctx context.Context, token string) (*domain.UserAccount, error)
}

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

// Auth resolves the session token (x-auth header, or Authorization: Bearer)
// to an account whose token set still contains it, and injects both into the
// request context.
func Auth(authn TokenAuthenticator, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := tokenFromRequest(r)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			acct, err := authn.AuthenticateByToken(r.Context(), raw)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			ctx := WithAccount(r.Context(), acct, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) (string, error) {
	if v := strings.TrimSpace(r.Header.Get(HeaderXAuth)); v != "" {
		return v, nil
	}

	h := r.Header.Get("Authorization")
	if h == "" {
		return "", domain.ErrTokenMissing()
	}

	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", domain.ErrTokenInvalid()
	}

	raw := strings.TrimSpace(parts[1])
	if raw == "" {
		return "", domain.ErrTokenInvalid()
	}
	return raw, nil
}
