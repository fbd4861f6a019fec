package middleware

import (
	"net/http"

	"github.com/google/uuid"

	appCtx "github.com/baechuer/tokenauth/internal/pkg/context"
)

const HeaderXRequestID = "X-Request-Id"

// maxRequestIDLen caps client supplied ids before they reach the logs.
const maxRequestIDLen = 128

// RequestID propagates a caller supplied X-Request-Id or mints a new one, and
// echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderXRequestID)
		if !usableRequestID(id) {
			id = uuid.NewString()
		}

		w.Header().Set(HeaderXRequestID, id)
		next.ServeHTTP(w, r.WithContext(appCtx.WithRequestID(r.Context(), id)))
	})
}

// usableRequestID accepts short printable ASCII only; anything else could
// forge log lines.
func usableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
