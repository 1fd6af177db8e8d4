// Package requesttime pins a single "now" for the lifetime of a request so domain
// timestamps and audit lines written by one request agree.
package requesttime

import (
	"net/http"
	"time"

	"spendwise/pkg/requestcontext"
)

// Middleware captures the request start time in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
