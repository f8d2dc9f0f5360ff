package middleware

import (
	"net/http"
	"sync/atomic"
)

// Metrics returns middleware that counts requests into the given counters.
// Responses with a 4xx or 5xx status also increment the error counter.
func Metrics(requests, errors *atomic.Int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			if rw.statusCode >= 400 {
				errors.Add(1)
			}
		})
	}
}
