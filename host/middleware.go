package host

import (
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

// Use adds middleware to every status route.
func (a *Application) Use(mw ...mux.MiddlewareFunc) {
	a.router.Use(mw...)
}

// RateLimit returns middleware that rejects requests beyond rps with
// 429 Too Many Requests. The status listener binds to loopback by default,
// so a single limiter is shared by all clients.
func RateLimit(rps float64, burst int) mux.MiddlewareFunc {
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
