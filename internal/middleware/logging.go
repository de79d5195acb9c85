package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Logging logs each request with its matched route and, on user-scoped
// routes, the user it acted for.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		user := chi.URLParam(r, "user_id")
		if user == "" {
			user = "-"
		}

		log.Printf("[HTTP] %s %s user=%s status=%d dur=%s req=%s remote=%s",
			r.Method, route, user, wrapped.statusCode, time.Since(start),
			GetRequestID(r.Context()), r.RemoteAddr)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
