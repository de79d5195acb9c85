package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"cardvault-api/pkg/apierror"

	"github.com/go-chi/chi/v5"
)

// Recovery turns a panic in an economy handler into a 500 and logs the stack
// with the request id and user so it can be matched to the audit trail.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Printf("[Recovery] panic in %s %s user=%q req=%s: %v\n%s",
				r.Method, r.URL.Path, chi.URLParam(r, "user_id"), GetRequestID(r.Context()), rec, debug.Stack())

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write(apierror.InternalError("internal server error").ToJSON())
		}()

		next.ServeHTTP(w, r)
	})
}
