package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/ayush/layout-library/backend/internal/respond"
)

// Recover turns a panic into a JSON 500 response.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.ErrorContext(r.Context(), "panic", "error", rec, "stack", string(debug.Stack()))
			respond.Message(w, http.StatusInternalServerError, "Something went wrong!")
		}()
		next.ServeHTTP(w, r)
	})
}

// NotFound answers unmatched routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	respond.Message(w, http.StatusNotFound, "Route not found")
}
