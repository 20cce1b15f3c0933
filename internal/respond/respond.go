package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/ayush/layout-library/backend/internal/apperr"
)

var exposeDetail atomic.Bool

// ExposeErrorDetail controls whether internal error text is included in
// error responses. Only development deployments should enable it.
func ExposeErrorDetail(on bool) {
	exposeDetail.Store(on)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Message writes {"message": msg}.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"message": msg})
}

// Error writes err as {"message", "error"?}. Server errors are logged.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.As(err)
	body := map[string]string{"message": e.Message}
	if e.Status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), e.Message, "method", r.Method, "path", r.URL.Path, "error", e.Err)
		if exposeDetail.Load() && e.Err != nil {
			body["error"] = e.Err.Error()
		}
	}
	JSON(w, e.Status, body)
}
