package layouts

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/layout-library/backend/internal/apperr"
	"github.com/ayush/layout-library/backend/internal/respond"
)

var errFileNotFound = apperr.NotFound("File not found")

// Download streams a stored file as an attachment named after the
// client's original file name.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	rc, _, err := h.files.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			respond.Error(w, r, errFileNotFound)
			return
		}
		respond.Error(w, r, apperr.Internal("Download failed", err))
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, OriginalName(name)))
	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, rc); err != nil {
		slog.WarnContext(r.Context(), "download interrupted", "file", name, "error", err)
	}
}

// Serve exposes stored files by name, unauthenticated.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	rc, contentType, err := h.files.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			respond.Error(w, r, errFileNotFound)
			return
		}
		respond.Error(w, r, apperr.Internal("Server Error", err))
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, name, time.Time{}, rs)
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		slog.WarnContext(r.Context(), "serve file interrupted", "file", name, "error", err)
	}
}
