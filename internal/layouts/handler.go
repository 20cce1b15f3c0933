package layouts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ayush/layout-library/backend/internal/apperr"
	"github.com/ayush/layout-library/backend/internal/auth"
	"github.com/ayush/layout-library/backend/internal/models"
	"github.com/ayush/layout-library/backend/internal/respond"
)

// LayoutStore defines the interface for layout persistence.
type LayoutStore interface {
	Insert(ctx context.Context, l *models.Layout) error
	List(ctx context.Context, f models.LayoutFilter) ([]models.Layout, error)
	GetByID(ctx context.Context, id string) (*models.Layout, error)
	Update(ctx context.Context, id string, upd models.LayoutUpdate) (*models.Layout, error)
	SetArchived(ctx context.Context, id string, archived bool) (*models.Layout, error)
	Delete(ctx context.Context, id string) error
}

// AccountLookup resolves layout owners.
type AccountLookup interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
}

var (
	errItemNotFound   = apperr.NotFound("Item not found")
	errLayoutNotFound = apperr.NotFound("Layout not found")
)

// Handler holds layout HTTP handlers.
type Handler struct {
	layouts  LayoutStore
	accounts AccountLookup
	files    FileStore
	uploads  *Receiver
	validate *validator.Validate
}

func NewHandler(layouts LayoutStore, accounts AccountLookup, files FileStore, uploads *Receiver) *Handler {
	return &Handler{
		layouts:  layouts,
		accounts: accounts,
		files:    files,
		uploads:  uploads,
		validate: validator.New(),
	}
}

// Create stores an uploaded layout owned by the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	acc := auth.AccountFrom(r.Context())
	if acc == nil {
		respond.Error(w, r, apperr.Unauthenticated("Access token required"))
		return
	}

	up, err := h.uploads.Parse(w, r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	defer up.Close()

	if up.Thumbnail == nil || len(up.Files) == 0 {
		respond.Error(w, r, apperr.Validation("Thumbnail and File are required"))
		return
	}
	form := formFields(up.Form)
	if err := h.validate.Struct(&form); err != nil {
		respond.Error(w, r, apperr.Validation("Title and type are required"))
		return
	}

	stored, err := h.uploads.Persist(r.Context(), up)
	if err != nil {
		respond.Error(w, r, apperr.Internal("Server Error", err))
		return
	}

	layout := &models.Layout{
		Title:       form.Title,
		Type:        form.Type,
		Description: form.Description,
		TechStack:   form.TechStack,
		Thumbnail:   stored.Thumbnail,
		File:        stored.Files,
		CreatedBy:   acc.ID,
	}
	if err := h.layouts.Insert(r.Context(), layout); err != nil {
		h.uploads.Discard(r.Context(), stored.names()...)
		respond.Error(w, r, apperr.Internal("Server Error", err))
		return
	}

	respond.JSON(w, http.StatusCreated, map[string]any{
		"message": "Upload successful",
		"data":    layout,
	})
}

// List returns layouts selected by the ?type= filter, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, FilterFor(r.URL.Query().Get("type")))
}

// ListArchived returns archived layouts, newest first.
func (h *Handler) ListArchived(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, FilterFor(TypeArchive))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, f models.LayoutFilter) {
	layouts, err := h.layouts.List(r.Context(), f)
	if err != nil {
		respond.Error(w, r, apperr.Internal("Server Error", err))
		return
	}
	views, err := h.populate(r.Context(), layouts)
	if err != nil {
		respond.Error(w, r, apperr.Internal("Server Error", err))
		return
	}
	respond.JSON(w, http.StatusOK, views)
}

// Get returns a single layout, archived or not.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	layout, err := h.layouts.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, notFoundOr(err, errItemNotFound))
		return
	}
	views, err := h.populate(r.Context(), []models.Layout{*layout})
	if err != nil {
		respond.Error(w, r, apperr.Internal("Server Error", err))
		return
	}
	respond.JSON(w, http.StatusOK, views[0])
}

// Update replaces the descriptive fields and, when new files are sent,
// the thumbnail and file list. Admin only.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	up, err := h.uploads.Parse(w, r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	defer up.Close()

	if _, err := h.layouts.GetByID(r.Context(), id); err != nil {
		respond.Error(w, r, notFoundOr(err, errLayoutNotFound))
		return
	}

	stored, err := h.uploads.Persist(r.Context(), up)
	if err != nil {
		respond.Error(w, r, apperr.Internal("Server Error", err))
		return
	}

	form := formFields(up.Form)
	upd := models.LayoutUpdate{
		Title:       form.Title,
		Type:        form.Type,
		Description: form.Description,
		Category:    form.Category,
		TechStack:   form.TechStack,
	}
	if upd.Category == "" {
		upd.Category = models.DefaultCategory
	}
	if stored.Thumbnail != "" {
		upd.Thumbnail = &stored.Thumbnail
	}
	if len(stored.Files) > 0 {
		upd.File = stored.Files
	}

	layout, err := h.layouts.Update(r.Context(), id, upd)
	if err != nil {
		h.uploads.Discard(r.Context(), stored.names()...)
		respond.Error(w, r, notFoundOr(err, errLayoutNotFound))
		return
	}
	views, err := h.populate(r.Context(), []models.Layout{*layout})
	if err != nil {
		respond.Error(w, r, apperr.Internal("Server Error", err))
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"message": "Layout updated successfully",
		"data":    views[0],
	})
}

func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true, "Item archived")
}

func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false, "Item restored")
}

func (h *Handler) setArchived(w http.ResponseWriter, r *http.Request, archived bool, msg string) {
	layout, err := h.layouts.SetArchived(r.Context(), chi.URLParam(r, "id"), archived)
	if err != nil {
		respond.Error(w, r, notFoundOr(err, errItemNotFound))
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"message": msg, "data": layout})
}

// DeletePermanent removes the layout's files and then its record. File
// removal is best effort: failures are logged and do not stop the delete.
func (h *Handler) DeletePermanent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	layout, err := h.layouts.GetByID(r.Context(), id)
	if err != nil {
		respond.Error(w, r, notFoundOr(err, errItemNotFound))
		return
	}

	for _, name := range layout.StoredFiles() {
		err := h.files.Remove(r.Context(), name)
		switch {
		case err == nil:
		case errors.Is(err, apperr.ErrNotFound):
			slog.WarnContext(r.Context(), "stored file already missing", "layout", id, "file", name)
		default:
			slog.ErrorContext(r.Context(), "delete stored file failed", "layout", id, "file", name, "error", err)
		}
	}

	if err := h.layouts.Delete(r.Context(), id); err != nil {
		respond.Error(w, r, notFoundOr(err, errItemNotFound))
		return
	}
	respond.Message(w, http.StatusOK, "Item permanently deleted")
}

// populate expands createdBy into the owner's username and email. Owners
// that no longer exist are rendered as null.
func (h *Handler) populate(ctx context.Context, layouts []models.Layout) ([]models.LayoutView, error) {
	owners := map[string]*models.Owner{}
	views := make([]models.LayoutView, 0, len(layouts))
	for _, l := range layouts {
		owner, seen := owners[l.CreatedBy]
		if !seen && l.CreatedBy != "" {
			acc, err := h.accounts.FindByID(ctx, l.CreatedBy)
			switch {
			case err == nil:
				owner = &models.Owner{ID: acc.ID, Username: acc.Username, Email: acc.Email}
			case !errors.Is(err, apperr.ErrNotFound):
				return nil, fmt.Errorf("populate owner %s: %w", l.CreatedBy, err)
			}
			owners[l.CreatedBy] = owner
		}
		views = append(views, models.LayoutView{Layout: l, CreatedBy: owner})
	}
	return views, nil
}

func notFoundOr(err error, notFound *apperr.Error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return notFound
	}
	return apperr.Internal("Server Error", err)
}
