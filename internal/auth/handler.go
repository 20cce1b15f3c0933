package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ayush/layout-library/backend/internal/apperr"
	"github.com/ayush/layout-library/backend/internal/models"
	"github.com/ayush/layout-library/backend/internal/respond"
)

const maxBodyBytes = 1 << 20

// AccountStore defines the interface for account persistence.
// FindByID and List never return the password hash; FindByEmail does.
type AccountStore interface {
	Create(ctx context.Context, acc *models.Account) error
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByRole(ctx context.Context, role models.Role) (*models.Account, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	List(ctx context.Context) ([]models.Account, error)
	Update(ctx context.Context, id string, upd models.AccountUpdate) (*models.Account, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

var (
	errBadBody      = apperr.Validation("Invalid request body")
	errDuplicate    = apperr.Validation("User with this email or username already exists")
	errInvalidRole  = apperr.Validation("Invalid role")
	errCredentials  = apperr.Unauthenticated("Invalid credentials")
	errUserNotFound = apperr.NotFound("User not found")
)

// Handler holds account HTTP handlers.
type Handler struct {
	accounts AccountStore
	tokens   *TokenIssuer
	validate *validator.Validate
	now      func() time.Time
}

func NewHandler(accounts AccountStore, tokens *TokenIssuer) *Handler {
	return &Handler{
		accounts: accounts,
		tokens:   tokens,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Register creates a new account. Admin only.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, r, errBadBody)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		if failedTag(err, "required") {
			respond.Error(w, r, apperr.Validation("Username, email, and password are required"))
			return
		}
		respond.Error(w, r, apperr.Validation("Password must be at least 6 characters"))
		return
	}

	role := models.RoleUser
	if req.Role != "" {
		parsed, ok := models.ParseRole(req.Role)
		if !ok {
			respond.Error(w, r, errInvalidRole)
			return
		}
		role = parsed
	}

	exists, err := h.accounts.ExistsByEmailOrUsername(r.Context(), req.Email, req.Username)
	if err != nil {
		respond.Error(w, r, apperr.Internal("Server error during registration", err))
		return
	}
	if exists {
		respond.Error(w, r, errDuplicate)
		return
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		respond.Error(w, r, apperr.Internal("Server error during registration", err))
		return
	}

	acc := &models.Account{
		Username:  req.Username,
		Email:     req.Email,
		Password:  hashed,
		Role:      role,
		IsActive:  true,
		CreatedAt: h.now(),
	}
	if err := h.accounts.Create(r.Context(), acc); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			respond.Error(w, r, errDuplicate)
			return
		}
		respond.Error(w, r, apperr.Internal("Server error during registration", err))
		return
	}

	respond.JSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user":    acc.Summary(),
	})
}

// Login verifies credentials and issues a bearer token. Unknown email,
// inactive account and wrong password are indistinguishable to the caller.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, r, errBadBody)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respond.Error(w, r, apperr.Validation("Email and password are required"))
		return
	}

	acc, err := h.accounts.FindByEmail(r.Context(), req.Email)
	if errors.Is(err, apperr.ErrNotFound) {
		respond.Error(w, r, errCredentials)
		return
	}
	if err != nil {
		respond.Error(w, r, apperr.Internal("Server error during login", err))
		return
	}
	if !acc.IsActive || !CheckPassword(acc.Password, req.Password) {
		respond.Error(w, r, errCredentials)
		return
	}

	now := h.now()
	if err := h.accounts.TouchLastLogin(r.Context(), acc.ID, now); err != nil {
		respond.Error(w, r, apperr.Internal("Server error during login", err))
		return
	}
	acc.LastLogin = &now

	token, err := h.tokens.Issue(acc.ID)
	if err != nil {
		respond.Error(w, r, apperr.Internal("Server error during login", err))
		return
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   token,
		"user":    acc.Summary(),
	})
}

// Profile returns the caller's own account.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	acc := AccountFrom(r.Context())
	if acc == nil {
		respond.Error(w, r, apperr.Unauthenticated("Access token required"))
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"user": acc})
}

// ListUsers returns every account, newest first. Admin only.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		respond.Error(w, r, apperr.Internal("Server error", err))
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	respond.JSON(w, http.StatusOK, accounts)
}

// GetUser returns one account. Admin or the account itself.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	acc, err := h.accounts.FindByID(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"user": acc})
}

// UpdateUser applies the non-empty fields of the request. An unknown role
// is ignored rather than rejected.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, r, errBadBody)
		return
	}

	var upd models.AccountUpdate
	if req.Username != "" {
		upd.Username = &req.Username
	}
	if req.Email != "" {
		upd.Email = &req.Email
	}
	if req.Password != "" {
		hashed, err := HashPassword(req.Password)
		if err != nil {
			respond.Error(w, r, apperr.Internal("Server error", err))
			return
		}
		upd.Password = &hashed
	}
	if role, ok := models.ParseRole(req.Role); ok {
		upd.Role = &role
	}

	h.applyUpdate(w, r, upd, "User updated successfully")
}

// UpdateRole sets the account role. Unknown roles are rejected.
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, r, errBadBody)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respond.Error(w, r, errInvalidRole)
		return
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		respond.Error(w, r, errInvalidRole)
		return
	}
	h.applyUpdate(w, r, models.AccountUpdate{Role: &role}, "User role updated successfully")
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	active := false
	h.applyUpdate(w, r, models.AccountUpdate{IsActive: &active}, "User deactivated successfully")
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	active := true
	h.applyUpdate(w, r, models.AccountUpdate{IsActive: &active}, "User activated successfully")
}

// Logout only acknowledges the request; tokens are not revocable.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	respond.Message(w, http.StatusOK, "Logout successful")
}

func (h *Handler) applyUpdate(w http.ResponseWriter, r *http.Request, upd models.AccountUpdate, msg string) {
	id := chi.URLParam(r, "userId")

	var (
		acc *models.Account
		err error
	)
	if upd.Empty() {
		acc, err = h.accounts.FindByID(r.Context(), id)
	} else {
		acc, err = h.accounts.Update(r.Context(), id, upd)
	}
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"message": msg, "user": acc})
}

func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		respond.Error(w, r, errUserNotFound)
	case errors.Is(err, apperr.ErrConflict):
		respond.Error(w, r, errDuplicate)
	default:
		respond.Error(w, r, apperr.Internal("Server error", err))
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes)).Decode(v)
}

// failedTag reports whether any field failed validation on the given tag.
func failedTag(err error, tag string) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	for _, fe := range verrs {
		if fe.Tag() == tag {
			return true
		}
	}
	return false
}
