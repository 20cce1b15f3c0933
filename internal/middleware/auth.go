package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/layout-library/backend/internal/apperr"
	"github.com/ayush/layout-library/backend/internal/auth"
	"github.com/ayush/layout-library/backend/internal/models"
	"github.com/ayush/layout-library/backend/internal/respond"
)

const maxOwnerBody = 1 << 20

// TokenVerifier resolves a bearer token to an account id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// AccountLoader loads the account a token refers to.
type AccountLoader interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
}

var (
	errNoToken      = apperr.Unauthenticated("Access token required")
	errBadToken     = apperr.Forbidden("Invalid or expired token")
	errInactive     = apperr.Unauthenticated("Invalid token or user not active")
	errAdminOnly    = apperr.Forbidden("Admin access required")
	errAccessDenied = apperr.Forbidden("Access denied")
)

// RequireAuth validates the bearer token, loads the active account and
// injects it into the request context. Preflight requests pass through
// unauthenticated.
func RequireAuth(tokens TokenVerifier, accounts AccountLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				respond.Error(w, r, errNoToken)
				return
			}

			accountID, err := tokens.Verify(token)
			if err != nil {
				respond.Error(w, r, errBadToken)
				return
			}

			acc, err := accounts.FindByID(r.Context(), accountID)
			if errors.Is(err, apperr.ErrNotFound) || (err == nil && !acc.IsActive) {
				respond.Error(w, r, errInactive)
				return
			}
			if err != nil {
				respond.Error(w, r, apperr.Internal("Server error", err))
				return
			}
			acc.Password = ""

			next.ServeHTTP(w, r.WithContext(auth.WithAccount(r.Context(), acc)))
		})
	}
}

// RequireAdmin lets only admins through. It must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		acc := auth.AccountFrom(r.Context())
		if acc == nil || !acc.IsAdmin() {
			respond.Error(w, r, errAdminOnly)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OwnerFunc extracts the id of the account a request targets.
type OwnerFunc func(r *http.Request) string

// PathParam reads the target account id from a route parameter.
func PathParam(name string) OwnerFunc {
	return func(r *http.Request) string {
		return chi.URLParam(r, name)
	}
}

// BodyField reads the target account id from a JSON body field. The body
// is restored so the handler can decode it again.
func BodyField(name string) OwnerFunc {
	return func(r *http.Request) string {
		if r.Body == nil {
			return ""
		}
		b, err := io.ReadAll(io.LimitReader(r.Body, maxOwnerBody))
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(b))
		if err != nil {
			return ""
		}
		var body map[string]any
		if json.Unmarshal(b, &body) != nil {
			return ""
		}
		id, _ := body[name].(string)
		return id
	}
}

// RequireAdminOrOwner lets through admins and the account the request
// targets. It must run after RequireAuth.
func RequireAdminOrOwner(owner OwnerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			acc := auth.AccountFrom(r.Context())
			if acc == nil {
				respond.Error(w, r, errAccessDenied)
				return
			}
			if acc.IsAdmin() {
				next.ServeHTTP(w, r)
				return
			}
			if target := owner(r); target == "" || target != acc.ID {
				respond.Error(w, r, errAccessDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken returns the credential part of "Authorization: <scheme> <token>".
func bearerToken(r *http.Request) string {
	parts := strings.SplitN(strings.TrimSpace(r.Header.Get("Authorization")), " ", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
