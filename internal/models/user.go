package models

import (
	"strings"
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole returns the role named by s. Unknown names are rejected.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.TrimSpace(s)) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleUser:
		return RoleUser, true
	}
	return "", false
}

// Account is a user or admin identity.
type Account struct {
	ID        string     `json:"_id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Password  string     `json:"-"` // bcrypt hash, never serialized
	Role      Role       `json:"role"`
	IsActive  bool       `json:"isActive"`
	LastLogin *time.Time `json:"lastLogin"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (a *Account) IsAdmin() bool { return a.Role == RoleAdmin }

// Summary is the short account shape returned by login and register.
func (a *Account) Summary() AccountSummary {
	return AccountSummary{ID: a.ID, Username: a.Username, Email: a.Email, Role: a.Role}
}

type AccountSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// AccountUpdate lists the fields to change; nil fields are left untouched.
// Password carries an already hashed value.
type AccountUpdate struct {
	Username *string
	Email    *string
	Password *string
	Role     *Role
	IsActive *bool
}

func (u AccountUpdate) Empty() bool {
	return u.Username == nil && u.Email == nil && u.Password == nil && u.Role == nil && u.IsActive == nil
}

// RegisterRequest is the JSON body for POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role"`
}

// LoginRequest is the JSON body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateUserRequest is the JSON body for PATCH /api/auth/users/{userId}.
type UpdateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateRoleRequest is the JSON body for PATCH /api/auth/users/{userId}/role.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin user"`
}
