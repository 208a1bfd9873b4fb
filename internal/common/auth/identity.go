// Package auth resolves caller identities and roles against the users table.
package auth

import (
	"context"
	"database/sql"

	"mentorship-workers/internal/common/errors"
)

// Known roles stored in users.role.
const (
	RoleAdmin   = "admin"
	RoleAdvisor = "advisor"
	RoleFounder = "founder"
)

// Identity is a resolved platform user.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// Resolver looks up users by ID for role checks on privileged operations.
type Resolver struct {
	db *sql.DB
}

func NewResolver(db *sql.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve fetches the identity for a user ID.
func (r *Resolver) Resolve(ctx context.Context, userID string) (*Identity, error) {
	query := `
		SELECT id, email, COALESCE(full_name, ''), role
		FROM users
		WHERE id = $1`

	var ident Identity
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&ident.UserID, &ident.Email, &ident.Name, &ident.Role,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewProfileNotFoundError("User", userID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("resolve user", err)
	}

	return &ident, nil
}

// RequireRole resolves the user and checks the expected role.
func (r *Resolver) RequireRole(ctx context.Context, userID, role string) (*Identity, error) {
	ident, err := r.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ident.Role != role {
		return nil, errors.NewUnauthorizedError(userID, role)
	}
	return ident, nil
}

// RequireAdmin resolves the user and verifies the admin role.
func (r *Resolver) RequireAdmin(ctx context.Context, userID string) (*Identity, error) {
	return r.RequireRole(ctx, userID, RoleAdmin)
}
