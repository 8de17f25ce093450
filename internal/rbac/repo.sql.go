package rbac

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keystone-id/keystone/internal/identity"
	"github.com/keystone-id/keystone/internal/shared"
)

// Repository provides PostgreSQL backed persistence for assignments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UserExists reports whether a user row exists.
func (r *Repository) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}

// RoleExists reports whether a role row exists.
func (r *Repository) RoleExists(ctx context.Context, roleID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, roleID).Scan(&exists)
	return exists, err
}

// RoleNameExists reports whether a role with the given name exists.
func (r *Repository) RoleNameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1)`, name).Scan(&exists)
	return exists, err
}

// InsertAssignment creates the assignment if it does not exist. The primary
// key on (user_id, role_id) makes the operation idempotent.
func (r *Repository) InsertAssignment(ctx context.Context, userID, roleID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id, assigned_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id, role_id) DO NOTHING`,
		userID, roleID)
	return err
}

// DeleteAssignment removes the assignment and reports whether a row existed.
func (r *Repository) DeleteAssignment(ctx context.Context, userID, roleID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UserGrants returns assigned role names and the deduplicated permission
// union for a user.
func (r *Repository) UserGrants(ctx context.Context, userID uuid.UUID) (Grants, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.name, r.permissions
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name`,
		userID)
	if err != nil {
		return Grants{}, err
	}
	defer rows.Close()

	var grants Grants
	seen := make(map[string]struct{})
	for rows.Next() {
		var name string
		var perms []string
		if err := rows.Scan(&name, &perms); err != nil {
			return Grants{}, err
		}
		grants.RoleNames = append(grants.RoleNames, name)
		for _, p := range perms {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			grants.Permissions = append(grants.Permissions, p)
		}
	}
	if err := rows.Err(); err != nil {
		return Grants{}, err
	}
	return grants, nil
}

// FindSubject fetches the user row fields the identity resolver needs.
func (r *Repository) FindSubject(ctx context.Context, userID uuid.UUID) (identity.Subject, error) {
	var subject identity.Subject
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, is_active, is_superuser
		FROM users
		WHERE id = $1`,
		userID).Scan(&subject.ID, &subject.Username, &subject.Active, &subject.Superuser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.Subject{}, shared.ErrNotFound
		}
		return identity.Subject{}, err
	}
	return subject, nil
}
