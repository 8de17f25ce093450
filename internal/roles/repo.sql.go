package roles

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keystone-id/keystone/internal/platform/db"
	"github.com/keystone-id/keystone/internal/shared"
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleColumns = `id, name, description, permissions, created_at, updated_at`

// List returns roles ordered by name.
func (r *Repository) List(ctx context.Context, p shared.Pagination) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+roleColumns+` FROM roles ORDER BY name OFFSET $1 LIMIT $2`,
		p.Offset, p.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoles(rows)
}

// FindByID fetches a role by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (Role, error) {
	return r.findOne(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
}

// FindByName fetches a role by name.
func (r *Repository) FindByName(ctx context.Context, name string) (Role, error) {
	return r.findOne(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1`, name)
}

// Create inserts a new role. A duplicate name is shared.ErrDuplicate; the
// UNIQUE constraint on roles.name makes the check race-free.
func (r *Repository) Create(ctx context.Context, role Role) (Role, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO roles (id, name, description, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING created_at, updated_at`,
		role.ID, role.Name, role.Description, role.Permissions).
		Scan(&role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return Role{}, mapStoreError(err)
	}
	return role, nil
}

// Update rewrites the mutable role fields.
func (r *Repository) Update(ctx context.Context, role Role) (Role, error) {
	err := r.pool.QueryRow(ctx, `
		UPDATE roles
		SET name = $2, description = $3, permissions = $4, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		role.ID, role.Name, role.Description, role.Permissions).
		Scan(&role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return Role{}, mapStoreError(err)
	}
	return role, nil
}

// Delete removes a role and its assignments in one transaction.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE role_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// ForUser returns the roles assigned to a user.
func (r *Repository) ForUser(ctx context.Context, userID uuid.UUID) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.name, r.description, r.permissions, r.created_at, r.updated_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoles(rows)
}

// Members returns the users holding a role.
func (r *Repository) Members(ctx context.Context, roleID uuid.UUID) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.username, u.email
		FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		WHERE ur.role_id = $1
		ORDER BY u.username`,
		roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Username, &m.Email); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *Repository) findOne(ctx context.Context, query string, arg any) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, query, arg).
		Scan(&role.ID, &role.Name, &role.Description, &role.Permissions, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return Role{}, mapStoreError(err)
	}
	return role, nil
}

func scanRoles(rows pgx.Rows) ([]Role, error) {
	var result []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.Permissions, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, role)
	}
	return result, rows.Err()
}

func mapStoreError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return shared.ErrDuplicate
	}
	return err
}
