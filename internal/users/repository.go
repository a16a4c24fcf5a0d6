package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/vcards/internal/auth"
	"github.com/odyssey-erp/vcards/internal/platform/db"
	"github.com/odyssey-erp/vcards/internal/shared"
)

const userColumns = `id, username, email, password_hash, name, surname, patronymic,
	phone_number, address, disabled, role, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ auth.IdentityStore = (*Repository)(nil)

// FindByIdentity implements auth.IdentityStore. Identifiers containing '@'
// match the email column, anything else the username column.
func (r *Repository) FindByIdentity(ctx context.Context, identity string) (*auth.Identity, error) {
	column, value := identityLookup(identity)
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`
	u, err := scanUser(r.pool.QueryRow(ctx, query, value))
	if err != nil {
		return nil, err
	}
	return identityOf(u), nil
}

// FindByID implements auth.IdentityStore.
func (r *Repository) FindByID(ctx context.Context, id int64) (*auth.Identity, error) {
	u, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return identityOf(u), nil
}

// Get loads a user by id.
func (r *Repository) Get(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// Create inserts u and returns its id.
func (r *Repository) Create(ctx context.Context, u User) (int64, error) {
	query := `
		INSERT INTO users (username, email, password_hash, name, surname, patronymic,
		                   phone_number, address, disabled, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	var id int64
	err := r.pool.QueryRow(ctx, query,
		u.Username, u.Email, u.PasswordHash, u.Name, u.Surname, u.Patronymic,
		u.PhoneNumber, u.Address, u.Disabled, string(u.Role),
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("users: create: %w", err)
	}
	return id, nil
}

// List returns every user ordered by id.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	return out, nil
}

// Update applies a patch to user id.
func (r *Repository) Update(ctx context.Context, id int64, p Patch) error {
	if p.Empty() {
		return nil
	}
	sets := make([]string, 0, 9)
	args := make([]any, 0, 9)
	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	add("username", p.Username)
	add("password_hash", p.PasswordHash)
	add("email", p.Email)
	add("phone_number", p.PhoneNumber)
	add("name", p.Name)
	add("surname", p.Surname)
	add("patronymic", p.Patronymic)
	add("address", p.Address)
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = $` + strconv.Itoa(len(args))
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("users: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes user id together with its cards and transactions.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("users: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleDisabled flips the disabled flag and returns the new value.
func (r *Repository) ToggleDisabled(ctx context.Context, id int64) (bool, error) {
	var disabled bool
	err := r.pool.QueryRow(ctx,
		`UPDATE users SET disabled = NOT disabled, updated_at = NOW() WHERE id = $1 RETURNING disabled`, id,
	).Scan(&disabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("users: toggle disabled: %w", err)
	}
	return disabled, nil
}

// SetRole changes the role of user id.
func (r *Repository) SetRole(ctx context.Context, id int64, role shared.Role) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`, string(role), id)
	if err != nil {
		return fmt.Errorf("users: set role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AdminExists reports whether any admin account is stored.
func (r *Repository) AdminExists(ctx context.Context) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE role = 'admin')`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("users: admin exists: %w", err)
	}
	return exists, nil
}

// CountActiveAdmins returns how many enabled admin accounts exist.
func (r *Repository) CountActiveAdmins(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = 'admin' AND NOT disabled`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("users: count admins: %w", err)
	}
	return n, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u    User
		role string
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Name, &u.Surname, &u.Patronymic,
		&u.PhoneNumber, &u.Address, &u.Disabled, &role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("users: scan: %w", err)
	}
	parsed, err := shared.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("users: user %d: %w", u.ID, err)
	}
	u.Role = parsed
	return &u, nil
}

func identityOf(u *User) *auth.Identity {
	return &auth.Identity{Principal: u.Principal(), PasswordHash: u.PasswordHash}
}
