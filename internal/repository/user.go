package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"telegram-storefront/internal/model"
)

const userColumns = `id, username, balance, is_admin, avatar_url, created_at, updated_at`

// UserRepository handles user data persistence.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Balance,
		&u.IsAdmin,
		&u.AvatarURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns users newest first.
func (r *UserRepository) List(ctx context.Context, filter UserFilter) ([]*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE (NOT $1::bool OR is_admin)
		ORDER BY seq DESC
	`

	rows, err := r.db.Query(ctx, query, filter.AdminsOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// GetByID retrieves a user by their Telegram ID.
// Returns ErrNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "get user")
	}
	return u, nil
}

// GetForUpdate retrieves a user and locks its row for the rest of the transaction.
func (r *UserRepository) GetForUpdate(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "lock user")
	}
	return u, nil
}

// Create inserts a user. Returns ErrConflict if the id is taken.
func (r *UserRepository) Create(ctx context.Context, user *model.User) (*model.User, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO users (id, username, balance, is_admin, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, query,
		user.ID,
		user.Username,
		user.Balance,
		user.IsAdmin,
		user.AvatarURL,
	))
	if err != nil {
		return nil, mapError(err, "create user")
	}
	return u, nil
}

// Upsert creates the user on first contact or refreshes the profile fields the
// identity provider supplies. Empty profile fields keep the stored value.
func (r *UserRepository) Upsert(ctx context.Context, identity model.Identity, initialBalance decimal.Decimal, admin bool) (*model.User, bool, error) {
	if identity.ID == 0 {
		return nil, false, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if initialBalance.IsNegative() {
		return nil, false, fmt.Errorf("%w: initial balance must not be negative", ErrValidation)
	}

	query := `
		INSERT INTO users (id, username, balance, is_admin, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			username   = COALESCE(NULLIF(EXCLUDED.username, ''), users.username),
			avatar_url = COALESCE(NULLIF(EXCLUDED.avatar_url, ''), users.avatar_url),
			is_admin   = users.is_admin OR EXCLUDED.is_admin,
			updated_at = NOW()
		RETURNING ` + userColumns + `, (xmax = 0) AS inserted`

	var (
		u       model.User
		created bool
	)
	err := r.db.QueryRow(ctx, query,
		identity.ID,
		identity.Username,
		initialBalance,
		admin,
		identity.AvatarURL,
	).Scan(
		&u.ID,
		&u.Username,
		&u.Balance,
		&u.IsAdmin,
		&u.AvatarURL,
		&u.CreatedAt,
		&u.UpdatedAt,
		&created,
	)
	if err != nil {
		return nil, false, mapError(err, "upsert user")
	}

	return &u, created, nil
}

// Update merges the non-nil patch fields into the user in a single statement.
// A negative balance violates the balance check and surfaces as ErrValidation.
func (r *UserRepository) Update(ctx context.Context, id int64, patch model.UserPatch) error {
	const query = `
		UPDATE users SET
			username   = COALESCE($2::text, username),
			balance    = COALESCE($3::numeric, balance),
			is_admin   = COALESCE($4::bool, is_admin),
			avatar_url = COALESCE($5::text, avatar_url),
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, patch.Username, patch.Balance, patch.IsAdmin, patch.AvatarURL)
	if err != nil {
		return mapError(err, "update user")
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a user. Orders and ledger entries are kept.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete user")
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
