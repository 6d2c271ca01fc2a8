package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deppfellow/formula-lab/internal/database"
	"github.com/deppfellow/formula-lab/internal/model"
)

const userColumns = `id, first_name, last_name, email, hashed_password, is_active, is_verified,
	subscription_type, needs_subscription, subscription_id, subscription_expires_at,
	created_at, updated_at`

type UserRepository struct {
	baseRepository
}

func NewUserRepository(db *database.Database) *UserRepository {
	return &UserRepository{baseRepository: newBase(db)}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.HashedPassword,
		&u.IsActive,
		&u.IsVerified,
		&u.SubscriptionType,
		&u.NeedsSubscription,
		&u.SubscriptionID,
		&u.SubscriptionExpiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID wraps sql.ErrNoRows when no user matches.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.q.QueryRowContext(ctx, r.rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id=%d: %w", id, err)
	}
	return u, nil
}

// GetByEmail matches the email case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.q.QueryRowContext(ctx, r.rebind(`SELECT `+userColumns+` FROM users WHERE LOWER(email) = ?`), strings.ToLower(email))
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// Create inserts u and fills in its id and creation time.
func (r *UserRepository) Create(ctx context.Context, u *model.User) (*model.User, error) {
	if u.SubscriptionType == "" {
		u.SubscriptionType = model.SubscriptionFree
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	query := r.rebind(`INSERT INTO users (
		first_name, last_name, email, hashed_password, is_active, is_verified,
		subscription_type, needs_subscription, subscription_id, subscription_expires_at, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	err := r.q.QueryRowContext(ctx, query,
		u.FirstName,
		u.LastName,
		u.Email,
		u.HashedPassword,
		u.IsActive,
		u.IsVerified,
		string(u.SubscriptionType),
		u.NeedsSubscription,
		u.SubscriptionID,
		u.SubscriptionExpiresAt,
		u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create user email=%s: %w", u.Email, err)
	}

	return u, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
