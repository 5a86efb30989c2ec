package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"greencycle/internal/model"
)

// userRepository implements UserRepository using sqlx
type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user into the database
func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (email, phone, name, role, password_hashed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, points, created_at, updated_at
	`

	row := r.db.QueryRowxContext(ctx, query,
		u.Email,
		u.Phone,
		u.Name,
		u.Role,
		u.PasswordHashed,
	)

	err := row.Scan(
		&u.ID,
		&u.Points,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT id, email, phone, name, role, password_hashed, points, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &u, nil
}

// GetByEmail retrieves a user by their email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT id, email, phone, name, role, password_hashed, points, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &u, nil
}

// ExistsByEmail checks if an email is already registered
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, email)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}

	return exists, nil
}

// DebitPoints is the commit point of a redemption: the WHERE clause refuses
// the update unless the balance covers the amount, so two concurrent debits
// can never drive the balance negative.
func (r *userRepository) DebitPoints(ctx context.Context, tx *sqlx.Tx, userID, amount int64) error {
	query := `
		UPDATE users
		SET points = points - $1, updated_at = NOW()
		WHERE id = $2 AND points >= $1
	`
	result, err := tx.ExecContext(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("failed to debit points: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read debit result: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID); err != nil {
			return fmt.Errorf("failed to check user existence: %w", err)
		}
		if !exists {
			return model.ErrUserNotFound
		}
		return model.ErrInsufficientPoints
	}
	return nil
}

// CreditPoints increments the balance inside tx.
func (r *userRepository) CreditPoints(ctx context.Context, tx *sqlx.Tx, userID, amount int64) error {
	query := `
		UPDATE users
		SET points = points + $1, updated_at = NOW()
		WHERE id = $2
	`
	result, err := tx.ExecContext(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("failed to credit points: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read credit result: %w", err)
	}
	if affected == 0 {
		return model.ErrUserNotFound
	}
	return nil
}
