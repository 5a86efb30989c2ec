package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"greencycle/internal/model"
)

type deviceBindingRepository struct {
	db *sqlx.DB
}

func NewDeviceBindingRepository(db *sqlx.DB) DeviceBindingRepository {
	return &deviceBindingRepository{db: db}
}

// Upsert creates or replaces the binding for (user, device). The unique
// index on (user_id, device_id) makes rotation idempotent per device: the
// old secret stops working the instant the new row is in place.
func (r *deviceBindingRepository) Upsert(ctx context.Context, b *model.DeviceBinding) error {
	query := `
		INSERT INTO device_bindings (user_id, device_id, client_id, secret, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, device_id) DO UPDATE SET
			client_id = EXCLUDED.client_id,
			secret = EXCLUDED.secret,
			created_at = NOW()
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		b.UserID,
		b.DeviceID,
		b.ClientID,
		b.Secret,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert device binding: %w", err)
	}
	return nil
}

// Get returns the binding for (user, device).
func (r *deviceBindingRepository) Get(ctx context.Context, userID int64, deviceID string) (*model.DeviceBinding, error) {
	query := `
		SELECT id, user_id, device_id, client_id, secret, created_at
		FROM device_bindings
		WHERE user_id = $1 AND device_id = $2
	`
	var b model.DeviceBinding
	err := r.db.GetContext(ctx, &b, query, userID, deviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrDeviceNotBound
		}
		return nil, fmt.Errorf("failed to get device binding: %w", err)
	}
	return &b, nil
}
