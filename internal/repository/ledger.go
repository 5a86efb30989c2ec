package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"greencycle/internal/model"
)

type ledgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// Create appends a ledger entry. There is deliberately no update or delete
// path anywhere in this repository.
func (r *ledgerRepository) Create(ctx context.Context, tx *sqlx.Tx, e *model.PointLedgerEntry) error {
	query := `
		INSERT INTO point_ledger (user_id, type, amount, note, ref)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := tx.QueryRowxContext(ctx, query,
		e.UserID,
		e.Type,
		e.Amount,
		e.Note,
		e.Ref,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

// RecentByUser returns entries newest-first.
func (r *ledgerRepository) RecentByUser(ctx context.Context, userID int64, limit int) ([]model.PointLedgerEntry, error) {
	query := `
		SELECT id, user_id, type, amount, note, ref, created_at
		FROM point_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	var entries []model.PointLedgerEntry
	err := r.db.SelectContext(ctx, &entries, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}
