package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"greencycle/internal/model"
)

type wasteRepository struct {
	db *sqlx.DB
}

func NewWasteRepository(db *sqlx.DB) WasteRepository {
	return &wasteRepository{db: db}
}

func (r *wasteRepository) Create(ctx context.Context, s *model.WasteSubmission) error {
	query := `
		INSERT INTO waste_submissions (user_id, type, weight_kg, location_address, photo_url, photo_key, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		s.UserID,
		s.Type,
		s.WeightKg,
		s.LocationAddress,
		s.PhotoURL,
		s.PhotoKey,
		s.Status,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert waste submission: %w", err)
	}
	return nil
}

func (r *wasteRepository) GetByID(ctx context.Context, id int64) (*model.WasteSubmission, error) {
	query := `
		SELECT id, user_id, type, weight_kg, location_address, photo_url, photo_key,
		       status, awarded_points, reviewed_by, reviewed_at, created_at
		FROM waste_submissions
		WHERE id = $1
	`
	var s model.WasteSubmission
	err := r.db.GetContext(ctx, &s, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrWasteNotFound
		}
		return nil, fmt.Errorf("failed to get waste submission: %w", err)
	}
	return &s, nil
}

// Review is guarded on PENDING so a submission is reviewed at most once.
func (r *wasteRepository) Review(ctx context.Context, tx *sqlx.Tx, id int64, status model.WasteStatus, awardedPoints, reviewerID int64, reviewedAt time.Time) (bool, error) {
	query := `
		UPDATE waste_submissions
		SET status = $1, awarded_points = $2, reviewed_by = $3, reviewed_at = $4
		WHERE id = $5 AND status = $6
	`
	result, err := tx.ExecContext(ctx, query, status, awardedPoints, reviewerID, reviewedAt, id, model.WastePending)
	if err != nil {
		return false, fmt.Errorf("failed to review waste submission: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read review result: %w", err)
	}
	return affected == 1, nil
}
