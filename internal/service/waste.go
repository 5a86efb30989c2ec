package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"greencycle/internal/model"
	"greencycle/internal/repository"
)

// Points awarded per kilogram by waste type.
var wastePointRates = map[model.WasteType]float64{
	model.WastePlastic: 15,
	model.WastePaper:   10,
	model.WasteMetal:   20,
	model.WasteEWaste:  30,
	model.WasteGlass:   12,
	model.WasteOther:   5,
}

// WasteService handles waste submissions and the admin review that turns an
// approved submission into earned points.
type WasteService struct {
	tx         repository.TxManager
	wasteRepo  repository.WasteRepository
	userRepo   repository.UserRepository
	ledgerRepo repository.LedgerRepository

	now func() time.Time
}

func NewWasteService(
	tx repository.TxManager,
	wasteRepo repository.WasteRepository,
	userRepo repository.UserRepository,
	ledgerRepo repository.LedgerRepository,
) *WasteService {
	return &WasteService{
		tx:         tx,
		wasteRepo:  wasteRepo,
		userRepo:   userRepo,
		ledgerRepo: ledgerRepo,
		now:        time.Now,
	}
}

// Submit records a pending waste submission.
func (s *WasteService) Submit(ctx context.Context, userID int64, req *model.SubmitWasteRequest) (*model.WasteSubmission, error) {
	if !req.Type.Valid() {
		return nil, fmt.Errorf("invalid waste type %q", req.Type)
	}
	if req.WeightKg <= 0 || req.WeightKg > model.MaxWasteWeightKg {
		return nil, fmt.Errorf("weightKg must be between 0 and %v", model.MaxWasteWeightKg)
	}
	if (req.PhotoURL == nil) != (req.PhotoKey == nil) {
		return nil, fmt.Errorf("photoUrl and photoKey must both be provided or both omitted")
	}

	submission := &model.WasteSubmission{
		UserID:          userID,
		Type:            req.Type,
		WeightKg:        req.WeightKg,
		LocationAddress: req.Location,
		PhotoURL:        req.PhotoURL,
		PhotoKey:        req.PhotoKey,
		Status:          model.WastePending,
	}
	if err := s.wasteRepo.Create(ctx, submission); err != nil {
		return nil, err
	}
	return submission, nil
}

// Review approves or rejects a pending submission. Approval credits points
// and appends an EARN ledger entry in the same transaction as the status
// transition, so a submission can pay out at most once.
func (s *WasteService) Review(ctx context.Context, submissionID, reviewerID int64, approve bool) (*model.WasteSubmission, error) {
	submission, err := s.wasteRepo.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if submission.Status != model.WastePending {
		return nil, model.ErrWasteAlreadyReviewed
	}

	status := model.WasteRejected
	var points int64
	if approve {
		status = model.WasteApproved
		points = PointsForWaste(submission.Type, submission.WeightKg)
	}

	reviewedAt := s.now()
	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		ok, err := s.wasteRepo.Review(ctx, tx, submissionID, status, points, reviewerID, reviewedAt)
		if err != nil {
			return err
		}
		if !ok {
			return model.ErrWasteAlreadyReviewed
		}

		if !approve {
			return nil
		}

		if err := s.userRepo.CreditPoints(ctx, tx, submission.UserID, points); err != nil {
			return err
		}

		entry := &model.PointLedgerEntry{
			UserID: submission.UserID,
			Type:   model.LedgerEarn,
			Amount: points,
			Note:   fmt.Sprintf("Waste approved: %s %.1fkg", submission.Type, submission.WeightKg),
			Ref:    strconv.FormatInt(submissionID, 10),
		}
		return s.ledgerRepo.Create(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	submission.Status = status
	submission.AwardedPoints = points
	submission.ReviewedBy = &reviewerID
	submission.ReviewedAt = &reviewedAt
	return submission, nil
}

// PointsForWaste converts a submission into points: per-type rate times
// weight, rounded to the nearest whole point, at least 1 for approved waste.
func PointsForWaste(t model.WasteType, weightKg float64) int64 {
	rate, ok := wastePointRates[t]
	if !ok {
		rate = wastePointRates[model.WasteOther]
	}
	points := int64(math.Round(rate * weightKg))
	if points < 1 {
		points = 1
	}
	return points
}
