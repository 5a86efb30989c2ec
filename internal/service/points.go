package service

import (
	"context"
	"fmt"

	"greencycle/internal/model"
	"greencycle/internal/repository"
)

// balanceLedgerLimit is the ledger tail returned with the balance.
const balanceLedgerLimit = 50

// PointsService reads the live balance and the ledger audit trail. The
// balance is the authoritative field on the user row, not a ledger sum.
type PointsService struct {
	userRepo   repository.UserRepository
	ledgerRepo repository.LedgerRepository
}

func NewPointsService(userRepo repository.UserRepository, ledgerRepo repository.LedgerRepository) *PointsService {
	return &PointsService{
		userRepo:   userRepo,
		ledgerRepo: ledgerRepo,
	}
}

// Balance returns the user's points and the newest-first last 50 entries.
func (s *PointsService) Balance(ctx context.Context, userID int64) (*model.BalanceResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries, err := s.ledgerRepo.RecentByUser(ctx, userID, balanceLedgerLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger entries: %w", err)
	}
	if entries == nil {
		entries = []model.PointLedgerEntry{}
	}

	return &model.BalanceResponse{
		Points: user.Points,
		Last50: entries,
	}, nil
}
