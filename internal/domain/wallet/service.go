package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// GetOrCreate returns the party's wallet, creating it on first access
func (s *Service) GetOrCreate(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	return s.repo.GetOrCreate(ctx, userID)
}

// Balance returns the current balance, creating the wallet if absent
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	w, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

// Credit adds funds to a wallet with a paired audit movement
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, metadata string) (*Wallet, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	w, err := s.repo.Credit(ctx, userID, amount, metadata)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("user_id", userID.String()).
		Str("amount", amount.String()).
		Str("metadata", metadata).
		Msg("wallet credit applied")
	return w, nil
}

// Debit removes funds from a wallet with a paired audit movement. The balance
// check and decrement are one atomic unit.
func (s *Service) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, metadata string) (*Wallet, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	w, err := s.repo.Debit(ctx, userID, amount, metadata)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("user_id", userID.String()).
		Str("amount", amount.String()).
		Str("metadata", metadata).
		Msg("wallet debit applied")
	return w, nil
}

// Movements returns the wallet's audit trail, newest first
func (s *Service) Movements(ctx context.Context, userID uuid.UUID, limit int) ([]Movement, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListMovements(ctx, userID, limit)
}
