package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/meridianhr/payroll-engine/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AdvanceService handles salary advance business logic
type AdvanceService struct {
	advanceRepo domain.AdvanceRepository
	directory   domain.EmployeeDirectory
	logger      zerolog.Logger
}

// NewAdvanceService creates a new AdvanceService
func NewAdvanceService(advanceRepo domain.AdvanceRepository, directory domain.EmployeeDirectory, logger zerolog.Logger) *AdvanceService {
	return &AdvanceService{
		advanceRepo: advanceRepo,
		directory:   directory,
		logger:      logger,
	}
}

// GrantAdvanceInput contains input for granting a salary advance
type GrantAdvanceInput struct {
	EmployeeID uuid.UUID
	Amount     decimal.Decimal
	Months     int32
	GrantDate  time.Time
	Notes      *string
	Actor      string
}

// GrantAdvance creates a new advance with equal fixed installments. An
// employee may hold at most one IN_PROGRESS advance; the guard applies at
// creation time only.
func (s *AdvanceService) GrantAdvance(ctx context.Context, input GrantAdvanceInput) (*domain.Advance, error) {
	advance := &domain.Advance{
		ID:               uuid.New(),
		EmployeeID:       input.EmployeeID,
		Amount:           input.Amount,
		GrantDate:        input.GrantDate,
		Months:           input.Months,
		RemainingBalance: input.Amount,
		Status:           domain.AdvanceStatusInProgress,
		Notes:            input.Notes,
		CreatedBy:        input.Actor,
		UpdatedBy:        input.Actor,
	}
	if err := advance.Validate(); err != nil {
		return nil, err
	}
	advance.InstallmentAmount = input.Amount.Div(decimal.NewFromInt(int64(input.Months))).Round(2)

	exists, err := s.directory.Exists(ctx, input.EmployeeID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrEmployeeNotFound
	}

	inProgress, err := s.advanceRepo.HasInProgress(ctx, input.EmployeeID)
	if err != nil {
		return nil, err
	}
	if inProgress {
		return nil, domain.ErrAdvanceInProgress
	}

	created, err := s.advanceRepo.Create(ctx, advance)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("advance_id", created.ID.String()).
		Str("employee_id", created.EmployeeID.String()).
		Str("amount", created.Amount.StringFixed(2)).
		Int32("months", created.Months).
		Msg("advance granted")

	return created, nil
}

// UpdateProgress sets the advance's remaining balance directly. Balance zero
// marks it REPAID and stamps the full-repayment date; a nonzero balance
// returns it to IN_PROGRESS and clears that date. CANCELLED stays cancelled.
func (s *AdvanceService) UpdateProgress(ctx context.Context, advanceID uuid.UUID, newRemainingBalance decimal.Decimal, actor string) (*domain.Advance, error) {
	advance, err := s.advanceRepo.GetByID(ctx, advanceID)
	if err != nil {
		return nil, err
	}

	if err := domain.ApplyAdvanceBalance(advance, newRemainingBalance, actor, time.Now()); err != nil {
		return nil, err
	}

	updated, err := s.advanceRepo.Update(ctx, advance)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("advance_id", advanceID.String()).
		Str("remaining_balance", newRemainingBalance.StringFixed(2)).
		Str("status", string(updated.Status)).
		Str("actor", actor).
		Msg("advance progress updated")

	return updated, nil
}

// GetAdvance retrieves an advance by ID
func (s *AdvanceService) GetAdvance(ctx context.Context, id uuid.UUID) (*domain.Advance, error) {
	return s.advanceRepo.GetByID(ctx, id)
}

// GetAdvancesByEmployee retrieves all advances for an employee
func (s *AdvanceService) GetAdvancesByEmployee(ctx context.Context, employeeID uuid.UUID) ([]*domain.Advance, error) {
	return s.advanceRepo.GetByEmployee(ctx, employeeID)
}

// CancelAdvance puts the advance in the terminal CANCELLED state.
func (s *AdvanceService) CancelAdvance(ctx context.Context, id uuid.UUID, actor string) (*domain.Advance, error) {
	advance, err := s.advanceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	advance.Status = domain.AdvanceStatusCancelled
	advance.UpdatedBy = actor
	updated, err := s.advanceRepo.Update(ctx, advance)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("advance_id", id.String()).Str("actor", actor).Msg("advance cancelled")
	return updated, nil
}
