package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/meridianhr/payroll-engine/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PaymentService is the only entry point that moves money through a loan's
// ledger. Every mutation runs as one transaction spanning the installment
// and its parent loan; payments on the same loan are serialized by the
// repository, payments on different loans are independent.
type PaymentService struct {
	instRepo domain.InstallmentRepository
	loanRepo domain.LoanRepository
	logger   zerolog.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(instRepo domain.InstallmentRepository, loanRepo domain.LoanRepository, logger zerolog.Logger) *PaymentService {
	return &PaymentService{
		instRepo: instRepo,
		loanRepo: loanRepo,
		logger:   logger,
	}
}

// PayInstallmentInput contains input for recording one installment payment
type PayInstallmentInput struct {
	InstallmentID uuid.UUID
	Amount        decimal.Decimal
	PaidDate      *time.Time
	Notes         *string
	Actor         string
}

// PaymentResult returns the committed state of both sides of a payment
type PaymentResult struct {
	Installment *domain.Installment
	Loan        *domain.Loan
}

// PayInstallment records a payment against one installment and updates the
// parent loan's repaid amount, remaining balance, interest-paid counter and
// status atomically. Paying an installment twice fails with
// ErrInstallmentAlreadyPaid; payments are not reversible.
func (s *PaymentService) PayInstallment(ctx context.Context, input PayInstallmentInput) (*PaymentResult, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrAmountInvalid
	}

	// Fast precondition check; the repository re-checks inside the
	// transaction, which is what makes concurrent double-pays lose.
	inst, err := s.instRepo.GetByID(ctx, input.InstallmentID)
	if err != nil {
		return nil, err
	}
	if inst.Status == domain.InstallmentStatusPaid {
		return nil, domain.ErrInstallmentAlreadyPaid
	}

	paidInst, loan, err := s.instRepo.Pay(ctx, domain.PayCommand{
		InstallmentID: input.InstallmentID,
		Amount:        input.Amount,
		PaidDate:      input.PaidDate,
		Notes:         input.Notes,
		Actor:         input.Actor,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("loan_id", loan.ID.String()).
		Str("installment_id", paidInst.ID.String()).
		Int32("number", paidInst.Number).
		Str("amount", input.Amount.StringFixed(2)).
		Str("remaining_balance", loan.RemainingBalance.StringFixed(2)).
		Str("status", string(loan.Status)).
		Str("actor", input.Actor).
		Msg("installment paid")

	return &PaymentResult{Installment: paidInst, Loan: loan}, nil
}

// UpdateProgress is the administrative override path, distinct from
// per-installment payment: it sets the loan's remaining balance directly and
// recomputes its status. Balance zero marks the loan PAID_OFF; a nonzero
// balance past the end date suspends it; CANCELLED stays cancelled.
func (s *PaymentService) UpdateProgress(ctx context.Context, loanID uuid.UUID, newRemainingBalance decimal.Decimal, actor string) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if err := domain.ApplyBalanceOverride(loan, newRemainingBalance, actor, time.Now()); err != nil {
		return nil, err
	}

	updated, err := s.loanRepo.Update(ctx, loan)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("loan_id", loanID.String()).
		Str("remaining_balance", newRemainingBalance.StringFixed(2)).
		Str("status", string(updated.Status)).
		Str("actor", actor).
		Msg("loan progress updated")

	return updated, nil
}
