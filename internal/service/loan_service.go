package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/meridianhr/payroll-engine/internal/amortization"
	"github.com/meridianhr/payroll-engine/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LoanService handles loan creation and schedule materialization
type LoanService struct {
	loanRepo             domain.LoanRepository
	instRepo             domain.InstallmentRepository
	directory            domain.EmployeeDirectory
	defaultInsuranceRate decimal.Decimal
	logger               zerolog.Logger
}

// NewLoanService creates a new LoanService. defaultInsuranceRate is the
// annual insurance rate applied to loans created without an explicit one.
func NewLoanService(loanRepo domain.LoanRepository, instRepo domain.InstallmentRepository, directory domain.EmployeeDirectory, defaultInsuranceRate decimal.Decimal, logger zerolog.Logger) *LoanService {
	return &LoanService{
		loanRepo:             loanRepo,
		instRepo:             instRepo,
		directory:            directory,
		defaultInsuranceRate: defaultInsuranceRate,
		logger:               logger,
	}
}

// CreateLoanInput contains input for creating a loan. A nil
// InsuranceRatePercent means the service's default rate; an explicit zero
// disables insurance for this loan.
type CreateLoanInput struct {
	EmployeeID           uuid.UUID
	Principal            decimal.Decimal
	AnnualRatePercent    decimal.Decimal
	InsuranceRatePercent *decimal.Decimal
	Months               int32
	StartDate            time.Time
	Notes                *string
	Actor                string
}

// CreateLoan validates the terms, persists the loan and materializes its
// installment schedule. The loan starts ACTIVE with the full principal
// outstanding; its monthly payment comes from the first schedule entry.
func (s *LoanService) CreateLoan(ctx context.Context, input CreateLoanInput) (*domain.Loan, error) {
	insuranceRate := s.defaultInsuranceRate
	if input.InsuranceRatePercent != nil {
		insuranceRate = *input.InsuranceRatePercent
	}

	terms := amortization.Terms{
		Principal:            input.Principal,
		AnnualRatePercent:    input.AnnualRatePercent,
		InsuranceRatePercent: insuranceRate,
		Months:               int(input.Months),
		Start:                input.StartDate,
	}
	if err := terms.Validate(); err != nil {
		return nil, err
	}
	if input.EmployeeID == uuid.Nil {
		return nil, domain.TermsError{Field: "employeeId", Reason: "is required"}
	}

	exists, err := s.directory.Exists(ctx, input.EmployeeID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrEmployeeNotFound
	}

	entries, err := amortization.Schedule(terms)
	if err != nil {
		return nil, err
	}

	loan := &domain.Loan{
		ID:                   uuid.New(),
		EmployeeID:           input.EmployeeID,
		Principal:            input.Principal,
		AnnualRatePercent:    input.AnnualRatePercent,
		InsuranceRatePercent: insuranceRate,
		Months:               input.Months,
		StartDate:            input.StartDate,
		EndDate:              input.StartDate.AddDate(0, int(input.Months), 0),
		MonthlyPayment:       entries[0].Payment,
		AmountRepaid:         decimal.Zero,
		RemainingBalance:     input.Principal,
		InterestPaid:         decimal.Zero,
		Status:               domain.LoanStatusActive,
		Notes:                input.Notes,
		CreatedBy:            input.Actor,
		UpdatedBy:            input.Actor,
	}

	created, err := s.loanRepo.Create(ctx, loan)
	if err != nil {
		return nil, err
	}

	if err := s.instRepo.CreateBatch(ctx, created, buildInstallments(created.ID, entries)); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("loan_id", created.ID.String()).
		Str("employee_id", created.EmployeeID.String()).
		Str("principal", created.Principal.StringFixed(2)).
		Int32("months", created.Months).
		Msg("loan created")

	return created, nil
}

// GenerateScheduleInput contains input for generating a schedule for a loan
// created without one. FixedAmount switches to a flat repetition of one
// amount instead of the annuity curve.
type GenerateScheduleInput struct {
	LoanID      uuid.UUID
	FixedAmount *decimal.Decimal
	Actor       string
}

// GenerateSchedule materializes the installment ledger for an existing loan.
// Schedule generation is one-time and non-idempotent: a loan that already has
// installments fails with ErrScheduleExists.
func (s *LoanService) GenerateSchedule(ctx context.Context, input GenerateScheduleInput) ([]*domain.Installment, error) {
	loan, err := s.loanRepo.GetByID(ctx, input.LoanID)
	if err != nil {
		return nil, err
	}

	count, err := s.instRepo.CountByLoanID(ctx, loan.ID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, domain.ErrScheduleExists
	}

	var entries []amortization.Entry
	if input.FixedAmount != nil {
		entries, err = amortization.FlatSchedule(loan.Principal, *input.FixedAmount, int(loan.Months), loan.StartDate)
	} else {
		entries, err = amortization.Schedule(amortization.Terms{
			Principal:            loan.Principal,
			AnnualRatePercent:    loan.AnnualRatePercent,
			InsuranceRatePercent: loan.InsuranceRatePercent,
			Months:               int(loan.Months),
			Start:                loan.StartDate,
		})
	}
	if err != nil {
		return nil, err
	}

	installments := buildInstallments(loan.ID, entries)

	// the batch also commits the loan's new monthly payment, so a failure
	// here leaves the loan row untouched
	loan.MonthlyPayment = entries[0].Payment
	loan.UpdatedBy = input.Actor
	if err := s.instRepo.CreateBatch(ctx, loan, installments); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("loan_id", loan.ID.String()).
		Int("installments", len(installments)).
		Msg("schedule generated")

	return installments, nil
}

// PreviewSchedule computes a schedule without touching storage, for
// consumers that show terms before committing to them.
func (s *LoanService) PreviewSchedule(terms amortization.Terms) ([]amortization.Entry, error) {
	return amortization.Schedule(terms)
}

// GetLoan retrieves a loan by ID
func (s *LoanService) GetLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return s.loanRepo.GetByID(ctx, id)
}

// GetLoansByEmployee retrieves all loans for an employee
func (s *LoanService) GetLoansByEmployee(ctx context.Context, employeeID uuid.UUID) ([]*domain.Loan, error) {
	return s.loanRepo.GetByEmployee(ctx, employeeID)
}

// GetInstallments retrieves a loan's full installment ledger in order
func (s *LoanService) GetInstallments(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	if _, err := s.loanRepo.GetByID(ctx, loanID); err != nil {
		return nil, err
	}
	return s.instRepo.GetByLoanID(ctx, loanID)
}

// CancelLoan puts the loan in the terminal CANCELLED state, freezing its
// ledger. Payments against a cancelled loan's installments are rejected.
func (s *LoanService) CancelLoan(ctx context.Context, id uuid.UUID, actor string) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	loan.Status = domain.LoanStatusCancelled
	loan.UpdatedBy = actor
	updated, err := s.loanRepo.Update(ctx, loan)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("loan_id", id.String()).Str("actor", actor).Msg("loan cancelled")
	return updated, nil
}

// buildInstallments converts schedule entries into pending installment rows
func buildInstallments(loanID uuid.UUID, entries []amortization.Entry) []*domain.Installment {
	installments := make([]*domain.Installment, len(entries))
	for i, e := range entries {
		installments[i] = &domain.Installment{
			ID:                 uuid.New(),
			LoanID:             loanID,
			Number:             int32(e.Number),
			DueDate:            e.DueDate,
			Amount:             e.Total,
			Principal:          e.Principal,
			Interest:           e.Interest,
			TaxOnInterest:      e.TaxOnInterest,
			Insurance:          e.Insurance,
			RemainingPrincipal: e.RemainingPrincipal,
			Status:             domain.InstallmentStatusPending,
		}
	}
	return installments
}
