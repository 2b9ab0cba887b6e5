package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "ACTIVE"
	LoanStatusPaidOff   LoanStatus = "PAID_OFF"
	LoanStatusSuspended LoanStatus = "SUSPENDED"
	LoanStatusCancelled LoanStatus = "CANCELLED"
)

// Loan is the aggregate root of a repayment ledger. AmountRepaid,
// RemainingBalance, InterestPaid and Status are derived from the PAID
// installments and must only change through the payment service.
type Loan struct {
	ID                   uuid.UUID       `json:"id"`
	EmployeeID           uuid.UUID       `json:"employeeId"`
	Principal            decimal.Decimal `json:"principal"`
	AnnualRatePercent    decimal.Decimal `json:"annualRatePercent"`
	InsuranceRatePercent decimal.Decimal `json:"insuranceRatePercent"`
	Months               int32           `json:"months"`
	StartDate            time.Time       `json:"startDate"`
	EndDate              time.Time       `json:"endDate"`
	MonthlyPayment       decimal.Decimal `json:"monthlyPayment"`
	AmountRepaid         decimal.Decimal `json:"amountRepaid"`
	RemainingBalance     decimal.Decimal `json:"remainingBalance"`
	InterestPaid         decimal.Decimal `json:"interestPaid"`
	Status               LoanStatus      `json:"status"`
	Notes                *string         `json:"notes,omitempty"`
	CreatedBy            string          `json:"createdBy"`
	UpdatedBy            string          `json:"updatedBy"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

func (l *Loan) Validate() error {
	if l.EmployeeID == uuid.Nil {
		return TermsError{Field: "employeeId", Reason: "is required"}
	}
	if l.Principal.LessThanOrEqual(decimal.Zero) {
		return TermsError{Field: "principal", Reason: "must be positive"}
	}
	if l.Months < 1 {
		return TermsError{Field: "months", Reason: "must be at least 1"}
	}
	if l.AnnualRatePercent.IsNegative() {
		return TermsError{Field: "annualRatePercent", Reason: "must not be negative"}
	}
	if l.InsuranceRatePercent.IsNegative() {
		return TermsError{Field: "insuranceRatePercent", Reason: "must not be negative"}
	}
	return nil
}

// IsTerminal reports whether the loan can no longer accept payments.
func (l *Loan) IsTerminal() bool {
	return l.Status == LoanStatusPaidOff || l.Status == LoanStatusCancelled
}

type LoanRepository interface {
	Create(ctx context.Context, loan *Loan) (*Loan, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Loan, error)
	GetByEmployee(ctx context.Context, employeeID uuid.UUID) ([]*Loan, error)
	// Update persists the loan's mutable state: monthly payment, repaid
	// amount, remaining balance, interest paid, status, notes, updated-by.
	Update(ctx context.Context, loan *Loan) (*Loan, error)
}

// EmployeeDirectory is the external identity collaborator. The engine only
// asks whether an employee exists; eligibility beyond that is not its concern.
type EmployeeDirectory interface {
	Exists(ctx context.Context, employeeID uuid.UUID) (bool, error)
}
