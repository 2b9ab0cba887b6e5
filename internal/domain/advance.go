package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdvanceStatus is the lifecycle state of a salary advance.
type AdvanceStatus string

const (
	AdvanceStatusInProgress AdvanceStatus = "IN_PROGRESS"
	AdvanceStatusRepaid     AdvanceStatus = "REPAID"
	AdvanceStatusCancelled  AdvanceStatus = "CANCELLED"
)

// Advance is the simplified sibling of Loan: equal fixed installments, no
// amortization curve, and a single remaining-balance counter instead of a
// ledger of installment rows.
type Advance struct {
	ID                uuid.UUID       `json:"id"`
	EmployeeID        uuid.UUID       `json:"employeeId"`
	Amount            decimal.Decimal `json:"amount"`
	GrantDate         time.Time       `json:"grantDate"`
	Months            int32           `json:"months"`
	InstallmentAmount decimal.Decimal `json:"installmentAmount"`
	RemainingBalance  decimal.Decimal `json:"remainingBalance"`
	Status            AdvanceStatus   `json:"status"`
	RepaidDate        *time.Time      `json:"repaidDate,omitempty"`
	Notes             *string         `json:"notes,omitempty"`
	CreatedBy         string          `json:"createdBy"`
	UpdatedBy         string          `json:"updatedBy"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

func (a *Advance) Validate() error {
	if a.EmployeeID == uuid.Nil {
		return TermsError{Field: "employeeId", Reason: "is required"}
	}
	if a.Amount.LessThanOrEqual(decimal.Zero) {
		return TermsError{Field: "amount", Reason: "must be positive"}
	}
	if a.Months < 1 {
		return TermsError{Field: "months", Reason: "must be at least 1"}
	}
	return nil
}

type AdvanceRepository interface {
	Create(ctx context.Context, advance *Advance) (*Advance, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Advance, error)
	GetByEmployee(ctx context.Context, employeeID uuid.UUID) ([]*Advance, error)
	HasInProgress(ctx context.Context, employeeID uuid.UUID) (bool, error)
	Update(ctx context.Context, advance *Advance) (*Advance, error)
}
