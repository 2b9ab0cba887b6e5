package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentStatus is the stored state of a single installment. LATE is a
// read-time classification (see service.EffectiveStatus), never persisted, so
// the ledger has a single source of truth.
type InstallmentStatus string

const (
	InstallmentStatusPending   InstallmentStatus = "PENDING"
	InstallmentStatusPaid      InstallmentStatus = "PAID"
	InstallmentStatusLate      InstallmentStatus = "LATE"
	InstallmentStatusCancelled InstallmentStatus = "CANCELLED"
)

// Installment is one scheduled payment obligation within a loan's ledger.
// Numbers are contiguous starting at 1 and unique within a loan.
type Installment struct {
	ID                 uuid.UUID         `json:"id"`
	LoanID             uuid.UUID         `json:"loanId"`
	Number             int32             `json:"number"`
	DueDate            time.Time         `json:"dueDate"`
	Amount             decimal.Decimal   `json:"amount"`
	Principal          decimal.Decimal   `json:"principal"`
	Interest           decimal.Decimal   `json:"interest"`
	TaxOnInterest      decimal.Decimal   `json:"taxOnInterest"`
	Insurance          decimal.Decimal   `json:"insurance"`
	RemainingPrincipal decimal.Decimal   `json:"remainingPrincipal"`
	Status             InstallmentStatus `json:"status"`
	PaidDate           *time.Time        `json:"paidDate,omitempty"`
	AmountPaid         *decimal.Decimal  `json:"amountPaid,omitempty"`
	Notes              *string           `json:"notes,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// IsOverdue reports whether the installment is unpaid past its due date.
func (i *Installment) IsOverdue(now time.Time) bool {
	return i.Status == InstallmentStatusPending && i.DueDate.Before(now)
}

type InstallmentRepository interface {
	// CreateBatch persists a loan's full schedule and the loan's derived
	// monthly-payment fields in one atomic batch. Partial writes must not
	// be observable: either the ledger and the loan row both commit, or
	// neither does.
	CreateBatch(ctx context.Context, loan *Loan, installments []*Installment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Installment, error)
	GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*Installment, error)
	CountByLoanID(ctx context.Context, loanID uuid.UUID) (int64, error)
	// Pay applies a payment to one installment and its parent loan as a
	// single transaction, serialized per loan. Both returned entities
	// reflect the committed state.
	Pay(ctx context.Context, cmd PayCommand) (*Installment, *Loan, error)
}
