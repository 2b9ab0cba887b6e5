package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayCommand carries one payment against one installment. Actor is the
// acting user supplied by the caller's session layer.
type PayCommand struct {
	InstallmentID uuid.UUID
	Amount        decimal.Decimal
	PaidDate      *time.Time
	Notes         *string
	Actor         string
}

// ApplyPayment mutates an installment and its parent loan for one payment.
// It is the single place the ledger/aggregate math lives; the Postgres
// repository runs it inside a row-locked transaction and the test mocks run
// it under a per-loan mutex, so both stay consistent by construction.
//
// A payment larger than the loan's remaining balance is accepted but only
// credited up to the balance: the installment records the full amount paid,
// while the loan's repaid amount is capped at the principal.
func ApplyPayment(loan *Loan, inst *Installment, cmd PayCommand, now time.Time) error {
	if cmd.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrAmountInvalid
	}
	if loan.Status == LoanStatusCancelled {
		return ErrLoanCancelled
	}
	if inst.Status == InstallmentStatusPaid {
		return ErrInstallmentAlreadyPaid
	}

	paidDate := now
	if cmd.PaidDate != nil {
		paidDate = *cmd.PaidDate
	}

	amount := cmd.Amount
	inst.Status = InstallmentStatusPaid
	inst.PaidDate = &paidDate
	inst.AmountPaid = &amount
	if cmd.Notes != nil {
		inst.Notes = cmd.Notes
	}

	repaid := loan.AmountRepaid.Add(cmd.Amount)
	if repaid.GreaterThan(loan.Principal) {
		repaid = loan.Principal
	}
	loan.AmountRepaid = repaid
	loan.RemainingBalance = loan.Principal.Sub(repaid)
	if loan.RemainingBalance.IsNegative() {
		loan.RemainingBalance = decimal.Zero
	}
	loan.InterestPaid = loan.InterestPaid.Add(inst.Interest)
	if loan.RemainingBalance.IsZero() {
		loan.Status = LoanStatusPaidOff
	}
	if cmd.Actor != "" {
		loan.UpdatedBy = cmd.Actor
	}
	return nil
}

// ApplyBalanceOverride is the administrative correction path: it sets the
// loan's remaining balance directly and recomputes the repaid amount and
// status. CANCELLED is sticky and is never overridden here.
func ApplyBalanceOverride(loan *Loan, newBalance decimal.Decimal, actor string, now time.Time) error {
	if newBalance.IsNegative() || newBalance.GreaterThan(loan.Principal) {
		return ErrBalanceOutOfRange
	}
	loan.RemainingBalance = newBalance
	loan.AmountRepaid = loan.Principal.Sub(newBalance)
	if loan.Status != LoanStatusCancelled {
		switch {
		case newBalance.IsZero():
			loan.Status = LoanStatusPaidOff
		case now.After(loan.EndDate):
			loan.Status = LoanStatusSuspended
		default:
			loan.Status = LoanStatusActive
		}
	}
	if actor != "" {
		loan.UpdatedBy = actor
	}
	return nil
}

// ApplyAdvanceBalance mirrors ApplyBalanceOverride for advances: balance
// zero marks the advance repaid and stamps the full-repayment date, a
// nonzero balance returns it to in-progress and clears that date.
func ApplyAdvanceBalance(advance *Advance, newBalance decimal.Decimal, actor string, now time.Time) error {
	if newBalance.IsNegative() || newBalance.GreaterThan(advance.Amount) {
		return ErrBalanceOutOfRange
	}
	advance.RemainingBalance = newBalance
	if advance.Status != AdvanceStatusCancelled {
		if newBalance.IsZero() {
			advance.Status = AdvanceStatusRepaid
			repaid := now
			advance.RepaidDate = &repaid
		} else {
			advance.Status = AdvanceStatusInProgress
			advance.RepaidDate = nil
		}
	}
	if actor != "" {
		advance.UpdatedBy = actor
	}
	return nil
}
