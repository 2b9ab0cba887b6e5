package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound           = errors.New("loan not found")
	ErrInstallmentNotFound    = errors.New("installment not found")
	ErrAdvanceNotFound        = errors.New("advance not found")
	ErrEmployeeNotFound       = errors.New("employee not found")
	ErrInvalidTerms           = errors.New("invalid loan terms")
	ErrAmountInvalid          = errors.New("payment amount must be positive")
	ErrBalanceOutOfRange      = errors.New("remaining balance must be between zero and the principal")
	ErrInstallmentAlreadyPaid = errors.New("installment is already paid")
	ErrScheduleExists         = errors.New("loan already has an installment schedule")
	ErrAdvanceInProgress      = errors.New("employee already has an advance in progress")
	ErrLoanCancelled          = errors.New("loan is cancelled")
	ErrAdvanceCancelled       = errors.New("advance is cancelled")
)

// TermsError reports which loan term failed validation. It unwraps to
// ErrInvalidTerms so callers can match the whole class with errors.Is.
type TermsError struct {
	Field  string
	Reason string
}

func (e TermsError) Error() string {
	return fmt.Sprintf("invalid loan terms: %s %s", e.Field, e.Reason)
}

func (e TermsError) Unwrap() error {
	return ErrInvalidTerms
}

// TxError marks a storage-transaction failure. Callers must treat the
// operation's outcome as unknown and re-verify state before retrying; a blind
// retry of a payment could double-count if the first attempt committed.
type TxError struct {
	Op  string
	Err error
}

func (e TxError) Error() string {
	return fmt.Sprintf("transaction failed during %s: %v", e.Op, e.Err)
}

func (e TxError) Unwrap() error {
	return e.Err
}
