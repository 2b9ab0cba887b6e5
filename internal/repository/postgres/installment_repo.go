package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meridianhr/payroll-engine/internal/domain"
)

// InstallmentRepository implements domain.InstallmentRepository using PostgreSQL
type InstallmentRepository struct {
	pool *pgxpool.Pool
}

// NewInstallmentRepository creates a new InstallmentRepository
func NewInstallmentRepository(pool *pgxpool.Pool) *InstallmentRepository {
	return &InstallmentRepository{pool: pool}
}

const installmentColumns = `id, loan_id, number, due_date, amount, principal, interest,
	tax_on_interest, insurance, remaining_principal, status, paid_date, amount_paid,
	notes, created_at, updated_at`

// CreateBatch persists a loan's full schedule and the loan's monthly-payment
// fields in one transaction
func (r *InstallmentRepository) CreateBatch(ctx context.Context, loan *domain.Loan, installments []*domain.Installment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.TxError{Op: "create schedule", Err: err}
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO installments (id, loan_id, number, due_date, amount, principal,
			interest, tax_on_interest, insurance, remaining_principal, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	for _, inst := range installments {
		amount, err := decimalToPgNumeric(inst.Amount)
		if err != nil {
			return err
		}
		principal, err := decimalToPgNumeric(inst.Principal)
		if err != nil {
			return err
		}
		interest, err := decimalToPgNumeric(inst.Interest)
		if err != nil {
			return err
		}
		tax, err := decimalToPgNumeric(inst.TaxOnInterest)
		if err != nil {
			return err
		}
		insurance, err := decimalToPgNumeric(inst.Insurance)
		if err != nil {
			return err
		}
		remaining, err := decimalToPgNumeric(inst.RemainingPrincipal)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, query,
			inst.ID,
			inst.LoanID,
			inst.Number,
			inst.DueDate,
			amount,
			principal,
			interest,
			tax,
			insurance,
			remaining,
			string(inst.Status),
		); err != nil {
			return domain.TxError{Op: "create schedule", Err: err}
		}
	}

	monthlyPayment, err := decimalToPgNumeric(loan.MonthlyPayment)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE loans
		SET monthly_payment = $2, updated_by = $3, updated_at = now()
		WHERE id = $1`,
		loan.ID,
		monthlyPayment,
		loan.UpdatedBy,
	); err != nil {
		return domain.TxError{Op: "create schedule", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.TxError{Op: "create schedule commit", Err: err}
	}
	return nil
}

// GetByID retrieves an installment by its ID
func (r *InstallmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE id = $1`
	inst, err := scanInstallment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInstallmentNotFound
		}
		return nil, err
	}
	return inst, nil
}

// GetByLoanID retrieves a loan's full ledger ordered by installment number
func (r *InstallmentRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE loan_id = $1 ORDER BY number`
	rows, err := r.pool.Query(ctx, query, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var installments []*domain.Installment
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		installments = append(installments, inst)
	}
	return installments, rows.Err()
}

// CountByLoanID counts a loan's installments
func (r *InstallmentRepository) CountByLoanID(ctx context.Context, loanID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM installments WHERE loan_id = $1`, loanID).Scan(&count)
	return count, err
}

// Pay applies one payment to an installment and its parent loan inside a
// single transaction. The installment and then its loan row are locked, so
// concurrent payments against the same loan serialize while payments on
// other loans stay fully independent. Lock order is always installment
// before loan.
func (r *InstallmentRepository) Pay(ctx context.Context, cmd domain.PayCommand) (*domain.Installment, *domain.Loan, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, domain.TxError{Op: "pay installment", Err: err}
	}
	defer tx.Rollback(ctx)

	inst, err := scanInstallment(tx.QueryRow(ctx,
		`SELECT `+installmentColumns+` FROM installments WHERE id = $1 FOR UPDATE`, cmd.InstallmentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, domain.ErrInstallmentNotFound
		}
		return nil, nil, domain.TxError{Op: "pay installment", Err: err}
	}

	loan, err := scanLoan(tx.QueryRow(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, inst.LoanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, domain.ErrLoanNotFound
		}
		return nil, nil, domain.TxError{Op: "pay installment", Err: err}
	}

	if err := domain.ApplyPayment(loan, inst, cmd, time.Now()); err != nil {
		return nil, nil, err
	}

	amountPaid, err := decimalToPgNumeric(*inst.AmountPaid)
	if err != nil {
		return nil, nil, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE installments
		SET status = $2, paid_date = $3, amount_paid = $4, notes = $5, updated_at = now()
		WHERE id = $1`,
		inst.ID,
		string(inst.Status),
		timePtrToPgTimestamptz(inst.PaidDate),
		amountPaid,
		stringPtrToPgText(inst.Notes),
	); err != nil {
		return nil, nil, domain.TxError{Op: "pay installment", Err: err}
	}

	amountRepaid, err := decimalToPgNumeric(loan.AmountRepaid)
	if err != nil {
		return nil, nil, err
	}
	remainingBalance, err := decimalToPgNumeric(loan.RemainingBalance)
	if err != nil {
		return nil, nil, err
	}
	interestPaid, err := decimalToPgNumeric(loan.InterestPaid)
	if err != nil {
		return nil, nil, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE loans
		SET amount_repaid = $2, remaining_balance = $3, interest_paid = $4,
			status = $5, updated_by = $6, updated_at = now()
		WHERE id = $1`,
		loan.ID,
		amountRepaid,
		remainingBalance,
		interestPaid,
		string(loan.Status),
		loan.UpdatedBy,
	); err != nil {
		return nil, nil, domain.TxError{Op: "pay installment", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, domain.TxError{Op: "pay installment commit", Err: err}
	}
	return inst, loan, nil
}

func scanInstallment(row pgx.Row) (*domain.Installment, error) {
	var (
		inst       domain.Installment
		amount     pgtype.Numeric
		principal  pgtype.Numeric
		interest   pgtype.Numeric
		tax        pgtype.Numeric
		insurance  pgtype.Numeric
		remaining  pgtype.Numeric
		status     string
		paidDate   pgtype.Timestamptz
		amountPaid pgtype.Numeric
		notes      pgtype.Text
	)
	err := row.Scan(
		&inst.ID,
		&inst.LoanID,
		&inst.Number,
		&inst.DueDate,
		&amount,
		&principal,
		&interest,
		&tax,
		&insurance,
		&remaining,
		&status,
		&paidDate,
		&amountPaid,
		&notes,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inst.Amount = pgNumericToDecimal(amount)
	inst.Principal = pgNumericToDecimal(principal)
	inst.Interest = pgNumericToDecimal(interest)
	inst.TaxOnInterest = pgNumericToDecimal(tax)
	inst.Insurance = pgNumericToDecimal(insurance)
	inst.RemainingPrincipal = pgNumericToDecimal(remaining)
	inst.Status = domain.InstallmentStatus(status)
	inst.PaidDate = pgTimestamptzToTimePtr(paidDate)
	inst.AmountPaid = pgNumericToDecimalPtr(amountPaid)
	inst.Notes = pgTextToStringPtr(notes)
	return &inst, nil
}
