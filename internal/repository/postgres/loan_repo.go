package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meridianhr/payroll-engine/internal/domain"
)

// LoanRepository implements domain.LoanRepository using PostgreSQL
type LoanRepository struct {
	pool *pgxpool.Pool
}

// NewLoanRepository creates a new LoanRepository
func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{pool: pool}
}

const loanColumns = `id, employee_id, principal, annual_rate, insurance_rate, months,
	start_date, end_date, monthly_payment, amount_repaid, remaining_balance,
	interest_paid, status, notes, created_by, updated_by, created_at, updated_at`

// Create persists a new loan
func (r *LoanRepository) Create(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	principal, err := decimalToPgNumeric(loan.Principal)
	if err != nil {
		return nil, err
	}
	annualRate, err := decimalToPgNumeric(loan.AnnualRatePercent)
	if err != nil {
		return nil, err
	}
	insuranceRate, err := decimalToPgNumeric(loan.InsuranceRatePercent)
	if err != nil {
		return nil, err
	}
	monthlyPayment, err := decimalToPgNumeric(loan.MonthlyPayment)
	if err != nil {
		return nil, err
	}
	amountRepaid, err := decimalToPgNumeric(loan.AmountRepaid)
	if err != nil {
		return nil, err
	}
	remainingBalance, err := decimalToPgNumeric(loan.RemainingBalance)
	if err != nil {
		return nil, err
	}
	interestPaid, err := decimalToPgNumeric(loan.InterestPaid)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO loans (id, employee_id, principal, annual_rate, insurance_rate, months,
			start_date, end_date, monthly_payment, amount_repaid, remaining_balance,
			interest_paid, status, notes, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING ` + loanColumns

	row := r.pool.QueryRow(ctx, query,
		loan.ID,
		loan.EmployeeID,
		principal,
		annualRate,
		insuranceRate,
		loan.Months,
		loan.StartDate,
		loan.EndDate,
		monthlyPayment,
		amountRepaid,
		remainingBalance,
		interestPaid,
		string(loan.Status),
		stringPtrToPgText(loan.Notes),
		loan.CreatedBy,
		loan.UpdatedBy,
	)
	return scanLoan(row)
}

// GetByID retrieves a loan by its ID
func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	loan, err := scanLoan(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	return loan, nil
}

// GetByEmployee retrieves all loans for an employee, oldest first
func (r *LoanRepository) GetByEmployee(ctx context.Context, employeeID uuid.UUID) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE employee_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []*domain.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

// Update persists the loan's mutable state
func (r *LoanRepository) Update(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	monthlyPayment, err := decimalToPgNumeric(loan.MonthlyPayment)
	if err != nil {
		return nil, err
	}
	amountRepaid, err := decimalToPgNumeric(loan.AmountRepaid)
	if err != nil {
		return nil, err
	}
	remainingBalance, err := decimalToPgNumeric(loan.RemainingBalance)
	if err != nil {
		return nil, err
	}
	interestPaid, err := decimalToPgNumeric(loan.InterestPaid)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE loans
		SET monthly_payment = $2, amount_repaid = $3, remaining_balance = $4,
			interest_paid = $5, status = $6, notes = $7, updated_by = $8, updated_at = now()
		WHERE id = $1
		RETURNING ` + loanColumns

	updated, err := scanLoan(r.pool.QueryRow(ctx, query,
		loan.ID,
		monthlyPayment,
		amountRepaid,
		remainingBalance,
		interestPaid,
		string(loan.Status),
		stringPtrToPgText(loan.Notes),
		loan.UpdatedBy,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	return updated, nil
}

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var (
		loan             domain.Loan
		principal        pgtype.Numeric
		annualRate       pgtype.Numeric
		insuranceRate    pgtype.Numeric
		monthlyPayment   pgtype.Numeric
		amountRepaid     pgtype.Numeric
		remainingBalance pgtype.Numeric
		interestPaid     pgtype.Numeric
		status           string
		notes            pgtype.Text
	)
	err := row.Scan(
		&loan.ID,
		&loan.EmployeeID,
		&principal,
		&annualRate,
		&insuranceRate,
		&loan.Months,
		&loan.StartDate,
		&loan.EndDate,
		&monthlyPayment,
		&amountRepaid,
		&remainingBalance,
		&interestPaid,
		&status,
		&notes,
		&loan.CreatedBy,
		&loan.UpdatedBy,
		&loan.CreatedAt,
		&loan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	loan.Principal = pgNumericToDecimal(principal)
	loan.AnnualRatePercent = pgNumericToDecimal(annualRate)
	loan.InsuranceRatePercent = pgNumericToDecimal(insuranceRate)
	loan.MonthlyPayment = pgNumericToDecimal(monthlyPayment)
	loan.AmountRepaid = pgNumericToDecimal(amountRepaid)
	loan.RemainingBalance = pgNumericToDecimal(remainingBalance)
	loan.InterestPaid = pgNumericToDecimal(interestPaid)
	loan.Status = domain.LoanStatus(status)
	loan.Notes = pgTextToStringPtr(notes)
	return &loan, nil
}
