package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meridianhr/payroll-engine/internal/domain"
)

// AdvanceRepository implements domain.AdvanceRepository using PostgreSQL
type AdvanceRepository struct {
	pool *pgxpool.Pool
}

// NewAdvanceRepository creates a new AdvanceRepository
func NewAdvanceRepository(pool *pgxpool.Pool) *AdvanceRepository {
	return &AdvanceRepository{pool: pool}
}

const advanceColumns = `id, employee_id, amount, grant_date, months, installment_amount,
	remaining_balance, status, repaid_date, notes, created_by, updated_by, created_at, updated_at`

// Create persists a new advance
func (r *AdvanceRepository) Create(ctx context.Context, advance *domain.Advance) (*domain.Advance, error) {
	amount, err := decimalToPgNumeric(advance.Amount)
	if err != nil {
		return nil, err
	}
	installmentAmount, err := decimalToPgNumeric(advance.InstallmentAmount)
	if err != nil {
		return nil, err
	}
	remainingBalance, err := decimalToPgNumeric(advance.RemainingBalance)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO advances (id, employee_id, amount, grant_date, months,
			installment_amount, remaining_balance, status, notes, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + advanceColumns

	created, err := scanAdvance(r.pool.QueryRow(ctx, query,
		advance.ID,
		advance.EmployeeID,
		amount,
		advance.GrantDate,
		advance.Months,
		installmentAmount,
		remainingBalance,
		string(advance.Status),
		stringPtrToPgText(advance.Notes),
		advance.CreatedBy,
		advance.UpdatedBy,
	))
	if err != nil {
		// the partial unique index on IN_PROGRESS advances closes the race
		// between the service-level guard check and this insert.
		// PostgreSQL unique violation error code is 23505
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAdvanceInProgress
		}
		return nil, err
	}
	return created, nil
}

// GetByID retrieves an advance by its ID
func (r *AdvanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Advance, error) {
	query := `SELECT ` + advanceColumns + ` FROM advances WHERE id = $1`
	advance, err := scanAdvance(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAdvanceNotFound
		}
		return nil, err
	}
	return advance, nil
}

// GetByEmployee retrieves all advances granted to an employee, newest first
func (r *AdvanceRepository) GetByEmployee(ctx context.Context, employeeID uuid.UUID) ([]*domain.Advance, error) {
	query := `SELECT ` + advanceColumns + ` FROM advances WHERE employee_id = $1 ORDER BY grant_date DESC`
	rows, err := r.pool.Query(ctx, query, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var advances []*domain.Advance
	for rows.Next() {
		advance, err := scanAdvance(rows)
		if err != nil {
			return nil, err
		}
		advances = append(advances, advance)
	}
	return advances, rows.Err()
}

// HasInProgress reports whether the employee already has an advance being repaid
func (r *AdvanceRepository) HasInProgress(ctx context.Context, employeeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM advances WHERE employee_id = $1 AND status = $2)`,
		employeeID, string(domain.AdvanceStatusInProgress),
	).Scan(&exists)
	return exists, err
}

// Update persists balance and status changes to an advance
func (r *AdvanceRepository) Update(ctx context.Context, advance *domain.Advance) (*domain.Advance, error) {
	remainingBalance, err := decimalToPgNumeric(advance.RemainingBalance)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE advances
		SET remaining_balance = $2, status = $3, repaid_date = $4, notes = $5,
			updated_by = $6, updated_at = now()
		WHERE id = $1
		RETURNING ` + advanceColumns

	updated, err := scanAdvance(r.pool.QueryRow(ctx, query,
		advance.ID,
		remainingBalance,
		string(advance.Status),
		timePtrToPgTimestamptz(advance.RepaidDate),
		stringPtrToPgText(advance.Notes),
		advance.UpdatedBy,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAdvanceNotFound
		}
		return nil, err
	}
	return updated, nil
}

func scanAdvance(row pgx.Row) (*domain.Advance, error) {
	var (
		advance           domain.Advance
		amount            pgtype.Numeric
		installmentAmount pgtype.Numeric
		remainingBalance  pgtype.Numeric
		status            string
		repaidDate        pgtype.Timestamptz
		notes             pgtype.Text
	)
	err := row.Scan(
		&advance.ID,
		&advance.EmployeeID,
		&amount,
		&advance.GrantDate,
		&advance.Months,
		&installmentAmount,
		&remainingBalance,
		&status,
		&repaidDate,
		&notes,
		&advance.CreatedBy,
		&advance.UpdatedBy,
		&advance.CreatedAt,
		&advance.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	advance.Amount = pgNumericToDecimal(amount)
	advance.InstallmentAmount = pgNumericToDecimal(installmentAmount)
	advance.RemainingBalance = pgNumericToDecimal(remainingBalance)
	advance.Status = domain.AdvanceStatus(status)
	advance.RepaidDate = pgTimestamptzToTimePtr(repaidDate)
	advance.Notes = pgTextToStringPtr(notes)
	return &advance, nil
}
