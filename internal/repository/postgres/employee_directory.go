package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EmployeeDirectory implements domain.EmployeeDirectory against the employees table
type EmployeeDirectory struct {
	pool *pgxpool.Pool
}

// NewEmployeeDirectory creates a new EmployeeDirectory
func NewEmployeeDirectory(pool *pgxpool.Pool) *EmployeeDirectory {
	return &EmployeeDirectory{pool: pool}
}

// Exists reports whether an active employee with the given ID is on record
func (d *EmployeeDirectory) Exists(ctx context.Context, employeeID uuid.UUID) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM employees WHERE id = $1 AND active)`,
		employeeID,
	).Scan(&exists)
	return exists, err
}
