// Package testutil provides map-backed in-memory implementations of the
// domain repositories for service tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meridianhr/payroll-engine/internal/domain"
)

// MockLoanRepository is an in-memory implementation of domain.LoanRepository
type MockLoanRepository struct {
	mu    sync.Mutex
	Loans map[uuid.UUID]*domain.Loan

	CreateErr error
	UpdateErr error
}

// NewMockLoanRepository creates a new MockLoanRepository
func NewMockLoanRepository() *MockLoanRepository {
	return &MockLoanRepository{Loans: make(map[uuid.UUID]*domain.Loan)}
}

func (m *MockLoanRepository) Create(_ context.Context, loan *domain.Loan) (*domain.Loan, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if loan.ID == uuid.Nil {
		loan.ID = uuid.New()
	}
	now := time.Now()
	loan.CreatedAt = now
	loan.UpdatedAt = now
	m.Loans[loan.ID] = loan
	return loan, nil
}

func (m *MockLoanRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if loan, ok := m.Loans[id]; ok {
		copied := *loan
		return &copied, nil
	}
	return nil, domain.ErrLoanNotFound
}

func (m *MockLoanRepository) GetByEmployee(_ context.Context, employeeID uuid.UUID) ([]*domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var loans []*domain.Loan
	for _, loan := range m.Loans {
		if loan.EmployeeID == employeeID {
			copied := *loan
			loans = append(loans, &copied)
		}
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].CreatedAt.Before(loans[j].CreatedAt) })
	return loans, nil
}

func (m *MockLoanRepository) Update(_ context.Context, loan *domain.Loan) (*domain.Loan, error) {
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Loans[loan.ID]; !ok {
		return nil, domain.ErrLoanNotFound
	}
	loan.UpdatedAt = time.Now()
	copied := *loan
	m.Loans[loan.ID] = &copied
	return loan, nil
}

// MockInstallmentRepository is an in-memory implementation of
// domain.InstallmentRepository. Pay applies domain.ApplyPayment under one
// mutex, mirroring the per-loan serialization the Postgres adapter gets from
// its row lock.
type MockInstallmentRepository struct {
	mu           sync.Mutex
	Installments map[uuid.UUID]*domain.Installment
	LoanRepo     *MockLoanRepository

	BatchErr error
	PayErr   error
}

// NewMockInstallmentRepository creates a new MockInstallmentRepository bound
// to the loan repository holding the parent aggregates.
func NewMockInstallmentRepository(loanRepo *MockLoanRepository) *MockInstallmentRepository {
	return &MockInstallmentRepository{
		Installments: make(map[uuid.UUID]*domain.Installment),
		LoanRepo:     loanRepo,
	}
}

func (m *MockInstallmentRepository) CreateBatch(_ context.Context, loan *domain.Loan, installments []*domain.Installment) error {
	if m.BatchErr != nil {
		return m.BatchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, inst := range installments {
		if inst.ID == uuid.Nil {
			inst.ID = uuid.New()
		}
		inst.CreatedAt = now
		inst.UpdatedAt = now
		m.Installments[inst.ID] = inst
	}

	// the loan's monthly payment commits with the batch, same lock order
	// as Pay
	m.LoanRepo.mu.Lock()
	defer m.LoanRepo.mu.Unlock()
	if stored, ok := m.LoanRepo.Loans[loan.ID]; ok {
		stored.MonthlyPayment = loan.MonthlyPayment
		stored.UpdatedBy = loan.UpdatedBy
		stored.UpdatedAt = now
	}
	return nil
}

func (m *MockInstallmentRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Installment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst, ok := m.Installments[id]; ok {
		copied := *inst
		return &copied, nil
	}
	return nil, domain.ErrInstallmentNotFound
}

func (m *MockInstallmentRepository) GetByLoanID(_ context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var installments []*domain.Installment
	for _, inst := range m.Installments {
		if inst.LoanID == loanID {
			copied := *inst
			installments = append(installments, &copied)
		}
	}
	sort.Slice(installments, func(i, j int) bool { return installments[i].Number < installments[j].Number })
	return installments, nil
}

func (m *MockInstallmentRepository) CountByLoanID(_ context.Context, loanID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, inst := range m.Installments {
		if inst.LoanID == loanID {
			count++
		}
	}
	return count, nil
}

func (m *MockInstallmentRepository) Pay(_ context.Context, cmd domain.PayCommand) (*domain.Installment, *domain.Loan, error) {
	if m.PayErr != nil {
		return nil, nil, m.PayErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.Installments[cmd.InstallmentID]
	if !ok {
		return nil, nil, domain.ErrInstallmentNotFound
	}

	m.LoanRepo.mu.Lock()
	defer m.LoanRepo.mu.Unlock()
	loan, ok := m.LoanRepo.Loans[inst.LoanID]
	if !ok {
		return nil, nil, domain.ErrLoanNotFound
	}

	if err := domain.ApplyPayment(loan, inst, cmd, time.Now()); err != nil {
		return nil, nil, err
	}
	now := time.Now()
	inst.UpdatedAt = now
	loan.UpdatedAt = now

	instCopy := *inst
	loanCopy := *loan
	return &instCopy, &loanCopy, nil
}

// MockAdvanceRepository is an in-memory implementation of domain.AdvanceRepository
type MockAdvanceRepository struct {
	mu       sync.Mutex
	Advances map[uuid.UUID]*domain.Advance

	CreateErr error
	UpdateErr error
}

// NewMockAdvanceRepository creates a new MockAdvanceRepository
func NewMockAdvanceRepository() *MockAdvanceRepository {
	return &MockAdvanceRepository{Advances: make(map[uuid.UUID]*domain.Advance)}
}

func (m *MockAdvanceRepository) Create(_ context.Context, advance *domain.Advance) (*domain.Advance, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// mirrors the store's partial unique index on IN_PROGRESS advances
	if advance.Status == domain.AdvanceStatusInProgress {
		for _, existing := range m.Advances {
			if existing.EmployeeID == advance.EmployeeID && existing.Status == domain.AdvanceStatusInProgress {
				return nil, domain.ErrAdvanceInProgress
			}
		}
	}
	if advance.ID == uuid.Nil {
		advance.ID = uuid.New()
	}
	now := time.Now()
	advance.CreatedAt = now
	advance.UpdatedAt = now
	m.Advances[advance.ID] = advance
	return advance, nil
}

func (m *MockAdvanceRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Advance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if advance, ok := m.Advances[id]; ok {
		copied := *advance
		return &copied, nil
	}
	return nil, domain.ErrAdvanceNotFound
}

func (m *MockAdvanceRepository) GetByEmployee(_ context.Context, employeeID uuid.UUID) ([]*domain.Advance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var advances []*domain.Advance
	for _, advance := range m.Advances {
		if advance.EmployeeID == employeeID {
			copied := *advance
			advances = append(advances, &copied)
		}
	}
	sort.Slice(advances, func(i, j int) bool { return advances[i].CreatedAt.Before(advances[j].CreatedAt) })
	return advances, nil
}

func (m *MockAdvanceRepository) HasInProgress(_ context.Context, employeeID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, advance := range m.Advances {
		if advance.EmployeeID == employeeID && advance.Status == domain.AdvanceStatusInProgress {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockAdvanceRepository) Update(_ context.Context, advance *domain.Advance) (*domain.Advance, error) {
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Advances[advance.ID]; !ok {
		return nil, domain.ErrAdvanceNotFound
	}
	advance.UpdatedAt = time.Now()
	copied := *advance
	m.Advances[advance.ID] = &copied
	return advance, nil
}

// MockEmployeeDirectory is an in-memory implementation of domain.EmployeeDirectory
type MockEmployeeDirectory struct {
	Employees map[uuid.UUID]bool
}

// NewMockEmployeeDirectory creates a new MockEmployeeDirectory
func NewMockEmployeeDirectory() *MockEmployeeDirectory {
	return &MockEmployeeDirectory{Employees: make(map[uuid.UUID]bool)}
}

// AddEmployee registers an employee (helper for tests)
func (m *MockEmployeeDirectory) AddEmployee(id uuid.UUID) {
	m.Employees[id] = true
}

func (m *MockEmployeeDirectory) Exists(_ context.Context, employeeID uuid.UUID) (bool, error) {
	return m.Employees[employeeID], nil
}
