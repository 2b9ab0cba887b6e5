package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/meridianhr/payroll-engine/internal/domain"
	"github.com/meridianhr/payroll-engine/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdvanceFixture() (*AdvanceService, *testutil.MockAdvanceRepository, *testutil.MockEmployeeDirectory) {
	advanceRepo := testutil.NewMockAdvanceRepository()
	directory := testutil.NewMockEmployeeDirectory()
	svc := NewAdvanceService(advanceRepo, directory, zerolog.Nop())
	return svc, advanceRepo, directory
}

func TestGrantAdvance_Success(t *testing.T) {
	svc, _, directory := newAdvanceFixture()
	employeeID := uuid.New()
	directory.AddEmployee(employeeID)

	advance, err := svc.GrantAdvance(context.Background(), GrantAdvanceInput{
		EmployeeID: employeeID,
		Amount:     decimal.NewFromInt(12000),
		Months:     4,
		GrantDate:  testStart,
		Actor:      "hr.manager",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.AdvanceStatusInProgress, advance.Status)
	assert.True(t, advance.InstallmentAmount.Equal(decimal.NewFromInt(3000)))
	assert.True(t, advance.RemainingBalance.Equal(decimal.NewFromInt(12000)))
	assert.Nil(t, advance.RepaidDate)
}

func TestGrantAdvance_InvalidTerms(t *testing.T) {
	svc, _, directory := newAdvanceFixture()
	employeeID := uuid.New()
	directory.AddEmployee(employeeID)

	_, err := svc.GrantAdvance(context.Background(), GrantAdvanceInput{
		EmployeeID: employeeID,
		Amount:     decimal.Zero,
		Months:     4,
		GrantDate:  testStart,
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidTerms))
}

func TestGrantAdvance_EmployeeNotFound(t *testing.T) {
	svc, _, _ := newAdvanceFixture()

	_, err := svc.GrantAdvance(context.Background(), GrantAdvanceInput{
		EmployeeID: uuid.New(),
		Amount:     decimal.NewFromInt(1000),
		Months:     2,
		GrantDate:  testStart,
	})
	assert.Equal(t, domain.ErrEmployeeNotFound, err)
}

func TestGrantAdvance_SecondInProgressRejected(t *testing.T) {
	svc, _, directory := newAdvanceFixture()
	employeeID := uuid.New()
	directory.AddEmployee(employeeID)

	_, err := svc.GrantAdvance(context.Background(), GrantAdvanceInput{
		EmployeeID: employeeID,
		Amount:     decimal.NewFromInt(12000),
		Months:     4,
		GrantDate:  testStart,
	})
	require.NoError(t, err)

	_, err = svc.GrantAdvance(context.Background(), GrantAdvanceInput{
		EmployeeID: employeeID,
		Amount:     decimal.NewFromInt(6000),
		Months:     3,
		GrantDate:  testStart,
	})
	assert.Equal(t, domain.ErrAdvanceInProgress, err)
}

func TestGrantAdvance_StoreEnforcesSingleActive(t *testing.T) {
	svc, advanceRepo, directory := newAdvanceFixture()
	employeeID := uuid.New()
	directory.AddEmployee(employeeID)

	_, err := svc.GrantAdvance(context.Background(), GrantAdvanceInput{
		EmployeeID: employeeID,
		Amount:     decimal.NewFromInt(12000),
		Months:     4,
		GrantDate:  testStart,
	})
	require.NoError(t, err)

	// a second IN_PROGRESS insert that slipped past the creation-time check
	// is still rejected by the store itself
	_, err = advanceRepo.Create(context.Background(), &domain.Advance{
		ID:                uuid.New(),
		EmployeeID:        employeeID,
		Amount:            decimal.NewFromInt(6000),
		GrantDate:         testStart,
		Months:            3,
		InstallmentAmount: decimal.NewFromInt(2000),
		RemainingBalance:  decimal.NewFromInt(6000),
		Status:            domain.AdvanceStatusInProgress,
	})
	assert.Equal(t, domain.ErrAdvanceInProgress, err)
}

func TestGrantAdvance_AllowedAfterRepaid(t *testing.T) {
	svc, _, directory := newAdvanceFixture()
	employeeID := uuid.New()
	directory.AddEmployee(employeeID)

	first, err := svc.GrantAdvance(context.Background(), GrantAdvanceInput{
		EmployeeID: employeeID,
		Amount:     decimal.NewFromInt(12000),
		Months:     4,
		GrantDate:  testStart,
	})
	require.NoError(t, err)

	_, err = svc.UpdateProgress(context.Background(), first.ID, decimal.Zero, "payroll.clerk")
	require.NoError(t, err)

	_, err = svc.GrantAdvance(context.Background(), GrantAdvanceInput{
		EmployeeID: employeeID,
		Amount:     decimal.NewFromInt(6000),
		Months:     3,
		GrantDate:  testStart,
	})
	assert.NoError(t, err)
}

func TestUpdateProgress_TracksRepayment(t *testing.T) {
	svc, _, directory := newAdvanceFixture()
	employeeID := uuid.New()
	directory.AddEmployee(employeeID)

	advance, err := svc.GrantAdvance(context.Background(), GrantAdvanceInput{
		EmployeeID: employeeID,
		Amount:     decimal.NewFromInt(12000),
		Months:     4,
		GrantDate:  testStart,
	})
	require.NoError(t, err)

	// two installments of 3000 collected
	updated, err := svc.UpdateProgress(context.Background(), advance.ID, decimal.NewFromInt(6000), "payroll.clerk")
	require.NoError(t, err)
	assert.Equal(t, domain.AdvanceStatusInProgress, updated.Status)
	assert.True(t, updated.RemainingBalance.Equal(decimal.NewFromInt(6000)))
	assert.Nil(t, updated.RepaidDate)

	// remaining 6000 settled in one go
	updated, err = svc.UpdateProgress(context.Background(), advance.ID, decimal.Zero, "payroll.clerk")
	require.NoError(t, err)
	assert.Equal(t, domain.AdvanceStatusRepaid, updated.Status)
	assert.NotNil(t, updated.RepaidDate)
}

func TestUpdateProgress_ReopeningClearsRepaidDate(t *testing.T) {
	svc, _, directory := newAdvanceFixture()
	employeeID := uuid.New()
	directory.AddEmployee(employeeID)

	advance, err := svc.GrantAdvance(context.Background(), GrantAdvanceInput{
		EmployeeID: employeeID,
		Amount:     decimal.NewFromInt(6000),
		Months:     3,
		GrantDate:  testStart,
	})
	require.NoError(t, err)

	_, err = svc.UpdateProgress(context.Background(), advance.ID, decimal.Zero, "payroll.clerk")
	require.NoError(t, err)

	// administrative correction re-opens the advance
	updated, err := svc.UpdateProgress(context.Background(), advance.ID, decimal.NewFromInt(2000), "payroll.clerk")
	require.NoError(t, err)
	assert.Equal(t, domain.AdvanceStatusInProgress, updated.Status)
	assert.Nil(t, updated.RepaidDate)
}

func TestUpdateProgress_AdvanceBalanceOutOfRange(t *testing.T) {
	svc, _, directory := newAdvanceFixture()
	employeeID := uuid.New()
	directory.AddEmployee(employeeID)

	advance, err := svc.GrantAdvance(context.Background(), GrantAdvanceInput{
		EmployeeID: employeeID,
		Amount:     decimal.NewFromInt(6000),
		Months:     3,
		GrantDate:  testStart,
	})
	require.NoError(t, err)

	_, err = svc.UpdateProgress(context.Background(), advance.ID, decimal.NewFromInt(6001), "payroll.clerk")
	assert.Equal(t, domain.ErrBalanceOutOfRange, err)
}

func TestUpdateProgress_AdvanceNotFound(t *testing.T) {
	svc, _, _ := newAdvanceFixture()

	_, err := svc.UpdateProgress(context.Background(), uuid.New(), decimal.Zero, "payroll.clerk")
	assert.Equal(t, domain.ErrAdvanceNotFound, err)
}

func TestCancelAdvance_IsSticky(t *testing.T) {
	svc, _, directory := newAdvanceFixture()
	employeeID := uuid.New()
	directory.AddEmployee(employeeID)

	advance, err := svc.GrantAdvance(context.Background(), GrantAdvanceInput{
		EmployeeID: employeeID,
		Amount:     decimal.NewFromInt(6000),
		Months:     3,
		GrantDate:  testStart,
	})
	require.NoError(t, err)

	cancelled, err := svc.CancelAdvance(context.Background(), advance.ID, "hr.manager")
	require.NoError(t, err)
	assert.Equal(t, domain.AdvanceStatusCancelled, cancelled.Status)

	// balance corrections never resurrect a cancelled advance
	updated, err := svc.UpdateProgress(context.Background(), advance.ID, decimal.NewFromInt(1000), "payroll.clerk")
	require.NoError(t, err)
	assert.Equal(t, domain.AdvanceStatusCancelled, updated.Status)
}
