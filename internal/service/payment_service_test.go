package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meridianhr/payroll-engine/internal/domain"
	"github.com/meridianhr/payroll-engine/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentFixture struct {
	loans     *LoanService
	payments  *PaymentService
	loanRepo  *testutil.MockLoanRepository
	instRepo  *testutil.MockInstallmentRepository
	directory *testutil.MockEmployeeDirectory
}

func newPaymentFixture() *paymentFixture {
	loanRepo := testutil.NewMockLoanRepository()
	instRepo := testutil.NewMockInstallmentRepository(loanRepo)
	directory := testutil.NewMockEmployeeDirectory()
	return &paymentFixture{
		loans:     NewLoanService(loanRepo, instRepo, directory, decimal.Zero, zerolog.Nop()),
		payments:  NewPaymentService(instRepo, loanRepo, zerolog.Nop()),
		loanRepo:  loanRepo,
		instRepo:  instRepo,
		directory: directory,
	}
}

func (f *paymentFixture) createLoan(t *testing.T, principal int64, ratePercent int64, months int32) (*domain.Loan, []*domain.Installment) {
	t.Helper()
	employeeID := uuid.New()
	f.directory.AddEmployee(employeeID)
	loan, err := f.loans.CreateLoan(context.Background(), CreateLoanInput{
		EmployeeID:        employeeID,
		Principal:         decimal.NewFromInt(principal),
		AnnualRatePercent: decimal.NewFromInt(ratePercent),
		Months:            months,
		StartDate:         testStart,
		Actor:             "hr.manager",
	})
	require.NoError(t, err)
	installments, err := f.instRepo.GetByLoanID(context.Background(), loan.ID)
	require.NoError(t, err)
	return loan, installments
}

func TestPayInstallment_Success(t *testing.T) {
	f := newPaymentFixture()
	loan, installments := f.createLoan(t, 120000, 12, 12)
	first := installments[0]

	paidDate := testStart.AddDate(0, 1, 0)
	result, err := f.payments.PayInstallment(context.Background(), PayInstallmentInput{
		InstallmentID: first.ID,
		Amount:        first.Amount,
		PaidDate:      &paidDate,
		Actor:         "payroll.clerk",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.InstallmentStatusPaid, result.Installment.Status)
	require.NotNil(t, result.Installment.PaidDate)
	assert.Equal(t, paidDate, *result.Installment.PaidDate)
	require.NotNil(t, result.Installment.AmountPaid)
	assert.True(t, result.Installment.AmountPaid.Equal(first.Amount))

	assert.True(t, result.Loan.AmountRepaid.Equal(first.Amount))
	assert.True(t, result.Loan.RemainingBalance.Equal(loan.Principal.Sub(first.Amount)))
	assert.True(t, result.Loan.InterestPaid.Equal(first.Interest))
	assert.Equal(t, domain.LoanStatusActive, result.Loan.Status)
}

func TestPayInstallment_InvalidAmount(t *testing.T) {
	f := newPaymentFixture()
	_, installments := f.createLoan(t, 12000, 0, 12)

	_, err := f.payments.PayInstallment(context.Background(), PayInstallmentInput{
		InstallmentID: installments[0].ID,
		Amount:        decimal.Zero,
	})
	assert.Equal(t, domain.ErrAmountInvalid, err)
}

func TestPayInstallment_NotFound(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.payments.PayInstallment(context.Background(), PayInstallmentInput{
		InstallmentID: uuid.New(),
		Amount:        decimal.NewFromInt(100),
	})
	assert.Equal(t, domain.ErrInstallmentNotFound, err)
}

func TestPayInstallment_AlreadyPaid(t *testing.T) {
	f := newPaymentFixture()
	_, installments := f.createLoan(t, 12000, 0, 12)
	first := installments[0]

	_, err := f.payments.PayInstallment(context.Background(), PayInstallmentInput{
		InstallmentID: first.ID,
		Amount:        first.Amount,
	})
	require.NoError(t, err)

	// second attempt must surface a conflict, not silently overwrite
	_, err = f.payments.PayInstallment(context.Background(), PayInstallmentInput{
		InstallmentID: first.ID,
		Amount:        first.Amount,
	})
	assert.Equal(t, domain.ErrInstallmentAlreadyPaid, err)

	// the aggregate reflects exactly one payment
	loan, err := f.loanRepo.GetByID(context.Background(), first.LoanID)
	require.NoError(t, err)
	assert.True(t, loan.AmountRepaid.Equal(first.Amount))
}

func TestPayInstallment_CancelledLoan(t *testing.T) {
	f := newPaymentFixture()
	loan, installments := f.createLoan(t, 12000, 0, 12)

	_, err := f.loans.CancelLoan(context.Background(), loan.ID, "hr.manager")
	require.NoError(t, err)

	_, err = f.payments.PayInstallment(context.Background(), PayInstallmentInput{
		InstallmentID: installments[0].ID,
		Amount:        installments[0].Amount,
	})
	assert.Equal(t, domain.ErrLoanCancelled, err)
}

func TestPayInstallment_AggregateMatchesLedger(t *testing.T) {
	f := newPaymentFixture()
	loan, installments := f.createLoan(t, 60000, 9, 6)

	paidSum := decimal.Zero
	interestSum := decimal.Zero
	for _, inst := range installments[:4] {
		result, err := f.payments.PayInstallment(context.Background(), PayInstallmentInput{
			InstallmentID: inst.ID,
			Amount:        inst.Amount,
		})
		require.NoError(t, err)
		paidSum = paidSum.Add(inst.Amount)
		interestSum = interestSum.Add(inst.Interest)

		assert.True(t, result.Loan.AmountRepaid.Equal(paidSum))
		assert.True(t, result.Loan.RemainingBalance.Equal(loan.Principal.Sub(paidSum)))
		assert.True(t, result.Loan.InterestPaid.Equal(interestSum))
	}
}

func TestPayInstallment_ConcurrentSameLoan(t *testing.T) {
	f := newPaymentFixture()
	loan, installments := f.createLoan(t, 60000, 0, 6)

	// concurrent payments against installments of one loan must serialize:
	// no payment may be lost to a stale read of the aggregate
	var wg sync.WaitGroup
	for _, inst := range installments {
		wg.Add(1)
		go func(inst *domain.Installment) {
			defer wg.Done()
			_, err := f.payments.PayInstallment(context.Background(), PayInstallmentInput{
				InstallmentID: inst.ID,
				Amount:        inst.Amount,
			})
			assert.NoError(t, err)
		}(inst)
	}
	wg.Wait()

	total := decimal.Zero
	for _, inst := range installments {
		total = total.Add(inst.Amount)
	}
	updated, err := f.loanRepo.GetByID(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.True(t, updated.AmountRepaid.Equal(total))
	assert.True(t, updated.RemainingBalance.IsZero())
	assert.Equal(t, domain.LoanStatusPaidOff, updated.Status)
}

func TestPayInstallment_FullRepaymentMarksPaidOff(t *testing.T) {
	f := newPaymentFixture()
	_, installments := f.createLoan(t, 12000, 0, 3)

	var result *PaymentResult
	var err error
	for _, inst := range installments {
		result, err = f.payments.PayInstallment(context.Background(), PayInstallmentInput{
			InstallmentID: inst.ID,
			Amount:        inst.Amount,
		})
		require.NoError(t, err)
	}

	assert.Equal(t, domain.LoanStatusPaidOff, result.Loan.Status)
	assert.True(t, result.Loan.RemainingBalance.IsZero())
}

func TestPayInstallment_OverpaymentIsCapped(t *testing.T) {
	f := newPaymentFixture()
	loan, installments := f.createLoan(t, 3000, 0, 3)

	result, err := f.payments.PayInstallment(context.Background(), PayInstallmentInput{
		InstallmentID: installments[0].ID,
		Amount:        decimal.NewFromInt(5000),
	})
	require.NoError(t, err)

	// installment records the full amount paid, the loan caps at principal
	assert.True(t, result.Installment.AmountPaid.Equal(decimal.NewFromInt(5000)))
	assert.True(t, result.Loan.AmountRepaid.Equal(loan.Principal))
	assert.True(t, result.Loan.RemainingBalance.IsZero())
	assert.Equal(t, domain.LoanStatusPaidOff, result.Loan.Status)
}

func TestUpdateProgress_PaidOff(t *testing.T) {
	f := newPaymentFixture()
	loan, _ := f.createLoan(t, 12000, 0, 12)

	updated, err := f.payments.UpdateProgress(context.Background(), loan.ID, decimal.Zero, "hr.manager")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusPaidOff, updated.Status)
	assert.True(t, updated.AmountRepaid.Equal(loan.Principal))
}

func TestUpdateProgress_SuspendedPastEndDate(t *testing.T) {
	f := newPaymentFixture()
	loanRepo := f.loanRepo

	loan := &domain.Loan{
		ID:               uuid.New(),
		EmployeeID:       uuid.New(),
		Principal:        decimal.NewFromInt(10000),
		Months:           10,
		StartDate:        time.Now().AddDate(-2, 0, 0),
		EndDate:          time.Now().AddDate(-1, 0, 0),
		RemainingBalance: decimal.NewFromInt(10000),
		Status:           domain.LoanStatusActive,
	}
	_, err := loanRepo.Create(context.Background(), loan)
	require.NoError(t, err)

	updated, err := f.payments.UpdateProgress(context.Background(), loan.ID, decimal.NewFromInt(4000), "hr.manager")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusSuspended, updated.Status)
	assert.True(t, updated.AmountRepaid.Equal(decimal.NewFromInt(6000)))
}

func TestUpdateProgress_BalanceOutOfRange(t *testing.T) {
	f := newPaymentFixture()
	loan, _ := f.createLoan(t, 10000, 0, 10)

	_, err := f.payments.UpdateProgress(context.Background(), loan.ID, decimal.NewFromInt(10001), "hr.manager")
	assert.Equal(t, domain.ErrBalanceOutOfRange, err)

	_, err = f.payments.UpdateProgress(context.Background(), loan.ID, decimal.NewFromInt(-1), "hr.manager")
	assert.Equal(t, domain.ErrBalanceOutOfRange, err)
}

func TestUpdateProgress_CancelledIsSticky(t *testing.T) {
	f := newPaymentFixture()
	loan, _ := f.createLoan(t, 10000, 0, 10)

	_, err := f.loans.CancelLoan(context.Background(), loan.ID, "hr.manager")
	require.NoError(t, err)

	updated, err := f.payments.UpdateProgress(context.Background(), loan.ID, decimal.NewFromInt(4000), "hr.manager")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusCancelled, updated.Status)
}

func TestUpdateProgress_LoanNotFound(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.payments.UpdateProgress(context.Background(), uuid.New(), decimal.Zero, "hr.manager")
	assert.Equal(t, domain.ErrLoanNotFound, err)
}
