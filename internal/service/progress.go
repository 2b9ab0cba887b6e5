package service

import (
	"sort"
	"time"

	"github.com/meridianhr/payroll-engine/internal/amortization"
	"github.com/meridianhr/payroll-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// Progress is a read-time reconciliation of expected vs. actual repayment.
// Consumed by payslip computation and report generation; nothing here
// mutates state.
type Progress struct {
	MonthsElapsed     int             `json:"monthsElapsed"`
	ExpectedRepaid    decimal.Decimal `json:"expectedRepaid"`
	ActualRepaid      decimal.Decimal `json:"actualRepaid"`
	RemainingBalance  decimal.Decimal `json:"remainingBalance"`
	ProgressPercent   decimal.Decimal `json:"progressPercent"`
	IsLate            bool            `json:"isLate"`
	MonthsLate        int             `json:"monthsLate"`
	TotalInstallments int             `json:"totalInstallments"`
	PaidInstallments  int             `json:"paidInstallments"`
}

// LoanProgress reconciles a loan against its ledger as of now. Elapsed
// months are clamped to the loan's term; a loan is late when the repaid
// amount trails what the elapsed months should have collected.
func LoanProgress(loan *domain.Loan, installments []*domain.Installment, now time.Time) Progress {
	elapsed := amortization.MonthsBetween(loan.StartDate, now)
	if elapsed > int(loan.Months) {
		elapsed = int(loan.Months)
	}

	p := Progress{
		MonthsElapsed:     elapsed,
		ExpectedRepaid:    loan.MonthlyPayment.Mul(decimal.NewFromInt(int64(elapsed))).Round(2),
		ActualRepaid:      loan.AmountRepaid,
		RemainingBalance:  loan.RemainingBalance,
		ProgressPercent:   percentOf(loan.AmountRepaid, loan.Principal),
		TotalInstallments: len(installments),
	}
	for _, inst := range installments {
		if inst.Status == domain.InstallmentStatusPaid {
			p.PaidInstallments++
		}
	}

	p.IsLate = loan.Status == domain.LoanStatusActive &&
		elapsed > 0 &&
		p.ActualRepaid.LessThan(p.ExpectedRepaid)
	if p.IsLate {
		p.MonthsLate = monthsLate(p.ExpectedRepaid, p.ActualRepaid, loan.MonthlyPayment, elapsed)
	}
	return p
}

// AdvanceProgress mirrors LoanProgress for advances, which carry a single
// balance counter instead of a ledger.
func AdvanceProgress(advance *domain.Advance, now time.Time) Progress {
	elapsed := amortization.MonthsBetween(advance.GrantDate, now)
	if elapsed > int(advance.Months) {
		elapsed = int(advance.Months)
	}

	actual := advance.Amount.Sub(advance.RemainingBalance)
	p := Progress{
		MonthsElapsed:     elapsed,
		ExpectedRepaid:    advance.InstallmentAmount.Mul(decimal.NewFromInt(int64(elapsed))).Round(2),
		ActualRepaid:      actual,
		RemainingBalance:  advance.RemainingBalance,
		ProgressPercent:   percentOf(actual, advance.Amount),
		TotalInstallments: int(advance.Months),
	}

	p.IsLate = advance.Status == domain.AdvanceStatusInProgress &&
		elapsed > 0 &&
		actual.LessThan(p.ExpectedRepaid)
	if p.IsLate {
		p.MonthsLate = monthsLate(p.ExpectedRepaid, actual, advance.InstallmentAmount, elapsed)
	}
	return p
}

// CurrentInstallment selects the one installment a payslip should deduct
// next: the earliest overdue PENDING installment, or the earliest PENDING
// one when nothing is overdue. Returns nil when the ledger is settled.
func CurrentInstallment(installments []*domain.Installment, now time.Time) *domain.Installment {
	ordered := make([]*domain.Installment, len(installments))
	copy(ordered, installments)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	var firstPending *domain.Installment
	for _, inst := range ordered {
		if inst.Status != domain.InstallmentStatusPending {
			continue
		}
		if inst.IsOverdue(now) {
			return inst
		}
		if firstPending == nil {
			firstPending = inst
		}
	}
	return firstPending
}

// EffectiveStatus classifies an installment at read time: a PENDING
// installment past its due date reads as LATE. LATE is never stored and
// never blocks payment.
func EffectiveStatus(inst *domain.Installment, now time.Time) domain.InstallmentStatus {
	if inst.IsOverdue(now) {
		return domain.InstallmentStatusLate
	}
	return inst.Status
}

func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	pct := part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2)
	if pct.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(100)
	}
	return pct
}

func monthsLate(expected, actual, monthly decimal.Decimal, elapsed int) int {
	if monthly.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	late := int(expected.Sub(actual).Div(monthly).IntPart())
	if late < 0 {
		late = 0
	}
	if late > elapsed {
		late = elapsed
	}
	return late
}
