// Package amortization computes level-payment repayment schedules. It is
// pure: no storage, no clock reads, safe to call from any context.
//
// Insurance accrues on the remaining balance at the start of each period
// (declining-balance convention), the same base the interest itself uses.
package amortization

import (
	"math"
	"time"

	"github.com/meridianhr/payroll-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// Tax on the interest portion of every installment, fixed at 10%.
var taxOnInterestRate = decimal.NewFromFloat(0.10)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// Terms are the inputs to a schedule computation.
type Terms struct {
	Principal            decimal.Decimal
	AnnualRatePercent    decimal.Decimal
	InsuranceRatePercent decimal.Decimal
	Months               int
	Start                time.Time
}

func (t Terms) Validate() error {
	if t.Principal.LessThanOrEqual(decimal.Zero) {
		return domain.TermsError{Field: "principal", Reason: "must be positive"}
	}
	if t.Months < 1 {
		return domain.TermsError{Field: "months", Reason: "must be at least 1"}
	}
	if t.AnnualRatePercent.IsNegative() {
		return domain.TermsError{Field: "annualRatePercent", Reason: "must not be negative"}
	}
	if t.InsuranceRatePercent.IsNegative() {
		return domain.TermsError{Field: "insuranceRatePercent", Reason: "must not be negative"}
	}
	return nil
}

// Entry is one period of a repayment schedule. Payment is the level annuity
// (principal + interest); Total adds the tax-on-interest and insurance
// portions due alongside it. All monetary fields are rounded to 2 decimal
// places once, at computation time.
type Entry struct {
	Number             int
	DueDate            time.Time
	Payment            decimal.Decimal
	Principal          decimal.Decimal
	Interest           decimal.Decimal
	TaxOnInterest      decimal.Decimal
	Insurance          decimal.Decimal
	Total              decimal.Decimal
	RemainingPrincipal decimal.Decimal
}

// MonthlyPayment computes the level annuity payment for the given terms.
// Zero-rate loans split the principal evenly.
//
//	r = annualRatePercent / 100 / 12
//	payment = P * r * (1+r)^n / ((1+r)^n - 1)
//
// float64 is used only for the power; monetary arithmetic stays in decimal.
func MonthlyPayment(principal, annualRatePercent decimal.Decimal, months int) decimal.Decimal {
	if months <= 0 {
		return decimal.Zero
	}
	monthlyRate := annualRatePercent.InexactFloat64() / 100.0 / 12.0
	if monthlyRate == 0 {
		return principal.Div(decimal.NewFromInt(int64(months))).Round(2)
	}
	factor := math.Pow(1+monthlyRate, float64(months))
	payment := principal.InexactFloat64() * monthlyRate * factor / (factor - 1)
	return decimal.NewFromFloat(payment).Round(2)
}

// Schedule computes the full month-by-month repayment schedule for the
// terms. Due dates fall k months after the start date (k = 1..N). The final
// period's principal portion absorbs the accumulated rounding residue so the
// remaining balance lands exactly on zero.
func Schedule(t Terms) ([]Entry, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	payment := MonthlyPayment(t.Principal, t.AnnualRatePercent, t.Months)
	monthlyRate := t.AnnualRatePercent.Div(hundred).Div(twelve)
	insuranceRate := t.InsuranceRatePercent.Div(hundred).Div(twelve)

	entries := make([]Entry, 0, t.Months)
	remaining := t.Principal

	for k := 1; k <= t.Months; k++ {
		interest := remaining.Mul(monthlyRate).Round(2)
		tax := interest.Mul(taxOnInterestRate).Round(2)
		insurance := remaining.Mul(insuranceRate).Round(2)

		principal := payment.Sub(interest)
		total := payment
		if k == t.Months {
			principal = remaining
			total = principal.Add(interest)
		}

		remaining = remaining.Sub(principal)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}

		entries = append(entries, Entry{
			Number:             k,
			DueDate:            t.Start.AddDate(0, k, 0),
			Payment:            total,
			Principal:          principal,
			Interest:           interest,
			TaxOnInterest:      tax,
			Insurance:          insurance,
			Total:              total.Add(tax).Add(insurance),
			RemainingPrincipal: remaining,
		})
	}

	return entries, nil
}

// FlatSchedule repeats one fixed amount N times, for flat/no-interest
// products where the installment amount is specified manually. The whole
// amount counts as principal; the last period absorbs the residue.
func FlatSchedule(principal, fixedAmount decimal.Decimal, months int, start time.Time) ([]Entry, error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return nil, domain.TermsError{Field: "principal", Reason: "must be positive"}
	}
	if fixedAmount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.TermsError{Field: "fixedAmount", Reason: "must be positive"}
	}
	if months < 1 {
		return nil, domain.TermsError{Field: "months", Reason: "must be at least 1"}
	}

	entries := make([]Entry, 0, months)
	remaining := principal
	for k := 1; k <= months; k++ {
		amount := fixedAmount
		if k == months || remaining.LessThan(fixedAmount) {
			amount = remaining
		}
		remaining = remaining.Sub(amount)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		entries = append(entries, Entry{
			Number:             k,
			DueDate:            start.AddDate(0, k, 0),
			Payment:            amount,
			Principal:          amount,
			Interest:           decimal.Zero,
			TaxOnInterest:      decimal.Zero,
			Insurance:          decimal.Zero,
			Total:              amount,
			RemainingPrincipal: remaining,
		})
	}
	return entries, nil
}

// MonthsBetween returns the whole calendar months elapsed from start to now,
// floored at zero. A month only counts once its day-of-month has been
// reached: if now.Day() < start.Day() the current partial month is excluded.
func MonthsBetween(start, now time.Time) int {
	if now.Before(start) {
		return 0
	}
	months := (now.Year()-start.Year())*12 + int(now.Month()) - int(start.Month())
	if now.Day() < start.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
