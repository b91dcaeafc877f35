package service

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ComputeUpdatedAmount returns the current owed amount for a case: principal
// plus a flat penalty and simple daily interest. The penalty applies once,
// interest accrues linearly per late day, nothing compounds. The result is not
// rounded; currency rounding happens only when formatting for presentation so
// repeated recomputation never drifts.
func ComputeUpdatedAmount(principal float64, daysLate int, penaltyPct, dailyInterestPct float64) float64 {
	if daysLate <= 0 {
		return principal
	}
	penalty := principal * penaltyPct / 100
	interest := principal * dailyInterestPct / 100 * float64(daysLate)
	return principal + penalty + interest
}

// RoundCurrency rounds to cents, for presentation only
func RoundCurrency(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// FormatCurrency renders an amount as a pt-BR currency string, e.g. R$ 1.021,65
func FormatCurrency(amount float64) string {
	cents := int64(math.Round(math.Abs(amount) * 100))
	whole := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}

	sign := ""
	if amount < 0 {
		sign = "-"
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, b.String(), frac)
}

// FormatDate renders a date the way the templates expect it (dd/mm/yyyy)
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}
