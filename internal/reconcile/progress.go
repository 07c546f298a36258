package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitpay/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Progress is the collection state of one bill.
type Progress struct {
	Goal      decimal.Decimal
	Collected decimal.Decimal
	Remaining decimal.Decimal

	// Percent is collected/goal*100, capped at 100 and rounded to 2 places.
	// Over-collection is not an error; it only caps the percentage.
	Percent decimal.Decimal

	IsComplete bool
}

// Aggregate sums paid attempts against goal.
// A non-positive goal yields zero percent and is never complete.
func Aggregate(goal decimal.Decimal, attempts []models.PaymentAttempt) Progress {
	collected := decimal.Zero
	for _, a := range attempts {
		if Normalize(a.RawStatus) == StatusPaid {
			collected = collected.Add(a.Amount)
		}
	}

	p := Progress{
		Goal:      goal,
		Collected: collected,
		Remaining: decimal.Max(goal.Sub(collected), decimal.Zero),
		Percent:   decimal.Zero,
	}
	if goal.IsPositive() {
		p.Percent = decimal.Min(collected.Div(goal).Mul(hundred), hundred).Round(2)
		p.IsComplete = collected.GreaterThanOrEqual(goal)
	}
	return p
}
