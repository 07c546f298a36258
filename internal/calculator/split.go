package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SplitEvenly divides total into n shares at the precision total is written
// in, so "300" splits into whole units and "100.50" into cents. Units left
// over by the division go one each to the first shares, which keeps the
// shares summing exactly to total.
func SplitEvenly(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n <= 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}
	if !total.IsPositive() {
		return nil, fmt.Errorf("total must be positive")
	}

	places := max(-total.Exponent(), 0)
	unit := decimal.New(1, -places)
	count := decimal.NewFromInt(int64(n))

	base := total.Div(count).Truncate(places)
	extra := total.Sub(base.Mul(count)).Div(unit).IntPart()

	shares := make([]decimal.Decimal, n)
	for i := range shares {
		shares[i] = base
		if int64(i) < extra {
			shares[i] = base.Add(unit)
		}
	}
	return shares, nil
}
