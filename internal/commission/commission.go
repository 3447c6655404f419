// Package commission computes the platform's tiered fee on escrow and
// milestone releases. The tier is picked by the freelancer's cumulative
// earnings so established freelancers pay a lower rate.
package commission

import "github.com/shopspring/decimal"

// Tier applies its rate while cumulative earnings are at or below UpTo
// kopiykas. UpTo of zero marks the unbounded top tier.
type Tier struct {
	UpTo int64
	Rate decimal.Decimal
}

type Schedule []Tier

// Default mirrors the platform fee schedule: 20% up to 20 000 UAH earned,
// 10% up to 400 000 UAH, 5% above.
func Default() Schedule {
	return Schedule{
		{UpTo: 2_000_000, Rate: decimal.NewFromFloat(0.20)},
		{UpTo: 40_000_000, Rate: decimal.NewFromFloat(0.10)},
		{UpTo: 0, Rate: decimal.NewFromFloat(0.05)},
	}
}

// RateFor returns the rate for a freelancer with the given cumulative
// earnings in kopiykas.
func (s Schedule) RateFor(earned int64) decimal.Decimal {
	for _, t := range s {
		if t.UpTo == 0 || earned <= t.UpTo {
			return t.Rate
		}
	}
	return decimal.Zero
}

// Split divides amount into commission and net by the tier matching
// earned. Commission rounds to whole kopiykas, half up.
func (s Schedule) Split(amount, earned int64) (commission, net int64, rate decimal.Decimal) {
	rate = s.RateFor(earned)
	commission = decimal.NewFromInt(amount).Mul(rate).Round(0).IntPart()
	net = amount - commission
	return commission, net, rate
}
