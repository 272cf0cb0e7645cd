package subscription

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingPeriodMonthly is the only billing period the lifecycle engine
// submits today. The value is the provider-facing period unit, not a
// duration.
const BillingPeriodMonthly = "Month"

// Plan is read-mostly reference data owned outside the core. The engine only
// reads its recurring amount; names feed provider-facing descriptions.
type Plan struct {
	ID     string
	Name   string
	Amount decimal.Decimal
}

// Coupon is a time-bounded modifier applied at subscribe time. Discount is an
// integer percentage off the plan amount; Period/Frequency/Cycles describe
// the provider-side trial schedule the discount rides on.
type Coupon struct {
	ID        string
	Name      string
	Discount  int
	Period    string // trial billing period unit (Day, Week, SemiMonth, Month, Year)
	Frequency int
	Cycles    int
	From      time.Time
	To        time.Time
}

// ValidAt reports whether the coupon's validity window covers the given
// instant.
func (c Coupon) ValidAt(now time.Time) bool {
	return !now.Before(c.From) && !now.After(c.To)
}
