package subscription

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// TrialPlan describes the discounted introductory cycles submitted alongside
// a recurring profile when a valid coupon is present.
type TrialPlan struct {
	Period    string
	Frequency int
	Cycles    int
	Amount    decimal.Decimal // discounted amount billed during the trial cycles
}

// PricePlan is the output of ComputePrice: the full recurring amount plus an
// optional trial component.
type PricePlan struct {
	Total decimal.Decimal
	Trial *TrialPlan
}

// BillableAmount returns what the next charge will actually be: the trial
// amount while a trial applies, the full amount otherwise.
func (p PricePlan) BillableAmount() decimal.Decimal {
	if p.Trial != nil {
		return p.Trial.Amount
	}
	return p.Total
}

// ComputePrice builds the price plan for a plan and an optional coupon.
// A coupon outside its validity window at the given instant contributes
// nothing. The discounted amount is total*(100-discount)/100 rounded to two
// decimal places, half away from zero, to match currency minor units.
//
// Pure function: callers recompute it at the moment of every provider call so
// a coupon that expired between checkout initiation and confirmation never
// leaks stale pricing.
func ComputePrice(plan Plan, coupon *Coupon, now time.Time) (PricePlan, error) {
	if plan.Amount.IsNegative() {
		return PricePlan{}, errors.Join(ErrInvalidPrice, fmt.Errorf("plan %s has negative amount %s", plan.ID, plan.Amount))
	}

	price := PricePlan{Total: plan.Amount}
	if coupon == nil {
		return price, nil
	}

	if coupon.Discount < 0 || coupon.Discount > 100 {
		return PricePlan{}, errors.Join(ErrInvalidPrice, fmt.Errorf("coupon %s has discount %d out of [0,100]", coupon.ID, coupon.Discount))
	}
	if coupon.To.Before(coupon.From) {
		return PricePlan{}, errors.Join(ErrInvalidPrice, fmt.Errorf("coupon %s validity window ends before it starts", coupon.ID))
	}
	if !coupon.ValidAt(now) {
		return price, nil
	}

	discounted := plan.Amount.
		Mul(hundred.Sub(decimal.NewFromInt(int64(coupon.Discount)))).
		Div(hundred).
		Round(2)

	price.Trial = &TrialPlan{
		Period:    coupon.Period,
		Frequency: coupon.Frequency,
		Cycles:    coupon.Cycles,
		Amount:    discounted,
	}
	return price, nil
}
