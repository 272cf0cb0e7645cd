package main

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ngolub/subscriptions/pkg/subscription"
)

// catalog defines the current offering. Plans and coupons are reference data
// maintained in code; changing them means a deploy, which is fine at this
// scale and keeps pricing under code review.
func catalog() subscription.Catalog {
	return subscription.NewInMemCatalog(
		[]subscription.Plan{
			{ID: "basic", Name: "Basic", Amount: decimal.NewFromInt(9)},
			{ID: "pro", Name: "Pro", Amount: decimal.NewFromInt(29)},
			{ID: "team", Name: "Team", Amount: decimal.NewFromInt(99)},
		},
		[]subscription.Coupon{
			{
				ID:        "launch50",
				Name:      "LAUNCH",
				Discount:  50,
				Period:    "Month",
				Frequency: 1,
				Cycles:    3,
				From:      time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
				To:        time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
			},
		},
	)
}
