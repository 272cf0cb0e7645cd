package subscription

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Catalog provides read access to the plan and coupon reference data owned by
// the surrounding application. The core only ever reads from it.
type Catalog interface {
	// Plan returns the plan by id or ErrPlanNotFound.
	Plan(ctx context.Context, planID string) (Plan, error)
	// Coupon returns the coupon by id or ErrCouponNotFound, regardless of its
	// validity window; callers decide how to treat window state.
	Coupon(ctx context.Context, couponID string) (Coupon, error)
	// CouponByName resolves a user-entered coupon name to a coupon whose
	// validity window covers the given instant, or ErrCouponNotFound.
	CouponByName(ctx context.Context, name string, now time.Time) (Coupon, error)
}

type inMemCatalog struct {
	mu      sync.RWMutex
	plans   map[string]Plan
	coupons map[string]Coupon
}

// NewInMemCatalog returns a Catalog backed by copies of the given reference
// data. Panics when no plans are provided so the service always has something
// to sell.
func NewInMemCatalog(plans []Plan, coupons []Coupon) Catalog {
	if len(plans) == 0 {
		panic("subscription: at least one plan is required")
	}
	c := &inMemCatalog{
		plans:   make(map[string]Plan, len(plans)),
		coupons: make(map[string]Coupon, len(coupons)),
	}
	for _, p := range plans {
		c.plans[p.ID] = p
	}
	for _, cp := range coupons {
		c.coupons[cp.ID] = cp
	}
	return c
}

func (c *inMemCatalog) Plan(_ context.Context, planID string) (Plan, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.plans[planID]
	if !ok {
		return Plan{}, errors.Join(ErrPlanNotFound, fmt.Errorf("plan %q", planID))
	}
	return p, nil
}

func (c *inMemCatalog) Coupon(_ context.Context, couponID string) (Coupon, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp, ok := c.coupons[couponID]
	if !ok {
		return Coupon{}, errors.Join(ErrCouponNotFound, fmt.Errorf("coupon %q", couponID))
	}
	return cp, nil
}

func (c *inMemCatalog) CouponByName(_ context.Context, name string, now time.Time) (Coupon, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cp := range c.coupons {
		if cp.Name == name && cp.ValidAt(now) {
			return cp, nil
		}
	}
	return Coupon{}, errors.Join(ErrCouponNotFound, fmt.Errorf("no currently valid coupon named %q", name))
}
