package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a subscription.
type Status string

const (
	// StatusPending is reserved for rows created ahead of any checkout attempt.
	StatusPending Status = "Pending"
	// StatusProcessing marks a subscription whose checkout has been initiated
	// but not yet confirmed by the payment provider.
	StatusProcessing Status = "Processing"
	StatusLive       Status = "Live"
	StatusSuspended  Status = "Suspended"
	StatusCanceled   Status = "Canceled"
	// StatusExpired is derived state: the lifecycle engine never sets it, a
	// subscription is treated as expired as soon as ExpireAt passes.
	StatusExpired Status = "Expired"
)

// Subscription is a subscriber's recurring agreement for a single plan.
// A subscriber holds at most one non-deleted subscription per plan; repeated
// subscribe attempts reuse the existing row instead of inserting a new one.
type Subscription struct {
	ID           uuid.UUID
	SubscriberID uuid.UUID
	PlanID       string
	CouponID     string // empty when subscribed without a coupon
	Status       Status
	Driver       string // payment provider tag the profile lives on

	// RecurringPaymentID is the provider-side recurring profile handle. It is
	// set once the provider confirms profile creation and stays put across
	// renewals.
	RecurringPaymentID string

	ExpireAt    *time.Time // end of the paid entitlement window
	SuspendedAt *time.Time // set while the subscription is suspended

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time // soft-delete marker owned by retention tooling
}

// IsLiveAt reports whether the subscription grants access at the given
// instant. Expiration is time-derived: a Live row with a past ExpireAt does
// not count.
func (s *Subscription) IsLiveAt(now time.Time) bool {
	return s.Status == StatusLive && s.ExpireAt != nil && s.ExpireAt.After(now)
}

// RemainderAfterSuspend returns the new expiry for a reactivated
// subscription: the entitlement window that was unused at suspension time is
// carried over, so suspending never burns paid-for days.
func (s *Subscription) RemainderAfterSuspend(now time.Time) time.Time {
	if s.ExpireAt == nil || s.SuspendedAt == nil {
		return now
	}
	remaining := s.ExpireAt.Sub(*s.SuspendedAt)
	if remaining < 0 {
		remaining = 0
	}
	return now.Add(remaining)
}
