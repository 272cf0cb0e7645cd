package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SubscriptionUpdate is a partial update applied to an existing row. Nil
// pointer fields are left untouched; the Clear flags exist because nullable
// timestamps need a third state (set to null) that a nil pointer cannot
// express.
type SubscriptionUpdate struct {
	Status             *Status
	RecurringPaymentID *string
	CouponID           *string
	Driver             *string

	ExpireAt      *time.Time
	ClearExpireAt bool

	SuspendedAt      *time.Time
	ClearSuspendedAt bool
}

// SubscriptionStore persists subscriptions. All reads exclude soft-deleted
// rows. Lookup misses return (nil, nil) rather than an error so callers can
// map absence to their own operation-specific failure.
type SubscriptionStore interface {
	Create(ctx context.Context, sub *Subscription) error
	// Update applies a partial update; returns ErrSubscriptionNotFound when
	// the id does not exist.
	Update(ctx context.Context, id uuid.UUID, upd SubscriptionUpdate) error
	ByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	ByRecurringPaymentID(ctx context.Context, profileID string) (*Subscription, error)
	// BySubscriberAndPlan returns the subscriber's row for a plan. With
	// statuses given, only a row in one of those exact statuses matches;
	// lookups never implicitly widen.
	BySubscriberAndPlan(ctx context.Context, subscriberID uuid.UUID, planID string, statuses ...Status) (*Subscription, error)
}

// TransactionStore is the append-only billing ledger. No update or delete is
// exposed to the core.
type TransactionStore interface {
	Append(ctx context.Context, tx *Transaction) error
}

// AtomicStore is an optional capability of a SubscriptionStore. When
// implemented, the lifecycle engine wraps the paired subscription-update and
// transaction-append of confirm and webhook handling in one transaction so a
// partial write cannot split entitlement state from the audit trail.
type AtomicStore interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
