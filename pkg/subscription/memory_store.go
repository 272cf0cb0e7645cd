package subscription

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory SubscriptionStore and TransactionStore for
// tests and development. It enforces the same uniqueness invariant as the
// postgres store: one non-deleted row per (subscriber, plan).
type MemoryStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	subs map[uuid.UUID]*Subscription
	txns []*Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[uuid.UUID]*Subscription)}
}

func (s *MemoryStore) Create(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.subs[sub.ID]; exists {
		return fmt.Errorf("subscription %s already exists", sub.ID)
	}
	for _, existing := range s.subs {
		if existing.DeletedAt == nil && existing.SubscriberID == sub.SubscriberID && existing.PlanID == sub.PlanID {
			return fmt.Errorf("subscriber %s already has a row for plan %s", sub.SubscriberID, sub.PlanID)
		}
	}
	now := time.Now().UTC()
	clone := *sub
	clone.CreatedAt = now
	clone.UpdatedAt = now
	s.subs[sub.ID] = &clone
	sub.CreatedAt = now
	sub.UpdatedAt = now
	return nil
}

func (s *MemoryStore) Update(_ context.Context, id uuid.UUID, upd SubscriptionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok || sub.DeletedAt != nil {
		return errors.Join(ErrSubscriptionNotFound, fmt.Errorf("subscription %s", id))
	}
	if upd.Status != nil {
		sub.Status = *upd.Status
	}
	if upd.RecurringPaymentID != nil {
		sub.RecurringPaymentID = *upd.RecurringPaymentID
	}
	if upd.CouponID != nil {
		sub.CouponID = *upd.CouponID
	}
	if upd.Driver != nil {
		sub.Driver = *upd.Driver
	}
	if upd.ClearExpireAt {
		sub.ExpireAt = nil
	} else if upd.ExpireAt != nil {
		t := *upd.ExpireAt
		sub.ExpireAt = &t
	}
	if upd.ClearSuspendedAt {
		sub.SuspendedAt = nil
	} else if upd.SuspendedAt != nil {
		t := *upd.SuspendedAt
		sub.SuspendedAt = &t
	}
	sub.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) ByID(_ context.Context, id uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[id]
	if !ok || sub.DeletedAt != nil {
		return nil, nil
	}
	clone := *sub
	return &clone, nil
}

func (s *MemoryStore) ByRecurringPaymentID(_ context.Context, profileID string) (*Subscription, error) {
	if profileID == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.DeletedAt == nil && sub.RecurringPaymentID == profileID {
			clone := *sub
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) BySubscriberAndPlan(_ context.Context, subscriberID uuid.UUID, planID string, statuses ...Status) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.DeletedAt != nil || sub.SubscriberID != subscriberID || sub.PlanID != planID {
			continue
		}
		if len(statuses) > 0 && !slices.Contains(statuses, sub.Status) {
			continue
		}
		clone := *sub
		return &clone, nil
	}
	return nil, nil
}

func (s *MemoryStore) Append(_ context.Context, tx *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	clone := *tx
	s.txns = append(s.txns, &clone)
	return nil
}

// InTx serializes whole multi-write operations against each other. Individual
// writes are already atomic under the store mutex; this only guarantees that
// two confirm/webhook bodies do not interleave.
func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}

// Transactions returns a snapshot of the ledger, oldest first.
func (s *MemoryStore) Transactions() []Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Transaction, len(s.txns))
	for i, tx := range s.txns {
		out[i] = *tx
	}
	return out
}
