package subscription

import (
	"context"
	"sync"
	"time"
)

// WebhookDeduplicator records processed webhook deliveries. Providers retry
// delivery, so the same event can arrive more than once; without this guard a
// duplicate renewal would extend the entitlement window twice.
//
// Seen and MarkProcessed are split so the caller can mark an event only after
// its store writes actually committed. A delivery that failed mid-write stays
// unmarked and the provider's redelivery gets processed in full; the caller is
// expected to serialize deliveries for the same subscription.
type WebhookDeduplicator interface {
	// Seen reports whether the event was already processed.
	Seen(ctx context.Context, driver, eventID string) (bool, error)
	// MarkProcessed records the event as processed.
	MarkProcessed(ctx context.Context, driver, eventID string) error
}

type memoryDeduplicator struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
}

// NewMemoryDeduplicator returns an in-process WebhookDeduplicator. Entries
// older than ttl are dropped lazily on write to keep the map bounded; provider
// retry windows are measured in days, so a ttl beyond that is equivalent to
// forever.
func NewMemoryDeduplicator(ttl time.Duration) WebhookDeduplicator {
	return &memoryDeduplicator{seen: make(map[string]time.Time), ttl: ttl}
}

func (d *memoryDeduplicator) Seen(_ context.Context, driver, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	at, ok := d.seen[dedupKey(driver, eventID)]
	if !ok {
		return false, nil
	}
	return time.Since(at) <= d.ttl, nil
}

func (d *memoryDeduplicator) MarkProcessed(_ context.Context, driver, eventID string) error {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()
	for k, at := range d.seen {
		if now.Sub(at) > d.ttl {
			delete(d.seen, k)
		}
	}
	d.seen[dedupKey(driver, eventID)] = now
	return nil
}

func dedupKey(driver, eventID string) string {
	return driver + ":" + eventID
}
