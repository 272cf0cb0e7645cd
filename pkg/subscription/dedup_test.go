package subscription_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngolub/subscriptions/pkg/subscription"
)

func TestMemoryDeduplicator(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unmarked event is not seen", func(t *testing.T) {
		t.Parallel()

		dedup := subscription.NewMemoryDeduplicator(time.Hour)

		seen, err := dedup.Seen(ctx, "paypal", "evt-1")
		require.NoError(t, err)
		assert.False(t, seen)
	})

	t.Run("marked event is seen on redelivery", func(t *testing.T) {
		t.Parallel()

		dedup := subscription.NewMemoryDeduplicator(time.Hour)

		require.NoError(t, dedup.MarkProcessed(ctx, "paypal", "evt-1"))

		seen, err := dedup.Seen(ctx, "paypal", "evt-1")
		require.NoError(t, err)
		assert.True(t, seen)
	})

	t.Run("same event id on another driver is distinct", func(t *testing.T) {
		t.Parallel()

		dedup := subscription.NewMemoryDeduplicator(time.Hour)

		require.NoError(t, dedup.MarkProcessed(ctx, "paypal", "evt-1"))

		seen, err := dedup.Seen(ctx, "stripe", "evt-1")
		require.NoError(t, err)
		assert.False(t, seen)
	})

	t.Run("expired entries are forgotten", func(t *testing.T) {
		t.Parallel()

		dedup := subscription.NewMemoryDeduplicator(time.Millisecond)

		require.NoError(t, dedup.MarkProcessed(ctx, "paypal", "evt-1"))

		time.Sleep(5 * time.Millisecond)

		seen, err := dedup.Seen(ctx, "paypal", "evt-1")
		require.NoError(t, err)
		assert.False(t, seen)
	})
}
