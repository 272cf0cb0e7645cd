package subscription_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ngolub/subscriptions/pkg/subscription"
)

func TestSubscription_IsLiveAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name string
		sub  subscription.Subscription
		want bool
	}{
		{
			name: "live with future expiry",
			sub:  subscription.Subscription{Status: subscription.StatusLive, ExpireAt: &future},
			want: true,
		},
		{
			name: "live with past expiry is treated as expired",
			sub:  subscription.Subscription{Status: subscription.StatusLive, ExpireAt: &past},
			want: false,
		},
		{
			name: "live without expiry never grants access",
			sub:  subscription.Subscription{Status: subscription.StatusLive},
			want: false,
		},
		{
			name: "suspended with future expiry",
			sub:  subscription.Subscription{Status: subscription.StatusSuspended, ExpireAt: &future},
			want: false,
		},
		{
			name: "canceled",
			sub:  subscription.Subscription{Status: subscription.StatusCanceled, ExpireAt: &future},
			want: false,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.sub.IsLiveAt(now))
		})
	}
}

func TestSubscription_RemainderAfterSuspend(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("unused window carries over", func(t *testing.T) {
		t.Parallel()

		suspendedAt := now.AddDate(0, 0, -10)
		expireAt := suspendedAt.AddDate(0, 0, 12)
		sub := subscription.Subscription{ExpireAt: &expireAt, SuspendedAt: &suspendedAt}

		got := sub.RemainderAfterSuspend(now)
		assert.Equal(t, now.AddDate(0, 0, 12), got)
	})

	t.Run("window already spent at suspension yields now", func(t *testing.T) {
		t.Parallel()

		expireAt := now.AddDate(0, 0, -20)
		suspendedAt := now.AddDate(0, 0, -10)
		sub := subscription.Subscription{ExpireAt: &expireAt, SuspendedAt: &suspendedAt}

		assert.Equal(t, now, sub.RemainderAfterSuspend(now))
	})

	t.Run("missing timestamps yield now", func(t *testing.T) {
		t.Parallel()

		sub := subscription.Subscription{}
		assert.Equal(t, now, sub.RemainderAfterSuspend(now))
	})
}

func TestCoupon_ValidAt(t *testing.T) {
	t.Parallel()

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	coupon := subscription.Coupon{From: from, To: to}

	assert.True(t, coupon.ValidAt(from))
	assert.True(t, coupon.ValidAt(to))
	assert.True(t, coupon.ValidAt(from.AddDate(0, 0, 15)))
	assert.False(t, coupon.ValidAt(from.Add(-time.Second)))
	assert.False(t, coupon.ValidAt(to.Add(time.Second)))
}
