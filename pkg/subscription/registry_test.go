package subscription_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngolub/subscriptions/pkg/subscription"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	t.Run("lookup by driver tag", func(t *testing.T) {
		t.Parallel()

		p := &fakeProvider{driver: "testpay"}
		r := subscription.NewRegistry(p)

		got, err := r.Provider("testpay")
		require.NoError(t, err)
		assert.Equal(t, p.Driver(), got.Driver())
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Parallel()

		r := subscription.NewRegistry()
		_, err := r.Provider("nope")
		assert.ErrorIs(t, err, subscription.ErrUnknownDriver)
	})

	t.Run("duplicate registration panics", func(t *testing.T) {
		t.Parallel()

		r := subscription.NewRegistry(&fakeProvider{driver: "testpay"})
		assert.Panics(t, func() {
			r.Register(&fakeProvider{driver: "testpay"})
		})
	})

	t.Run("nil provider panics", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			subscription.NewRegistry(nil)
		})
	})
}
