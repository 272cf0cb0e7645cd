package subscription_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngolub/subscriptions/pkg/subscription"
)

// stubService pins down just the two operations the router touches.
type stubService struct {
	subscription.Service

	handleWebhook   func(ctx context.Context, driver string, payload []byte) (bool, error)
	confirmCheckout func(ctx context.Context, driver, token string) error
}

func (s *stubService) HandleWebhook(ctx context.Context, driver string, payload []byte) (bool, error) {
	return s.handleWebhook(ctx, driver, payload)
}

func (s *stubService) ConfirmCheckout(ctx context.Context, driver, token string) error {
	return s.confirmCheckout(ctx, driver, token)
}

func newTestRouter(svc subscription.Service) http.Handler {
	return subscription.Router(subscription.RouterConfig{
		Service:    svc,
		SuccessURL: "https://app.example.com/billing/success",
		CancelURL:  "https://app.example.com/billing/cancel",
	})
}

func TestRouter_Webhook(t *testing.T) {
	t.Parallel()

	post := func(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/webhooks/paypal", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("processed delivery returns 200", func(t *testing.T) {
		t.Parallel()

		var gotDriver string
		var gotPayload []byte
		svc := &stubService{handleWebhook: func(_ context.Context, driver string, payload []byte) (bool, error) {
			gotDriver = driver
			gotPayload = payload
			return true, nil
		}}

		rec := post(t, newTestRouter(svc), "txn_type=recurring_payment")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "paypal", gotDriver)
		assert.Equal(t, "txn_type=recurring_payment", string(gotPayload))
	})

	t.Run("duplicate delivery still returns 200", func(t *testing.T) {
		t.Parallel()

		svc := &stubService{handleWebhook: func(context.Context, string, []byte) (bool, error) {
			return false, nil
		}}

		rec := post(t, newTestRouter(svc), "x=1")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("terminal failures are acknowledged so the provider stops retrying", func(t *testing.T) {
		t.Parallel()

		for _, terminal := range []error{
			subscription.ErrInvalidWebhook,
			subscription.ErrSubscriptionNotFound,
			subscription.ErrUnknownDriver,
		} {
			svc := &stubService{handleWebhook: func(context.Context, string, []byte) (bool, error) {
				return false, terminal
			}}
			rec := post(t, newTestRouter(svc), "x=1")
			assert.Equal(t, http.StatusOK, rec.Code, "error %v must not trigger redelivery", terminal)
		}
	})

	t.Run("transient failure returns 500 to trigger redelivery", func(t *testing.T) {
		t.Parallel()

		svc := &stubService{handleWebhook: func(context.Context, string, []byte) (bool, error) {
			return false, errors.New("store unavailable")
		}}

		rec := post(t, newTestRouter(svc), "x=1")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRouter_CheckoutReturn(t *testing.T) {
	t.Parallel()

	t.Run("confirmed checkout redirects to the success URL", func(t *testing.T) {
		t.Parallel()

		var gotDriver, gotToken string
		svc := &stubService{confirmCheckout: func(_ context.Context, driver, token string) error {
			gotDriver = driver
			gotToken = token
			return nil
		}}

		req := httptest.NewRequest(http.MethodGet, "/checkout/return?driver=paypal&token=EC-TOK123", nil)
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "https://app.example.com/billing/success", rec.Header().Get("Location"))
		assert.Equal(t, "paypal", gotDriver)
		assert.Equal(t, "EC-TOK123", gotToken)
	})

	t.Run("failed confirmation redirects to the cancel URL", func(t *testing.T) {
		t.Parallel()

		svc := &stubService{confirmCheckout: func(context.Context, string, string) error {
			return subscription.ErrSubscriptionFailed
		}}

		req := httptest.NewRequest(http.MethodGet, "/checkout/return?driver=paypal&token=EC-TOK123", nil)
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "https://app.example.com/billing/cancel", rec.Header().Get("Location"))
	})

	t.Run("missing token is a bad request", func(t *testing.T) {
		t.Parallel()

		svc := &stubService{confirmCheckout: func(context.Context, string, string) error {
			t.Fatal("must not be called")
			return nil
		}}

		req := httptest.NewRequest(http.MethodGet, "/checkout/return?driver=paypal", nil)
		rec := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
