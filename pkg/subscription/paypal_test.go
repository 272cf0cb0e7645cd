package subscription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPayPal wires a provider against an in-process NVP endpoint. The
// handler receives the decoded request form and answers with the given
// url-encoded body.
func newTestPayPal(t *testing.T, handler func(form url.Values) string) (*PayPalProvider, *url.Values) {
	t.Helper()

	var lastForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		lastForm = r.PostForm
		_, _ = w.Write([]byte(handler(r.PostForm)))
	}))
	t.Cleanup(srv.Close)

	p := &PayPalProvider{client: &nvpClient{
		endpoint:     srv.URL,
		ipnEndpoint:  srv.URL,
		redirectBase: "https://www.sandbox.paypal.com/cgi-bin/webscr",
		username:     "api-user",
		password:     "api-pass",
		signature:    "api-sig",
		httpc:        &http.Client{Timeout: 5 * time.Second},
	}}
	return p, &lastForm
}

func TestNewPayPalProvider(t *testing.T) {
	t.Parallel()

	t.Run("requires credentials", func(t *testing.T) {
		t.Parallel()
		_, err := NewPayPalProvider(PayPalConfig{Username: "u", Password: "p"})
		assert.Error(t, err)
	})

	t.Run("rejects unknown environment", func(t *testing.T) {
		t.Parallel()
		_, err := NewPayPalProvider(PayPalConfig{
			Username: "u", Password: "p", Signature: "s", Environment: "staging",
		})
		assert.Error(t, err)
	})

	t.Run("sandbox switches every endpoint", func(t *testing.T) {
		t.Parallel()
		p, err := NewPayPalProvider(PayPalConfig{
			Username: "u", Password: "p", Signature: "s", Environment: "sandbox",
		})
		require.NoError(t, err)
		assert.Equal(t, nvpSandboxEndpoint, p.client.endpoint)
		assert.Equal(t, ipnSandboxEndpoint, p.client.ipnEndpoint)
		assert.Equal(t, nvpSandboxRedirectBase, p.client.redirectBase)
		assert.Equal(t, PayPalDriver, p.Driver())
	})
}

func TestPayPalProvider_InitiateCheckout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	subID := uuid.New()
	req := CheckoutRequest{
		SubscriptionID: subID,
		Name:           "Monthly Subscription #1",
		Description:    "Monthly Subscription #1",
		InvoiceID:      subID.String(),
		Price:          PricePlan{Total: decimal.NewFromFloat(29.9)},
		Currency:       "USD",
		SuccessURL:     "https://app.example.com/ok",
		CancelURL:      "https://app.example.com/no",
	}

	t.Run("builds the redirect from the returned token", func(t *testing.T) {
		t.Parallel()
		p, form := newTestPayPal(t, func(url.Values) string {
			return "TOKEN=EC-TOK123&ACK=Success"
		})

		checkout, err := p.InitiateCheckout(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "EC-TOK123", checkout.Token)
		assert.Equal(t,
			"https://www.sandbox.paypal.com/cgi-bin/webscr?cmd=_express-checkout&token=EC-TOK123",
			checkout.RedirectURL)

		assert.Equal(t, "SetExpressCheckout", form.Get("METHOD"))
		assert.Equal(t, "api-user", form.Get("USER"))
		assert.Equal(t, "29.90", form.Get("PAYMENTREQUEST_0_AMT"))
		assert.Equal(t, subID.String(), form.Get("PAYMENTREQUEST_0_INVNUM"))
		assert.Equal(t, "RecurringPayments", form.Get("L_BILLINGTYPE0"))
	})

	t.Run("surfaces the provider message on failure", func(t *testing.T) {
		t.Parallel()
		p, _ := newTestPayPal(t, func(url.Values) string {
			return "ACK=Failure&L_LONGMESSAGE0=Invalid+merchant"
		})

		_, err := p.InitiateCheckout(ctx, req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid merchant")
	})

	t.Run("missing token is an error", func(t *testing.T) {
		t.Parallel()
		p, _ := newTestPayPal(t, func(url.Values) string {
			return "ACK=Success"
		})

		_, err := p.InitiateCheckout(ctx, req)
		assert.Error(t, err)
	})
}

func TestPayPalProvider_CreateRecurringProfile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("maps the trial onto trial cycle fields", func(t *testing.T) {
		t.Parallel()
		p, form := newTestPayPal(t, func(url.Values) string {
			return "ACK=Success&PROFILEID=I-ABC123&PROFILESTATUS=ActiveProfile"
		})

		resp, err := p.CreateRecurringProfile(ctx, ProfileRequest{
			Token:         "EC-TOK123",
			Description:   "Monthly Subscription #1",
			BillingPeriod: "Month",
			Currency:      "USD",
			Price: PricePlan{
				Total: decimal.NewFromInt(30),
				Trial: &TrialPlan{Period: "Month", Frequency: 1, Cycles: 2, Amount: decimal.NewFromInt(15)},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "CreateRecurringPaymentsProfile", form.Get("METHOD"))
		assert.Equal(t, "30.00", form.Get("AMT"))
		assert.Equal(t, "Month", form.Get("TRIALBILLINGPERIOD"))
		assert.Equal(t, "1", form.Get("TRIALBILLINGFREQUENCY"))
		assert.Equal(t, "2", form.Get("TRIALTOTALBILLINGCYCLES"))
		assert.Equal(t, "15.00", form.Get("TRIALAMT"))

		assert.False(t, p.HasError(resp))
		assert.True(t, p.ProfileCreated(resp))
		assert.Equal(t, "I-ABC123", p.RecurringProfileID(resp))
	})

	t.Run("no trial omits the trial fields", func(t *testing.T) {
		t.Parallel()
		p, form := newTestPayPal(t, func(url.Values) string {
			return "ACK=Success&PROFILEID=I-ABC123&PROFILESTATUS=PendingProfile"
		})

		resp, err := p.CreateRecurringProfile(ctx, ProfileRequest{
			Token:         "EC-TOK123",
			BillingPeriod: "Month",
			Currency:      "USD",
			Price:         PricePlan{Total: decimal.NewFromInt(30)},
		})
		require.NoError(t, err)
		assert.False(t, form.Has("TRIALAMT"))
		assert.True(t, p.ProfileCreated(resp), "a pending profile is still a profile")
	})
}

func TestPayPalProvider_ManageProfile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	actions := []struct {
		name string
		call func(p *PayPalProvider) (ProviderResponse, error)
		want string
	}{
		{"cancel", func(p *PayPalProvider) (ProviderResponse, error) { return p.CancelProfile(ctx, "I-1") }, "Cancel"},
		{"suspend", func(p *PayPalProvider) (ProviderResponse, error) { return p.SuspendProfile(ctx, "I-1") }, "Suspend"},
		{"reactivate", func(p *PayPalProvider) (ProviderResponse, error) { return p.ReactivateProfile(ctx, "I-1") }, "Reactivate"},
	}
	for _, tt := range actions {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, form := newTestPayPal(t, func(url.Values) string {
				return "ACK=Success"
			})

			_, err := tt.call(p)
			require.NoError(t, err)
			assert.Equal(t, "ManageRecurringPaymentsProfileStatus", form.Get("METHOD"))
			assert.Equal(t, "I-1", form.Get("PROFILEID"))
			assert.Equal(t, tt.want, form.Get("ACTION"))
		})
	}
}

func TestPayPalProvider_ClassifyWebhook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	payload := func(txnType string) []byte {
		v := url.Values{}
		v.Set("txn_type", txnType)
		v.Set("recurring_payment_id", "I-ABC123")
		v.Set("amount", "29.90")
		v.Set("payer_id", "PAYER7")
		v.Set("ipn_track_id", "track-1")
		return []byte(v.Encode())
	}

	t.Run("verified renewal", func(t *testing.T) {
		t.Parallel()
		p, form := newTestPayPal(t, func(url.Values) string {
			return "VERIFIED"
		})

		event, err := p.ClassifyWebhook(ctx, payload("recurring_payment"))
		require.NoError(t, err)
		assert.Equal(t, WebhookRenewalSucceeded, event.Kind)
		assert.Equal(t, "I-ABC123", event.ProfileID)
		assert.Equal(t, "track-1", event.EventID)
		assert.Equal(t, "PAYER7", event.PayerID)
		assert.True(t, event.Amount.Equal(decimal.NewFromFloat(29.9)))

		// Echo-back prepends the validation command to the untouched payload.
		assert.Equal(t, "_notify-validate", form.Get("cmd"))
		assert.Equal(t, "recurring_payment", form.Get("txn_type"))
	})

	t.Run("skip and failure map to their kinds", func(t *testing.T) {
		t.Parallel()
		p, _ := newTestPayPal(t, func(url.Values) string {
			return "VERIFIED"
		})

		event, err := p.ClassifyWebhook(ctx, payload("recurring_payment_skipped"))
		require.NoError(t, err)
		assert.Equal(t, WebhookRenewalSkipped, event.Kind)

		event, err = p.ClassifyWebhook(ctx, payload("recurring_payment_failed"))
		require.NoError(t, err)
		assert.Equal(t, WebhookRenewalFailed, event.Kind)
	})

	t.Run("unverified payload is rejected", func(t *testing.T) {
		t.Parallel()
		p, _ := newTestPayPal(t, func(url.Values) string {
			return "INVALID"
		})

		_, err := p.ClassifyWebhook(ctx, payload("recurring_payment"))
		assert.Error(t, err)
	})

	t.Run("unrecognized transaction type is rejected even when verified", func(t *testing.T) {
		t.Parallel()
		p, _ := newTestPayPal(t, func(url.Values) string {
			return "VERIFIED"
		})

		_, err := p.ClassifyWebhook(ctx, payload("express_checkout"))
		assert.Error(t, err)
	})
}

func TestPayPalProvider_ResponseAccessors(t *testing.T) {
	t.Parallel()
	p := &PayPalProvider{}

	t.Run("ack discrimination is case-insensitive", func(t *testing.T) {
		t.Parallel()
		assert.False(t, p.HasError(ProviderResponse{"ACK": "Success"}))
		assert.False(t, p.HasError(ProviderResponse{"ACK": "SuccessWithWarning"}))
		assert.True(t, p.HasError(ProviderResponse{"ACK": "Failure"}))
		assert.True(t, p.HasError(ProviderResponse{}))
	})

	t.Run("subscription id comes from the invoice number", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()

		got, err := p.AppSubscriptionID(ProviderResponse{"PAYMENTREQUEST_0_INVNUM": id.String()})
		require.NoError(t, err)
		assert.Equal(t, id, got)

		got, err = p.AppSubscriptionID(ProviderResponse{"INVNUM": id.String()})
		require.NoError(t, err)
		assert.Equal(t, id, got)

		_, err = p.AppSubscriptionID(ProviderResponse{"INVNUM": "not-a-uuid"})
		assert.Error(t, err)
	})

	t.Run("transaction details", func(t *testing.T) {
		t.Parallel()
		status, payer, message := p.TransactionDetails(ProviderResponse{
			"ACK":            "Failure",
			"CORRELATIONID":  "corr-1",
			"L_LONGMESSAGE0": "This transaction cannot be processed.",
		})
		assert.Equal(t, "Failure", status)
		assert.Equal(t, "corr-1", payer)
		assert.Equal(t, "This transaction cannot be processed.", message)
	})
}
