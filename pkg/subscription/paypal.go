package subscription

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayPalDriver is the driver tag PayPal-billed subscriptions carry.
const PayPalDriver = "paypal"

// PayPalConfig holds credentials for the Express Checkout NVP API.
type PayPalConfig struct {
	Username    string        `env:"PAYPAL_API_USERNAME,required"`
	Password    string        `env:"PAYPAL_API_PASSWORD,required"`
	Signature   string        `env:"PAYPAL_API_SIGNATURE,required"`
	Environment string        `env:"PAYPAL_ENVIRONMENT" envDefault:"production"`
	HTTPTimeout time.Duration `env:"PAYPAL_HTTP_TIMEOUT" envDefault:"30s"`
}

// IPN transaction types the provider recognizes; everything else is rejected
// as unclassifiable.
const (
	paypalTxnRecurringPayment = "recurring_payment"
	paypalTxnPaymentSkipped   = "recurring_payment_skipped"
	paypalTxnPaymentFailed    = "recurring_payment_failed"

	paypalVerified = "VERIFIED"
)

// ACK values that mean the API call itself went through, and profile statuses
// that mean a recurring profile exists after creation.
var (
	paypalSuccessACKs     = []string{"SUCCESS", "SUCCESSWITHWARNING"}
	paypalProfileStatuses = []string{"ActiveProfile", "PendingProfile"}
)

// PayPalProvider implements PaymentProvider on top of PayPal Express Checkout
// recurring payment profiles. Checkout details echo the application
// subscription id through the invoice number field; webhook authenticity uses
// the IPN echo-back handshake.
type PayPalProvider struct {
	client *nvpClient
}

// NewPayPalProvider creates a provider for the configured environment.
func NewPayPalProvider(cfg PayPalConfig) (*PayPalProvider, error) {
	if cfg.Username == "" || cfg.Password == "" || cfg.Signature == "" {
		return nil, errors.New("paypal API credentials are required")
	}

	client := &nvpClient{
		username:  cfg.Username,
		password:  cfg.Password,
		signature: cfg.Signature,
		httpc:     &http.Client{Timeout: cfg.HTTPTimeout},
	}
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client.endpoint = nvpSandboxEndpoint
		client.ipnEndpoint = ipnSandboxEndpoint
		client.redirectBase = nvpSandboxRedirectBase
	case "production", "live", "":
		client.endpoint = nvpLiveEndpoint
		client.ipnEndpoint = ipnLiveEndpoint
		client.redirectBase = nvpLiveRedirectBase
	default:
		return nil, fmt.Errorf("invalid paypal environment: %s", cfg.Environment)
	}

	return &PayPalProvider{client: client}, nil
}

func (p *PayPalProvider) Driver() string { return PayPalDriver }

// InitiateCheckout starts an Express Checkout session flagged for a recurring
// billing agreement. No recurring profile exists until the confirm step.
func (p *PayPalProvider) InitiateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	total := req.Price.Total.StringFixed(2)
	resp, err := p.client.call(ctx, "SetExpressCheckout", map[string]string{
		"PAYMENTREQUEST_0_AMT":           total,
		"PAYMENTREQUEST_0_ITEMAMT":       total,
		"PAYMENTREQUEST_0_CURRENCYCODE":  req.Currency,
		"PAYMENTREQUEST_0_PAYMENTACTION": "Sale",
		"PAYMENTREQUEST_0_INVNUM":        req.InvoiceID,
		"L_PAYMENTREQUEST_0_NAME0":       req.Name,
		"L_PAYMENTREQUEST_0_AMT0":        total,
		"L_PAYMENTREQUEST_0_QTY0":        "1",
		"L_BILLINGTYPE0":                 "RecurringPayments",
		"L_BILLINGAGREEMENTDESCRIPTION0": req.Description,
		"RETURNURL":                      req.SuccessURL,
		"CANCELURL":                      req.CancelURL,
	})
	if err != nil {
		return nil, err
	}
	if p.HasError(resp) {
		return nil, fmt.Errorf("paypal rejected checkout: %s", resp["L_LONGMESSAGE0"])
	}
	token := resp["TOKEN"]
	if token == "" {
		return nil, errors.New("paypal returned no checkout token")
	}
	return &Checkout{RedirectURL: p.client.redirectURL(token), Token: token}, nil
}

func (p *PayPalProvider) FetchCheckoutDetails(ctx context.Context, token string) (ProviderResponse, error) {
	return p.client.call(ctx, "GetExpressCheckoutDetails", map[string]string{"TOKEN": token})
}

// CreateRecurringProfile commits the confirmed checkout into a recurring
// payments profile. The profile starts billing a day out; a present trial
// price plan maps onto PayPal's trial cycle fields.
func (p *PayPalProvider) CreateRecurringProfile(ctx context.Context, req ProfileRequest) (ProviderResponse, error) {
	fields := map[string]string{
		"TOKEN":            req.Token,
		"PROFILESTARTDATE": time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339),
		"DESC":             req.Description,
		"BILLINGPERIOD":    req.BillingPeriod,
		"BILLINGFREQUENCY": "1",
		"AMT":              req.Price.Total.StringFixed(2),
		"CURRENCYCODE":     req.Currency,
	}
	if trial := req.Price.Trial; trial != nil {
		fields["TRIALBILLINGPERIOD"] = trial.Period
		fields["TRIALBILLINGFREQUENCY"] = strconv.Itoa(trial.Frequency)
		fields["TRIALTOTALBILLINGCYCLES"] = strconv.Itoa(trial.Cycles)
		fields["TRIALAMT"] = trial.Amount.StringFixed(2)
	}
	return p.client.call(ctx, "CreateRecurringPaymentsProfile", fields)
}

func (p *PayPalProvider) CancelProfile(ctx context.Context, profileID string) (ProviderResponse, error) {
	return p.manageProfile(ctx, profileID, "Cancel")
}

func (p *PayPalProvider) SuspendProfile(ctx context.Context, profileID string) (ProviderResponse, error) {
	return p.manageProfile(ctx, profileID, "Suspend")
}

func (p *PayPalProvider) ReactivateProfile(ctx context.Context, profileID string) (ProviderResponse, error) {
	return p.manageProfile(ctx, profileID, "Reactivate")
}

func (p *PayPalProvider) manageProfile(ctx context.Context, profileID, action string) (ProviderResponse, error) {
	return p.client.call(ctx, "ManageRecurringPaymentsProfileStatus", map[string]string{
		"PROFILEID": profileID,
		"ACTION":    action,
	})
}

// ClassifyWebhook verifies an IPN payload via the echo-back handshake and
// classifies its transaction type. No field is read before PayPal confirms it
// actually sent the payload.
func (p *PayPalProvider) ClassifyWebhook(ctx context.Context, payload []byte) (*WebhookEvent, error) {
	verdict, err := p.client.verifyIPN(ctx, payload)
	if err != nil {
		return nil, err
	}
	if verdict != paypalVerified {
		return nil, fmt.Errorf("IPN verification answered %q", verdict)
	}

	values, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, fmt.Errorf("malformed IPN payload: %w", err)
	}

	var kind WebhookKind
	switch values.Get("txn_type") {
	case paypalTxnRecurringPayment:
		kind = WebhookRenewalSucceeded
	case paypalTxnPaymentSkipped:
		kind = WebhookRenewalSkipped
	case paypalTxnPaymentFailed:
		kind = WebhookRenewalFailed
	default:
		return nil, fmt.Errorf("unrecognized IPN transaction type %q", values.Get("txn_type"))
	}

	amount := decimal.Zero
	if raw := values.Get("amount"); raw != "" {
		amount, err = decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("malformed IPN amount %q: %w", raw, err)
		}
	}

	eventID := values.Get("ipn_track_id")
	if eventID == "" {
		eventID = values.Get("txn_id")
	}

	raw := make(map[string]string, len(values))
	for k := range values {
		raw[k] = values.Get(k)
	}
	return &WebhookEvent{
		Kind:      kind,
		EventID:   eventID,
		ProfileID: values.Get("recurring_payment_id"),
		Amount:    amount,
		PayerID:   values.Get("payer_id"),
		Raw:       raw,
	}, nil
}

func (p *PayPalProvider) HasError(resp ProviderResponse) bool {
	ack := strings.ToUpper(resp["ACK"])
	for _, ok := range paypalSuccessACKs {
		if ack == ok {
			return false
		}
	}
	return true
}

func (p *PayPalProvider) ProfileCreated(resp ProviderResponse) bool {
	status := resp["PROFILESTATUS"]
	for _, ok := range paypalProfileStatuses {
		if status == ok {
			return true
		}
	}
	return false
}

func (p *PayPalProvider) RecurringProfileID(resp ProviderResponse) string {
	if id := resp["PROFILEID"]; id != "" {
		return id
	}
	return resp["recurring_payment_id"]
}

// AppSubscriptionID recovers the subscription id from the invoice number the
// checkout was started with.
func (p *PayPalProvider) AppSubscriptionID(resp ProviderResponse) (uuid.UUID, error) {
	invoice := resp["PAYMENTREQUEST_0_INVNUM"]
	if invoice == "" {
		invoice = resp["INVNUM"]
	}
	id, err := uuid.Parse(invoice)
	if err != nil {
		return uuid.Nil, fmt.Errorf("checkout details carry no usable invoice number: %w", err)
	}
	return id, nil
}

func (p *PayPalProvider) TransactionDetails(resp ProviderResponse) (status, payerID, message string) {
	return resp["ACK"], resp["CORRELATIONID"], resp["L_LONGMESSAGE0"]
}
