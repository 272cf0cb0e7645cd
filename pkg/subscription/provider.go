package subscription

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProviderResponse is a raw provider response as flat key/value pairs.
// Payment APIs in this space answer with url-encoded field lists; keeping the
// shape opaque here and routing every read through PaymentProvider accessors
// keeps provider field names out of the lifecycle engine.
type ProviderResponse map[string]string

// WebhookKind classifies an authenticated provider webhook.
type WebhookKind string

const (
	WebhookRenewalSucceeded WebhookKind = "renewal_succeeded"
	WebhookRenewalSkipped   WebhookKind = "renewal_skipped"
	WebhookRenewalFailed    WebhookKind = "renewal_failed"
)

// WebhookEvent is a normalized, authenticity-checked webhook payload.
// Providers must only return one after their signature/echo-back verification
// passed; nothing in it may be trusted otherwise.
type WebhookEvent struct {
	Kind      WebhookKind
	EventID   string // provider-supplied delivery/transaction id, used for de-duplication
	ProfileID string // recurring profile the event belongs to
	Amount    decimal.Decimal
	PayerID   string
	Raw       map[string]string
}

// CheckoutRequest carries everything a provider needs to start an interactive
// checkout. Starting a checkout must not create a recurring profile yet.
type CheckoutRequest struct {
	SubscriptionID uuid.UUID
	Name           string // subscriber-facing subscription name
	Description    string
	InvoiceID      string // application reference echoed back in the callback details
	Price          PricePlan
	Currency       string
	SuccessURL     string
	CancelURL      string
}

// Checkout is a started checkout session the subscriber gets redirected to.
type Checkout struct {
	RedirectURL string
	Token       string
}

// ProfileRequest commits a confirmed checkout into a recurring billing
// profile. Price is recomputed by the caller at submission time.
type ProfileRequest struct {
	SubscriptionID uuid.UUID
	Token          string
	Description    string
	BillingPeriod  string
	Price          PricePlan
	Currency       string
}

// PaymentProvider is the capability set one payment system integration must
// supply. Every provider has different status codes, field names, and
// verification handshakes; hiding them behind this interface keeps the
// lifecycle engine provider-agnostic and lets new providers register without
// touching state-transition logic.
type PaymentProvider interface {
	// Driver returns the tag stored on subscriptions billed through this
	// provider and used for registry lookup.
	Driver() string

	InitiateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	FetchCheckoutDetails(ctx context.Context, token string) (ProviderResponse, error)
	CreateRecurringProfile(ctx context.Context, req ProfileRequest) (ProviderResponse, error)

	CancelProfile(ctx context.Context, profileID string) (ProviderResponse, error)
	SuspendProfile(ctx context.Context, profileID string) (ProviderResponse, error)
	ReactivateProfile(ctx context.Context, profileID string) (ProviderResponse, error)

	// ClassifyWebhook authenticates a raw webhook payload against the
	// provider and classifies it. It must fail for payloads that do not pass
	// the provider's authenticity check or carry an unrecognized event type.
	ClassifyWebhook(ctx context.Context, payload []byte) (*WebhookEvent, error)

	// HasError is the provider-specific success/failure discriminator for raw
	// responses returned by the calls above.
	HasError(resp ProviderResponse) bool
	// ProfileCreated reports whether a CreateRecurringProfile response left a
	// usable profile behind (active or pending), independent of HasError.
	ProfileCreated(resp ProviderResponse) bool
	// RecurringProfileID extracts the provider-side profile handle.
	RecurringProfileID(resp ProviderResponse) string
	// AppSubscriptionID recovers the application subscription id echoed back
	// in checkout details.
	AppSubscriptionID(resp ProviderResponse) (uuid.UUID, error)
	// TransactionDetails extracts the ledger fields from a profile-creation
	// response: raw status, payer reference, and human-readable message.
	TransactionDetails(resp ProviderResponse) (status, payerID, message string)
}
