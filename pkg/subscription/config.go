package subscription

// Config carries the billing settings shared by every checkout: currency,
// the return URLs handed to the provider, and the invoice naming prefix.
type Config struct {
	Currency             string `env:"SUBSCRIPTION_CURRENCY" envDefault:"USD"`
	SuccessURL           string `env:"SUBSCRIPTION_SUCCESS_URL,required"`
	CancelURL            string `env:"SUBSCRIPTION_CANCEL_URL,required"`
	SubscriptionIDPrefix string `env:"SUBSCRIPTION_ID_PREFIX" envDefault:"Subscription"`
	BillingPeriod        string `env:"SUBSCRIPTION_BILLING_PERIOD" envDefault:"Month"`
}
