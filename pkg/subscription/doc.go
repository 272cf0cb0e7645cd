// Package subscription manages the lifecycle of recurring paid subscriptions
// backed by an external payment provider.
//
// The package owns the local subscription record (status, expiration,
// recurring profile reference) and a ledger of billing transactions, and
// keeps both in sync with the provider through two channels: interactive
// checkout flows driven by the buyer, and asynchronous webhook notifications
// delivered by the provider. State is authoritative on the provider side for
// money movement and authoritative locally for entitlement checks.
//
// # Architecture
//
//   - Service: all subscription operations (subscribe, confirm, webhook,
//     suspend, reactivate, cancel, entitlement)
//   - Catalog: resolves plans and coupons referenced by subscribe calls
//   - PaymentProvider: abstracts a provider's checkout, recurring-profile
//     and webhook surfaces; Registry dispatches by driver name
//   - SubscriptionStore / TransactionStore: persistence; in-memory and
//     PostgreSQL implementations are included
//   - WebhookDeduplicator: drops redelivered provider notifications
//
// A subscription moves Processing -> Live on a confirmed checkout, may swing
// Suspended <-> Live, and ends Canceled. Expiration is a derived view: a Live
// row whose paid-through time has passed simply stops granting access, the
// stored status is never rewritten by the clock.
//
// # Quick Start
//
//	import "github.com/ngolub/subscriptions/pkg/subscription"
//
//	catalog := subscription.NewInMemCatalog(
//		[]subscription.Plan{{ID: "pro", Name: "Pro", Amount: decimal.NewFromInt(29)}},
//		[]subscription.Coupon{{ID: "launch", Name: "LAUNCH", Discount: 50, Period: "Month", Frequency: 1, Cycles: 3}},
//	)
//
//	paypal, err := subscription.NewPayPalProvider(paypalCfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	store := subscription.NewMemoryStore()
//	svc := subscription.NewService(cfg, catalog, subscription.NewRegistry(paypal), store, store,
//		subscription.WithDeduplicator(subscription.NewMemoryDeduplicator(24*time.Hour)),
//	)
//
//	checkout, err := svc.Subscribe(ctx, subscriberID, "pro", subscription.SubscribeOptions{CouponName: "LAUNCH"})
//	if err != nil {
//		// handle error
//	}
//	http.Redirect(w, r, checkout.RedirectURL, http.StatusSeeOther)
//
// # HTTP Ingress
//
// Router mounts the provider-facing endpoints: the buyer's redirect-back
// from checkout and the webhook receiver.
//
//	r := chi.NewRouter()
//	r.Mount("/billing", subscription.Router(subscription.RouterConfig{
//		Service:    svc,
//		SuccessURL: cfg.SuccessURL,
//		CancelURL:  cfg.CancelURL,
//	}))
//
// # Entitlement
//
// Gate paid functionality with IsEntitled; it is read-only and safe to call
// on every request:
//
//	ok, err := svc.IsEntitled(ctx, subscriberID, []string{"pro", "team"})
//	if err != nil || !ok {
//		// deny access
//	}
//
// # Error Handling
//
// Operations fail with sentinel errors that wrap the underlying cause:
//
//	switch {
//	case errors.Is(err, subscription.ErrAlreadySubscribed):
//		// an active subscription for this plan already exists
//	case errors.Is(err, subscription.ErrNoSubscription):
//		// nothing active to suspend, reactivate or cancel
//	case errors.Is(err, subscription.ErrSubscriptionFailed):
//		// checkout confirmed but the provider declined the profile;
//		// the attempt is recorded in the transaction ledger
//	}
package subscription
