package subscription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service is the subscription lifecycle engine: it orchestrates provider
// calls and store writes for the whole subscribe / confirm / renew / suspend /
// reactivate / cancel sequence, and answers the access-gate query consumed by
// application middleware.
type Service interface {
	// Subscribe creates or reuses the subscriber's row for the plan, marks it
	// Processing, and starts an interactive checkout with the provider.
	Subscribe(ctx context.Context, subscriberID uuid.UUID, planID string, opts SubscribeOptions) (*Checkout, error)
	// ConfirmCheckout resolves the provider's redirect-back token into a
	// recurring billing profile. A ledger row is written for the attempt
	// whether or not it succeeded.
	ConfirmCheckout(ctx context.Context, driver, token string) error
	// HandleWebhook authenticates an asynchronous provider notification and
	// applies it. Returns true when a ledger row was written; a duplicate
	// delivery returns (false, nil).
	HandleWebhook(ctx context.Context, driver string, payload []byte) (bool, error)

	Suspend(ctx context.Context, subscriberID uuid.UUID, planID string) error
	Reactivate(ctx context.Context, subscriberID uuid.UUID, planID string) error
	Cancel(ctx context.Context, subscriberID uuid.UUID, planID string) error

	// Subscription returns the subscriber's row for a plan regardless of
	// status, or ErrNoSubscription.
	Subscription(ctx context.Context, subscriberID uuid.UUID, planID string) (*Subscription, error)
	// IsEntitled reports whether the subscriber holds a Live, unexpired
	// subscription for any of the given plans. Read-only; it never writes
	// expiration back.
	IsEntitled(ctx context.Context, subscriberID uuid.UUID, planIDs []string) (bool, error)
}

// SubscribeOptions carries the optional knobs of a subscribe action.
type SubscribeOptions struct {
	// CouponName is a user-entered coupon name; it resolves only to a coupon
	// whose validity window covers now.
	CouponName string
	// Driver overrides the service's default payment provider.
	Driver string
}

type service struct {
	cfg       Config
	catalog   Catalog
	providers *Registry
	subs      SubscriptionStore
	txns      TransactionStore
	dedup     WebhookDeduplicator

	log           *slog.Logger
	locks         *keyedMutex
	now           func() time.Time
	defaultDriver string
	// failedConfirmStatus is what a subscription becomes when profile
	// creation fails at confirm time. Live by default, matching the behavior
	// this engine inherited; see WithFailedConfirmStatus.
	failedConfirmStatus Status
}

// NewService creates the lifecycle engine. Panics if any required dependency
// is nil to fail fast during initialization. The first registered provider's
// driver can be made the default with WithDefaultDriver; otherwise
// SubscribeOptions.Driver is required.
func NewService(cfg Config, catalog Catalog, providers *Registry, subs SubscriptionStore, txns TransactionStore, opts ...ServiceOption) Service {
	if catalog == nil {
		panic("subscription: Catalog is required")
	}
	if providers == nil {
		panic("subscription: provider Registry is required")
	}
	if subs == nil {
		panic("subscription: SubscriptionStore is required")
	}
	if txns == nil {
		panic("subscription: TransactionStore is required")
	}
	if cfg.BillingPeriod == "" {
		cfg.BillingPeriod = BillingPeriodMonthly
	}

	s := &service{
		cfg:                 cfg,
		catalog:             catalog,
		providers:           providers,
		subs:                subs,
		txns:                txns,
		log:                 slog.New(slog.NewTextHandler(io.Discard, nil)),
		locks:               newKeyedMutex(),
		now:                 func() time.Time { return time.Now().UTC() },
		failedConfirmStatus: StatusLive,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Subscribe(ctx context.Context, subscriberID uuid.UUID, planID string, opts SubscribeOptions) (*Checkout, error) {
	driver := opts.Driver
	if driver == "" {
		driver = s.defaultDriver
	}
	provider, err := s.providers.Provider(driver)
	if err != nil {
		return nil, err
	}
	plan, err := s.catalog.Plan(ctx, planID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var coupon *Coupon
	if opts.CouponName != "" {
		// A stale or unknown coupon name degrades to full price rather than
		// blocking the subscribe action.
		if c, err := s.catalog.CouponByName(ctx, opts.CouponName, now); err == nil {
			coupon = &c
		} else if !errors.Is(err, ErrCouponNotFound) {
			return nil, err
		}
	}

	unlock := s.locks.Lock(subscribeKey(subscriberID, planID))
	defer unlock()

	// The duplicate guard only matches a live, unexpired subscription. A
	// Processing or Suspended row falls through to row reuse below.
	if live, err := s.liveSubscription(ctx, subscriberID, planID, now); err != nil {
		return nil, err
	} else if live != nil {
		return nil, ErrAlreadySubscribed
	}

	sub, err := s.subs.BySubscriberAndPlan(ctx, subscriberID, planID)
	if err != nil {
		return nil, err
	}
	processing := StatusProcessing
	if sub == nil {
		sub = &Subscription{
			ID:           uuid.New(),
			SubscriberID: subscriberID,
			PlanID:       planID,
			Status:       processing,
			Driver:       driver,
		}
		if coupon != nil {
			sub.CouponID = coupon.ID
		}
		if err := s.subs.Create(ctx, sub); err != nil {
			return nil, err
		}
	} else {
		upd := SubscriptionUpdate{Status: &processing, Driver: &driver}
		var couponID string
		if coupon != nil {
			couponID = coupon.ID
		}
		upd.CouponID = &couponID
		if err := s.subs.Update(ctx, sub.ID, upd); err != nil {
			return nil, err
		}
		sub.Status = processing
		sub.Driver = driver
		sub.CouponID = couponID
	}

	price, err := ComputePrice(plan, coupon, now)
	if err != nil {
		return nil, err
	}

	checkout, err := provider.InitiateCheckout(ctx, CheckoutRequest{
		SubscriptionID: sub.ID,
		Name:           s.subscriptionName(sub.ID),
		Description:    s.subscriptionName(sub.ID),
		InvoiceID:      sub.ID.String(),
		Price:          price,
		Currency:       s.cfg.Currency,
		SuccessURL:     s.cfg.SuccessURL,
		CancelURL:      s.cfg.CancelURL,
	})
	if err != nil {
		return nil, errors.Join(ErrRedirectFailed, err)
	}

	s.log.InfoContext(ctx, "checkout initiated",
		"subscription_id", sub.ID, "plan_id", planID, "driver", driver)
	return checkout, nil
}

func (s *service) ConfirmCheckout(ctx context.Context, driver, token string) error {
	provider, err := s.providers.Provider(driver)
	if err != nil {
		return err
	}

	details, err := provider.FetchCheckoutDetails(ctx, token)
	if err != nil {
		return errors.Join(ErrCallbackFailed, err)
	}
	if provider.HasError(details) {
		return ErrCallbackFailed
	}
	subID, err := provider.AppSubscriptionID(details)
	if err != nil {
		return errors.Join(ErrCallbackFailed, err)
	}

	unlock := s.locks.Lock(subID.String())
	defer unlock()

	sub, err := s.subs.ByID(ctx, subID)
	if err != nil {
		return err
	}
	if sub == nil {
		return errors.Join(ErrSubscriptionNotFound, fmt.Errorf("subscription %s", subID))
	}

	// Price is recomputed at submission time, never trusted from the earlier
	// checkout, so a coupon that expired in between no longer discounts.
	price, err := s.currentPrice(ctx, sub)
	if err != nil {
		return err
	}

	resp, err := provider.CreateRecurringProfile(ctx, ProfileRequest{
		SubscriptionID: sub.ID,
		Token:          token,
		Description:    s.subscriptionName(sub.ID),
		BillingPeriod:  s.cfg.BillingPeriod,
		Price:          price,
		Currency:       s.cfg.Currency,
	})
	if err != nil {
		return errors.Join(ErrSubscriptionFailed, err)
	}
	success := provider.ProfileCreated(resp)

	now := s.now()
	status, payerID, message := provider.TransactionDetails(resp)
	err = s.inTx(ctx, func(ctx context.Context) error {
		// The attempt is recorded before the subscription row is touched so a
		// failed attempt is never silently lost.
		if err := s.txns.Append(ctx, &Transaction{
			ID:             uuid.New(),
			SubscriptionID: sub.ID,
			Amount:         price.BillableAmount(),
			Status:         status,
			PayerID:        payerID,
			Message:        message,
			CreatedAt:      now,
		}); err != nil {
			return err
		}

		profileID := provider.RecurringProfileID(resp)
		newStatus := StatusLive
		if !success {
			newStatus = s.failedConfirmStatus
		}
		upd := SubscriptionUpdate{
			Status:             &newStatus,
			RecurringPaymentID: &profileID,
		}
		if success {
			expire := now.AddDate(0, 1, 0)
			upd.ExpireAt = &expire
		} else {
			upd.ClearExpireAt = true
		}
		return s.subs.Update(ctx, sub.ID, upd)
	})
	if err != nil {
		return err
	}

	if !success {
		s.log.WarnContext(ctx, "recurring profile creation failed",
			"subscription_id", sub.ID, "driver", driver, "provider_status", status)
		return ErrSubscriptionFailed
	}
	s.log.InfoContext(ctx, "subscription confirmed",
		"subscription_id", sub.ID, "driver", driver)
	return nil
}

func (s *service) HandleWebhook(ctx context.Context, driver string, payload []byte) (bool, error) {
	provider, err := s.providers.Provider(driver)
	if err != nil {
		return false, err
	}

	event, err := provider.ClassifyWebhook(ctx, payload)
	if err != nil {
		return false, errors.Join(ErrInvalidWebhook, err)
	}

	sub, err := s.subs.ByRecurringPaymentID(ctx, event.ProfileID)
	if err != nil {
		return false, err
	}
	if sub == nil {
		return false, errors.Join(ErrSubscriptionNotFound, fmt.Errorf("recurring profile %q", event.ProfileID))
	}

	unlock := s.locks.Lock(sub.ID.String())
	defer unlock()

	// The duplicate check runs under the subscription lock and the event is
	// marked only after the writes below commit. A delivery that failed
	// mid-write stays unmarked, so the provider's redelivery is processed
	// instead of swallowed as a duplicate.
	if s.dedup != nil && event.EventID != "" {
		seen, err := s.dedup.Seen(ctx, driver, event.EventID)
		if err != nil {
			return false, err
		}
		if seen {
			s.log.InfoContext(ctx, "duplicate webhook delivery ignored",
				"driver", driver, "event_id", event.EventID)
			return false, nil
		}
	}

	now := s.now()
	err = s.inTx(ctx, func(ctx context.Context) error {
		if event.Kind == WebhookRenewalSucceeded {
			live := StatusLive
			expire := now.AddDate(0, 1, 0)
			if err := s.subs.Update(ctx, sub.ID, SubscriptionUpdate{Status: &live, ExpireAt: &expire}); err != nil {
				return err
			}
		}
		return s.txns.Append(ctx, &Transaction{
			ID:             uuid.New(),
			SubscriptionID: sub.ID,
			Amount:         event.Amount,
			Status:         webhookTxStatus(event.Kind),
			PayerID:        event.PayerID,
			CreatedAt:      now,
		})
	})
	if err != nil {
		return false, err
	}

	if s.dedup != nil && event.EventID != "" {
		// The writes are already committed. Failing here would trigger a
		// redelivery that extends the window twice, so the mark is
		// best-effort.
		if err := s.dedup.MarkProcessed(ctx, driver, event.EventID); err != nil {
			s.log.WarnContext(ctx, "failed to record webhook delivery",
				"driver", driver, "event_id", event.EventID, "error", err)
		}
	}

	s.log.InfoContext(ctx, "webhook processed",
		"subscription_id", sub.ID, "driver", driver, "kind", string(event.Kind))
	return true, nil
}

func (s *service) Suspend(ctx context.Context, subscriberID uuid.UUID, planID string) error {
	now := s.now()
	sub, err := s.liveSubscription(ctx, subscriberID, planID, now)
	if err != nil {
		return err
	}
	if sub == nil {
		return ErrNoSubscription
	}

	unlock := s.locks.Lock(sub.ID.String())
	defer unlock()

	provider, err := s.providers.Provider(sub.Driver)
	if err != nil {
		return err
	}
	resp, err := provider.SuspendProfile(ctx, sub.RecurringPaymentID)
	if err != nil {
		return errors.Join(ErrSuspendFailed, err)
	}
	if provider.HasError(resp) {
		return ErrSuspendFailed
	}

	suspended := StatusSuspended
	at := s.now()
	if err := s.subs.Update(ctx, sub.ID, SubscriptionUpdate{Status: &suspended, SuspendedAt: &at}); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "subscription suspended", "subscription_id", sub.ID)
	return nil
}

func (s *service) Reactivate(ctx context.Context, subscriberID uuid.UUID, planID string) error {
	sub, err := s.subs.BySubscriberAndPlan(ctx, subscriberID, planID, StatusSuspended)
	if err != nil {
		return err
	}
	if sub == nil {
		return ErrNoSubscription
	}

	unlock := s.locks.Lock(sub.ID.String())
	defer unlock()

	provider, err := s.providers.Provider(sub.Driver)
	if err != nil {
		return err
	}
	resp, err := provider.ReactivateProfile(ctx, sub.RecurringPaymentID)
	if err != nil {
		return errors.Join(ErrReactivateFailed, err)
	}
	if provider.HasError(resp) {
		return ErrReactivateFailed
	}

	// The unused entitlement window from before the suspension is restored,
	// not discarded.
	live := StatusLive
	expire := sub.RemainderAfterSuspend(s.now())
	if err := s.subs.Update(ctx, sub.ID, SubscriptionUpdate{
		Status:           &live,
		ExpireAt:         &expire,
		ClearSuspendedAt: true,
	}); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "subscription reactivated", "subscription_id", sub.ID, "expire_at", expire)
	return nil
}

func (s *service) Cancel(ctx context.Context, subscriberID uuid.UUID, planID string) error {
	now := s.now()
	sub, err := s.liveSubscription(ctx, subscriberID, planID, now)
	if err != nil {
		return err
	}
	if sub == nil {
		return ErrNoSubscription
	}

	unlock := s.locks.Lock(sub.ID.String())
	defer unlock()

	provider, err := s.providers.Provider(sub.Driver)
	if err != nil {
		return err
	}
	resp, err := provider.CancelProfile(ctx, sub.RecurringPaymentID)
	if err != nil {
		return errors.Join(ErrCancelFailed, err)
	}
	if provider.HasError(resp) {
		return ErrCancelFailed
	}

	canceled := StatusCanceled
	if err := s.subs.Update(ctx, sub.ID, SubscriptionUpdate{Status: &canceled, ClearExpireAt: true}); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "subscription canceled", "subscription_id", sub.ID)
	return nil
}

func (s *service) Subscription(ctx context.Context, subscriberID uuid.UUID, planID string) (*Subscription, error) {
	sub, err := s.subs.BySubscriberAndPlan(ctx, subscriberID, planID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNoSubscription
	}
	return sub, nil
}

func (s *service) IsEntitled(ctx context.Context, subscriberID uuid.UUID, planIDs []string) (bool, error) {
	now := s.now()
	for _, planID := range planIDs {
		sub, err := s.liveSubscription(ctx, subscriberID, planID, now)
		if err != nil {
			return false, err
		}
		if sub != nil {
			return true, nil
		}
	}
	return false, nil
}

// liveSubscription matches only a Live row whose entitlement window covers
// now. A Live row with a past ExpireAt is already logically expired even
// before any batch job relabels it.
func (s *service) liveSubscription(ctx context.Context, subscriberID uuid.UUID, planID string, now time.Time) (*Subscription, error) {
	sub, err := s.subs.BySubscriberAndPlan(ctx, subscriberID, planID, StatusLive)
	if err != nil {
		return nil, err
	}
	if sub == nil || !sub.IsLiveAt(now) {
		return nil, err
	}
	return sub, nil
}

// currentPrice recomputes the subscription's price plan from the catalog.
func (s *service) currentPrice(ctx context.Context, sub *Subscription) (PricePlan, error) {
	plan, err := s.catalog.Plan(ctx, sub.PlanID)
	if err != nil {
		return PricePlan{}, err
	}
	var coupon *Coupon
	if sub.CouponID != "" {
		c, err := s.catalog.Coupon(ctx, sub.CouponID)
		if err != nil {
			return PricePlan{}, err
		}
		coupon = &c
	}
	return ComputePrice(plan, coupon, s.now())
}

func (s *service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if atomic, ok := s.subs.(AtomicStore); ok {
		return atomic.InTx(ctx, fn)
	}
	return fn(ctx)
}

func (s *service) subscriptionName(id uuid.UUID) string {
	return "Monthly Subscription " + s.cfg.SubscriptionIDPrefix + " #" + id.String()
}

func webhookTxStatus(kind WebhookKind) string {
	switch kind {
	case WebhookRenewalSucceeded:
		return TxStatusSuccess
	case WebhookRenewalSkipped:
		return TxStatusSkipped
	case WebhookRenewalFailed:
		return TxStatusFailed
	default:
		return string(kind)
	}
}

func subscribeKey(subscriberID uuid.UUID, planID string) string {
	return subscriberID.String() + "/" + planID
}
