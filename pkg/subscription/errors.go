package subscription

import "errors"

var (
	ErrPlanNotFound   = errors.New("subscription plan not found")
	ErrCouponNotFound = errors.New("subscription coupon not found")
	ErrInvalidPrice   = errors.New("invalid price input")

	ErrNoSubscription       = errors.New("subscriber has no matching subscription")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrAlreadySubscribed    = errors.New("subscriber already has a live subscription for this plan")

	// Provider-call failures, one per lifecycle operation.
	ErrRedirectFailed     = errors.New("checkout redirect has failed")
	ErrCallbackFailed     = errors.New("checkout callback has failed")
	ErrSubscriptionFailed = errors.New("recurring profile creation has failed")
	ErrSuspendFailed      = errors.New("subscription suspend has failed")
	ErrReactivateFailed   = errors.New("subscription reactivation has failed")
	ErrCancelFailed       = errors.New("subscription cancel has failed")

	ErrInvalidWebhook = errors.New("webhook payload is invalid or unauthenticated")
	ErrUnknownDriver  = errors.New("no payment provider registered for driver")
)
