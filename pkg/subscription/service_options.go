package subscription

import (
	"log/slog"
	"time"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*service)

// WithLogger routes lifecycle events through the given structured logger.
// Logging is discarded by default.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source. Useful for tests that assert on
// expiry arithmetic with fixed time values.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDeduplicator enables webhook de-duplication by provider event id.
// Without one, a redelivered renewal extends the entitlement window twice.
func WithDeduplicator(d WebhookDeduplicator) ServiceOption {
	return func(s *service) {
		s.dedup = d
	}
}

// WithDefaultDriver sets the provider used when SubscribeOptions.Driver is
// empty.
func WithDefaultDriver(driver string) ServiceOption {
	return func(s *service) {
		s.defaultDriver = driver
	}
}

// WithFailedConfirmStatus sets the status a subscription takes when profile
// creation fails at confirm time. The inherited behavior leaves the row Live
// with no expiry, which still denies access because entitlement checks are
// time-derived; pass StatusProcessing to keep failed confirms visibly
// unfinished instead.
func WithFailedConfirmStatus(status Status) ServiceOption {
	return func(s *service) {
		s.failedConfirmStatus = status
	}
}
