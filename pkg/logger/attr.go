package logger

import (
	"log/slog"

	"github.com/google/uuid"
)

// Error records a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// SubscriberID records the subscriber identifier under the key "subscriber_id".
func SubscriberID(id uuid.UUID) slog.Attr {
	return slog.String("subscriber_id", id.String())
}

// PlanID records the plan identifier under the key "plan_id".
func PlanID(id string) slog.Attr {
	return slog.String("plan_id", id)
}

// Driver records the payment provider driver name under the key "driver".
func Driver(name string) slog.Attr {
	return slog.String("driver", name)
}
