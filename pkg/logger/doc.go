// Package logger builds configured slog loggers for the service.
//
// Defaults target production: JSON to stdout at info level. Development mode
// switches to human-readable text at debug level:
//
//	log := logger.New(logger.WithDevelopment("billing"))
//
// Context extractors inject request-scoped values into every record logged
// with a context:
//
//	log := logger.New(
//		logger.WithProduction("billing"),
//		logger.WithContextValue("request_id", requestIDKey),
//	)
//
// Attr helpers keep key names consistent across call sites:
//
//	log.ErrorContext(ctx, "subscribe failed", logger.SubscriberID(id), logger.Error(err))
package logger
