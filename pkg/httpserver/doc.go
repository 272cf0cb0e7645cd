// Package httpserver wraps net/http with graceful shutdown, configurable
// timeouts, health-check handlers, and slog integration.
//
// Run blocks until the context is canceled or an interrupt/TERM signal
// arrives, then drains in-flight requests within the shutdown timeout:
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//
//	r := chi.NewRouter()
//	r.Get("/health", httpserver.HealthCheckHandler(ctx, log, pg.Healthcheck(pool)))
//
//	if err := srv.Run(ctx, r); err != nil {
//		log.Error("server failed", logger.Error(err))
//	}
//
// Errors are wrapped with the ErrStart and ErrShutdown sentinels for
// errors.Is inspection.
package httpserver
