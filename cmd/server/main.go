package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ngolub/subscriptions/migrations"
	"github.com/ngolub/subscriptions/pkg/config"
	"github.com/ngolub/subscriptions/pkg/httpserver"
	"github.com/ngolub/subscriptions/pkg/logger"
	"github.com/ngolub/subscriptions/pkg/pg"
	"github.com/ngolub/subscriptions/pkg/redis"
	"github.com/ngolub/subscriptions/pkg/subscription"
)

// webhookDedupTTL comfortably covers PayPal's IPN retry window.
const webhookDedupTTL = 72 * time.Hour

func main() {
	ctx := context.Background()
	log := logger.New(logger.WithProduction("subscriptions"))

	if err := run(ctx, log); err != nil {
		log.ErrorContext(ctx, "server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	pgCfg := config.MustLoad[pg.Config]()
	redisCfg := config.MustLoad[redis.Config]()
	httpCfg := config.MustLoad[httpserver.Config]()
	subCfg := config.MustLoad[subscription.Config]()
	paypalCfg := config.MustLoad[subscription.PayPalConfig]()

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, migrations.FS, pgCfg, log); err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	paypal, err := subscription.NewPayPalProvider(paypalCfg)
	if err != nil {
		return err
	}

	svc := subscription.NewService(
		subCfg,
		catalog(),
		subscription.NewRegistry(paypal),
		subscription.NewPgSubscriptionStore(pool),
		subscription.NewPgTransactionStore(pool),
		subscription.WithLogger(log),
		subscription.WithDefaultDriver(subscription.PayPalDriver),
		subscription.WithDeduplicator(subscription.NewRedisDeduplicator(redisClient, webhookDedupTTL)),
	)

	r := chi.NewRouter()
	r.Get("/health", httpserver.HealthCheckHandler(ctx, log,
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
	))
	r.Mount("/billing", subscription.Router(subscription.RouterConfig{
		Service:    svc,
		SuccessURL: subCfg.SuccessURL,
		CancelURL:  subCfg.CancelURL,
		Logger:     log,
	}))

	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.InfoContext(ctx, "server listening", "addr", httpCfg.Addr)
		}),
		httpserver.WithStopHook(func(l *slog.Logger) {
			l.InfoContext(ctx, "server stopped")
		}),
	)
	return srv.Run(ctx, r)
}
