// Package redis provides Redis connectivity for the service: client creation
// with startup retries and a health check.
//
// The subscription package uses the client for webhook replay suppression;
// see subscription.NewRedisDeduplicator.
//
//	cfg := config.MustLoad[redis.Config]()
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
package redis
