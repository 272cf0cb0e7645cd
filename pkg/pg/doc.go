// Package pg wires PostgreSQL connectivity for the service: pool creation
// with startup retries, goose migrations from an embedded filesystem, error
// classification helpers, and a health check.
//
// # Usage
//
//	cfg := config.MustLoad[pg.Config]()
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, migrations.FS, cfg, logger); err != nil {
//		log.Fatal(err)
//	}
//
// Store code uses the classification helpers instead of matching driver
// errors directly:
//
//	if pg.IsDuplicateKeyError(err) {
//		// unique constraint hit
//	}
package pg
