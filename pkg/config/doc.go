// Package config loads typed configuration structs from environment
// variables, with optional .env file support for local development.
//
// Each component defines its own Config struct with `env` tags and loads it
// independently:
//
//	pgCfg := config.MustLoad[pg.Config]()
//	subCfg := config.MustLoad[subscription.Config]()
//
// Parsing is delegated to github.com/caarlos0/env; see that package for the
// supported tag syntax.
package config
