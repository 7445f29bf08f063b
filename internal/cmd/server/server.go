// Package server wires configuration and startup for the bot webhook server.
package server

import (
	"context"
	"flag"

	botserver "github.com/iammerus/twilio-whatsapp-fun/internal/bot/app"
	entrypoint "github.com/iammerus/twilio-whatsapp-fun/internal/platform/cmd"
)

// Config holds server command configuration.
type Config struct {
	Port   int    `env:"WAB_PORT" envDefault:"8080"`
	DBPath string `env:"WAB_DB_PATH" envDefault:"data/wab.db"`
}

// ParseConfig parses environment defaults and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.IntVar(&cfg.Port, "port", cfg.Port, "The webhook server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Path to the bot SQLite database")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the bot webhook server.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(ctx context.Context) error {
		return botserver.Run(ctx, botserver.Config{
			Port:   cfg.Port,
			DBPath: cfg.DBPath,
		})
	})
}
