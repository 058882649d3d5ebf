// Package server wires configuration and lifecycle for the metadata server
// binary.
package server

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/louisbranch/ugs-metadata/internal/platform/config"
	"github.com/louisbranch/ugs-metadata/internal/platform/otel"
	"github.com/louisbranch/ugs-metadata/internal/services/metadata/app"
)

// Config holds the metadata server command configuration.
type Config struct {
	HTTPAddr    string `env:"UGS_METADATA_HTTP_ADDR"    envDefault:":3000"`
	DBPath      string `env:"UGS_METADATA_DB_PATH"      envDefault:"data/metadata.db"`
	UserAuth    string `env:"UGS_METADATA_USER_AUTH"`
	CIAuth      string `env:"UGS_METADATA_CI_AUTH"`
	RequestRoot string `env:"UGS_METADATA_REQUEST_ROOT"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to the sqlite database")
	fs.StringVar(&cfg.RequestRoot, "request-root", cfg.RequestRoot, "path prefix to serve routes under")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Run starts the metadata server and blocks until the context ends.
func Run(ctx context.Context, cfg Config) error {
	shutdown, err := otel.Setup(ctx, "metadata")
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	return app.Run(ctx, app.Config{
		HTTPAddr:    cfg.HTTPAddr,
		DBPath:      cfg.DBPath,
		UserAuth:    cfg.UserAuth,
		CIAuth:      cfg.CIAuth,
		RequestRoot: cfg.RequestRoot,
	})
}
