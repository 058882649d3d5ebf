package server

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":3000" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.DBPath != "data/metadata.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.RequestRoot != "" {
		t.Fatalf("expected empty request root, got %q", cfg.RequestRoot)
	}
}

func TestParseConfigEnvAndFlagOverrides(t *testing.T) {
	t.Setenv("UGS_METADATA_HTTP_ADDR", "env-addr")
	t.Setenv("UGS_METADATA_DB_PATH", "env.db")
	t.Setenv("UGS_METADATA_USER_AUTH", "user:secret")
	t.Setenv("UGS_METADATA_CI_AUTH", "ci:secret")
	t.Setenv("UGS_METADATA_REQUEST_ROOT", "/env-root")

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-http-addr", "flag-addr", "-request-root", "/flag-root"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "flag-addr" {
		t.Fatalf("expected flag http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.DBPath != "env.db" {
		t.Fatalf("expected env db path, got %q", cfg.DBPath)
	}
	if cfg.UserAuth != "user:secret" {
		t.Fatalf("expected env user auth, got %q", cfg.UserAuth)
	}
	if cfg.CIAuth != "ci:secret" {
		t.Fatalf("expected env ci auth, got %q", cfg.CIAuth)
	}
	if cfg.RequestRoot != "/flag-root" {
		t.Fatalf("expected flag request root, got %q", cfg.RequestRoot)
	}
}
