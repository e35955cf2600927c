package config

import (
	"testing"
	"time"
)

type envConfig struct {
	Root     string        `env:"CONFIG_TEST_ROOT" envDefault:"/tmp/yar"`
	Interval time.Duration `env:"CONFIG_TEST_INTERVAL" envDefault:"100ms"`
}

func TestParseEnvUsesDefaults(t *testing.T) {
	var cfg envConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Root != "/tmp/yar" {
		t.Fatalf("expected default root, got %q", cfg.Root)
	}
	if cfg.Interval != 100*time.Millisecond {
		t.Fatalf("expected default interval, got %v", cfg.Interval)
	}
}

func TestParseEnvReadsVariables(t *testing.T) {
	t.Setenv("CONFIG_TEST_ROOT", "/data/games")
	t.Setenv("CONFIG_TEST_INTERVAL", "250ms")

	var cfg envConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Root != "/data/games" {
		t.Fatalf("expected env root, got %q", cfg.Root)
	}
	if cfg.Interval != 250*time.Millisecond {
		t.Fatalf("expected env interval, got %v", cfg.Interval)
	}
}
