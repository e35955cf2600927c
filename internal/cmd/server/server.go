// Package server parses server command flags and launches the game runtime.
package server

import (
	"context"
	"flag"
	"time"

	"github.com/yargame/yar/internal/game/app"
	entrypoint "github.com/yargame/yar/internal/platform/cmd"
)

// Config holds server command configuration.
type Config struct {
	Root              string        `env:"YAR_ROOT" envDefault:"/yar"`
	GameID            int64         `env:"YAR_GAME"`
	Territories       int           `env:"YAR_TERRITORIES" envDefault:"4"`
	Threshold         int64         `env:"YAR_THRESHOLD" envDefault:"100"`
	Bandwidth         int64         `env:"YAR_BANDWIDTH" envDefault:"10"`
	Burst             int64         `env:"YAR_BURST" envDefault:"10240"`
	Penalty           int64         `env:"YAR_PENALTY" envDefault:"1"`
	PollInterval      time.Duration `env:"YAR_POLL_INTERVAL" envDefault:"100ms"`
	TelemetryInterval time.Duration `env:"YAR_TELEMETRY_INTERVAL" envDefault:"1s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Root, "root", cfg.Root, "The game tree root directory")
	fs.Int64Var(&cfg.GameID, "game", cfg.GameID, "The game to serve (0 resumes the latest or creates one)")
	fs.IntVar(&cfg.Territories, "territories", cfg.Territories, "Territories for a newly created game")
	fs.Int64Var(&cfg.Threshold, "threshold", cfg.Threshold, "Capture threshold in bytes for a newly created game")
	fs.Int64Var(&cfg.Bandwidth, "bandwidth", cfg.Bandwidth, "Player bandwidth in KiB/s for a newly created game")
	fs.Int64Var(&cfg.Burst, "burst", cfg.Burst, "Token bucket capacity in bytes")
	fs.Int64Var(&cfg.Penalty, "penalty", cfg.Penalty, "Score deducted per byte over the limit")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Game loop poll interval")
	fs.DurationVar(&cfg.TelemetryInterval, "telemetry-interval", cfg.TelemetryInterval, "Bandwidth accounting window")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the game server runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceServer, func(ctx context.Context) error {
		return app.Run(ctx, app.RuntimeConfig{
			Root:        cfg.Root,
			GameID:      cfg.GameID,
			Territories: cfg.Territories,
			Threshold:   cfg.Threshold,
			Bandwidth:   cfg.Bandwidth,
			Loop: app.LoopConfig{
				PollInterval:      cfg.PollInterval,
				TelemetryInterval: cfg.TelemetryInterval,
				Burst:             cfg.Burst,
				PenaltyRate:       cfg.Penalty,
			},
		})
	})
}
