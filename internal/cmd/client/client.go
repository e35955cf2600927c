// Package client parses client command flags and launches a traffic sender.
package client

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	gameclient "github.com/yargame/yar/internal/game/client"
	"github.com/yargame/yar/internal/game/domain"
	entrypoint "github.com/yargame/yar/internal/platform/cmd"
)

// Config holds client command configuration.
type Config struct {
	Socket    string        `env:"YAR_CLIENT_SOCKET"`
	Player    int           `env:"YAR_CLIENT_PLAYER" envDefault:"1"`
	Rate      int64         `env:"YAR_CLIENT_RATE" envDefault:"10240"`
	ChunkSize int           `env:"YAR_CLIENT_CHUNK" envDefault:"1024"`
	Duration  time.Duration `env:"YAR_CLIENT_DURATION"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Socket, "socket", cfg.Socket, "The territory socket path to send to")
	fs.IntVar(&cfg.Player, "player", cfg.Player, "The player id attributing the traffic (1 or 2)")
	fs.Int64Var(&cfg.Rate, "rate", cfg.Rate, "Send rate in bytes per second")
	fs.IntVar(&cfg.ChunkSize, "chunk", cfg.ChunkSize, "Bytes per datagram")
	fs.DurationVar(&cfg.Duration, "duration", cfg.Duration, "How long to send (0 means until interrupted)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if cfg.Socket == "" {
		return Config{}, fmt.Errorf("socket path is required")
	}
	return cfg, nil
}

// Run sends paced traffic until the duration elapses or the context is
// cancelled.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceClient, func(ctx context.Context) error {
		sender, err := gameclient.Dial(cfg.Socket, gameclient.Config{
			Player:    domain.PlayerID(cfg.Player),
			Rate:      cfg.Rate,
			ChunkSize: cfg.ChunkSize,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := sender.Close(); err != nil {
				log.Printf("close sender: %v", err)
			}
		}()

		if cfg.Duration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
			defer cancel()
		}

		log.Printf("sending as player %d to %s at %d B/s", cfg.Player, cfg.Socket, cfg.Rate)
		return sender.Run(ctx)
	})
}
