// Package events parses events command flags and dumps or follows a game's
// score journal.
package events

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/yargame/yar/internal/game/setup"
	"github.com/yargame/yar/internal/game/storage"
	"github.com/yargame/yar/internal/game/storage/cursor"
	"github.com/yargame/yar/internal/game/storage/sqlite"
	entrypoint "github.com/yargame/yar/internal/platform/cmd"
)

// Config holds events command configuration.
type Config struct {
	Root         string        `env:"YAR_ROOT" envDefault:"/yar"`
	GameID       int64         `env:"YAR_GAME"`
	Cursor       string        `env:"YAR_EVENTS_CURSOR"`
	Limit        int           `env:"YAR_EVENTS_LIMIT" envDefault:"100"`
	Follow       bool          `env:"YAR_EVENTS_FOLLOW"`
	PollInterval time.Duration `env:"YAR_EVENTS_POLL_INTERVAL" envDefault:"1s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Root, "root", cfg.Root, "The game tree root directory")
	fs.Int64Var(&cfg.GameID, "game", cfg.GameID, "The game whose journal to read (0 means the latest)")
	fs.StringVar(&cfg.Cursor, "cursor", cfg.Cursor, "Resume token from a previous run")
	fs.IntVar(&cfg.Limit, "limit", cfg.Limit, "Events per page")
	fs.BoolVar(&cfg.Follow, "follow", cfg.Follow, "Keep polling for new events")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Journal poll interval when following")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run reads the score journal and writes one line per event to stdout.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceEvents, func(ctx context.Context) error {
		store, err := sqlite.Open(setup.NewPaths(cfg.Root).DBFile)
		if err != nil {
			return err
		}
		defer store.Close()

		pos, err := resolveCursor(ctx, store, cfg)
		if err != nil {
			return err
		}
		return tail(ctx, store, os.Stdout, pos, cfg.Limit, cfg.Follow, cfg.PollInterval)
	})
}

// resolveCursor picks the journal position: an explicit resume token wins,
// otherwise the configured or latest game from its start.
func resolveCursor(ctx context.Context, store storage.Store, cfg Config) (cursor.Cursor, error) {
	if cfg.Cursor != "" {
		return cursor.Decode(cfg.Cursor)
	}
	if cfg.GameID > 0 {
		return cursor.Cursor{GameID: cfg.GameID}, nil
	}
	game, err := store.LatestGame(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return cursor.Cursor{}, fmt.Errorf("no games exist yet")
		}
		return cursor.Cursor{}, err
	}
	return cursor.Cursor{GameID: game.ID}, nil
}

// tail writes events after the cursor position. Without follow it prints one
// page and the resume token; with follow it polls until cancelled.
func tail(ctx context.Context, store storage.EventStore, w io.Writer, pos cursor.Cursor, limit int, follow bool, interval time.Duration) error {
	for {
		events, err := store.ListScoreEvents(ctx, pos.GameID, pos.Seq, limit)
		if err != nil {
			return err
		}
		for _, evt := range events {
			fmt.Fprintf(w, "%d\t%s\t%s\tplayer=%d\tdelta=%+d\tscore=%d\n",
				evt.Seq, evt.CreatedAt.Format(time.RFC3339Nano), evt.Source,
				evt.PlayerID, evt.Delta, evt.NewScore)
			pos.Seq = evt.Seq
		}

		if !follow {
			token, err := cursor.Encode(pos)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "cursor: %s\n", token)
			return nil
		}
		if len(events) == limit {
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}
