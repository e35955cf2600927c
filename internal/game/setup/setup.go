// Package setup bootstraps a game: the on-disk directory tree, the contested
// territories with their socket and score-file paths, and the two players.
package setup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/yargame/yar/internal/game/domain"
	"github.com/yargame/yar/internal/game/storage"
)

var tracer = otel.Tracer("github.com/yargame/yar/internal/game/setup")

// Paths locates the shared game tree under a root directory.
type Paths struct {
	Root   string
	Games  string
	DBFile string
}

// NewPaths derives the shared paths from the configured root.
func NewPaths(root string) Paths {
	games := filepath.Join(root, "games")
	return Paths{
		Root:   root,
		Games:  games,
		DBFile: filepath.Join(games, "yar.sqlite3"),
	}
}

// GamePaths locates one game's directories.
type GamePaths struct {
	Game        string
	Journal     string
	Sockets     string
	Territories string
}

// NewGamePaths derives a game's directories from the root and game id.
func NewGamePaths(root string, gameID int64) GamePaths {
	game := filepath.Join(root, "games", fmt.Sprintf("%03d", gameID))
	return GamePaths{
		Game:        game,
		Journal:     filepath.Join(game, "journal"),
		Sockets:     filepath.Join(game, "sockets"),
		Territories: filepath.Join(game, "territories"),
	}
}

func (gp GamePaths) mkdirAll() error {
	for _, dir := range []string{gp.Game, gp.Journal, gp.Sockets, gp.Territories} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create game dir %s: %w", dir, err)
		}
	}
	return nil
}

// Options configure a new game.
type Options struct {
	// Territories is the number of contested endpoints.
	Territories int
	// Threshold is the capture threshold for every territory.
	Threshold int64
	// Bandwidth is each player's configured rate in KiB per second.
	Bandwidth int64
}

func (o Options) validate() error {
	if o.Territories <= 0 {
		return fmt.Errorf("at least one territory is required, got %d", o.Territories)
	}
	if o.Threshold <= 0 {
		return fmt.Errorf("threshold must be positive, got %d", o.Threshold)
	}
	if o.Bandwidth <= 0 {
		return fmt.Errorf("bandwidth must be positive, got %d", o.Bandwidth)
	}
	return nil
}

// CreateGame creates the game record, its directory tree, one territory per
// endpoint (each with a zeroed score file), and both players.
func CreateGame(ctx context.Context, store storage.Store, paths Paths, opts Options) (domain.Game, error) {
	ctx, span := tracer.Start(ctx, "setup.CreateGame")
	defer span.End()

	if err := opts.validate(); err != nil {
		return domain.Game{}, err
	}

	game, err := store.CreateGame(ctx)
	if err != nil {
		return domain.Game{}, err
	}

	gp := NewGamePaths(paths.Root, game.ID)
	if err := gp.mkdirAll(); err != nil {
		return domain.Game{}, err
	}

	for i := 1; i <= opts.Territories; i++ {
		socketPath := filepath.Join(gp.Sockets, fmt.Sprintf("yar-%03d", i))
		scorePath := filepath.Join(gp.Territories, "territory-"+shortID())
		if err := os.WriteFile(scorePath, []byte("0"), 0o644); err != nil {
			return domain.Game{}, fmt.Errorf("write score file %s: %w", scorePath, err)
		}
		if _, err := store.CreateTerritory(ctx, domain.Territory{
			GameID:     game.ID,
			SocketPath: socketPath,
			ScorePath:  scorePath,
			Threshold:  opts.Threshold,
		}); err != nil {
			return domain.Game{}, err
		}
	}

	for _, id := range []domain.PlayerID{domain.PlayerOne, domain.PlayerTwo} {
		if _, err := store.CreatePlayer(ctx, domain.Player{
			GameID:    game.ID,
			PlayerID:  id,
			Bandwidth: opts.Bandwidth,
		}); err != nil {
			return domain.Game{}, err
		}
	}

	return game, nil
}

// shortID returns a short random suffix for artifact names.
func shortID() string {
	return uuid.NewString()[:8]
}
