package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/yargame/yar/internal/game/domain"
	"github.com/yargame/yar/internal/game/setup"
	"github.com/yargame/yar/internal/game/storage"
	"github.com/yargame/yar/internal/game/storage/sqlite"
	"github.com/yargame/yar/internal/game/transport"
)

// RuntimeConfig configures one server run.
type RuntimeConfig struct {
	// Root is the directory holding the game tree and database.
	Root string
	// GameID selects an existing game. Zero resumes the latest game, or
	// creates one when the store is empty.
	GameID int64
	// Territories, Threshold, and Bandwidth shape a newly created game and
	// are ignored when resuming.
	Territories int
	Threshold   int64
	Bandwidth   int64

	Loop LoopConfig
}

// Run opens the store, resumes or creates a game, binds its endpoints, and
// runs the loop until the context is cancelled.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	paths := setup.NewPaths(cfg.Root)
	if err := os.MkdirAll(paths.Games, 0o755); err != nil {
		return fmt.Errorf("create games dir: %w", err)
	}

	store, err := sqlite.Open(paths.DBFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	game, err := resolveGame(ctx, store, cfg, paths)
	if err != nil {
		return err
	}

	players, err := store.ListPlayers(ctx, game.ID)
	if err != nil {
		return err
	}
	territories, err := store.ListTerritories(ctx, game.ID)
	if err != nil {
		return err
	}
	if len(players) == 0 || len(territories) == 0 {
		return fmt.Errorf("game %d has no players or territories", game.ID)
	}

	playerPtrs := make([]*domain.Player, len(players))
	for i := range players {
		playerPtrs[i] = &players[i]
	}
	territoryPtrs := make([]*domain.Territory, len(territories))
	socketPaths := make([]string, len(territories))
	for i := range territories {
		territoryPtrs[i] = &territories[i]
		socketPaths[i] = territories[i].SocketPath
	}

	mux, err := transport.Bind(socketPaths)
	if err != nil {
		return err
	}
	defer func() {
		if err := mux.Close(); err != nil {
			log.Printf("close endpoints: %v", err)
		}
	}()

	loop, err := NewLoop(cfg.Loop, store, mux, territoryPtrs, playerPtrs)
	if err != nil {
		return err
	}

	log.Printf("serving game %d: %d territories, poll %s", game.ID, len(territories), cfg.Loop.withDefaults().PollInterval)
	return loop.Run(ctx)
}

// resolveGame picks the game to serve: an explicit id, else the latest, else
// a freshly created one.
func resolveGame(ctx context.Context, store storage.Store, cfg RuntimeConfig, paths setup.Paths) (domain.Game, error) {
	if cfg.GameID > 0 {
		return store.GetGame(ctx, cfg.GameID)
	}

	game, err := store.LatestGame(ctx)
	if err == nil {
		log.Printf("resuming game %d", game.ID)
		return game, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return domain.Game{}, err
	}

	game, err = setup.CreateGame(ctx, store, paths, setup.Options{
		Territories: cfg.Territories,
		Threshold:   cfg.Threshold,
		Bandwidth:   cfg.Bandwidth,
	})
	if err != nil {
		return domain.Game{}, err
	}
	log.Printf("created game %d", game.ID)
	return game, nil
}
