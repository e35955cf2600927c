// Package storage defines the repository boundary the game loop persists
// through. Any durable or in-memory store can sit behind these interfaces;
// the sqlite subpackage is the one this repo ships.
package storage

import (
	"context"
	"errors"

	"github.com/yargame/yar/internal/game/domain"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// GameStore creates and resolves game records.
type GameStore interface {
	CreateGame(ctx context.Context) (domain.Game, error)
	GetGame(ctx context.Context, id int64) (domain.Game, error)
	LatestGame(ctx context.Context) (domain.Game, error)
}

// PlayerStore persists the two sides of a game.
type PlayerStore interface {
	CreatePlayer(ctx context.Context, p domain.Player) (domain.Player, error)
	ListPlayers(ctx context.Context, gameID int64) ([]domain.Player, error)
	// SavePlayer writes the mutable fields (score, bandwidth used).
	SavePlayer(ctx context.Context, p domain.Player) error
}

// TerritoryStore persists contested resources.
type TerritoryStore interface {
	CreateTerritory(ctx context.Context, t domain.Territory) (domain.Territory, error)
	ListTerritories(ctx context.Context, gameID int64) ([]domain.Territory, error)
	// SaveTerritory writes the mutable fields (progress counters, net score).
	SaveTerritory(ctx context.Context, t domain.Territory) error
}

// EventStore is the append-only score journal.
type EventStore interface {
	AppendScoreEvent(ctx context.Context, evt domain.ScoreEvent) (domain.ScoreEvent, error)
	// BatchAppendScoreEvents appends several events in one transaction,
	// assigning contiguous sequence numbers.
	BatchAppendScoreEvents(ctx context.Context, events []domain.ScoreEvent) ([]domain.ScoreEvent, error)
	// ListScoreEvents returns events with seq > afterSeq in ascending order.
	ListScoreEvents(ctx context.Context, gameID int64, afterSeq uint64, limit int) ([]domain.ScoreEvent, error)
	LatestScoreEventSeq(ctx context.Context, gameID int64) (uint64, error)
}

// Store is the full capability set the server runtime needs.
type Store interface {
	GameStore
	PlayerStore
	TerritoryStore
	EventStore
	Close() error
}
