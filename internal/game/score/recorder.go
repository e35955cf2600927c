// Package score keeps the running per-player totals and the buffered
// append-only event log the loop flushes each iteration.
package score

import (
	"context"
	"fmt"
	"time"

	"github.com/yargame/yar/internal/game/domain"
	"github.com/yargame/yar/internal/game/storage"
)

// Recorder mutates player totals and buffers score events until Flush
// persists them. A failed flush keeps the buffer so the next attempt retries
// the whole batch; in-memory totals stay authoritative throughout.
type Recorder struct {
	store   storage.EventStore
	gameID  int64
	players map[domain.PlayerID]*domain.Player
	pending []domain.ScoreEvent
	dirty   map[domain.PlayerID]struct{}
	clock   func() time.Time
}

// NewRecorder builds a recorder over the game's players. The players are
// mutated in place; callers persist them via TakeDirtyPlayers.
func NewRecorder(store storage.EventStore, gameID int64, players []*domain.Player) (*Recorder, error) {
	if store == nil {
		return nil, fmt.Errorf("event store is required")
	}
	byID := make(map[domain.PlayerID]*domain.Player, len(players))
	for _, p := range players {
		if !p.PlayerID.Valid() {
			return nil, fmt.Errorf("invalid player id %d", p.PlayerID)
		}
		byID[p.PlayerID] = p
	}
	return &Recorder{
		store:   store,
		gameID:  gameID,
		players: byID,
		dirty:   make(map[domain.PlayerID]struct{}),
		clock:   time.Now,
	}, nil
}

// Record applies delta to the player's total and buffers a score event
// carrying the resulting total. A zero-delta record (the Tick heartbeat)
// still produces an event.
func (r *Recorder) Record(source domain.EventSource, p domain.PlayerID, delta int64) (domain.ScoreEvent, error) {
	if !source.Valid() {
		return domain.ScoreEvent{}, fmt.Errorf("invalid event source %q", source)
	}
	newScore := int64(0)
	if player, ok := r.players[p]; ok {
		player.Score += delta
		newScore = player.Score
		if delta != 0 {
			r.dirty[p] = struct{}{}
		}
	} else if p != domain.PlayerNone {
		return domain.ScoreEvent{}, fmt.Errorf("unknown player %d", p)
	}

	evt := domain.ScoreEvent{
		GameID:    r.gameID,
		PlayerID:  p,
		Source:    source,
		Delta:     delta,
		NewScore:  newScore,
		CreatedAt: r.clock().UTC(),
	}
	r.pending = append(r.pending, evt)
	return evt, nil
}

// Total returns the player's current cumulative score.
func (r *Recorder) Total(p domain.PlayerID) int64 {
	if player, ok := r.players[p]; ok {
		return player.Score
	}
	return 0
}

// Player returns the tracked player record.
func (r *Recorder) Player(p domain.PlayerID) (*domain.Player, bool) {
	player, ok := r.players[p]
	return player, ok
}

// Players returns every tracked player.
func (r *Recorder) Players() []*domain.Player {
	out := make([]*domain.Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	return out
}

// MarkDirty flags a player for persistence outside of Record (telemetry
// window updates mutate BandwidthUsed directly).
func (r *Recorder) MarkDirty(p domain.PlayerID) {
	if _, ok := r.players[p]; ok {
		r.dirty[p] = struct{}{}
	}
}

// TakeDirtyPlayers returns players mutated since the last call and resets the
// dirty set.
func (r *Recorder) TakeDirtyPlayers() []*domain.Player {
	if len(r.dirty) == 0 {
		return nil
	}
	out := make([]*domain.Player, 0, len(r.dirty))
	for id := range r.dirty {
		out = append(out, r.players[id])
	}
	r.dirty = make(map[domain.PlayerID]struct{})
	return out
}

// Pending returns the number of buffered, unflushed events.
func (r *Recorder) Pending() int {
	return len(r.pending)
}

// Flush appends every buffered event. On failure the buffer is retained and
// the next Flush retries the whole batch.
func (r *Recorder) Flush(ctx context.Context) error {
	if len(r.pending) == 0 {
		return nil
	}
	if _, err := r.store.BatchAppendScoreEvents(ctx, r.pending); err != nil {
		return fmt.Errorf("flush %d score events: %w", len(r.pending), err)
	}
	r.pending = r.pending[:0]
	return nil
}
