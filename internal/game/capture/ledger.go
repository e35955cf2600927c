// Package capture converts admitted bytes into capture progress and turns
// threshold crossings into ownership points.
package capture

import (
	"fmt"
	"os"
	"strconv"

	"github.com/yargame/yar/internal/game/domain"
)

// Ledger tracks capture progress for every territory in a game. It is owned
// exclusively by the game loop.
type Ledger struct {
	territories map[int64]*domain.Territory
	dirty       map[int64]struct{}
}

// NewLedger builds a ledger over the given territories. The ledger mutates
// the territories in place; callers persist them via TakeDirty.
func NewLedger(territories []*domain.Territory) *Ledger {
	byID := make(map[int64]*domain.Territory, len(territories))
	for _, t := range territories {
		byID[t.ID] = t
	}
	return &Ledger{
		territories: byID,
		dirty:       make(map[int64]struct{}),
	}
}

// Apply credits allowed bytes to the player's progress on one territory and
// drains every full threshold into a capture. A burst that crosses the
// threshold several times yields one capture per crossing, so progress is
// below threshold again when Apply returns.
//
// Each capture moves the territory's net score by the player's offset. When
// the net score changed, the new value is mirrored into the territory's score
// file; a write failure does not undo the captures and is reported alongside
// the count.
func (l *Ledger) Apply(territoryID int64, p domain.PlayerID, allowed int64) (captures int64, err error) {
	t, ok := l.territories[territoryID]
	if !ok {
		return 0, fmt.Errorf("unknown territory %d", territoryID)
	}
	if !p.Valid() {
		return 0, fmt.Errorf("invalid player %d", p)
	}
	// A non-positive threshold would never drain below itself.
	if t.Threshold <= 0 {
		return 0, fmt.Errorf("territory %d has invalid threshold %d", t.ID, t.Threshold)
	}
	if allowed <= 0 {
		return 0, nil
	}

	t.AddProgress(p, allowed)
	l.dirty[t.ID] = struct{}{}

	for t.Progress(p) >= t.Threshold {
		t.AddProgress(p, -t.Threshold)
		captures++
	}
	if captures == 0 {
		return 0, nil
	}

	t.NetScore += captures * p.Offset()
	if writeErr := writeScoreFile(t); writeErr != nil {
		return captures, fmt.Errorf("territory %d score file: %w", t.ID, writeErr)
	}
	return captures, nil
}

// TakeDirty returns the territories mutated since the last call and resets
// the dirty set. The loop persists exactly these each iteration.
func (l *Ledger) TakeDirty() []*domain.Territory {
	if len(l.dirty) == 0 {
		return nil
	}
	touched := make([]*domain.Territory, 0, len(l.dirty))
	for id := range l.dirty {
		touched = append(touched, l.territories[id])
	}
	l.dirty = make(map[int64]struct{})
	return touched
}

// Territory returns the tracked territory with the given id.
func (l *Ledger) Territory(id int64) (*domain.Territory, bool) {
	t, ok := l.territories[id]
	return t, ok
}

func writeScoreFile(t *domain.Territory) error {
	if t.ScorePath == "" {
		return nil
	}
	return os.WriteFile(t.ScorePath, []byte(strconv.FormatInt(t.NetScore, 10)), 0o644)
}
