package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yargame/yar/internal/game/domain"
)

// Score journal methods. Events get a per-game sequence number assigned on
// append and are only ever read forward ("events after seq").

// AppendScoreEvent atomically appends one event and returns it with its
// sequence set.
func (s *Store) AppendScoreEvent(ctx context.Context, evt domain.ScoreEvent) (domain.ScoreEvent, error) {
	out, err := s.BatchAppendScoreEvents(ctx, []domain.ScoreEvent{evt})
	if err != nil {
		return domain.ScoreEvent{}, err
	}
	return out[0], nil
}

// BatchAppendScoreEvents appends multiple events in a single transaction.
// All events must belong to the same game; sequence numbers are allocated
// contiguously.
func (s *Store) BatchAppendScoreEvents(ctx context.Context, events []domain.ScoreEvent) ([]domain.ScoreEvent, error) {
	if len(events) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gameID := events[0].GameID
	if gameID <= 0 {
		return nil, fmt.Errorf("event game id is required")
	}
	for i, evt := range events {
		if evt.GameID != gameID {
			return nil, fmt.Errorf("event %d: game id %d does not match batch game %d", i, evt.GameID, gameID)
		}
		if !evt.Source.Valid() {
			return nil, fmt.Errorf("event %d: invalid source %q", i, evt.Source)
		}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO score_event_seq (game_id, next_seq) VALUES (?, 1)", gameID); err != nil {
		return nil, fmt.Errorf("init event seq: %w", err)
	}

	var baseSeq int64
	if err := tx.QueryRowContext(ctx,
		"SELECT next_seq FROM score_event_seq WHERE game_id = ?", gameID).Scan(&baseSeq); err != nil {
		return nil, fmt.Errorf("get event seq: %w", err)
	}

	stored := make([]domain.ScoreEvent, len(events))
	for i, evt := range events {
		if evt.CreatedAt.IsZero() {
			evt.CreatedAt = time.Now().UTC()
		}
		evt.CreatedAt = evt.CreatedAt.UTC().Truncate(time.Millisecond)
		evt.Seq = uint64(baseSeq) + uint64(i)

		if _, err := tx.ExecContext(ctx, `
INSERT INTO score_events (game_id, seq, player_id, source, delta, new_score, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			evt.GameID, int64(evt.Seq), int(evt.PlayerID), string(evt.Source),
			evt.Delta, evt.NewScore, toMillis(evt.CreatedAt)); err != nil {
			return nil, fmt.Errorf("append event %d: %w", i, err)
		}
		stored[i] = evt
	}

	nextSeq := baseSeq + int64(len(events))
	if _, err := tx.ExecContext(ctx,
		"UPDATE score_event_seq SET next_seq = ? WHERE game_id = ?", nextSeq, gameID); err != nil {
		return nil, fmt.Errorf("update event seq: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return stored, nil
}

// ListScoreEvents returns events with seq > afterSeq ordered by sequence
// ascending.
func (s *Store) ListScoreEvents(ctx context.Context, gameID int64, afterSeq uint64, limit int) ([]domain.ScoreEvent, error) {
	if gameID <= 0 {
		return nil, fmt.Errorf("game id is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT seq, player_id, source, delta, new_score, created_at
FROM score_events WHERE game_id = ? AND seq > ? ORDER BY seq ASC LIMIT ?`,
		gameID, int64(afterSeq), limit)
	if err != nil {
		return nil, fmt.Errorf("list score events: %w", err)
	}
	defer rows.Close()

	var events []domain.ScoreEvent
	for rows.Next() {
		var evt domain.ScoreEvent
		var seq int64
		var playerID int
		var source string
		var createdAt int64
		if err := rows.Scan(&seq, &playerID, &source, &evt.Delta, &evt.NewScore, &createdAt); err != nil {
			return nil, fmt.Errorf("scan score event: %w", err)
		}
		evt.Seq = uint64(seq)
		evt.GameID = gameID
		evt.PlayerID = domain.PlayerID(playerID)
		evt.Source = domain.EventSource(source)
		evt.CreatedAt = fromMillis(createdAt)
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score events: %w", err)
	}
	return events, nil
}

// LatestScoreEventSeq returns the highest sequence number appended for a game,
// or zero when the journal is empty.
func (s *Store) LatestScoreEventSeq(ctx context.Context, gameID int64) (uint64, error) {
	var seq sql.NullInt64
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT MAX(seq) FROM score_events WHERE game_id = ?", gameID).Scan(&seq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("latest score event seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return uint64(seq.Int64), nil
}
