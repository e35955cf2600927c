package score

import (
	"context"
	"errors"
	"testing"

	"github.com/yargame/yar/internal/game/domain"
)

type appendFailStore struct {
	appended []domain.ScoreEvent
	fail     bool
}

func (s *appendFailStore) AppendScoreEvent(ctx context.Context, evt domain.ScoreEvent) (domain.ScoreEvent, error) {
	out, err := s.BatchAppendScoreEvents(ctx, []domain.ScoreEvent{evt})
	if err != nil {
		return domain.ScoreEvent{}, err
	}
	return out[0], nil
}

func (s *appendFailStore) BatchAppendScoreEvents(_ context.Context, events []domain.ScoreEvent) ([]domain.ScoreEvent, error) {
	if s.fail {
		return nil, errors.New("store down")
	}
	s.appended = append(s.appended, events...)
	return events, nil
}

func (s *appendFailStore) ListScoreEvents(context.Context, int64, uint64, int) ([]domain.ScoreEvent, error) {
	return nil, nil
}

func (s *appendFailStore) LatestScoreEventSeq(context.Context, int64) (uint64, error) {
	return 0, nil
}

func newTestRecorder(t *testing.T, store *appendFailStore) (*Recorder, *domain.Player, *domain.Player) {
	t.Helper()
	p1 := &domain.Player{GameID: 1, PlayerID: domain.PlayerOne}
	p2 := &domain.Player{GameID: 1, PlayerID: domain.PlayerTwo}
	r, err := NewRecorder(store, 1, []*domain.Player{p1, p2})
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	return r, p1, p2
}

func TestRecordMutatesTotalAndBuffers(t *testing.T) {
	store := &appendFailStore{}
	r, p1, _ := newTestRecorder(t, store)

	evt, err := r.Record(domain.SourceCapture, domain.PlayerOne, 1)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if evt.NewScore != 1 || evt.Delta != 1 {
		t.Fatalf("event = %+v, want delta 1 new score 1", evt)
	}
	if p1.Score != 1 {
		t.Fatalf("player score = %d, want 1", p1.Score)
	}
	if r.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", r.Pending())
	}
}

func TestPenaltiesCanGoNegative(t *testing.T) {
	store := &appendFailStore{}
	r, _, p2 := newTestRecorder(t, store)

	if _, err := r.Record(domain.SourceBandwidthExceeded, domain.PlayerTwo, -3); err != nil {
		t.Fatalf("record: %v", err)
	}
	if p2.Score != -3 {
		t.Fatalf("player score = %d, want -3", p2.Score)
	}
}

func TestFlushRetainsBufferOnFailure(t *testing.T) {
	store := &appendFailStore{fail: true}
	r, _, _ := newTestRecorder(t, store)

	if _, err := r.Record(domain.SourceCapture, domain.PlayerOne, 1); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := r.Flush(context.Background()); err == nil {
		t.Fatal("expected flush error")
	}
	if r.Pending() != 1 {
		t.Fatalf("pending after failed flush = %d, want 1", r.Pending())
	}
	if r.Total(domain.PlayerOne) != 1 {
		t.Fatal("in-memory total must stay authoritative after a failed flush")
	}

	store.fail = false
	if err := r.Flush(context.Background()); err != nil {
		t.Fatalf("retry flush: %v", err)
	}
	if r.Pending() != 0 {
		t.Fatalf("pending after retry = %d, want 0", r.Pending())
	}
	if len(store.appended) != 1 {
		t.Fatalf("appended = %d events, want 1", len(store.appended))
	}
}

func TestTakeDirtyPlayersSkipsZeroDelta(t *testing.T) {
	store := &appendFailStore{}
	r, _, _ := newTestRecorder(t, store)

	if _, err := r.Record(domain.SourceTick, domain.PlayerOne, 0); err != nil {
		t.Fatalf("record tick: %v", err)
	}
	if dirty := r.TakeDirtyPlayers(); dirty != nil {
		t.Fatalf("zero-delta record should not dirty players, got %v", dirty)
	}

	if _, err := r.Record(domain.SourceCapture, domain.PlayerTwo, 1); err != nil {
		t.Fatalf("record capture: %v", err)
	}
	dirty := r.TakeDirtyPlayers()
	if len(dirty) != 1 || dirty[0].PlayerID != domain.PlayerTwo {
		t.Fatalf("dirty = %v, want player two only", dirty)
	}
}

func TestRecordRejectsUnknownPlayerAndSource(t *testing.T) {
	store := &appendFailStore{}
	r, _, _ := newTestRecorder(t, store)

	if _, err := r.Record(domain.SourceCapture, domain.PlayerID(9), 1); err == nil {
		t.Fatal("expected error for unknown player")
	}
	if _, err := r.Record(domain.EventSource("Other"), domain.PlayerOne, 1); err == nil {
		t.Fatal("expected error for unknown source")
	}
}
