package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yargame/yar/internal/game/domain"
	"github.com/yargame/yar/internal/game/storage/sqlite"
)

// fakeEndpoints feeds canned datagrams to the loop without real sockets.
type fakeEndpoints struct {
	queues [][][]byte
}

func (f *fakeEndpoints) Len() int { return len(f.queues) }

func (f *fakeEndpoints) Wait(time.Duration) ([]int, error) {
	var ready []int
	for i, q := range f.queues {
		if len(q) > 0 {
			ready = append(ready, i)
		}
	}
	return ready, nil
}

func (f *fakeEndpoints) Read(i int) ([]byte, error) {
	if len(f.queues[i]) == 0 {
		return nil, nil
	}
	data := f.queues[i][0]
	f.queues[i] = f.queues[i][1:]
	return data, nil
}

func (f *fakeEndpoints) push(i int, data []byte) {
	f.queues[i] = append(f.queues[i], data)
}

type testGame struct {
	store     *sqlite.Store
	loop      *Loop
	mux       *fakeEndpoints
	territory domain.Territory
	now       time.Time
}

func newTestGame(t *testing.T, cfg LoopConfig) *testGame {
	t.Helper()
	dir := t.TempDir()

	store, err := sqlite.Open(filepath.Join(dir, "yar.sqlite3"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	game, err := store.CreateGame(ctx)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	territory, err := store.CreateTerritory(ctx, domain.Territory{
		GameID:     game.ID,
		SocketPath: filepath.Join(dir, "yar-001"),
		ScorePath:  filepath.Join(dir, "territory-test"),
		Threshold:  5,
	})
	if err != nil {
		t.Fatalf("create territory: %v", err)
	}

	var players []*domain.Player
	for _, id := range []domain.PlayerID{domain.PlayerOne, domain.PlayerTwo} {
		p, err := store.CreatePlayer(ctx, domain.Player{GameID: game.ID, PlayerID: id, Bandwidth: 10})
		if err != nil {
			t.Fatalf("create player %d: %v", id, err)
		}
		players = append(players, &p)
	}

	mux := &fakeEndpoints{queues: make([][][]byte, 1)}
	loop, err := NewLoop(cfg, store, mux, []*domain.Territory{&territory}, players)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}

	now := time.Now()
	loop.clock = func() time.Time { return now }
	loop.lastRefill = now
	loop.windowStart = now

	return &testGame{store: store, loop: loop, mux: mux, territory: territory, now: now}
}

func fill(value byte, n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = value
	}
	return data
}

func TestStepScoresDatagram(t *testing.T) {
	// Burst 10, threshold 5: a 12-byte datagram admits 10 bytes (two
	// captures) and penalizes the 2-byte excess.
	tg := newTestGame(t, LoopConfig{Burst: 10, PenaltyRate: 1})
	ctx := context.Background()

	tg.mux.push(0, fill(domain.PlayerOne.Byte(), 12))
	if err := tg.loop.step(ctx, tg.now); err != nil {
		t.Fatalf("step: %v", err)
	}

	if got := tg.loop.recorder.Total(domain.PlayerOne); got != 0 {
		t.Fatalf("player 1 total = %d, want 0 (+2 captures, -2 penalty)", got)
	}

	events, err := tg.store.ListScoreEvents(ctx, tg.territory.GameID, 0, 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d, want 2 captures + 1 penalty", len(events))
	}
	if events[0].Source != domain.SourceCapture || events[0].Delta != 1 {
		t.Fatalf("event 1 = %+v, want capture delta 1", events[0])
	}
	if events[2].Source != domain.SourceBandwidthExceeded || events[2].Delta != -2 {
		t.Fatalf("event 3 = %+v, want penalty delta -2", events[2])
	}

	territories, err := tg.store.ListTerritories(ctx, tg.territory.GameID)
	if err != nil {
		t.Fatalf("list territories: %v", err)
	}
	if territories[0].NetScore != 2 || territories[0].P1Progress != 0 {
		t.Fatalf("territory = %+v, want net 2 progress 0", territories[0])
	}

	raw, err := os.ReadFile(tg.territory.ScorePath)
	if err != nil {
		t.Fatalf("read score file: %v", err)
	}
	if string(raw) != "2" {
		t.Fatalf("score file = %q, want \"2\"", raw)
	}
}

func TestStepScoresBothPlayers(t *testing.T) {
	tg := newTestGame(t, LoopConfig{Burst: 1024})
	ctx := context.Background()

	// 6 bytes for player one, 5 for player two, one byte for nobody.
	data := append(fill(1, 6), fill(2, 5)...)
	data = append(data, 0xff)
	tg.mux.push(0, data)

	if err := tg.loop.step(ctx, tg.now); err != nil {
		t.Fatalf("step: %v", err)
	}

	if got := tg.loop.recorder.Total(domain.PlayerOne); got != 1 {
		t.Fatalf("player 1 total = %d, want 1", got)
	}
	if got := tg.loop.recorder.Total(domain.PlayerTwo); got != 1 {
		t.Fatalf("player 2 total = %d, want 1", got)
	}

	terr, ok := tg.loop.ledger.Territory(tg.territory.ID)
	if !ok {
		t.Fatal("territory missing from ledger")
	}
	if terr.NetScore != 0 {
		t.Fatalf("net score = %d, want 0 (one capture each)", terr.NetScore)
	}
	if terr.P1Progress != 1 || terr.P2Progress != 0 {
		t.Fatalf("progress = %d/%d, want 1/0", terr.P1Progress, terr.P2Progress)
	}
}

func TestRefillIsClampedToBurst(t *testing.T) {
	tg := newTestGame(t, LoopConfig{Burst: 10})
	ctx := context.Background()

	// Drain the bucket, then idle for a long time: available bytes must not
	// exceed the burst capacity.
	tg.mux.push(0, fill(1, 10))
	if err := tg.loop.step(ctx, tg.now); err != nil {
		t.Fatalf("step: %v", err)
	}

	tg.mux.push(0, fill(1, 25))
	if err := tg.loop.step(ctx, tg.now.Add(time.Hour)); err != nil {
		t.Fatalf("step: %v", err)
	}

	// 2 captures from the first step, 2 more from the refilled 10 bytes,
	// and a -15 penalty for the rest.
	if got := tg.loop.recorder.Total(domain.PlayerOne); got != -11 {
		t.Fatalf("player 1 total = %d, want -11", got)
	}
}

func TestWindowRollRecordsTicks(t *testing.T) {
	tg := newTestGame(t, LoopConfig{Burst: 1024, TelemetryInterval: time.Second})
	ctx := context.Background()

	tg.mux.push(0, fill(1, 7))
	if err := tg.loop.step(ctx, tg.now); err != nil {
		t.Fatalf("step: %v", err)
	}
	if err := tg.loop.step(ctx, tg.now.Add(time.Second)); err != nil {
		t.Fatalf("step: %v", err)
	}

	players, err := tg.store.ListPlayers(ctx, tg.territory.GameID)
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	if players[0].BandwidthUsed != 7 {
		t.Fatalf("player 1 bandwidth used = %v, want 7", players[0].BandwidthUsed)
	}
	if players[1].BandwidthUsed != 0 {
		t.Fatalf("player 2 bandwidth used = %v, want 0", players[1].BandwidthUsed)
	}

	events, err := tg.store.ListScoreEvents(ctx, tg.territory.GameID, 0, 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	ticks := 0
	for _, evt := range events {
		if evt.Source == domain.SourceTick {
			ticks++
			if evt.Delta != 0 {
				t.Fatalf("tick event delta = %d, want 0", evt.Delta)
			}
		}
	}
	if ticks != 2 {
		t.Fatalf("tick events = %d, want one per player", ticks)
	}
}

func TestScoreEventOrderIsStable(t *testing.T) {
	// Both players cross the threshold in one datagram and both get a tick
	// on the next window roll; player one's events always journal first.
	tg := newTestGame(t, LoopConfig{Burst: 1024, TelemetryInterval: time.Second})
	ctx := context.Background()

	tg.mux.push(0, append(fill(2, 5), fill(1, 5)...))
	if err := tg.loop.step(ctx, tg.now); err != nil {
		t.Fatalf("step: %v", err)
	}
	if err := tg.loop.step(ctx, tg.now.Add(time.Second)); err != nil {
		t.Fatalf("step: %v", err)
	}

	events, err := tg.store.ListScoreEvents(ctx, tg.territory.GameID, 0, 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	want := []struct {
		source domain.EventSource
		player domain.PlayerID
	}{
		{domain.SourceCapture, domain.PlayerOne},
		{domain.SourceCapture, domain.PlayerTwo},
		{domain.SourceTick, domain.PlayerOne},
		{domain.SourceTick, domain.PlayerTwo},
	}
	if len(events) != len(want) {
		t.Fatalf("events = %d, want %d", len(events), len(want))
	}
	for i, w := range want {
		if events[i].Source != w.source || events[i].PlayerID != w.player {
			t.Fatalf("event %d = %s/player %d, want %s/player %d",
				i, events[i].Source, events[i].PlayerID, w.source, w.player)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	tg := newTestGame(t, LoopConfig{PollInterval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tg.loop.Run(ctx); err != nil {
		t.Fatalf("run after cancel = %v, want nil", err)
	}
}
