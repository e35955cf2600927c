// Package app wires the game together: it resumes or creates a game, binds
// the territory endpoints, and runs the single-threaded loop that turns
// datagrams into scores.
package app

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/yargame/yar/internal/game/bandwidth"
	"github.com/yargame/yar/internal/game/capture"
	"github.com/yargame/yar/internal/game/domain"
	"github.com/yargame/yar/internal/game/score"
	"github.com/yargame/yar/internal/game/storage"
)

// LoopConfig tunes one game loop.
type LoopConfig struct {
	// PollInterval bounds how long one iteration waits for traffic.
	PollInterval time.Duration
	// TelemetryInterval is the bandwidth accounting window.
	TelemetryInterval time.Duration
	// Burst is each player's token bucket capacity in bytes.
	Burst int64
	// PenaltyRate is the score deducted per byte over the limit.
	PenaltyRate int64
}

func (c LoopConfig) withDefaults() LoopConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.TelemetryInterval <= 0 {
		c.TelemetryInterval = time.Second
	}
	if c.Burst <= 0 {
		c.Burst = bandwidth.DefaultBurst
	}
	if c.PenaltyRate <= 0 {
		c.PenaltyRate = 1
	}
	return c
}

// Endpoints is the readable side of the territory sockets. Implemented by
// transport.Multiplexer.
type Endpoints interface {
	Len() int
	Wait(timeout time.Duration) ([]int, error)
	Read(i int) ([]byte, error)
}

// Loop is the single-threaded game loop. All game state is owned by the loop
// goroutine; nothing here needs locking.
type Loop struct {
	cfg      LoopConfig
	store    storage.Store
	mux      Endpoints
	ledger   *capture.Ledger
	recorder *score.Recorder
	buckets  map[domain.PlayerID]*bandwidth.Bucket

	// playerOrder fixes the iteration order so journals are reproducible.
	playerOrder []domain.PlayerID

	// territoryIDs maps endpoint index to territory id, aligned with mux.
	territoryIDs []int64

	clock       func() time.Time
	lastRefill  time.Time
	windowStart time.Time
	windowUsage map[domain.PlayerID]int64

	// retry sets hold records whose last save failed.
	retryTerritories map[int64]*domain.Territory
	retryPlayers     map[domain.PlayerID]*domain.Player
}

// NewLoop builds a loop over an already-loaded game. Territories must be
// index-aligned with the multiplexer's endpoints.
func NewLoop(cfg LoopConfig, store storage.Store, mux Endpoints, territories []*domain.Territory, players []*domain.Player) (*Loop, error) {
	cfg = cfg.withDefaults()
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if mux == nil || mux.Len() == 0 {
		return nil, fmt.Errorf("at least one endpoint is required")
	}
	if mux.Len() != len(territories) {
		return nil, fmt.Errorf("%d endpoints for %d territories", mux.Len(), len(territories))
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("players are required")
	}

	gameID := territories[0].GameID
	recorder, err := score.NewRecorder(store, gameID, players)
	if err != nil {
		return nil, err
	}

	buckets := make(map[domain.PlayerID]*bandwidth.Bucket, len(players))
	playerOrder := make([]domain.PlayerID, 0, len(players))
	for _, p := range players {
		bucket, err := bandwidth.NewBucket(float64(cfg.Burst), float64(p.Bandwidth)*1024)
		if err != nil {
			return nil, fmt.Errorf("player %d bucket: %w", p.PlayerID, err)
		}
		buckets[p.PlayerID] = bucket
		playerOrder = append(playerOrder, p.PlayerID)
	}
	sort.Slice(playerOrder, func(i, j int) bool { return playerOrder[i] < playerOrder[j] })

	territoryIDs := make([]int64, len(territories))
	for i, t := range territories {
		territoryIDs[i] = t.ID
	}

	now := time.Now()
	return &Loop{
		cfg:              cfg,
		store:            store,
		mux:              mux,
		ledger:           capture.NewLedger(territories),
		recorder:         recorder,
		buckets:          buckets,
		playerOrder:      playerOrder,
		territoryIDs:     territoryIDs,
		clock:            time.Now,
		lastRefill:       now,
		windowStart:      now,
		windowUsage:      make(map[domain.PlayerID]int64, len(players)),
		retryTerritories: make(map[int64]*domain.Territory),
		retryPlayers:     make(map[domain.PlayerID]*domain.Player),
	}, nil
}

// Run iterates the loop until the context is cancelled, then performs a final
// flush so buffered events and dirty records reach storage.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			l.flush(flushCtx)
			return nil
		default:
		}
		if err := l.step(ctx, l.clock()); err != nil {
			return err
		}
	}
}

// step runs one iteration: refill buckets, roll the telemetry window, wait for
// readable endpoints, score their traffic, persist what changed.
func (l *Loop) step(ctx context.Context, now time.Time) error {
	for _, bucket := range l.buckets {
		bucket.Refill(now.Sub(l.lastRefill))
	}
	l.lastRefill = now

	if now.Sub(l.windowStart) >= l.cfg.TelemetryInterval {
		l.rollWindow()
		l.windowStart = now
	}

	ready, err := l.mux.Wait(l.cfg.PollInterval)
	if err != nil {
		return fmt.Errorf("wait for traffic: %w", err)
	}
	for _, i := range ready {
		if err := l.readEndpoint(i); err != nil {
			return err
		}
	}

	l.flush(ctx)
	return nil
}

// readEndpoint reads one datagram from a readable endpoint and scores it.
// Queued backlog stays on the socket; the next poll reports it immediately.
func (l *Loop) readEndpoint(i int) error {
	data, err := l.mux.Read(i)
	if err != nil {
		return fmt.Errorf("endpoint %d: %w", i, err)
	}
	if len(data) == 0 {
		return nil
	}
	l.scoreDatagram(l.territoryIDs[i], data)
	return nil
}

// scoreDatagram attributes a datagram's bytes to each player, admits them
// through the player's bucket, and converts the outcome into captures and
// penalties.
func (l *Loop) scoreDatagram(territoryID int64, data []byte) {
	for _, id := range l.playerOrder {
		bucket := l.buckets[id]
		n := domain.CountAttributed(data, id)
		if n == 0 {
			continue
		}
		allowed, excess := bucket.Consume(n)
		l.windowUsage[id] += int64(allowed)

		if allowed > 0 {
			captures, err := l.ledger.Apply(territoryID, id, int64(allowed))
			if err != nil {
				log.Printf("territory %d: %v", territoryID, err)
			}
			for c := int64(0); c < captures; c++ {
				if _, err := l.recorder.Record(domain.SourceCapture, id, 1); err != nil {
					log.Printf("record capture: %v", err)
				}
			}
		}
		if excess > 0 {
			delta := -l.cfg.PenaltyRate * int64(excess)
			if _, err := l.recorder.Record(domain.SourceBandwidthExceeded, id, delta); err != nil {
				log.Printf("record penalty: %v", err)
			}
		}
	}
}

// rollWindow closes the current bandwidth accounting window: each player's
// usage becomes their BandwidthUsed and a heartbeat event snapshots the score.
func (l *Loop) rollWindow() {
	for _, id := range l.playerOrder {
		p, ok := l.recorder.Player(id)
		if !ok {
			continue
		}
		p.BandwidthUsed = float64(l.windowUsage[id])
		l.recorder.MarkDirty(id)
		if _, err := l.recorder.Record(domain.SourceTick, id, 0); err != nil {
			log.Printf("record tick: %v", err)
		}
	}
	clear(l.windowUsage)
}

// flush persists dirty territories and players and the buffered events.
// Persistence failures are logged and retried next iteration; the in-memory
// state stays authoritative.
func (l *Loop) flush(ctx context.Context) {
	for _, t := range l.ledger.TakeDirty() {
		l.retryTerritories[t.ID] = t
	}
	for id, t := range l.retryTerritories {
		if err := l.store.SaveTerritory(ctx, *t); err != nil {
			log.Printf("save territory %d: %v", t.ID, err)
			continue
		}
		delete(l.retryTerritories, id)
	}

	for _, p := range l.recorder.TakeDirtyPlayers() {
		l.retryPlayers[p.PlayerID] = p
	}
	for id, p := range l.retryPlayers {
		if err := l.store.SavePlayer(ctx, *p); err != nil {
			log.Printf("save player %d: %v", p.PlayerID, err)
			continue
		}
		delete(l.retryPlayers, id)
	}

	if err := l.recorder.Flush(ctx); err != nil {
		log.Printf("flush score events: %v", err)
	}
}
