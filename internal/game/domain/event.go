package domain

import "time"

// EventSource says why a score event was recorded.
type EventSource string

const (
	// SourceTick marks the periodic telemetry heartbeat (delta is zero).
	SourceTick EventSource = "Tick"
	// SourceBandwidthExceeded marks a penalty for bytes over the allotted rate.
	SourceBandwidthExceeded EventSource = "BandwidthExceeded"
	// SourceCapture marks progress crossing a territory's threshold.
	SourceCapture EventSource = "Capture"
)

// Valid reports whether the source is one of the closed set.
func (s EventSource) Valid() bool {
	switch s {
	case SourceTick, SourceBandwidthExceeded, SourceCapture:
		return true
	}
	return false
}

// ScoreEvent is one immutable entry in a game's score journal. Seq is the
// per-game sequence assigned on append; observers page forward with
// "events after seq".
type ScoreEvent struct {
	Seq       uint64
	GameID    int64
	PlayerID  PlayerID
	Source    EventSource
	Delta     int64
	NewScore  int64
	CreatedAt time.Time
}
