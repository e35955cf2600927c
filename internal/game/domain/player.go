// Package domain holds the core entities of a yar game: the two competing
// players, the contested territories they write into, and the score events
// the server journals.
package domain

import "time"

// PlayerID identifies one of the two competing sides. The numeric value is
// also the wire convention: a datagram byte attributes to the player whose id
// equals the byte's value.
type PlayerID int

const (
	// PlayerNone marks events not owned by a player.
	PlayerNone PlayerID = 0
	PlayerOne  PlayerID = 1
	PlayerTwo  PlayerID = 2
)

// Valid reports whether the id names one of the two players.
func (p PlayerID) Valid() bool {
	return p == PlayerOne || p == PlayerTwo
}

// Byte returns the datagram byte value that attributes to this player.
func (p PlayerID) Byte() byte {
	return byte(p)
}

// Offset is the direction a capture by this player moves a territory's net
// score: player one pushes it up, player two pulls it down.
func (p PlayerID) Offset() int64 {
	if p == PlayerTwo {
		return -1
	}
	return 1
}

// Player is one side of a game. Score is mutated only by the game loop.
type Player struct {
	ID       int64
	GameID   int64
	PlayerID PlayerID
	// Bandwidth is the configured rate in KiB per second.
	Bandwidth int64
	Score     int64
	// BandwidthUsed is the bytes admitted during the last telemetry window.
	BandwidthUsed float64
	CreatedAt     time.Time
}

// Game groups players, territories, and the score journal.
type Game struct {
	ID        int64
	CreatedAt time.Time
}
