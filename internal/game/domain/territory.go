package domain

// Territory is a contested resource: one datagram endpoint whose ownership is
// driven by rate-limited byte delivery from the two players.
//
// Progress counters are independent per player and always sit below Threshold
// at iteration boundaries; NetScore is the signed sum of both players' capture
// contributions and is mirrored into the file at ScorePath whenever it changes.
type Territory struct {
	ID         int64
	GameID     int64
	SocketPath string
	ScorePath  string
	P1Progress int64
	P2Progress int64
	// Threshold is fixed for the territory's lifetime.
	Threshold int64
	NetScore  int64
}

// Progress returns the accumulated progress for the given player.
func (t *Territory) Progress(p PlayerID) int64 {
	if p == PlayerTwo {
		return t.P2Progress
	}
	return t.P1Progress
}

// AddProgress adds n to the given player's progress counter.
func (t *Territory) AddProgress(p PlayerID, n int64) {
	if p == PlayerTwo {
		t.P2Progress += n
		return
	}
	t.P1Progress += n
}
