package domain

import "testing"

func TestCountAttributedMatchesPlayerByte(t *testing.T) {
	data := []byte{1, 2, 1, 1, 7, 0, 2}
	if got := CountAttributed(data, PlayerOne); got != 3 {
		t.Fatalf("player one count = %d, want 3", got)
	}
	if got := CountAttributed(data, PlayerTwo); got != 2 {
		t.Fatalf("player two count = %d, want 2", got)
	}
}

func TestCountAttributedIgnoresForeignBytes(t *testing.T) {
	data := []byte{0, 3, 4, 255, '1', '2'}
	if got := CountAttributed(data, PlayerOne); got != 0 {
		t.Fatalf("player one count = %d, want 0", got)
	}
	if got := CountAttributed(data, PlayerTwo); got != 0 {
		t.Fatalf("player two count = %d, want 0", got)
	}
}

func TestCountAttributedInvalidPlayer(t *testing.T) {
	if got := CountAttributed([]byte{0, 0, 0}, PlayerNone); got != 0 {
		t.Fatalf("none count = %d, want 0", got)
	}
}

func TestPlayerOffsetsMirror(t *testing.T) {
	if PlayerOne.Offset() != 1 || PlayerTwo.Offset() != -1 {
		t.Fatalf("offsets = %d, %d; want 1, -1", PlayerOne.Offset(), PlayerTwo.Offset())
	}
}

func TestTerritoryProgressPerPlayer(t *testing.T) {
	terr := &Territory{Threshold: 100}
	terr.AddProgress(PlayerOne, 40)
	terr.AddProgress(PlayerTwo, 7)
	terr.AddProgress(PlayerOne, 2)
	if terr.Progress(PlayerOne) != 42 {
		t.Fatalf("p1 progress = %d, want 42", terr.Progress(PlayerOne))
	}
	if terr.Progress(PlayerTwo) != 7 {
		t.Fatalf("p2 progress = %d, want 7", terr.Progress(PlayerTwo))
	}
}

func TestEventSourceValid(t *testing.T) {
	for _, src := range []EventSource{SourceTick, SourceBandwidthExceeded, SourceCapture} {
		if !src.Valid() {
			t.Fatalf("source %q should be valid", src)
		}
	}
	if EventSource("Other").Valid() {
		t.Fatal("unknown source should not be valid")
	}
}
