// Package client generates rate-paced player traffic against a territory's
// datagram endpoint.
package client

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/time/rate"

	"github.com/yargame/yar/internal/game/domain"
)

// DefaultChunkSize is the payload size of one datagram.
const DefaultChunkSize = 1024

// Config shapes one sender.
type Config struct {
	// Player attributes the traffic: every payload byte carries its id.
	Player domain.PlayerID
	// Rate is the target send rate in bytes per second.
	Rate int64
	// ChunkSize is the bytes per datagram.
	ChunkSize int
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	return c
}

func (c Config) validate() error {
	if !c.Player.Valid() {
		return fmt.Errorf("invalid player %d", c.Player)
	}
	if c.Rate <= 0 {
		return fmt.Errorf("rate must be positive, got %d", c.Rate)
	}
	return nil
}

// Sender pushes attributed datagrams at a bounded rate. The pacing is
// client-side only; the server meters independently and penalizes anything
// past its own budget.
type Sender struct {
	conn    *net.UnixConn
	limiter *rate.Limiter
	payload []byte
}

// Dial connects to a territory socket and prepares a paced sender.
func Dial(socketPath string, cfg Config) (*Sender, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	addr := &net.UnixAddr{Name: socketPath, Net: "unixgram"}
	conn, err := net.DialUnix("unixgram", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", socketPath, err)
	}

	payload := make([]byte, cfg.ChunkSize)
	for i := range payload {
		payload[i] = cfg.Player.Byte()
	}

	// Burst of one chunk so a fresh sender fires immediately and then
	// settles onto the configured rate.
	return &Sender{
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.ChunkSize),
		payload: payload,
	}, nil
}

// Send waits for rate budget and pushes one datagram.
func (s *Sender) Send(ctx context.Context) error {
	if err := s.limiter.WaitN(ctx, len(s.payload)); err != nil {
		return err
	}
	if _, err := s.conn.Write(s.payload); err != nil {
		return fmt.Errorf("send datagram: %w", err)
	}
	return nil
}

// Run sends datagrams until the context is cancelled. Cancellation is the
// normal way to stop and is not reported as an error.
func (s *Sender) Run(ctx context.Context) error {
	for {
		if err := s.limiter.WaitN(ctx, len(s.payload)); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// WaitN refuses a wait that cannot finish before the
			// context's deadline while the context is still live;
			// that refusal is the stop signal, so idle out the rest.
			if _, ok := ctx.Deadline(); ok {
				<-ctx.Done()
				return nil
			}
			return err
		}
		if _, err := s.conn.Write(s.payload); err != nil {
			return fmt.Errorf("send datagram: %w", err)
		}
	}
}

// Close releases the connection.
func (s *Sender) Close() error {
	return s.conn.Close()
}
