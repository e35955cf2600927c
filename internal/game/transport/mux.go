// Package transport owns the game's datagram endpoints: one unix SOCK_DGRAM
// socket per territory, multiplexed through a single bounded poll so the game
// loop has exactly one suspension point.
package transport

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// MaxDatagram is the most bytes one read delivers; longer datagrams are
// truncated by the transport and the remainder is discarded.
const MaxDatagram = 64 * 1024

type endpoint struct {
	fd   int
	path string
}

// Multiplexer binds N unix datagram endpoints and reports which are readable
// within a bounded wait. Reads never block once readiness was reported.
type Multiplexer struct {
	endpoints []endpoint
	pollfds   []unix.PollFd
	buf       []byte
	closed    bool
}

// Bind creates and binds one non-blocking datagram socket per path. A stale
// socket file left by a prior run is removed first; failing to remove it or
// to bind is fatal and every endpoint bound so far is closed before
// returning.
func Bind(paths []string) (*Multiplexer, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one socket path is required")
	}

	m := &Multiplexer{
		endpoints: make([]endpoint, 0, len(paths)),
		buf:       make([]byte, MaxDatagram),
	}
	for _, path := range paths {
		if err := removeStale(path); err != nil {
			_ = m.Close()
			return nil, err
		}
		fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
		if err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("create socket for %s: %w", path, err)
		}
		if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
			_ = unix.Close(fd)
			_ = m.Close()
			return nil, fmt.Errorf("bind %s: %w", path, err)
		}
		m.endpoints = append(m.endpoints, endpoint{fd: fd, path: path})
	}

	m.pollfds = make([]unix.PollFd, len(m.endpoints))
	return m, nil
}

func removeStale(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("remove stale socket %s: %w", path, err)
}

// Len returns the number of bound endpoints.
func (m *Multiplexer) Len() int {
	return len(m.endpoints)
}

// Path returns the socket path of endpoint i.
func (m *Multiplexer) Path(i int) string {
	return m.endpoints[i].path
}

// Wait blocks until at least one endpoint is readable or the timeout elapses,
// returning the indices of the readable subset. An interrupted poll or a
// timeout yields an empty result, not an error.
func (m *Multiplexer) Wait(timeout time.Duration) ([]int, error) {
	if m.closed {
		return nil, fmt.Errorf("multiplexer is closed")
	}
	for i, ep := range m.endpoints {
		m.pollfds[i] = unix.PollFd{Fd: int32(ep.fd), Events: unix.POLLIN}
	}

	n, err := unix.Poll(m.pollfds, int(timeout.Milliseconds()))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, fmt.Errorf("poll endpoints: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	ready := make([]int, 0, n)
	for i := range m.pollfds {
		if m.pollfds[i].Revents&unix.POLLIN != 0 {
			ready = append(ready, i)
		}
	}
	return ready, nil
}

// Read reads one datagram from endpoint i, at most MaxDatagram bytes. The
// returned slice aliases an internal buffer and is valid until the next Read.
// A drained socket (racing readiness) yields a nil slice, not an error.
func (m *Multiplexer) Read(i int) ([]byte, error) {
	if m.closed {
		return nil, fmt.Errorf("multiplexer is closed")
	}
	if i < 0 || i >= len(m.endpoints) {
		return nil, fmt.Errorf("endpoint index %d out of range", i)
	}

	n, _, err := unix.Recvfrom(m.endpoints[i].fd, m.buf, 0)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", m.endpoints[i].path, err)
	}
	return m.buf[:n], nil
}

// Close closes every endpoint and unlinks its socket file. It is safe to call
// more than once; endpoints are closed exactly once.
func (m *Multiplexer) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true

	var firstErr error
	for _, ep := range m.endpoints {
		if err := unix.Close(ep.fd); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", ep.path, err)
		}
		if err := os.Remove(ep.path); err != nil && !errors.Is(err, os.ErrNotExist) && firstErr == nil {
			firstErr = fmt.Errorf("unlink %s: %w", ep.path, err)
		}
	}
	m.endpoints = nil
	return firstErr
}
