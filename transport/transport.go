package transport

import (
	"context"
	"errors"
	"net"
	"os"
	"time"
)

// Kind identifies the physical link of a transport.
type Kind uint8

const (
	// SerialKind is an RS-232 style serial line.
	SerialKind Kind = iota
	// NetworkKind is a raw TCP stream socket.
	NetworkKind
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case SerialKind:
		return "serial"
	case NetworkKind:
		return "network"
	default:
		return "unknown"
	}
}

// DrainWindow is how long Send waits for stray input before writing. Bytes
// arriving in that window belong to no pending request and are dropped.
const DrainWindow = 2 * time.Millisecond

var (
	// ErrOpen indicates that the link could not be opened.
	ErrOpen = errors.New("transport: open failed")

	// ErrTimeout indicates that no data arrived before the receive timeout elapsed.
	ErrTimeout = errors.New("transport: receive timeout")

	// ErrClosed indicates an I/O attempt on a transport that is not open.
	ErrClosed = errors.New("transport: not open")
)

// Transport is a byte-stream endpoint to a device.
//
// Implementations are not goroutine-safe; a transport is owned by exactly one
// session, which issues at most one send/receive pair at a time.
type Transport interface {
	// Open opens the link. Errors wrap ErrOpen.
	Open(ctx context.Context) error
	// Close releases the link. It is idempotent and safe to call on a
	// transport that was never opened.
	Close() error
	// Send discards pending input, then writes data to the link.
	Send(data []byte) error
	// Receive returns at most maxBytes bytes of one response, waiting at most
	// timeout. It returns an error matching ErrTimeout if nothing arrived in time.
	Receive(maxBytes int, timeout time.Duration) ([]byte, error)
	// Kind returns the link kind.
	Kind() Kind
	// Metrics returns the I/O counters of the transport.
	Metrics() *Metrics
	// String describes the endpoint, e.g. "/dev/ttyUSB0" or "192.168.1.10:3000".
	String() string
}

// isTimeout reports whether err is a deadline expiry reported by the runtime.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}
