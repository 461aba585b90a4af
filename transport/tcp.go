package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

// TCP is a transport over a single TCP stream socket.
//
// Each Receive performs exactly one read: the protocol assumes a response fits
// in one read of at most maxBytes, so no reassembly beyond that is done.
type TCP struct {
	host           string
	port           int
	connectTimeout time.Duration

	conn    net.Conn
	metrics Metrics
}

var _ Transport = (*TCP)(nil)

// NewTCP creates a TCP transport for host:port. The dial is bounded by connectTimeout.
func NewTCP(host string, port int, connectTimeout time.Duration) *TCP {
	return &TCP{
		host:           host,
		port:           port,
		connectTimeout: connectTimeout,
	}
}

// Open dials the remote endpoint.
func (t *TCP) Open(ctx context.Context) error {
	if t.conn != nil {
		return nil
	}

	d := net.Dialer{Timeout: t.connectTimeout}

	conn, err := d.DialContext(ctx, "tcp", t.String())
	if err != nil {
		return fmt.Errorf("%w: dial %s: %w", ErrOpen, t, err)
	}

	t.conn = conn
	t.metrics.incOpenCount()

	return nil
}

// Close closes the socket. Close errors are swallowed; the socket is released either way.
func (t *TCP) Close() error {
	if t.conn == nil {
		return nil
	}

	_ = t.conn.Close()
	t.conn = nil

	return nil
}

// Send writes all of data to the socket.
//
// Input that is already pending, such as the late answer to a timed-out query,
// is read and dropped first so it cannot be taken for the answer to data.
func (t *TCP) Send(data []byte) error {
	if t.conn == nil {
		return ErrClosed
	}

	t.drain()

	for written := 0; written < len(data); {
		n, err := t.conn.Write(data[written:])
		written += n

		if err != nil {
			t.metrics.incErrCount()
			return fmt.Errorf("transport: write %s: %w", t, err)
		}
	}

	t.metrics.addSend(len(data))

	return nil
}

// drain reads and drops whatever arrives within DrainWindow. Read errors end the
// drain and are left for the next Receive to report.
func (t *TCP) drain() {
	if err := t.conn.SetReadDeadline(time.Now().Add(DrainWindow)); err != nil {
		return
	}

	buf := make([]byte, 256)
	for {
		n, err := t.conn.Read(buf)
		t.metrics.addDiscard(n)

		if err != nil {
			return
		}
	}
}

// Receive performs a single read of at most maxBytes under a read deadline of timeout.
func (t *TCP) Receive(maxBytes int, timeout time.Duration) ([]byte, error) {
	if t.conn == nil {
		return nil, ErrClosed
	}

	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.metrics.incErrCount()
		return nil, fmt.Errorf("transport: set read deadline: %w", err)
	}

	buf := make([]byte, maxBytes)

	n, err := t.conn.Read(buf)
	if n > 0 {
		t.metrics.addRecv(n)
		return buf[:n], nil
	}

	switch {
	case err == nil:
		return nil, fmt.Errorf("transport: empty read from %s", t)
	case isTimeout(err):
		t.metrics.incTimeoutCount()
		return nil, fmt.Errorf("%w after %v: %w", ErrTimeout, timeout, err)
	case errors.Is(err, io.EOF):
		t.metrics.incErrCount()
		return nil, fmt.Errorf("transport: connection closed by %s: %w", t, err)
	default:
		t.metrics.incErrCount()
		return nil, fmt.Errorf("transport: read %s: %w", t, err)
	}
}

// Kind returns NetworkKind.
func (t *TCP) Kind() Kind { return NetworkKind }

// Metrics returns the I/O counters.
func (t *TCP) Metrics() *Metrics { return &t.metrics }

// String returns "host:port".
func (t *TCP) String() string { return net.JoinHostPort(t.host, strconv.Itoa(t.port)) }
