package scpi

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/arloliu/go-owonpsu/sim"
	"github.com/arloliu/go-owonpsu/transport"
	"github.com/tarm/serial"
)

// testOpts are session options with short timeouts suitable for tests.
func testOpts(opts ...Option) []Option {
	return append([]Option{
		WithTimeout(150 * time.Millisecond),
		WithSettleDelay(0),
	}, opts...)
}

// startDevice serves dev on a loopback TCP listener and returns its host and port.
func startDevice(t *testing.T, dev *sim.Device) (string, int) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ln, err := dev.Listen(ctx, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("startDevice: %v", err)
	}

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	return host, port
}

// newNetworkTestSession creates an unopened network session against dev.
func newNetworkTestSession(t *testing.T, dev *sim.Device, opts ...Option) *Session {
	t.Helper()

	host, port := startDevice(t, dev)

	s, err := NewNetworkSession(host, port, testOpts(opts...)...)
	if err != nil {
		t.Fatalf("newNetworkTestSession: %v", err)
	}
	t.Cleanup(s.Close)

	return s
}

// pipeOpener returns a PortOpener whose ports are net.Pipe ends served by dev.
func pipeOpener(t *testing.T, dev *sim.Device) transport.PortOpener {
	t.Helper()

	return func(*serial.Config) (transport.Port, error) {
		local, remote := net.Pipe()
		t.Cleanup(func() {
			_ = local.Close()
			_ = remote.Close()
		})

		go func() { _ = dev.Serve(remote) }()

		return local, nil
	}
}

// socketOpener returns a PortOpener whose ports are loopback connections to dev.
// Unlike net.Pipe, a socket buffers writes the way a UART does, so the device
// can answer while the client is still sending.
func socketOpener(t *testing.T, dev *sim.Device) transport.PortOpener {
	t.Helper()

	host, port := startDevice(t, dev)

	return func(*serial.Config) (transport.Port, error) {
		conn, err := net.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			return nil, err
		}
		t.Cleanup(func() { _ = conn.Close() })

		return conn, nil
	}
}

// recordingTransport counts I/O calls without touching any device.
type recordingTransport struct {
	opened  bool
	sends   int
	recvs   int
	closes  int
	metrics transport.Metrics
}

func (r *recordingTransport) Open(context.Context) error { r.opened = true; return nil }
func (r *recordingTransport) Close() error               { r.closes++; return nil }
func (r *recordingTransport) Send([]byte) error          { r.sends++; return nil }
func (r *recordingTransport) Receive(int, time.Duration) ([]byte, error) {
	r.recvs++
	return []byte("OWON,SPE3103,1,1\n"), nil
}
func (r *recordingTransport) Kind() transport.Kind        { return transport.NetworkKind }
func (r *recordingTransport) Metrics() *transport.Metrics { return &r.metrics }
func (r *recordingTransport) String() string              { return "recording" }
