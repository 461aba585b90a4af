package scpi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/arloliu/go-owonpsu/logger"
	"github.com/arloliu/go-owonpsu/transport"
)

// ErrorSentinel is the response a device sends when it could not execute a query.
const ErrorSentinel = "ERR"

// Session is a command/response session with one power supply.
//
// A session starts disconnected. Open allocates and opens the transport and
// verifies the device identity; Close releases the transport. The transport
// kind is fixed at construction.
//
// Session is not goroutine-safe.
type Session struct {
	cfg          *Config
	kind         transport.Kind
	endpoint     string
	newTransport func() transport.Transport
	logger       logger.Logger

	tr        transport.Transport
	connected bool
	identity  string
	// stale is set when a query timed out and its answer may still arrive.
	stale bool
}

// NewSerialSession creates a session for the serial port portName (e.g. "/dev/ttyUSB0" or "COM3").
func NewSerialSession(portName string, opts ...Option) (*Session, error) {
	if portName == "" {
		return nil, errors.New("scpi: serial port name is empty")
	}

	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	newTransport := func() transport.Transport {
		return transport.NewSerial(transport.SerialConfig{
			Name:        portName,
			BaudRate:    cfg.baudRate,
			ReadTimeout: cfg.timeout,
			Opener:      cfg.portOpener,
		})
	}

	return newSession(cfg, transport.SerialKind, portName, newTransport), nil
}

// NewNetworkSession creates a session for a device listening on host:port.
func NewNetworkSession(host string, port int, opts ...Option) (*Session, error) {
	if host == "" {
		return nil, errors.New("scpi: host is empty")
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("scpi: port %d out of range [1, 65535]", port)
	}

	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	newTransport := func() transport.Transport {
		return transport.NewTCP(host, port, cfg.connectTimeout)
	}

	return newSession(cfg, transport.NetworkKind, net.JoinHostPort(host, strconv.Itoa(port)), newTransport), nil
}

// NewSession creates a session over a caller-supplied transport.
func NewSession(tr transport.Transport, opts ...Option) (*Session, error) {
	if tr == nil {
		return nil, errors.New("scpi: transport is nil")
	}

	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	return newSession(cfg, tr.Kind(), tr.String(), func() transport.Transport { return tr }), nil
}

func newSession(cfg *Config, kind transport.Kind, endpoint string, newTransport func() transport.Transport) *Session {
	return &Session{
		cfg:          cfg,
		kind:         kind,
		endpoint:     endpoint,
		newTransport: newTransport,
		logger:       cfg.logger.With("transport", kind.String(), "endpoint", endpoint),
	}
}

// Open opens the transport and verifies the device identity.
//
// It fails with ErrConnection if the transport cannot be opened and with
// ErrUnsupportedDevice if verification fails. On failure the transport is
// closed and the session stays disconnected. Opening a connected session is a no-op.
func (s *Session) Open(ctx context.Context) error {
	if s.connected {
		return nil
	}

	tr := s.newTransport()
	if err := tr.Open(ctx); err != nil {
		_ = tr.Close()
		s.logger.Error("scpi: failed to open transport", "error", err)

		return fmt.Errorf("%w: %s %s: %w", ErrConnection, s.kind, s.endpoint, err)
	}

	s.tr = tr
	s.connected = true

	if err := s.verifyIdentity(); err != nil {
		s.Close()
		return err
	}

	s.logger.Info("scpi: connected", "identity", s.identity)

	return nil
}

// verifyIdentity issues the identity query once and checks it against SupportedDevices.
func (s *Session) verifyIdentity() error {
	identity, err := s.Query(IdentityQuery)
	if err != nil {
		s.logger.Error("scpi: identity query failed", "error", err)
		return &UnsupportedDeviceError{Err: err}
	}

	if !IsSupportedIdentity(identity) {
		s.logger.Error("scpi: unsupported device", "identity", identity)
		return &UnsupportedDeviceError{Identity: identity}
	}

	s.identity = identity

	return nil
}

// Close releases the transport and clears the cached identity.
// It is idempotent and never fails.
func (s *Session) Close() {
	if s.tr != nil {
		if err := s.tr.Close(); err != nil {
			s.logger.Warn("scpi: error closing transport", "error", err)
		}
	}

	if s.connected {
		s.logger.Info("scpi: connection closed")
	}

	s.tr = nil
	s.connected = false
	s.identity = ""
	s.stale = false
}

// Write sends command followed by the line terminator, then waits for the settle delay.
func (s *Session) Write(command string) error {
	if err := s.send(command); err != nil {
		return err
	}

	s.settle()

	return nil
}

// Query writes command and returns the trimmed first line of a single read.
//
// A response equal to ErrorSentinel fails with ErrDevice. A read that does not
// complete within the session timeout fails with ErrTimeout. Answers to earlier
// timed-out queries that arrive late are discarded before command is sent.
func (s *Session) Query(command string) (string, error) {
	if s.stale && s.connected {
		s.discardLateReplies()
	}

	if err := s.Write(command); err != nil {
		return "", err
	}

	data, err := s.tr.Receive(s.cfg.readBufferSize, s.cfg.timeout)
	if err != nil {
		if errors.Is(err, transport.ErrTimeout) {
			s.stale = true
			s.logger.Debug("scpi: query timed out", "command", command, "timeout", s.cfg.timeout)

			return "", &CommandError{Command: command, Err: fmt.Errorf("%w: %w", ErrTimeout, err)}
		}

		return "", &CommandError{Command: command, Err: fmt.Errorf("%w: %w", ErrCommunication, err)}
	}

	line, _, _ := strings.Cut(strings.ToValidUTF8(string(data), ""), "\n")
	response := strings.TrimSpace(line)
	s.logger.Debug("scpi: response", "command", command, "response", response)

	if response == ErrorSentinel {
		return "", &CommandError{Command: command, Err: ErrDevice}
	}

	return response, nil
}

// discardLateReplies resynchronizes the response stream after a timeout.
//
// The identity query is sent as a marker and every line up to the marker's
// answer is dropped. Before Open has verified the identity there is no marker,
// so only the transport drain applies.
func (s *Session) discardLateReplies() {
	s.stale = false
	if s.identity == "" {
		return
	}

	if err := s.send(IdentityQuery); err != nil {
		s.logger.Warn("scpi: resynchronization failed", "error", err)
		return
	}

	deadline := time.Now().Add(s.cfg.timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			s.stale = true
			s.logger.Warn("scpi: resynchronization timed out")

			return
		}

		data, err := s.tr.Receive(s.cfg.readBufferSize, remaining)
		if err != nil {
			// the marker answer itself may still be on its way
			s.stale = errors.Is(err, transport.ErrTimeout)
			s.logger.Warn("scpi: resynchronization failed", "error", err)

			return
		}

		for _, line := range strings.Split(strings.ToValidUTF8(string(data), ""), "\n") {
			line = strings.TrimSpace(line)
			if line == s.identity {
				return
			}

			if line != "" {
				s.logger.Debug("scpi: discarded late response", "response", line)
			}
		}
	}
}

func (s *Session) send(command string) error {
	if !s.connected {
		return &CommandError{Command: command, Err: ErrNotConnected}
	}

	s.logger.Debug("scpi: send", "command", command)

	if err := s.tr.Send([]byte(command + LineTerminator)); err != nil {
		return &CommandError{Command: command, Err: fmt.Errorf("%w: %w", ErrCommunication, err)}
	}

	return nil
}

func (s *Session) settle() {
	if s.cfg.settleDelay > 0 {
		time.Sleep(s.cfg.settleDelay)
	}
}

// Kind returns the transport kind, fixed at construction.
func (s *Session) Kind() transport.Kind { return s.kind }

// Identity returns the identity verified by Open, or "" when disconnected.
func (s *Session) Identity() string { return s.identity }

// IsConnected reports whether the session is open.
func (s *Session) IsConnected() bool { return s.connected && s.tr != nil }

// Config returns the session configuration.
func (s *Session) Config() *Config { return s.cfg }

// Metrics returns the counters of the open transport, or nil when disconnected.
func (s *Session) Metrics() *transport.Metrics {
	if s.tr == nil {
		return nil
	}

	return s.tr.Metrics()
}

// String describes the session endpoint, e.g. "network 192.168.1.10:3000".
func (s *Session) String() string {
	return s.kind.String() + " " + s.endpoint
}
