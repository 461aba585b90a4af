package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Fixed serial framing: 8 data bits, no parity, 1 stop bit.
const (
	SerialDataBits = 8
	SerialParity   = serial.ParityNone
	SerialStopBits = serial.Stop1
)

// Port is an open serial line.
//
// *serial.Port satisfies it. Ports that also implement SetReadDeadline (as
// net.Conn does) get an exact per-receive deadline; others rely on the read
// timeout configured when the port was opened.
type Port interface {
	io.ReadWriteCloser
}

type deadlineSetter interface {
	SetReadDeadline(t time.Time) error
}

// PortOpener opens a serial port with the given configuration.
type PortOpener func(cfg *serial.Config) (Port, error)

// OpenSerialPort opens a hardware serial port.
func OpenSerialPort(cfg *serial.Config) (Port, error) {
	return serial.OpenPort(cfg)
}

// SerialConfig describes a serial line.
type SerialConfig struct {
	// Name is the port name, e.g. "/dev/ttyUSB0" or "COM3".
	Name string
	// BaudRate is the line speed.
	BaudRate int
	// ReadTimeout bounds each read issued to the port driver.
	ReadTimeout time.Duration
	// Opener opens the port; OpenSerialPort is used when nil.
	Opener PortOpener
}

// Serial is a transport over a serial line with fixed 8N1 framing.
//
// Receive reads up to one newline-terminated line.
type Serial struct {
	cfg SerialConfig

	port    Port
	reader  *bufio.Reader
	metrics Metrics
}

var _ Transport = (*Serial)(nil)

// NewSerial creates a serial transport. The port is not opened until Open.
func NewSerial(cfg SerialConfig) *Serial {
	if cfg.Opener == nil {
		cfg.Opener = OpenSerialPort
	}

	return &Serial{cfg: cfg}
}

// Open opens the serial port.
func (s *Serial) Open(_ context.Context) error {
	if s.port != nil {
		return nil
	}

	port, err := s.cfg.Opener(&serial.Config{
		Name:        s.cfg.Name,
		Baud:        s.cfg.BaudRate,
		ReadTimeout: s.cfg.ReadTimeout,
		Size:        SerialDataBits,
		Parity:      SerialParity,
		StopBits:    SerialStopBits,
	})
	if err != nil {
		return fmt.Errorf("%w: serial port %s: %w", ErrOpen, s.cfg.Name, err)
	}

	s.port = port
	s.reader = bufio.NewReader(port)
	s.metrics.incOpenCount()

	return nil
}

// Close closes the port. Close errors are swallowed; the port is released either way.
func (s *Serial) Close() error {
	if s.port == nil {
		return nil
	}

	_ = s.port.Close()
	s.port = nil
	s.reader = nil

	return nil
}

// Send writes data to the port.
//
// Bytes left over from an earlier response are discarded first, so that a late
// answer to a timed-out query cannot be mistaken for the answer to this one.
// Ports without read deadlines only drop what is already buffered.
func (s *Serial) Send(data []byte) error {
	if s.port == nil {
		return ErrClosed
	}

	s.drain()

	for written := 0; written < len(data); {
		n, err := s.port.Write(data[written:])
		written += n

		if err != nil {
			s.metrics.incErrCount()
			return fmt.Errorf("transport: write %s: %w", s.cfg.Name, err)
		}
	}

	s.metrics.addSend(len(data))

	return nil
}

func (s *Serial) drain() {
	n, _ := s.reader.Discard(s.reader.Buffered())
	s.metrics.addDiscard(n)

	ds, ok := s.port.(deadlineSetter)
	if !ok {
		return
	}

	if err := ds.SetReadDeadline(time.Now().Add(DrainWindow)); err != nil {
		return
	}

	for {
		if _, err := s.reader.ReadByte(); err != nil {
			return
		}
		s.metrics.addDiscard(1)
	}
}

// Receive reads bytes until a newline, maxBytes bytes, or the timeout elapses.
// A line that is still incomplete when the timeout elapses is reported as a timeout.
func (s *Serial) Receive(maxBytes int, timeout time.Duration) ([]byte, error) {
	if s.port == nil {
		return nil, ErrClosed
	}

	deadline := time.Now().Add(timeout)
	if ds, ok := s.port.(deadlineSetter); ok {
		if err := ds.SetReadDeadline(deadline); err != nil {
			s.metrics.incErrCount()
			return nil, fmt.Errorf("transport: set read deadline: %w", err)
		}
	}

	line := make([]byte, 0, maxBytes)
	for len(line) < maxBytes {
		b, err := s.reader.ReadByte()
		if err == nil {
			line = append(line, b)
			if b == '\n' {
				break
			}

			continue
		}

		// The port driver reports an expired read timeout as an empty read.
		idle := errors.Is(err, io.EOF) || errors.Is(err, io.ErrNoProgress)
		if !idle && !isTimeout(err) {
			s.metrics.incErrCount()
			return nil, fmt.Errorf("transport: read %s: %w", s.cfg.Name, err)
		}

		if isTimeout(err) || !time.Now().Before(deadline) {
			s.metrics.incTimeoutCount()
			if len(line) > 0 {
				return nil, fmt.Errorf("%w after %v, partial response %q", ErrTimeout, timeout, line)
			}

			return nil, fmt.Errorf("%w after %v", ErrTimeout, timeout)
		}
	}

	s.metrics.addRecv(len(line))

	return line, nil
}

// Kind returns SerialKind.
func (s *Serial) Kind() Kind { return SerialKind }

// Metrics returns the I/O counters.
func (s *Serial) Metrics() *Metrics { return &s.metrics }

// String returns the port name.
func (s *Serial) String() string { return s.cfg.Name }

// Config returns the serial line configuration.
func (s *Serial) Config() SerialConfig { return s.cfg }
