package psu

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-owonpsu/logger"
	"github.com/arloliu/go-owonpsu/scpi"
)

// Settle delays applied by composite operations.
const (
	DefaultResetDelay    = 100 * time.Millisecond
	DefaultShutdownDelay = 100 * time.Millisecond
)

// Session is the request/response contract the instrument is built on.
// *scpi.Session implements it.
type Session interface {
	Write(command string) error
	Query(command string) (string, error)
	Identity() string
	IsConnected() bool
	Close()
}

var _ Session = (*scpi.Session)(nil)

// Instrument is a typed facade over a power supply session.
//
// Like the session it wraps, an Instrument is not goroutine-safe.
type Instrument struct {
	sess          Session
	logger        logger.Logger
	resetDelay    time.Duration
	shutdownDelay time.Duration
}

// Option configures an Instrument.
type Option func(*Instrument)

// WithLogger sets the logger used for tolerated failures.
func WithLogger(l logger.Logger) Option {
	return func(ins *Instrument) {
		if l != nil {
			ins.logger = l
		}
	}
}

// WithResetDelay sets the pause after "*RST". Default is 100ms.
func WithResetDelay(d time.Duration) Option {
	return func(ins *Instrument) {
		if d >= 0 {
			ins.resetDelay = d
		}
	}
}

// WithShutdownDelay sets the pause at the end of SafeShutdown. Default is 100ms.
func WithShutdownDelay(d time.Duration) Option {
	return func(ins *Instrument) {
		if d >= 0 {
			ins.shutdownDelay = d
		}
	}
}

// New creates an instrument over sess. The session may be opened before or after.
func New(sess Session, opts ...Option) *Instrument {
	ins := &Instrument{
		sess:          sess,
		logger:        logger.GetLogger(),
		resetDelay:    DefaultResetDelay,
		shutdownDelay: DefaultShutdownDelay,
	}

	for _, opt := range opts {
		opt(ins)
	}

	return ins
}

// Session returns the underlying session.
func (ins *Instrument) Session() Session {
	return ins.sess
}

// IsConnected reports whether the underlying session is open.
func (ins *Instrument) IsConnected() bool {
	return ins.sess.IsConnected()
}

// Close closes the underlying session.
func (ins *Instrument) Close() {
	ins.sess.Close()
}

func (ins *Instrument) writef(format string, args ...any) error {
	return ins.sess.Write(fmt.Sprintf(format, args...))
}

func (ins *Instrument) queryFloat(command string) (float64, error) {
	resp, err := ins.sess.Query(command)
	if err != nil {
		return 0, err
	}

	v, err := ParseFloat(resp)
	if err != nil {
		return 0, &scpi.CommandError{Command: command, Err: err}
	}

	return v, nil
}

func (ins *Instrument) queryBool(command string) (bool, error) {
	resp, err := ins.sess.Query(command)
	if err != nil {
		return false, err
	}

	v, err := ParseBool(resp)
	if err != nil {
		return false, &scpi.CommandError{Command: command, Err: err}
	}

	return v, nil
}

func (ins *Instrument) queryInt(command string) (int, error) {
	resp, err := ins.sess.Query(command)
	if err != nil {
		return 0, err
	}

	v, err := ParseInt(resp)
	if err != nil {
		return 0, &scpi.CommandError{Command: command, Err: err}
	}

	return v, nil
}

// optional runs fetch and downgrades a timeout to an absent value. Any other
// error is returned unchanged.
func optional[T any](ins *Instrument, command string, fetch func() (T, error)) (*T, error) {
	v, err := fetch()
	if err == nil {
		return &v, nil
	}

	if errors.Is(err, scpi.ErrTimeout) {
		ins.logger.Warn("psu: query timed out, command may not be supported by this device", "command", command)
		return nil, nil
	}

	return nil, err
}
