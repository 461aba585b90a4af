package scpi

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-owonpsu/logger"
	"github.com/arloliu/go-owonpsu/transport"
)

// Default communication settings.
const (
	DefaultBaudRate       = 115200
	DefaultNetworkPort    = 3000
	DefaultTimeout        = 1 * time.Second
	DefaultConnectTimeout = 3 * time.Second
	DefaultSettleDelay    = 10 * time.Millisecond // command-processing latency after each write
	DefaultReadBufferSize = 1024
)

// Limits enforced by the options.
const (
	MinReadBufferSize = 64
	MaxReadBufferSize = 64 * 1024
	MaxSettleDelay    = 5 * time.Second
)

// LineTerminator terminates every command and query.
const LineTerminator = "\n"

// Config holds the settings of a Session. It is built from functional options
// and is immutable once the session is constructed.
type Config struct {
	timeout        time.Duration
	connectTimeout time.Duration
	settleDelay    time.Duration
	readBufferSize int
	baudRate       int
	portOpener     transport.PortOpener

	logger logger.Logger
}

func newConfig(opts []Option) (*Config, error) {
	cfg := &Config{
		timeout:        DefaultTimeout,
		connectTimeout: DefaultConnectTimeout,
		settleDelay:    DefaultSettleDelay,
		readBufferSize: DefaultReadBufferSize,
		baudRate:       DefaultBaudRate,
		logger:         logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Timeout returns the per-read timeout.
func (cfg *Config) Timeout() time.Duration { return cfg.timeout }

// ConnectTimeout returns the TCP dial timeout.
func (cfg *Config) ConnectTimeout() time.Duration { return cfg.connectTimeout }

// SettleDelay returns the pause applied after every write.
func (cfg *Config) SettleDelay() time.Duration { return cfg.settleDelay }

// ReadBufferSize returns the maximum number of bytes accepted for one response.
func (cfg *Config) ReadBufferSize() int { return cfg.readBufferSize }

// BaudRate returns the serial line speed.
func (cfg *Config) BaudRate() int { return cfg.baudRate }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// Option is a functional option for configuring a Session.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithTimeout sets the read timeout applied to every query. Default is 1s.
func WithTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("scpi: timeout must be positive")
		}
		cfg.timeout = d

		return nil
	})
}

// WithConnectTimeout sets the TCP dial timeout of network sessions.
func WithConnectTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("scpi: connect timeout must be positive")
		}
		cfg.connectTimeout = d

		return nil
	})
}

// WithSettleDelay sets the pause after each write that lets the firmware apply
// the command. Zero disables it.
func WithSettleDelay(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < 0 || d > MaxSettleDelay {
			return fmt.Errorf("scpi: settle delay %v out of range [0, %v]", d, MaxSettleDelay)
		}
		cfg.settleDelay = d

		return nil
	})
}

// WithReadBufferSize sets the maximum size of one response.
func WithReadBufferSize(size int) Option {
	return optFunc(func(cfg *Config) error {
		if size < MinReadBufferSize || size > MaxReadBufferSize {
			return fmt.Errorf("scpi: read buffer size %d out of range [%d, %d]", size, MinReadBufferSize, MaxReadBufferSize)
		}
		cfg.readBufferSize = size

		return nil
	})
}

// WithBaudRate sets the serial line speed. Default is 115200.
func WithBaudRate(baud int) Option {
	return optFunc(func(cfg *Config) error {
		if baud <= 0 {
			return fmt.Errorf("scpi: invalid baud rate %d", baud)
		}
		cfg.baudRate = baud

		return nil
	})
}

// WithPortOpener replaces the function that opens serial ports.
func WithPortOpener(opener transport.PortOpener) Option {
	return optFunc(func(cfg *Config) error {
		if opener == nil {
			return errors.New("scpi: port opener must not be nil")
		}
		cfg.portOpener = opener

		return nil
	})
}

// WithLogger sets the logger of the session.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("scpi: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
