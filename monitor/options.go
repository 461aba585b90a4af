package monitor

import (
	"time"

	"github.com/arloliu/go-owonpsu/logger"
	"github.com/arloliu/go-owonpsu/psu"
)

// MeasurementHandler receives polled measurement snapshots. It runs on a
// dispatcher goroutine, never on the goroutine that owns the instrument.
type MeasurementHandler func(snap *psu.MeasurementSnapshot)

// ErrorHandler receives failures of background polls.
type ErrorHandler func(err error)

// Option configures a Worker.
type Option func(*Worker)

// WithPollInterval enables polling of MeasurementStatus at the given interval.
// A zero or negative interval disables polling, which is the default.
func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithMeasurementHandler sets the receiver of polled snapshots.
func WithMeasurementHandler(h MeasurementHandler) Option {
	return func(w *Worker) { w.onMeasurement = h }
}

// WithErrorHandler sets the receiver of poll failures.
func WithErrorHandler(h ErrorHandler) Option {
	return func(w *Worker) { w.onError = h }
}

// WithShutdownOnStop makes Run perform SafeShutdown before it returns.
func WithShutdownOnStop(enable bool) Option {
	return func(w *Worker) { w.shutdownOnStop = enable }
}

// WithLogger sets the worker logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}
