package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-owonpsu/logger"
	"github.com/arloliu/go-owonpsu/psu"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrStopped indicates the worker is no longer running.
	ErrStopped = errors.New("monitor: worker stopped")

	// ErrAlreadyRunning indicates Run was called on a worker that is already running.
	ErrAlreadyRunning = errors.New("monitor: worker already running")
)

// RequestFunc is executed on the goroutine that owns the instrument.
type RequestFunc func(ins *psu.Instrument) error

type request struct {
	fn     RequestFunc
	result chan error
}

// Worker owns a psu.Instrument and serializes every access to it.
type Worker struct {
	ins    *psu.Instrument
	logger logger.Logger

	pollInterval   time.Duration
	onMeasurement  MeasurementHandler
	onError        ErrorHandler
	shutdownOnStop bool

	requests  chan *request
	snapshots chan *psu.MeasurementSnapshot
	stopCh    chan struct{}
	doneCh    chan struct{}
	stopOnce  sync.Once
	running   atomic.Bool

	requestCount atomic.Uint64
	pollCount    atomic.Uint64
	pollErrCount atomic.Uint64
}

// New creates a worker for ins. The worker does nothing until Run is called.
func New(ins *psu.Instrument, opts ...Option) *Worker {
	w := &Worker{
		ins:       ins,
		logger:    logger.GetLogger(),
		requests:  make(chan *request),
		snapshots: make(chan *psu.MeasurementSnapshot, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.logger = w.logger.With("component", "monitor")

	return w
}

// Run executes requests and polls until ctx is cancelled or Stop is called.
// It can only be called once.
//
// With WithShutdownOnStop, Run performs SafeShutdown on the way out and returns
// its error, if any.
func (w *Worker) Run(ctx context.Context) error {
	select {
	case <-w.doneCh:
		return ErrStopped
	default:
	}

	if !w.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(w.doneCh)

	w.logger.Debug("monitor: worker started", "poll_interval", w.pollInterval)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-w.stopCh:
			cancel()
		case <-gctx.Done():
		}

		return nil
	})

	g.Go(func() error {
		w.dispatch(gctx)
		return nil
	})

	g.Go(func() error {
		return w.own(gctx)
	})

	err := g.Wait()

	w.logger.Debug("monitor: worker stopped",
		"requests", w.requestCount.Load(),
		"polls", w.pollCount.Load(),
		"poll_errors", w.pollErrCount.Load(),
	)

	return err
}

// Stop signals Run to return. It is safe to call more than once and before Run.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// Done is closed when Run has returned.
func (w *Worker) Done() <-chan struct{} {
	return w.doneCh
}

// Do submits fn and waits for its result. Requests run one at a time in
// submission order. Do blocks until the worker accepts the request, ctx is
// done, or the worker stops.
//
// If ctx is cancelled after the request was accepted, Do returns ctx.Err()
// and fn still runs to completion on the owning goroutine.
func (w *Worker) Do(ctx context.Context, fn RequestFunc) error {
	if fn == nil {
		return errors.New("monitor: nil request")
	}

	req := &request{fn: fn, result: make(chan error, 1)}

	select {
	case w.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-w.doneCh:
		return ErrStopped
	}

	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot runs MeasurementStatus through the worker.
func (w *Worker) Snapshot(ctx context.Context) (*psu.MeasurementSnapshot, error) {
	var snap *psu.MeasurementSnapshot

	err := w.Do(ctx, func(ins *psu.Instrument) error {
		var err error
		snap, err = ins.MeasurementStatus()

		return err
	})
	if err != nil {
		return nil, err
	}

	return snap, nil
}

func (w *Worker) own(ctx context.Context) error {
	var tick <-chan time.Time
	if w.pollInterval > 0 {
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return w.finish()

		case req := <-w.requests:
			w.requestCount.Add(1)
			req.result <- w.execute(req.fn)

		case <-tick:
			w.poll()
		}
	}
}

func (w *Worker) execute(fn RequestFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("monitor: request panicked", "panic", r)
			err = fmt.Errorf("monitor: request panicked: %v", r)
		}
	}()

	return fn(w.ins)
}

func (w *Worker) poll() {
	w.pollCount.Add(1)

	snap, err := w.ins.MeasurementStatus()
	if err != nil {
		w.pollErrCount.Add(1)
		w.logger.Warn("monitor: poll failed", "error", err)

		if w.onError != nil {
			w.onError(err)
		}

		return
	}

	if w.onMeasurement == nil {
		return
	}

	select {
	case w.snapshots <- snap:
	default:
		w.logger.Debug("monitor: handler busy, snapshot dropped")
	}
}

func (w *Worker) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-w.snapshots:
			w.onMeasurement(snap)
		}
	}
}

func (w *Worker) finish() error {
	if !w.shutdownOnStop {
		return nil
	}

	w.logger.Info("monitor: performing safe shutdown")

	if err := w.ins.SafeShutdown(); err != nil {
		w.logger.Error("monitor: safe shutdown failed", "error", err)
		return fmt.Errorf("monitor: safe shutdown: %w", err)
	}

	return nil
}
