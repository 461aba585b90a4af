package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/go-owonpsu/psu"
	"github.com/arloliu/go-owonpsu/scpi"
	"github.com/arloliu/go-owonpsu/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_Do(t *testing.T) {
	dev := sim.NewDevice()
	w := New(newTestInstrument(t, dev))
	startWorker(t, w)

	ctx := context.Background()
	require.NoError(t, w.Do(ctx, func(ins *psu.Instrument) error {
		return ins.SetVoltage(7.5)
	}))

	var v float64
	require.NoError(t, w.Do(ctx, func(ins *psu.Instrument) error {
		var err error
		v, err = ins.Voltage()

		return err
	}))
	assert.InDelta(t, 7.5, v, 1e-9)

	err := w.Do(ctx, func(*psu.Instrument) error { return errors.New("boom") })
	require.EqualError(t, err, "boom")
}

func TestWorker_ConcurrentRequestsAreSerialized(t *testing.T) {
	dev := sim.NewDevice()
	w := New(newTestInstrument(t, dev))
	startWorker(t, w)

	const n = 20

	var (
		wg       sync.WaitGroup
		inFlight int
		maxSeen  int
		mu       sync.Mutex
	)

	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := w.Do(context.Background(), func(ins *psu.Instrument) error {
				mu.Lock()
				inFlight++
				maxSeen = max(maxSeen, inFlight)
				mu.Unlock()

				_, err := ins.Output()

				mu.Lock()
				inFlight--
				mu.Unlock()

				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Len(t, dev.Commands(), n)
}

func TestWorker_Snapshot(t *testing.T) {
	dev := sim.NewDevice(sim.WithLoad(10))
	ins := newTestInstrument(t, dev)
	require.NoError(t, ins.ConfigureOutput(5, 2, true))

	w := New(ins)
	startWorker(t, w)

	snap, err := w.Snapshot(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 5.0, snap.Voltage, 1e-9)
	assert.True(t, snap.OutputEnabled)
}

func TestWorker_DoBeforeRunHonorsContext(t *testing.T) {
	w := New(newTestInstrument(t, sim.NewDevice()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := w.Do(ctx, func(*psu.Instrument) error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorker_StopAndRestart(t *testing.T) {
	w := New(newTestInstrument(t, sim.NewDevice()))
	errCh := startWorker(t, w)

	require.NoError(t, w.Do(context.Background(), func(*psu.Instrument) error { return nil }))

	w.Stop()
	w.Stop()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}

	err := w.Do(context.Background(), func(*psu.Instrument) error { return nil })
	require.ErrorIs(t, err, ErrStopped)

	require.ErrorIs(t, w.Run(context.Background()), ErrStopped)
}

func TestWorker_RunTwice(t *testing.T) {
	w := New(newTestInstrument(t, sim.NewDevice()))
	startWorker(t, w)

	require.Eventually(t, func() bool { return w.running.Load() }, time.Second, 5*time.Millisecond)
	require.ErrorIs(t, w.Run(context.Background()), ErrAlreadyRunning)
}

func TestWorker_RunStopsOnContextCancel(t *testing.T) {
	w := New(newTestInstrument(t, sim.NewDevice()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorker_PanicIsReturnedAsError(t *testing.T) {
	w := New(newTestInstrument(t, sim.NewDevice()))
	startWorker(t, w)

	err := w.Do(context.Background(), func(*psu.Instrument) error { panic("bad request") })
	require.ErrorContains(t, err, "bad request")

	require.NoError(t, w.Do(context.Background(), func(*psu.Instrument) error { return nil }))
}

func TestWorker_Polling(t *testing.T) {
	dev := sim.NewDevice(sim.WithLoad(10))
	ins := newTestInstrument(t, dev)
	require.NoError(t, ins.ConfigureOutput(3, 1, true))

	snaps := make(chan *psu.MeasurementSnapshot, 16)
	w := New(ins,
		WithPollInterval(10*time.Millisecond),
		WithMeasurementHandler(func(s *psu.MeasurementSnapshot) {
			select {
			case snaps <- s:
			default:
			}
		}),
	)
	startWorker(t, w)

	select {
	case snap := <-snaps:
		assert.InDelta(t, 3.0, snap.Voltage, 1e-9)
		assert.InDelta(t, 0.3, snap.Current, 1e-9)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot received")
	}

	// requests interleave with polling
	require.NoError(t, w.Do(context.Background(), func(ins *psu.Instrument) error {
		return ins.SetOutput(false)
	}))
}

func TestWorker_PollErrors(t *testing.T) {
	dev := sim.NewDevice(sim.WithErrorOn("MEASure:VOLTage?"))

	errs := make(chan error, 16)
	w := New(newTestInstrument(t, dev),
		WithPollInterval(10*time.Millisecond),
		WithErrorHandler(func(err error) {
			select {
			case errs <- err:
			default:
			}
		}),
	)
	startWorker(t, w)

	select {
	case err := <-errs:
		require.ErrorIs(t, err, scpi.ErrDevice)
	case <-time.After(2 * time.Second):
		t.Fatal("no poll error reported")
	}
}

func TestWorker_ShutdownOnStop(t *testing.T) {
	dev := sim.NewDevice()
	ins := newTestInstrument(t, dev)
	require.NoError(t, ins.ConfigureOutput(12, 1, true))
	handledCommands(t, dev, ins)
	dev.ResetCommands()

	w := New(ins, WithShutdownOnStop(true))
	errCh := startWorker(t, w)

	require.NoError(t, w.Do(context.Background(), func(*psu.Instrument) error { return nil }))
	w.Stop()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}

	// the Do round trip is the only command before shutdown
	assert.Equal(t, []string{"OUTPut OFF", "VOLTage 0.000"}, handledCommands(t, dev, ins))

	out, _ := dev.Value("OUTP")
	assert.Equal(t, "0", out)
}
