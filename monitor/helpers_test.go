package monitor

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/arloliu/go-owonpsu/psu"
	"github.com/arloliu/go-owonpsu/scpi"
	"github.com/arloliu/go-owonpsu/sim"
	"github.com/stretchr/testify/require"
)

func newTestInstrument(t *testing.T, dev *sim.Device) *psu.Instrument {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ln, err := dev.Listen(ctx, "127.0.0.1:0")
	require.NoError(t, err)

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	sess, err := scpi.NewNetworkSession(host, port,
		scpi.WithTimeout(150*time.Millisecond),
		scpi.WithSettleDelay(0),
	)
	require.NoError(t, err)
	require.NoError(t, sess.Open(ctx))
	t.Cleanup(sess.Close)

	dev.ResetCommands()

	return psu.New(sess, psu.WithResetDelay(0), psu.WithShutdownDelay(0))
}

// startWorker runs w in the background and stops it when the test ends.
func startWorker(t *testing.T, w *Worker) <-chan error {
	t.Helper()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(context.Background()) }()

	t.Cleanup(func() {
		w.Stop()
		<-w.Done()
	})

	return errCh
}

// handledCommands returns dev's command log once every write ins sent has been
// handled. The "*OPC?" round trip used to wait is not included.
func handledCommands(t *testing.T, dev *sim.Device, ins *psu.Instrument) []string {
	t.Helper()

	_, err := ins.OperationComplete()
	require.NoError(t, err)

	cmds := dev.Commands()
	if n := len(cmds); n > 0 && cmds[n-1] == "*OPC?" {
		cmds = cmds[:n-1]
	}

	return cmds
}
