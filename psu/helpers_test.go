package psu

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/arloliu/go-owonpsu/scpi"
	"github.com/arloliu/go-owonpsu/sim"
)

// newTestInstrument opens a network session against dev and wraps it in an Instrument.
func newTestInstrument(t *testing.T, dev *sim.Device, opts ...Option) *Instrument {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ln, err := dev.Listen(ctx, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("newTestInstrument: listen: %v", err)
	}

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	sess, err := scpi.NewNetworkSession(host, port,
		scpi.WithTimeout(150*time.Millisecond),
		scpi.WithSettleDelay(0),
	)
	if err != nil {
		t.Fatalf("newTestInstrument: session: %v", err)
	}

	if err := sess.Open(ctx); err != nil {
		t.Fatalf("newTestInstrument: open: %v", err)
	}
	t.Cleanup(sess.Close)

	dev.ResetCommands()

	opts = append([]Option{WithResetDelay(0), WithShutdownDelay(0)}, opts...)

	return New(sess, opts...)
}

// waitHandled returns once dev has handled every command ins sent. Writes get
// no answer, so a query round trip is the only way to know they arrived.
func waitHandled(t *testing.T, ins *Instrument) {
	t.Helper()

	if _, err := ins.OperationComplete(); err != nil {
		t.Fatalf("waitHandled: %v", err)
	}
}

// handledCommands returns dev's command log once every pending write is handled,
// without the query used to wait for them.
func handledCommands(t *testing.T, dev *sim.Device, ins *Instrument) []string {
	t.Helper()

	waitHandled(t, ins)

	cmds := dev.Commands()
	if n := len(cmds); n > 0 && cmds[n-1] == cmdOpcQuery {
		cmds = cmds[:n-1]
	}

	return cmds
}

// resetCommands clears dev's command log once every pending write is handled.
func resetCommands(t *testing.T, dev *sim.Device, ins *Instrument) {
	t.Helper()

	waitHandled(t, ins)
	dev.ResetCommands()
}
