package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/arloliu/go-owonpsu/scpi"
	"github.com/arloliu/go-owonpsu/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// freeAddr reserves a loopback port and releases it for the simulator to bind.
func freeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	return addr
}

func TestServe_TCP(t *testing.T) {
	addr := freeAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := newApp()
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.RunContext(ctx, []string{
			"owon-psu-sim", "--listen", addr, "--log-level", "error",
			"--identity", "KIPRIM,DC310S,1,1", "--error-on", "MEAS:POW?",
		})
	}()

	host, portStr, _ := net.SplitHostPort(addr)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	sess, err := scpi.NewNetworkSession(host, port, scpi.WithTimeout(200*time.Millisecond), scpi.WithSettleDelay(0))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sess.Open(ctx) == nil }, 2*time.Second, 20*time.Millisecond)
	defer sess.Close()

	assert.Equal(t, "KIPRIM,DC310S,1,1", sess.Identity())

	_, err = sess.Query("MEAS:POW?")
	require.ErrorIs(t, err, scpi.ErrDevice)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("simulator did not stop")
	}
}

func TestServe_NothingToServe(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}

	err := app.Run([]string{"owon-psu-sim", "--listen", "", "--log-level", "error"})
	require.ErrorContains(t, err, "nothing to serve")
}

type scriptedPort struct {
	reads [][]byte
	out   bytes.Buffer
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	if len(p.reads) == 0 {
		return 0, io.ErrClosedPipe
	}

	chunk := p.reads[0]
	p.reads = p.reads[1:]
	if chunk == nil {
		return 0, io.EOF
	}

	return copy(b, chunk), nil
}

func (p *scriptedPort) Write(b []byte) (int, error) { return p.out.Write(b) }
func (p *scriptedPort) Close() error                { return nil }

func TestIdlePort_SkipsIdleReads(t *testing.T) {
	port := &scriptedPort{reads: [][]byte{nil, []byte("*ID"), nil, nil, []byte("N?\n")}}
	dev := sim.NewDevice()

	err := dev.Serve(&idlePort{ctx: context.Background(), port: port})
	require.NoError(t, err)
	assert.Equal(t, sim.DefaultIdentity+"\n", port.out.String())
}

func TestIdlePort_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &idlePort{ctx: ctx, port: &scriptedPort{reads: [][]byte{nil}}}
	n, err := p.Read(make([]byte, 8))
	assert.Zero(t, n)
	require.ErrorIs(t, err, io.EOF)
}
