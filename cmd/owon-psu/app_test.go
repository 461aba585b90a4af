package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"slices"
	"testing"
	"time"

	"github.com/arloliu/go-owonpsu/psu"
	"github.com/arloliu/go-owonpsu/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// runApp runs the CLI against dev and returns what it printed. args may start
// with further global flags.
func runApp(t *testing.T, dev *sim.Device, args ...string) (string, error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ln, err := dev.Listen(ctx, "127.0.0.1:0")
	require.NoError(t, err)

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut

	argv := append([]string{"owon-psu", "--host", host, "--port", port, "--timeout", "150ms", "--log-level", "error"}, args...)
	err = app.RunContext(ctx, argv)

	return out.String(), err
}

// waitCommands waits until dev has logged want. Writes get no answer, so the
// CLI may exit before the device has read them.
func waitCommands(t *testing.T, dev *sim.Device, want ...string) {
	t.Helper()

	assert.Eventually(t, func() bool {
		return slices.Equal(want, dev.Commands())
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, want, dev.Commands())
}

// waitValue waits until the device state key holds want.
func waitValue(t *testing.T, dev *sim.Device, key, want string) {
	t.Helper()

	require.Eventually(t, func() bool {
		v, _ := dev.Value(key)
		return v == want
	}, time.Second, 5*time.Millisecond, "%s never became %q", key, want)
}

func TestApp_Info(t *testing.T) {
	dev := sim.NewDevice(sim.WithTimeoutOn("SYSTem:KEYLock?"))

	out, err := runApp(t, dev, "info")
	require.NoError(t, err)

	assert.Contains(t, out, "Identity:       "+sim.DefaultIdentity)
	assert.Contains(t, out, "Voltage Limit:  60.000V")
	assert.Contains(t, out, "Keylock:        n/a")
	assert.Contains(t, out, "No errors detected")
}

func TestApp_InfoJSON(t *testing.T) {
	out, err := runApp(t, sim.NewDevice(), "--format", "json", "info")
	require.NoError(t, err)

	var info psu.DeviceInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, sim.DefaultIdentity, info.Identity)
	require.NotNil(t, info.CurrentLimit)
	assert.InDelta(t, sim.DefaultCurrentLimit, *info.CurrentLimit, 1e-9)
}

func TestApp_StatusYAML(t *testing.T) {
	dev := sim.NewDevice(sim.WithLoad(10))

	_, err := runApp(t, dev, "set", "--voltage", "5", "--current", "2", "--enable")
	require.NoError(t, err)
	waitValue(t, dev, "OUTP", "1")

	out, err := runApp(t, dev, "--format", "yaml", "status")
	require.NoError(t, err)

	var snap psu.MeasurementSnapshot
	require.NoError(t, yaml.Unmarshal([]byte(out), &snap))
	assert.InDelta(t, 5.0, snap.Voltage, 1e-9)
	assert.InDelta(t, 0.5, snap.Current, 1e-9)
	assert.True(t, snap.OutputEnabled)
}

func TestApp_SetAndOutput(t *testing.T) {
	dev := sim.NewDevice()

	_, err := runApp(t, dev, "set", "--voltage", "12", "--current", "1")
	require.NoError(t, err)
	waitCommands(t, dev, "*IDN?", "VOLTage 12.000", "CURRent 1.000")

	dev.ResetCommands()
	_, err = runApp(t, dev, "output", "on")
	require.NoError(t, err)
	waitCommands(t, dev, "*IDN?", "OUTPut ON")

	_, err = runApp(t, dev, "output", "maybe")
	require.Error(t, err)
}

func TestApp_Shutdown(t *testing.T) {
	dev := sim.NewDevice()

	_, err := runApp(t, dev, "shutdown")
	require.NoError(t, err)
	waitCommands(t, dev, "*IDN?", "OUTPut OFF", "VOLTage 0.000")
}

func TestApp_QueryAndWrite(t *testing.T) {
	dev := sim.NewDevice()

	_, err := runApp(t, dev, "write", "VOLT", "3.300")
	require.NoError(t, err)
	waitValue(t, dev, "VOLT", "3.300")

	out, err := runApp(t, dev, "query", "VOLT?")
	require.NoError(t, err)
	assert.Equal(t, "3.300\n", out)
}

func TestApp_Channel(t *testing.T) {
	dev := sim.NewDevice()

	out, err := runApp(t, dev, "channel", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "=== Channel 2 ===")

	_, err = runApp(t, dev, "channel", "7")
	require.ErrorIs(t, err, psu.ErrInvalidChannel)
}

func TestApp_Monitor(t *testing.T) {
	dev := sim.NewDevice()

	out, err := runApp(t, dev, "monitor", "--duration", "200ms", "--interval", "20ms", "--shutdown")
	require.NoError(t, err)

	assert.Contains(t, out, "Voltage")
	assert.Contains(t, dev.Commands(), "MEASure:VOLTage?")

	assert.Eventually(t, func() bool {
		cmds := dev.Commands()
		return len(cmds) >= 2 && slices.Equal([]string{"OUTPut OFF", "VOLTage 0.000"}, cmds[len(cmds)-2:])
	}, time.Second, 5*time.Millisecond, "shutdown sequence not last")
}

func TestApp_ConnectErrors(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}

	err := app.Run([]string{"owon-psu", "status"})
	require.ErrorIs(t, err, errNoEndpoint)

	err = app.Run([]string{"owon-psu", "--serial", "/dev/null", "--host", "localhost", "status"})
	require.ErrorContains(t, err, "mutually exclusive")

	err = app.Run([]string{"owon-psu", "--host", "localhost", "--format", "xml", "status"})
	require.ErrorContains(t, err, "unknown output format")
}
