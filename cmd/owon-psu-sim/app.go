package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/arloliu/go-owonpsu/logger"
	"github.com/arloliu/go-owonpsu/scpi"
	"github.com/arloliu/go-owonpsu/sim"
	"github.com/arloliu/go-owonpsu/transport"
	"github.com/tarm/serial"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const envPrefix = "OWON_PSU_SIM_"

func newApp() *cli.App {
	return &cli.App{
		Name:  "owon-psu-sim",
		Usage: "serve a simulated OWON/KIPRIM power supply",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "TCP listen address, empty to disable",
				EnvVars: []string{envPrefix + "LISTEN"},
				Value:   fmt.Sprintf(":%d", scpi.DefaultNetworkPort),
			},
			&cli.StringFlag{
				Name:    "serial",
				Usage:   "also serve on this serial port",
				EnvVars: []string{envPrefix + "SERIAL"},
			},
			&cli.IntFlag{
				Name:    "baud",
				EnvVars: []string{envPrefix + "BAUD"},
				Value:   scpi.DefaultBaudRate,
			},
			&cli.StringFlag{
				Name:    "identity",
				Usage:   "response to *IDN?",
				EnvVars: []string{envPrefix + "IDENTITY"},
				Value:   sim.DefaultIdentity,
			},
			&cli.Float64Flag{
				Name:    "load",
				Usage:   "simulated load resistance in ohms",
				EnvVars: []string{envPrefix + "LOAD"},
				Value:   sim.DefaultLoadOhms,
			},
			&cli.BoolFlag{
				Name:  "numeric-output",
				Usage: "answer OUTPut? with 1/0 instead of ON/OFF",
			},
			&cli.StringSliceFlag{
				Name:  "timeout-on",
				Usage: "never answer these queries",
			},
			&cli.StringSliceFlag{
				Name:  "error-on",
				Usage: "answer these queries with ERR",
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{envPrefix + "LOG_LEVEL"},
				Value:   "info",
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	level, err := logger.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	log := logger.NewSlog(level, false)
	logger.SetLogger(log)

	listen, serialPort := c.String("listen"), c.String("serial")
	if listen == "" && serialPort == "" {
		return errors.New("nothing to serve: set --listen or --serial")
	}

	opts := []sim.Option{
		sim.WithIdentity(c.String("identity")),
		sim.WithLoad(c.Float64("load")),
		sim.WithTimeoutOn(c.StringSlice("timeout-on")...),
		sim.WithErrorOn(c.StringSlice("error-on")...),
		sim.WithLogger(log),
	}
	if c.Bool("numeric-output") {
		opts = append(opts, sim.WithNumericOutputState())
	}
	dev := sim.NewDevice(opts...)

	g, ctx := errgroup.WithContext(c.Context)

	if listen != "" {
		g.Go(func() error {
			return dev.ListenAndServe(ctx, listen)
		})
	}

	if serialPort != "" {
		g.Go(func() error {
			return serveSerial(ctx, dev, serialPort, c.Int("baud"), log)
		})
	}

	return g.Wait()
}

func serveSerial(ctx context.Context, dev *sim.Device, name string, baud int, log logger.Logger) error {
	port, err := transport.OpenSerialPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: 100 * time.Millisecond,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer port.Close()

	log.Info("sim: serving serial port", "port", name, "baud", baud)

	return dev.Serve(&idlePort{ctx: ctx, port: port})
}

// idlePort hides the empty reads a serial port returns when its read timeout
// expires, so Serve only sees end of stream once ctx is done.
type idlePort struct {
	ctx  context.Context
	port transport.Port
}

func (p *idlePort) Read(b []byte) (int, error) {
	for {
		n, err := p.port.Read(b)
		if n > 0 {
			return n, nil
		}

		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}

		if p.ctx.Err() != nil {
			return 0, io.EOF
		}
	}
}

func (p *idlePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}
