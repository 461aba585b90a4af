package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/arloliu/go-owonpsu/logger"
	"github.com/arloliu/go-owonpsu/psu"
	"github.com/arloliu/go-owonpsu/scpi"
	"github.com/urfave/cli/v2"
)

const envPrefix = "OWON_PSU_"

var errNoEndpoint = errors.New("one of --serial or --host is required")

func newApp() *cli.App {
	return &cli.App{
		Name:  "owon-psu",
		Usage: "control an OWON/KIPRIM bench power supply",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "serial",
				Usage:   "serial port, e.g. /dev/ttyUSB0 or COM3",
				EnvVars: []string{envPrefix + "SERIAL"},
			},
			&cli.StringFlag{
				Name:    "host",
				Usage:   "network host of the supply",
				EnvVars: []string{envPrefix + "HOST"},
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "TCP port of the supply",
				EnvVars: []string{envPrefix + "PORT"},
				Value:   scpi.DefaultNetworkPort,
			},
			&cli.IntFlag{
				Name:    "baud",
				Usage:   "serial baud rate",
				EnvVars: []string{envPrefix + "BAUD"},
				Value:   scpi.DefaultBaudRate,
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "response timeout",
				EnvVars: []string{envPrefix + "TIMEOUT"},
				Value:   scpi.DefaultTimeout,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				EnvVars: []string{envPrefix + "LOG_LEVEL"},
				Value:   "warn",
			},
			&cli.StringFlag{
				Name:    "format",
				Usage:   "output format: text, json or yaml",
				EnvVars: []string{envPrefix + "FORMAT"},
				Value:   formatText,
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "info",
				Usage:  "show identity, limits, modes and the error queue",
				Action: withInstrument(infoAction),
			},
			{
				Name:   "status",
				Usage:  "show measured and set values",
				Action: withInstrument(statusAction),
			},
			{
				Name:  "set",
				Usage: "set voltage and current, optionally enabling the output",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "voltage", Aliases: []string{"v"}, Usage: "voltage in volts", Required: true},
					&cli.Float64Flag{Name: "current", Aliases: []string{"i"}, Usage: "current in amperes", Required: true},
					&cli.BoolFlag{Name: "enable", Usage: "enable the output afterwards"},
				},
				Action: withInstrument(setAction),
			},
			{
				Name:      "output",
				Usage:     "enable or disable the output",
				ArgsUsage: "on|off",
				Action:    withInstrument(outputAction),
			},
			{
				Name:  "monitor",
				Usage: "poll measurements for a while",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "duration", Value: 10 * time.Second, Usage: "how long to monitor"},
					&cli.DurationFlag{Name: "interval", Value: time.Second, Usage: "poll interval"},
					&cli.BoolFlag{Name: "shutdown", Usage: "perform a safe shutdown when done"},
				},
				Action: withInstrument(monitorAction),
			},
			{
				Name:      "channel",
				Usage:     "show the status of one channel of a multi-channel supply",
				ArgsUsage: "1|2|3",
				Action:    withInstrument(channelAction),
			},
			{
				Name:   "shutdown",
				Usage:  "disable the output and set the voltage to zero",
				Action: withInstrument(shutdownAction),
			},
			{
				Name:   "reset",
				Usage:  "restore the device defaults",
				Action: withInstrument(resetAction),
			},
			{
				Name:      "query",
				Usage:     "send a raw SCPI query and print the response",
				ArgsUsage: "COMMAND",
				Action:    withInstrument(queryAction),
			},
			{
				Name:      "write",
				Usage:     "send a raw SCPI command",
				ArgsUsage: "COMMAND",
				Action:    withInstrument(writeAction),
			},
			{
				Name:   "shell",
				Usage:  "interactive SCPI console",
				Action: withInstrument(shellAction),
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	level, err := logger.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}

	logger.SetLogger(logger.NewSlogWithWriter(errWriter(c), level, false))

	return nil
}

func errWriter(c *cli.Context) io.Writer {
	if c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}

	return os.Stderr
}

type instrumentAction func(c *cli.Context, ins *psu.Instrument, out *printer) error

// withInstrument opens the session selected by the global flags, runs fn and
// closes the session again.
func withInstrument(fn instrumentAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		out, err := newPrinter(c.App.Writer, c.String("format"))
		if err != nil {
			return err
		}

		ins, err := connect(c)
		if err != nil {
			return err
		}
		defer ins.Close()

		return fn(c, ins, out)
	}
}

func connect(c *cli.Context) (*psu.Instrument, error) {
	opts := []scpi.Option{
		scpi.WithTimeout(c.Duration("timeout")),
		scpi.WithBaudRate(c.Int("baud")),
		scpi.WithLogger(logger.GetLogger()),
	}

	var (
		sess *scpi.Session
		err  error
	)

	switch serialPort, host := c.String("serial"), c.String("host"); {
	case serialPort != "" && host != "":
		return nil, errors.New("--serial and --host are mutually exclusive")
	case serialPort != "":
		sess, err = scpi.NewSerialSession(serialPort, opts...)
	case host != "":
		sess, err = scpi.NewNetworkSession(host, c.Int("port"), opts...)
	default:
		return nil, errNoEndpoint
	}
	if err != nil {
		return nil, err
	}

	if err := sess.Open(c.Context); err != nil {
		return nil, fmt.Errorf("connect %s: %w", sess, err)
	}

	return psu.New(sess, psu.WithLogger(logger.GetLogger())), nil
}
