package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/arloliu/go-owonpsu/monitor"
	"github.com/arloliu/go-owonpsu/psu"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func infoAction(_ *cli.Context, ins *psu.Instrument, out *printer) error {
	info, err := ins.DeviceInfo()
	if err != nil {
		return err
	}

	return out.print(info, func(w io.Writer) {
		fmt.Fprintln(w, "=== Device Information ===")
		fmt.Fprintf(w, "Identity:       %s\n", info.Identity)
		fmt.Fprintf(w, "Output:         %s\n", onOff(info.OutputEnabled))
		fmt.Fprintf(w, "Voltage Limit:  %s\n", optionalFloat(info.VoltageLimit, "V"))
		fmt.Fprintf(w, "Current Limit:  %s\n", optionalFloat(info.CurrentLimit, "A"))
		fmt.Fprintf(w, "Remote Mode:    %s\n", optionalValue(info.RemoteMode))
		fmt.Fprintf(w, "Keylock:        %s\n", optionalValue(info.Keylock))
		fmt.Fprintf(w, "Status Byte:    %s\n", optionalValue(info.StatusByte))

		if len(info.Errors) == 0 {
			fmt.Fprintln(w, "No errors detected")
			return
		}

		fmt.Fprintln(w, "Errors:")
		for _, e := range info.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	})
}

func statusAction(_ *cli.Context, ins *psu.Instrument, out *printer) error {
	snap, err := ins.MeasurementStatus()
	if err != nil {
		return err
	}

	return out.print(snap, func(w io.Writer) {
		printSnapshot(w, snap)
	})
}

func printSnapshot(w io.Writer, snap *psu.MeasurementSnapshot) {
	fmt.Fprintln(w, "=== Current Status ===")
	fmt.Fprintf(w, "Voltage: %.3fV (set: %.3fV)\n", snap.Voltage, snap.SetVoltage)
	fmt.Fprintf(w, "Current: %.3fA (set: %.3fA)\n", snap.Current, snap.SetCurrent)
	fmt.Fprintf(w, "Power:   %.3fW\n", snap.Power)
	fmt.Fprintf(w, "Output:  %s\n", onOff(snap.OutputEnabled))
}

func setAction(c *cli.Context, ins *psu.Instrument, out *printer) error {
	volts, amps, enable := c.Float64("voltage"), c.Float64("current"), c.Bool("enable")

	out.message("Setting %.3fV / %.3fA", volts, amps)
	if err := ins.ConfigureOutput(volts, amps, enable); err != nil {
		return err
	}

	if enable {
		out.message("Output enabled")
	}

	return nil
}

func outputAction(c *cli.Context, ins *psu.Instrument, out *printer) error {
	var on bool

	switch strings.ToLower(c.Args().First()) {
	case "on", "1":
		on = true
	case "off", "0":
		on = false
	default:
		return fmt.Errorf("output: want on or off, got %q", c.Args().First())
	}

	if err := ins.SetOutput(on); err != nil {
		return err
	}

	out.message("Output %s", onOff(on))

	return nil
}

// monitorSample is one row of the monitor output.
type monitorSample struct {
	Elapsed                 float64 `json:"elapsed" yaml:"elapsed"`
	psu.MeasurementSnapshot `yaml:",inline"`
}

func monitorAction(c *cli.Context, ins *psu.Instrument, out *printer) error {
	duration, interval := c.Duration("duration"), c.Duration("interval")

	ctx, cancel := context.WithTimeout(c.Context, duration)
	defer cancel()

	start := time.Now()
	w := monitor.New(ins,
		monitor.WithPollInterval(interval),
		monitor.WithShutdownOnStop(c.Bool("shutdown")),
		monitor.WithMeasurementHandler(func(snap *psu.MeasurementSnapshot) {
			sample := monitorSample{Elapsed: time.Since(start).Seconds(), MeasurementSnapshot: *snap}
			_ = out.print(sample, func(w io.Writer) {
				fmt.Fprintf(w, "%6.1f %8.3f %8.3f %8.3f %6s\n",
					sample.Elapsed, snap.Voltage, snap.Current, snap.Power, onOff(snap.OutputEnabled))
			})
		}),
		monitor.WithErrorHandler(func(err error) {
			fmt.Fprintf(errWriter(c), "monitoring error: %v\n", err)
		}),
	)

	out.message("Monitoring for %s...", duration)
	out.message("%6s %8s %8s %8s %6s", "Time", "Voltage", "Current", "Power", "Output")
	out.message("%s", strings.Repeat("-", 40))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx)
	})

	return g.Wait()
}

func channelAction(c *cli.Context, ins *psu.Instrument, out *printer) error {
	ch, err := strconv.Atoi(c.Args().First())
	if err != nil {
		return fmt.Errorf("channel: want a channel number, got %q", c.Args().First())
	}

	snap, err := ins.ChannelStatus(ch)
	if err != nil {
		return err
	}

	return out.print(snap, func(w io.Writer) {
		fmt.Fprintf(w, "=== Channel %d ===\n", snap.Channel)
		fmt.Fprintf(w, "Voltage: %.3fV (set: %.3fV)\n", snap.Voltage, snap.SetVoltage)
		fmt.Fprintf(w, "Current: %.3fA (set: %.3fA)\n", snap.Current, snap.SetCurrent)
		fmt.Fprintf(w, "Power:   %.3fW\n", snap.Power)
		fmt.Fprintf(w, "Output:  %s\n", onOff(snap.OutputEnabled))
	})
}

func shutdownAction(_ *cli.Context, ins *psu.Instrument, out *printer) error {
	out.message("Performing safe shutdown...")
	return ins.SafeShutdown()
}

func resetAction(_ *cli.Context, ins *psu.Instrument, out *printer) error {
	out.message("Resetting device...")
	return ins.Reset()
}

func queryAction(c *cli.Context, ins *psu.Instrument, out *printer) error {
	command := strings.Join(c.Args().Slice(), " ")
	if command == "" {
		return fmt.Errorf("query: missing command")
	}

	resp, err := ins.Session().Query(command)
	if err != nil {
		return err
	}

	return out.print(map[string]string{"command": command, "response": resp}, func(w io.Writer) {
		fmt.Fprintln(w, resp)
	})
}

func writeAction(c *cli.Context, ins *psu.Instrument, _ *printer) error {
	command := strings.Join(c.Args().Slice(), " ")
	if command == "" {
		return fmt.Errorf("write: missing command")
	}

	return ins.Session().Write(command)
}
