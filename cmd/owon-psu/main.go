// Command owon-psu controls an OWON/KIPRIM bench power supply over a serial
// line or the network.
//
//	owon-psu --serial /dev/ttyUSB0 info
//	owon-psu --host 192.168.1.100 set --voltage 12 --current 1 --enable
//	owon-psu --host 192.168.1.100 --format json monitor --duration 10s
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "owon-psu:", err)
		stop()
		os.Exit(1) //nolint:gocritic
	}
}
