// Command owon-psu-sim serves a simulated OWON power supply over TCP and,
// optionally, over a serial port, for use with owon-psu and the examples.
//
//	owon-psu-sim --listen :3000
//	owon-psu-sim --serial /dev/pts/3 --timeout-on "CURR:LIM?"
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
		fmt.Fprintln(os.Stderr, "owon-psu-sim:", err)
		stop()
		os.Exit(1) //nolint:gocritic
	}
}
