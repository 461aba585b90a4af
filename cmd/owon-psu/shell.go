package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/arloliu/go-owonpsu/psu"
	"github.com/chzyer/readline"
	"github.com/urfave/cli/v2"
)

func shellAction(c *cli.Context, ins *psu.Instrument, _ *printer) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "scpi> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(rl.Stdout(), "Connected to %s (type 'help' for commands)\n", ins.CachedIdentity())

	for {
		if c.Context.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}

			return nil
		}

		if !runShellLine(ins, line, rl.Stdout()) {
			return nil
		}
	}
}

// runShellLine executes one console line and reports whether the shell should continue.
// Lines whose first word ends in '?' are sent as queries, anything else as a command.
func runShellLine(ins *psu.Instrument, line string, w io.Writer) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	switch strings.ToLower(input) {
	case "help", "?":
		printShellHelp(w)
		return true
	case "exit", "quit", "q":
		return false
	case "status":
		snap, err := ins.MeasurementStatus()
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return true
		}
		printSnapshot(w, snap)

		return true
	case "errors":
		errs := ins.ErrorQueue()
		if len(errs) == 0 {
			fmt.Fprintln(w, "No errors")
		}
		for _, e := range errs {
			fmt.Fprintln(w, e)
		}

		return true
	}

	if strings.HasSuffix(strings.Fields(input)[0], "?") {
		resp, err := ins.Session().Query(input)
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return true
		}
		fmt.Fprintln(w, resp)

		return true
	}

	if err := ins.Session().Write(input); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return true
	}
	fmt.Fprintln(w, "OK")

	return true
}

func printShellHelp(w io.Writer) {
	fmt.Fprintln(w, `
Commands:
  <SCPI query>?   send a query and print the response, e.g. MEAS:VOLT?
  <SCPI command>  send a command, e.g. VOLT 12.000
  status          show measured and set values
  errors          drain the device error queue
  help            show this help
  exit            leave the shell`)
}
