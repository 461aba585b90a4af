package sim

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"time"
)

// Serve answers command lines read from rw until it returns an error.
// A clean end of stream or a closed connection returns nil.
func (d *Device) Serve(rw io.ReadWriter) error {
	r := bufio.NewReader(rw)

	for {
		line, err := r.ReadString('\n')
		if line != "" {
			if resp, ok := d.Handle(line); ok {
				if delay := d.delayFor(line); delay > 0 {
					time.Sleep(delay)
				}

				if _, werr := rw.Write([]byte(resp + "\n")); werr != nil {
					return ignoreClosed(werr)
				}
			}
		}

		if err != nil {
			return ignoreClosed(err)
		}
	}
}

// Listen starts accepting TCP connections on addr and serves each of them on its
// own goroutine. The listener and every accepted connection are closed when ctx
// is cancelled.
func (d *Device) Listen(ctx context.Context, addr string) (net.Listener, error) {
	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	d.logger.Info("sim: listening", "address", ln.Addr().String(), "identity", d.identity)

	context.AfterFunc(ctx, func() { _ = ln.Close() })

	go d.acceptLoop(ctx, ln)

	return ln, nil
}

// ListenAndServe is like Listen but blocks until ctx is cancelled.
func (d *Device) ListenAndServe(ctx context.Context, addr string) error {
	if _, err := d.Listen(ctx, addr); err != nil {
		return err
	}

	<-ctx.Done()

	return nil
}

func (d *Device) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				d.logger.Error("sim: accept failed", "error", err)
			}

			return
		}

		d.logger.Debug("sim: client connected", "remote", conn.RemoteAddr().String())

		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

		go func() {
			defer stop()
			defer conn.Close()

			if err := d.Serve(conn); err != nil {
				d.logger.Warn("sim: connection ended", "remote", conn.RemoteAddr().String(), "error", err)
			}
		}()
	}
}

func ignoreClosed(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return nil
	}

	return err
}
