package transport

import (
	"bufio"
	"net"
	"strconv"
	"testing"

	"github.com/tarm/serial"
)

// newEchoServer starts a TCP listener whose connections answer each received
// line with reply(line). A nil reply string means "do not answer".
func newEchoServer(t *testing.T, reply func(line string) *string) (string, int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("newEchoServer: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}

			go func(c net.Conn) {
				defer c.Close()

				sc := bufio.NewScanner(c)
				for sc.Scan() {
					if resp := reply(sc.Text()); resp != nil {
						if _, err := c.Write([]byte(*resp)); err != nil {
							return
						}
					}
				}
			}(conn)
		}
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	return host, port
}

// newPipeOpener returns a PortOpener handing out the local end of a net.Pipe,
// the remote end, and a pointer receiving the serial config used to open the port.
func newPipeOpener(t *testing.T) (PortOpener, net.Conn, **serial.Config) {
	t.Helper()

	local, remote := net.Pipe()
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})

	var used *serial.Config
	opener := func(cfg *serial.Config) (Port, error) {
		used = cfg
		return local, nil
	}

	return opener, remote, &used
}

func strPtr(s string) *string {
	return &s
}
