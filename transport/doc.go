// Package transport provides the byte-stream endpoints used to reach a bench
// power supply: a serial line and a raw TCP socket.
//
// Both variants implement the [Transport] interface and are selected once, when
// a session is constructed. A transport only moves bytes: it opens and closes
// the link, sends raw bytes and receives at most one response per call. Line
// framing, command semantics and error classification above the byte level
// belong to the scpi package.
//
// # Timeouts
//
// A receive that does not complete within its timeout returns an error
// matching [ErrTimeout]. This is a first-class signal: callers classify it with
// errors.Is and never need to inspect error text.
package transport
