// Package sim provides a simulated OWON power supply that speaks the SCPI line
// protocol.
//
// A Device keeps its settings in memory, models a resistive load on its output
// so that measurements react to the set voltage and current, and can inject
// faults per command: a dropped response (the client times out), an "ERR"
// response, or a canned answer. Every received line is recorded so tests can
// assert command ordering.
//
// A Device can serve any io.ReadWriter (for example one end of a net.Pipe
// standing in for a serial line) or listen on TCP like a networked supply.
package sim
