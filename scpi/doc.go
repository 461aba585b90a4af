// Package scpi implements the command/response session used to talk to OWON and
// KIPRIM bench power supplies over a serial line or a raw TCP socket.
//
// # Protocol
//
// Every command and query is one ASCII line terminated by a newline. A query is
// exactly one write followed by exactly one read; responses are never split
// across frames. Two responses have protocol-level meaning:
//
//   - "ERR" answers a query the device could not execute, reported as [ErrDevice].
//   - `0,"No error"` marks an empty error queue.
//
// # Error classification
//
// Failures are classified with errors.Is against the sentinels of this package:
// [ErrConnection], [ErrNotConnected], [ErrCommunication], [ErrTimeout],
// [ErrDevice] and [ErrUnsupportedDevice]. A timeout is never reported as
// [ErrCommunication], so callers can tolerate a device that does not answer an
// optional query while still failing on real errors.
//
// # Concurrency
//
// A Session is not goroutine-safe. It must be owned by one caller at a time and
// carries at most one in-flight query, since responses carry no identifiers.
// See the monitor package for a single-owner worker.
package scpi
