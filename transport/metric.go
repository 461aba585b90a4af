package transport

import (
	"sync/atomic"
)

// Metrics contains atomic I/O counters for a transport.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// OpenCount indicates the number of successful opens.
	OpenCount atomic.Uint64
	// SendCount indicates the number of Send calls that completed.
	SendCount atomic.Uint64
	// SendBytes indicates the total number of bytes sent.
	SendBytes atomic.Uint64
	// RecvCount indicates the number of Receive calls that returned data.
	RecvCount atomic.Uint64
	// RecvBytes indicates the total number of bytes received.
	RecvBytes atomic.Uint64
	// TimeoutCount indicates the number of receives that timed out.
	TimeoutCount atomic.Uint64
	// ErrCount indicates the number of send or receive failures other than timeouts.
	ErrCount atomic.Uint64
	// DiscardBytes indicates the number of unsolicited bytes dropped before a send.
	DiscardBytes atomic.Uint64
}

func (m *Metrics) incOpenCount() {
	m.OpenCount.Add(1)
}

func (m *Metrics) addSend(n int) {
	m.SendCount.Add(1)
	m.SendBytes.Add(uint64(n)) //nolint:gosec
}

func (m *Metrics) addRecv(n int) {
	m.RecvCount.Add(1)
	m.RecvBytes.Add(uint64(n)) //nolint:gosec
}

func (m *Metrics) incTimeoutCount() {
	m.TimeoutCount.Add(1)
}

func (m *Metrics) addDiscard(n int) {
	if n > 0 {
		m.DiscardBytes.Add(uint64(n)) //nolint:gosec
	}
}

func (m *Metrics) incErrCount() {
	m.ErrCount.Add(1)
}
