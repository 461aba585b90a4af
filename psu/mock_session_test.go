//nolint:errcheck
package psu

import (
	"github.com/stretchr/testify/mock"
)

// MockSession implements Session interface for testing
type MockSession struct {
	mock.Mock
}

var _ Session = (*MockSession)(nil)

func (m *MockSession) Write(command string) error {
	args := m.Called(command)
	return args.Error(0)
}

func (m *MockSession) Query(command string) (string, error) {
	args := m.Called(command)
	return args.String(0), args.Error(1)
}

func (m *MockSession) Identity() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockSession) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockSession) Close() {
	m.Called()
}
