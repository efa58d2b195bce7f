package mocks

import (
	"github.com/stretchr/testify/mock"
)

// SetupBacklog makes Backlog return n with no error.
func (_m *Source) SetupBacklog(n int) *mock.Call {
	return _m.On("Backlog", mock.Anything).Return(n, nil)
}

// SetupName makes Name return the given queue name.
func (_m *Source) SetupName(name string) *mock.Call {
	return _m.On("Name").Return(name).Maybe()
}
