package mocks

import (
	"github.com/stretchr/testify/mock"
)

// SetupReplicas makes Replicas return n with no error.
func (_m *Controller) SetupReplicas(n int) *mock.Call {
	return _m.On("Replicas", mock.Anything).Return(n, nil)
}

// SetupName makes Name return the given service name.
func (_m *Controller) SetupName(name string) *mock.Call {
	return _m.On("Name").Return(name).Maybe()
}
