// Package mocks provides test doubles for the nppes client.
package mocks

import (
	"context"

	nppes "github.com/sells-group/provider-cli/pkg/nppes"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Lookup provides a mock function with given fields: ctx, number
func (_m *MockClient) Lookup(ctx context.Context, number string) (*nppes.Provider, error) {
	ret := _m.Called(ctx, number)

	if len(ret) == 0 {
		panic("no return value specified for Lookup")
	}

	var r0 *nppes.Provider
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*nppes.Provider, error)); ok {
		return rf(ctx, number)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *nppes.Provider); ok {
		r0 = rf(ctx, number)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*nppes.Provider)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, number)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
