// Package mocks holds shared testify mocks for this module's interfaces.
package mocks

import (
	"github.com/centavo-app/fx-data-client/internal/infrastructure/cache"
	"github.com/stretchr/testify/mock"
)

// MockStore mocks the durable cache tier.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(key string) (*cache.Entry, error) {
	args := m.Called(key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cache.Entry), args.Error(1)
}

func (m *MockStore) Set(key string, entry cache.Entry) error {
	args := m.Called(key, entry)
	return args.Error(0)
}

func (m *MockStore) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockStore) Clear() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockStore) DeleteExpired() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *MockStore) Len() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}
