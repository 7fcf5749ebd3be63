package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockObjectStore is a mock implementation of port.ObjectStore.
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockObjectStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	args := m.Called(ctx, bucket, key, data, contentType)
	return args.Error(0)
}
