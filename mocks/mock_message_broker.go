package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Lllllllleong/documentworkers/internal/port"
)

// MockMessageBroker is a mock implementation of port.MessageBroker.
type MockMessageBroker struct {
	mock.Mock
}

func (m *MockMessageBroker) Next(ctx context.Context) (*port.Delivery, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.Delivery), args.Error(1)
}

func (m *MockMessageBroker) Ack(d *port.Delivery) error {
	args := m.Called(d)
	return args.Error(0)
}

func (m *MockMessageBroker) Nack(d *port.Delivery, requeue bool) error {
	args := m.Called(d, requeue)
	return args.Error(0)
}

func (m *MockMessageBroker) Publish(ctx context.Context, body []byte) error {
	args := m.Called(ctx, body)
	return args.Error(0)
}
