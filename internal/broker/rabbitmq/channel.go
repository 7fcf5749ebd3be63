package rabbitmq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the subset of *amqp.Channel the client uses, with publishing
// reduced to a call that returns a waitable confirmation.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Confirm(noWait bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Ack(tag uint64, multiple bool) error
	Nack(tag uint64, multiple, requeue bool) error
	Close() error
	publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error)
}

// confirmation is the broker's pending answer to one publish.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// amqpChannel adapts *amqp.Channel to channel.
type amqpChannel struct {
	*amqp.Channel
}

func (c amqpChannel) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error) {
	dc, err := c.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return nil, err
	}
	return dc, nil
}
