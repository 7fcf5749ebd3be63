package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Lllllllleong/documentworkers/internal/config"
	"github.com/Lllllllleong/documentworkers/internal/models"
	"github.com/Lllllllleong/documentworkers/internal/port"
)

// prefetch is fixed at one: a worker holds a single unacknowledged message.
const prefetch = 1

// ErrDeliveriesClosed is returned by Next when the broker closed the consumer.
var ErrDeliveriesClosed = errors.New("rabbitmq: delivery channel closed")

var errNotConsuming = errors.New("rabbitmq: Consume has not been called")

// Client implements port.MessageBroker on a single AMQP channel.
type Client struct {
	conn           *amqp.Connection
	ch             channel
	deliveries     <-chan amqp.Delivery
	cfg            config.RabbitMQConfig
	publishTimeout time.Duration
}

var _ port.MessageBroker = (*Client)(nil)

// Dial connects, declares the exchange and both queues and enables
// publisher confirms. Call Consume before Next.
func Dial(cfg config.RabbitMQConfig) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	c, err := newClient(amqpChannel{ch}, cfg)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	c.conn = conn

	slog.Info("Connected to RabbitMQ",
		"host", cfg.Host,
		"port", cfg.Port,
		"exchange", cfg.Exchange,
		"queue", cfg.Queue,
		"responseQueue", cfg.ResponseQueue,
	)
	return c, nil
}

// newClient declares the topology on ch and puts it into confirm mode.
func newClient(ch channel, cfg config.RabbitMQConfig) (*Client, error) {
	c := &Client{ch: ch, cfg: cfg, publishTimeout: time.Duration(cfg.PublishTimeoutSecs) * time.Second}
	if c.publishTimeout <= 0 {
		c.publishTimeout = 30 * time.Second
	}

	if err := c.declareTopology(); err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}
	return c, nil
}

// Consume starts delivering messages from the request queue, one
// unacknowledged message at a time.
func (c *Client) Consume(consumerTag string) error {
	if err := c.ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}
	deliveries, err := c.ch.Consume(c.cfg.Queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", c.cfg.Queue, err)
	}
	c.deliveries = deliveries
	slog.Info("Consuming messages.", "queue", c.cfg.Queue, "consumerTag", consumerTag, "prefetch", prefetch)
	return nil
}

func (c *Client) declareTopology() error {
	if err := c.ch.ExchangeDeclare(c.cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", c.cfg.Exchange, err)
	}

	bindings := []struct{ queue, key string }{
		{c.cfg.Queue, c.cfg.RoutingKeyRequest},
		{c.cfg.ResponseQueue, c.cfg.RoutingKeyResponse},
	}
	for _, b := range bindings {
		if _, err := c.ch.QueueDeclare(b.queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", b.queue, err)
		}
		if err := c.ch.QueueBind(b.queue, b.key, c.cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s to %s: %w", b.queue, b.key, err)
		}
	}
	return nil
}

func (c *Client) Next(ctx context.Context) (*port.Delivery, error) {
	if c.deliveries == nil {
		return nil, errNotConsuming
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case d, ok := <-c.deliveries:
		if !ok {
			return nil, ErrDeliveriesClosed
		}
		return &port.Delivery{
			Body:        d.Body,
			RoutingKey:  d.RoutingKey,
			Tag:         d.DeliveryTag,
			Redelivered: d.Redelivered,
		}, nil
	}
}

func (c *Client) Ack(d *port.Delivery) error {
	if err := c.ch.Ack(d.Tag, false); err != nil {
		return fmt.Errorf("failed to ack delivery %d: %w", d.Tag, err)
	}
	return nil
}

func (c *Client) Nack(d *port.Delivery, requeue bool) error {
	if err := c.ch.Nack(d.Tag, false, requeue); err != nil {
		return fmt.Errorf("failed to nack delivery %d: %w", d.Tag, err)
	}
	return nil
}

// Publish sends a persistent JSON message to the response routing key and
// waits for the broker's confirm.
func (c *Client) Publish(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.publishTimeout)
	defer cancel()

	confirm, err := c.ch.publish(ctx, c.cfg.Exchange, c.cfg.RoutingKeyResponse, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to publish response: %w", models.ErrTransient, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed waiting for publish confirm: %w", models.ErrTransient, err)
	}
	if !acked {
		return fmt.Errorf("%w: broker rejected response publish", models.ErrTransient)
	}
	return nil
}

func (c *Client) Close() error {
	var errs []error
	if c.ch != nil {
		if err := c.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
