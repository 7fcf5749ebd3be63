package port

import "context"

// Delivery is one message handed out by a MessageBroker.
type Delivery struct {
	Body        []byte
	RoutingKey  string
	Tag         uint64
	Redelivered bool
}

// MessageBroker abstracts the request queue and the response exchange.
// Delivery is at-least-once; Ack or Nack must be called exactly once per
// delivery returned by Next.
type MessageBroker interface {
	Publisher
	Next(ctx context.Context) (*Delivery, error)
	Ack(d *Delivery) error
	Nack(d *Delivery, requeue bool) error
}

// Publisher sends a response message and returns once the broker has
// accepted it.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}
