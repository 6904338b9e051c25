package dispatcher

import (
	"context"

	"github.com/sirupsen/logrus"
)

// HandlerFunc processes one raw message from a topic.
type HandlerFunc func(ctx context.Context, message []byte) error

// Dispatcher routes a raw message to the handler registered for its
// exact topic name. Messages for unregistered topics are logged and
// dropped.
type Dispatcher struct {
	handlers map[string]HandlerFunc
}

func New() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]HandlerFunc),
	}
}

func (d *Dispatcher) Register(topic string, handler HandlerFunc) {
	d.handlers[topic] = handler
}

func (d *Dispatcher) Dispatch(ctx context.Context, topic string, message []byte) error {
	handler, ok := d.handlers[topic]
	if !ok {
		logrus.WithField("topic", topic).Warn("no handler for topic, dropping message")
		return nil
	}

	return handler(ctx, message)
}
