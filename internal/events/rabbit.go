package events

import (
	"context"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// CartUpdated is the routing key of the event published after a user's
// cart is written.
const CartUpdated = "cart.updated"

// Publisher sends an event body under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Rabbit publishes JSON events to a durable topic exchange.
type Rabbit struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewRabbit dials url and declares exchange as a durable topic exchange.
func NewRabbit(url, exchange string, logger *zap.Logger) (*Rabbit, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	logger.Info("rabbit: connected", zap.String("exchange", exchange))
	return &Rabbit{conn: conn, ch: ch, exchange: exchange, logger: logger}, nil
}

// Publish sends body under routingKey. A nil Rabbit drops the message.
func (r *Rabbit) Publish(ctx context.Context, routingKey string, body []byte) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ch == nil {
		return errors.New("rabbit: channel closed")
	}
	err := r.ch.PublishWithContext(ctx, r.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		r.logger.Warn("rabbit: publish", zap.String("routing_key", routingKey), zap.Error(err))
		return err
	}
	return nil
}

func (r *Rabbit) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ch != nil {
		_ = r.ch.Close()
		r.ch = nil
	}
	if r.conn != nil {
		_ = r.conn.Close()
		r.conn = nil
	}
}
