package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/srgjo27/puja_booking/internal/core/domain"
	"github.com/srgjo27/puja_booking/internal/core/services"
)

// FactHandler receives facts from the payment collaborator.
type FactHandler interface {
	RecordPaymentCaptured(ctx context.Context, fact services.PaymentCaptured) (*domain.Booking, error)
	RecordPayoutTransferred(ctx context.Context, fact services.PayoutTransferred) (*domain.Booking, error)
}

type Consumer struct {
	url      string
	exchange string
	queue    string
	handler  FactHandler
	log      *zap.Logger
}

func NewConsumer(url, exchange, queue string, handler FactHandler, log *zap.Logger) *Consumer {
	return &Consumer{url: url, exchange: exchange, queue: queue, handler: handler, log: log}
}

// Run consumes until ctx is done, reconnecting with backoff when the broker goes away.
func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			c.log.Info("fact consumer stopped")
			return
		}

		c.log.Warn("fact consumer disconnected", zap.Error(err), zap.Duration("retry_in", backoff))
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	conn, ch, err := Dial(c.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set QoS failed", zap.Error(err))
	}
	if err := ch.ExchangeDeclare(c.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	for _, key := range []string{KeyPaymentCaptured, KeyPayoutTransfer} {
		if err := ch.QueueBind(c.queue, key, c.exchange, false, nil); err != nil {
			return fmt.Errorf("queue bind %s: %w", key, err)
		}
	}

	msgs, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	c.log.Info("fact consumer started", zap.String("queue", c.queue))
	for d := range msgs {
		c.Handle(ctx, d)
	}
	return errors.New("deliveries channel closed")
}

// Handle processes one delivery. Facts that can never apply are dropped; anything else is
// requeued for another attempt.
func (c *Consumer) Handle(ctx context.Context, d amqp.Delivery) {
	err := c.dispatch(ctx, d)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	requeue := !permanent(err)
	c.log.Warn("fact not applied",
		zap.String("routing_key", d.RoutingKey),
		zap.String("message_id", d.MessageId),
		zap.Bool("requeue", requeue),
		zap.Error(err))
	_ = d.Nack(false, requeue)
}

func (c *Consumer) dispatch(ctx context.Context, d amqp.Delivery) error {
	switch d.RoutingKey {
	case KeyPaymentCaptured:
		var fact services.PaymentCaptured
		if err := json.Unmarshal(d.Body, &fact); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
		}
		_, err := c.handler.RecordPaymentCaptured(ctx, fact)
		return err
	case KeyPayoutTransfer:
		var fact services.PayoutTransferred
		if err := json.Unmarshal(d.Body, &fact); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
		}
		_, err := c.handler.RecordPayoutTransferred(ctx, fact)
		return err
	}
	return fmt.Errorf("%w: unexpected routing key %q", domain.ErrInvalidPayload, d.RoutingKey)
}

func permanent(err error) bool {
	return errors.Is(err, domain.ErrInvalidPayload) ||
		errors.Is(err, domain.ErrBookingNotFound) ||
		errors.Is(err, domain.ErrNotYetSettled)
}
