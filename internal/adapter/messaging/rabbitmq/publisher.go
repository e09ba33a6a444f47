package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/srgjo27/puja_booking/internal/core/money"
	"github.com/srgjo27/puja_booking/internal/core/ports"
)

const (
	KeyPayoutObligation = "obligation.payout"
	KeyRefundObligation = "obligation.refund"
	KeyPaymentCaptured  = "payment.captured"
	KeyPayoutTransfer   = "payout.transferred"
)

func notificationKey(event ports.EventType) string {
	return "notification." + string(event)
}

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Obligation struct {
	BookingID   uuid.UUID   `json:"booking_id"`
	Kind        string      `json:"kind"`
	AmountPaise money.Paise `json:"amount_paise"`
	Amount      string      `json:"amount"`
}

// Publisher sends notifications and payout/refund obligations to a topic exchange. It serves
// both ports.Notifier and ports.ObligationRecorder.
type Publisher struct {
	mu       sync.Mutex
	ch       Channel
	exchange string
	log      *zap.Logger
}

func NewPublisher(ch Channel, exchange string, log *zap.Logger) (*Publisher, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("exchange declare: %w", err)
	}
	return &Publisher{ch: ch, exchange: exchange, log: log}, nil
}

// Dial opens a connection and a channel for a Publisher. Closing the returned connection closes
// the channel too.
func Dial(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("channel open: %w", err)
	}
	return conn, ch, nil
}

func (p *Publisher) Notify(ctx context.Context, n ports.Notification) error {
	return p.publish(ctx, notificationKey(n.EventType), n)
}

func (p *Publisher) RecordPayoutObligation(ctx context.Context, bookingID uuid.UUID, amount money.Paise) error {
	return p.publish(ctx, KeyPayoutObligation, Obligation{
		BookingID:   bookingID,
		Kind:        "payout",
		AmountPaise: amount,
		Amount:      money.FormatINR(amount),
	})
}

func (p *Publisher) RecordRefundObligation(ctx context.Context, bookingID uuid.UUID, amount money.Paise) error {
	return p.publish(ctx, KeyRefundObligation, Obligation{
		BookingID:   bookingID,
		Kind:        "refund",
		AmountPaise: amount,
		Amount:      money.FormatINR(amount),
	})
}

func (p *Publisher) publish(ctx context.Context, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Type:         key,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg); err != nil {
		p.log.Warn("rabbitmq publish failed", zap.String("routing_key", key), zap.Error(err))
		return err
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.Close()
}

// LogOnly stands in for the broker when none is configured.
type LogOnly struct {
	Log *zap.Logger
}

func (l LogOnly) Notify(ctx context.Context, n ports.Notification) error {
	l.Log.Info("notification",
		zap.String("user_id", n.UserID.String()),
		zap.String("event", string(n.EventType)),
		zap.String("booking_id", n.BookingID.String()))
	return nil
}

func (l LogOnly) RecordPayoutObligation(ctx context.Context, bookingID uuid.UUID, amount money.Paise) error {
	l.Log.Info("payout obligation", zap.String("booking_id", bookingID.String()), zap.String("amount", money.FormatINR(amount)))
	return nil
}

func (l LogOnly) RecordRefundObligation(ctx context.Context, bookingID uuid.UUID, amount money.Paise) error {
	l.Log.Info("refund obligation", zap.String("booking_id", bookingID.String()), zap.String("amount", money.FormatINR(amount)))
	return nil
}
