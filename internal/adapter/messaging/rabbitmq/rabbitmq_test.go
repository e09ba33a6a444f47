package rabbitmq_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/srgjo27/puja_booking/internal/adapter/messaging/rabbitmq"
	"github.com/srgjo27/puja_booking/internal/core/domain"
	"github.com/srgjo27/puja_booking/internal/core/money"
	"github.com/srgjo27/puja_booking/internal/core/ports"
	"github.com/srgjo27/puja_booking/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	declared []string
	sent     []published
	err      error
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.declared = append(f.declared, name+":"+kind)
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func TestPublisher_Notify(t *testing.T) {
	ch := &fakeChannel{}
	p, err := rabbitmq.NewPublisher(ch, "puja.booking", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"puja.booking:topic"}, ch.declared)

	n := ports.Notification{UserID: uuid.New(), EventType: ports.EventBookingConfirmed, BookingID: uuid.New()}
	require.NoError(t, p.Notify(context.Background(), n))

	require.Len(t, ch.sent, 1)
	assert.Equal(t, "notification.booking.confirmed", ch.sent[0].key)
	assert.Equal(t, amqp.Persistent, ch.sent[0].msg.DeliveryMode)
	assert.NotEmpty(t, ch.sent[0].msg.MessageId)

	var got ports.Notification
	require.NoError(t, json.Unmarshal(ch.sent[0].msg.Body, &got))
	assert.Equal(t, n, got)
}

func TestPublisher_Obligations(t *testing.T) {
	ch := &fakeChannel{}
	p, err := rabbitmq.NewPublisher(ch, "puja.booking", zap.NewNop())
	require.NoError(t, err)
	id := uuid.New()

	require.NoError(t, p.RecordPayoutObligation(context.Background(), id, 1_250_000))
	require.NoError(t, p.RecordRefundObligation(context.Background(), id, 850_000))

	require.Len(t, ch.sent, 2)
	assert.Equal(t, rabbitmq.KeyPayoutObligation, ch.sent[0].key)
	assert.Equal(t, rabbitmq.KeyRefundObligation, ch.sent[1].key)

	var o rabbitmq.Obligation
	require.NoError(t, json.Unmarshal(ch.sent[1].msg.Body, &o))
	assert.Equal(t, money.Paise(850_000), o.AmountPaise)
	assert.Equal(t, "₹8,500.00", o.Amount)
}

func TestPublisher_Error(t *testing.T) {
	ch := &fakeChannel{err: amqp.ErrClosed}
	p, err := rabbitmq.NewPublisher(ch, "puja.booking", zap.NewNop())
	require.NoError(t, err)

	err = p.RecordPayoutObligation(context.Background(), uuid.New(), 1)
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

type ack struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *ack) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *ack) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func (a *ack) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type fakeFacts struct {
	payments []services.PaymentCaptured
	payouts  []services.PayoutTransferred
	err      error
}

func (f *fakeFacts) RecordPaymentCaptured(ctx context.Context, fact services.PaymentCaptured) (*domain.Booking, error) {
	f.payments = append(f.payments, fact)
	return &domain.Booking{}, f.err
}

func (f *fakeFacts) RecordPayoutTransferred(ctx context.Context, fact services.PayoutTransferred) (*domain.Booking, error) {
	f.payouts = append(f.payouts, fact)
	return &domain.Booking{}, f.err
}

func delivery(a *ack, key, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: a, RoutingKey: key, Body: []byte(body)}
}

func TestConsumer_Handle(t *testing.T) {
	facts := &fakeFacts{}
	c := rabbitmq.NewConsumer("", "puja.booking", "facts", facts, zap.NewNop())
	id := uuid.New()

	a := &ack{}
	c.Handle(context.Background(), delivery(a, rabbitmq.KeyPaymentCaptured,
		`{"booking_id":"`+id.String()+`","reference":"pay_1","grand_total_paise":2000000,"platform_fee_paise":300000}`))

	assert.True(t, a.acked)
	require.Len(t, facts.payments, 1)
	assert.Equal(t, id, facts.payments[0].BookingID)
	assert.Equal(t, money.Paise(2_000_000), facts.payments[0].GrandTotalPaise)

	a = &ack{}
	c.Handle(context.Background(), delivery(a, rabbitmq.KeyPayoutTransfer, `{"booking_id":"`+id.String()+`","reference":"po_1"}`))
	assert.True(t, a.acked)
	assert.Len(t, facts.payouts, 1)
}

func TestConsumer_Rejects(t *testing.T) {
	cases := []struct {
		name    string
		key     string
		body    string
		err     error
		requeue bool
	}{
		{"malformed", rabbitmq.KeyPaymentCaptured, `{`, nil, false},
		{"unknown key", "payment.refunded", `{}`, nil, false},
		{"unknown booking", rabbitmq.KeyPayoutTransfer, `{}`, domain.ErrBookingNotFound, false},
		{"busy", rabbitmq.KeyPaymentCaptured, `{}`, domain.ErrBookingBusy, true},
		{"storage down", rabbitmq.KeyPaymentCaptured, `{}`, errors.New("db down"), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := rabbitmq.NewConsumer("", "puja.booking", "facts", &fakeFacts{err: tc.err}, zap.NewNop())
			a := &ack{}

			c.Handle(context.Background(), delivery(a, tc.key, tc.body))

			assert.False(t, a.acked)
			assert.True(t, a.nacked)
			assert.Equal(t, tc.requeue, a.requeue)
		})
	}
}

func TestLogOnly(t *testing.T) {
	l := rabbitmq.LogOnly{Log: zap.NewNop()}

	assert.NoError(t, l.Notify(context.Background(), ports.Notification{EventType: ports.EventRefundDue}))
	assert.NoError(t, l.RecordPayoutObligation(context.Background(), uuid.New(), 10))
	assert.NoError(t, l.RecordRefundObligation(context.Background(), uuid.New(), 10))
}
