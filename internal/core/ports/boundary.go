package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/srgjo27/puja_booking/internal/core/money"
)

type EventType string

const (
	EventBookingRequested      EventType = "booking.requested"
	EventBookingConfirmed      EventType = "booking.confirmed"
	EventBookingRejected       EventType = "booking.rejected"
	EventBookingExpired        EventType = "booking.expired"
	EventAgentEnRoute          EventType = "agent.en_route"
	EventAgentArrived          EventType = "agent.arrived"
	EventPujaStarted           EventType = "puja.started"
	EventPujaCompleted         EventType = "puja.completed"
	EventPayoutDue             EventType = "payout.due"
	EventPayoutTransferred     EventType = "payout.transferred"
	EventCancellationRequested EventType = "cancellation.requested"
	EventRefundDue             EventType = "refund.due"
)

type Notification struct {
	UserID    uuid.UUID         `json:"user_id"`
	EventType EventType         `json:"event_type"`
	BookingID uuid.UUID         `json:"booking_id"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// Notifier is fire-and-forget: a delivery failure never undoes a committed transition.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// ObligationRecorder tells the payment collaborator what is owed. Calls must be idempotent per
// booking since a failed commit may be retried.
type ObligationRecorder interface {
	RecordPayoutObligation(ctx context.Context, bookingID uuid.UUID, amount money.Paise) error
	RecordRefundObligation(ctx context.Context, bookingID uuid.UUID, amount money.Paise) error
}
