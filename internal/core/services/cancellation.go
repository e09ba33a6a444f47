package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/srgjo27/puja_booking/internal/core/domain"
	"github.com/srgjo27/puja_booking/internal/core/money"
	"github.com/srgjo27/puja_booking/internal/core/ports"
	"github.com/srgjo27/puja_booking/internal/core/refund"
	"github.com/srgjo27/puja_booking/internal/core/settlement"
)

// RequestCancellation moves the booking to CANCELLED and stores the advisory refund computed at
// request time. Nothing is owed until an admin approves it.
func (s *BookingService) RequestCancellation(ctx context.Context, bookingID uuid.UUID, actor domain.Actor, reason string) (*domain.Booking, error) {
	return s.HandleAction(ctx, ActionRequest{
		BookingID: bookingID,
		Actor:     actor,
		Command:   CancelRequestCommand{Reason: reason},
	})
}

// ApproveCancellation finalises the refund. Approving an already refunded booking returns it
// unchanged.
func (s *BookingService) ApproveCancellation(ctx context.Context, bookingID uuid.UUID, admin domain.Actor) (*domain.Booking, error) {
	return s.HandleAction(ctx, ActionRequest{
		BookingID: bookingID,
		Actor:     admin,
		Command:   CancelApproveCommand{},
	})
}

func (s *BookingService) requestCancellation(ctx context.Context, work *domain.Booking, actor domain.Actor, reason string, now time.Time) error {
	if err := work.Check(domain.ActionCancelRequest, actor, now); err != nil {
		return err
	}

	grand, fee, err := s.chargedAmounts(ctx, work)
	if err != nil {
		return err
	}

	res, err := s.policy.Evaluate(refund.Request{
		GrandTotalPaise:  grand,
		PlatformFeePaise: fee,
		DaysUntilEvent:   refund.DaysUntil(work.EventDate, now),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidBooking, err)
	}

	return work.RequestCancellation(actor, domain.CancellationRecord{
		Reason:                  reason,
		RequestedBy:             actor.ID,
		RequestedAt:             now,
		DaysUntilEventAtRequest: res.DaysUntilEvent,
		RefundPercent:           res.Percent,
		GrandTotalPaise:         grand,
		PlatformFeePaise:        fee,
		RefundableBasePaise:     res.RefundableBasePaise,
		RefundAmountPaise:       res.RefundAmountPaise,
	}, now)
}

// chargedAmounts prefers the captured payment. Without one it quotes the booking at the rates
// captured on accept, or at the current sheet for a booking never accepted.
func (s *BookingService) chargedAmounts(ctx context.Context, b *domain.Booking) (grand, fee money.Paise, err error) {
	if b.Payment != nil {
		return b.Payment.GrandTotalPaise, b.Payment.PlatformFeePaise, nil
	}

	var rates domain.RateSheet
	if b.Rates != nil {
		rates = *b.Rates
	} else {
		rates, err = s.rates.Current(ctx)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: load rate sheet: %w", domain.ErrSettlementFailed, err)
		}
	}

	q, err := settlement.Quote(settlement.Input{Commercials: b.Commercials, Rates: rates})
	if err != nil {
		return 0, 0, err
	}
	return q.GrandTotalPaise, q.NonRefundablePaise, nil
}

func (s *BookingService) approveCancellation(ctx context.Context, work *domain.Booking, admin domain.Actor, now time.Time) error {
	candidate := work.Clone()
	if err := candidate.ApproveCancellation(admin, now); err != nil {
		return err
	}

	amount := candidate.Cancellation.RefundAmountPaise
	if err := s.withBoundary(ctx, func(ctx context.Context) error {
		return s.obligations.RecordRefundObligation(ctx, work.ID, amount)
	}); err != nil {
		s.log.Warn("refund obligation not recorded",
			zap.String("booking_id", work.ID.String()),
			zap.Int64("amount_paise", amount.Int64()),
			zap.Error(err))
		return fmt.Errorf("%w: record refund obligation: %v", ErrBoundaryUnavailable, err)
	}

	*work = *candidate
	return nil
}

func cancellationRequested(b *domain.Booking) []pendingNotification {
	fields := map[string]string{}
	if c := b.Cancellation; c != nil {
		fields["reason"] = c.Reason
		fields["refund_percent"] = fmt.Sprint(c.RefundPercent)
		fields["refund_amount"] = money.FormatINR(c.RefundAmountPaise)
	}

	out := []pendingNotification{{userID: b.CustomerID, event: ports.EventCancellationRequested, fields: fields}}
	if b.AgentID != nil {
		out = append(out, pendingNotification{userID: *b.AgentID, event: ports.EventCancellationRequested, fields: fields})
	}
	return out
}

func refundDue(b *domain.Booking) pendingNotification {
	n := pendingNotification{userID: b.CustomerID, event: ports.EventRefundDue}
	if c := b.Cancellation; c != nil {
		n.fields = map[string]string{
			"refund_amount_paise": fmt.Sprint(c.RefundAmountPaise.Int64()),
			"refund_amount":       money.FormatINR(c.RefundAmountPaise),
		}
	}
	return n
}
