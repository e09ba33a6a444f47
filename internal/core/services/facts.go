package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/srgjo27/puja_booking/internal/core/domain"
	"github.com/srgjo27/puja_booking/internal/core/money"
	"github.com/srgjo27/puja_booking/internal/core/ports"
)

var errDuplicateFact = errors.New("fact already recorded")

type PaymentCaptured struct {
	BookingID        uuid.UUID   `json:"booking_id"`
	Reference        string      `json:"reference"`
	GrandTotalPaise  money.Paise `json:"grand_total_paise"`
	PlatformFeePaise money.Paise `json:"platform_fee_paise"`
	CapturedAt       time.Time   `json:"captured_at"`
}

type PayoutTransferred struct {
	BookingID     uuid.UUID `json:"booking_id"`
	Reference     string    `json:"reference"`
	TransferredAt time.Time `json:"transferred_at"`
}

// RecordPaymentCaptured stores the payment collaborator's capture fact. Redelivery of the same
// fact is a no-op. The fact never changes booking status.
func (s *BookingService) RecordPaymentCaptured(ctx context.Context, fact PaymentCaptured) (*domain.Booking, error) {
	if strings.TrimSpace(fact.Reference) == "" {
		return nil, fmt.Errorf("%w: payment reference is required", domain.ErrInvalidPayload)
	}
	if fact.GrandTotalPaise < 0 || fact.PlatformFeePaise < 0 || fact.PlatformFeePaise > fact.GrandTotalPaise {
		return nil, fmt.Errorf("%w: payment amounts are inconsistent", domain.ErrInvalidPayload)
	}
	if fact.GrandTotalPaise > money.MaxPaise {
		return nil, fmt.Errorf("%w: payment of %d paise exceeds limit", domain.ErrInvalidPayload, fact.GrandTotalPaise)
	}

	b, err := s.mutate(ctx, fact.BookingID, func(work *domain.Booking, now time.Time) error {
		if work.Payment != nil {
			if work.Payment.Reference == fact.Reference {
				return errDuplicateFact
			}
			return fmt.Errorf("%w: payment %s already captured", domain.ErrInvalidPayload, work.Payment.Reference)
		}

		capturedAt := fact.CapturedAt
		if capturedAt.IsZero() {
			capturedAt = now
		}
		work.Payment = &domain.PaymentRecord{
			Reference:        fact.Reference,
			GrandTotalPaise:  fact.GrandTotalPaise,
			PlatformFeePaise: fact.PlatformFeePaise,
			CapturedAt:       capturedAt,
		}
		return nil
	})
	if errors.Is(err, errDuplicateFact) {
		return s.bookings.GetByID(ctx, fact.BookingID)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("payment captured",
		zap.String("booking_id", b.ID.String()),
		zap.String("reference", fact.Reference),
		zap.Int64("grand_total_paise", fact.GrandTotalPaise.Int64()))

	return b, nil
}

// RecordPayoutTransferred marks the agent payout as paid out. It requires a settled booking.
func (s *BookingService) RecordPayoutTransferred(ctx context.Context, fact PayoutTransferred) (*domain.Booking, error) {
	if strings.TrimSpace(fact.Reference) == "" {
		return nil, fmt.Errorf("%w: payout reference is required", domain.ErrInvalidPayload)
	}

	b, err := s.mutate(ctx, fact.BookingID, func(work *domain.Booking, now time.Time) error {
		if work.Payout == nil {
			return &domain.TransitionError{Status: work.Status, Action: domain.ActionSettle, Err: domain.ErrNotYetSettled}
		}
		if work.Payout.TransferredAt != nil {
			return errDuplicateFact
		}

		at := fact.TransferredAt
		if at.IsZero() {
			at = now
		}
		work.Payout.TransferredAt = &at
		work.Payout.Reference = fact.Reference
		return nil
	})
	if errors.Is(err, errDuplicateFact) {
		return s.bookings.GetByID(ctx, fact.BookingID)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("payout transferred",
		zap.String("booking_id", b.ID.String()),
		zap.String("reference", fact.Reference))

	if b.AgentID != nil {
		s.notify(ctx, *b.AgentID, ports.EventPayoutTransferred, b, map[string]string{
			"reference":    fact.Reference,
			"total_payout": money.FormatINR(b.Payout.AmountPaise),
		})
	}

	return b, nil
}
