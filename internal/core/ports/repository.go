package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/puja_booking/internal/core/domain"
)

// BookingRepository persists the booking aggregate. Update is a compare-and-swap on Version:
// it fails with domain.ErrVersionConflict when the stored version is not expectedVersion, and
// on success appends history entries not yet stored and sets b.Version to expectedVersion+1.
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error)
	Update(ctx context.Context, booking *domain.Booking, expectedVersion int64) error
	ListExpiredRequests(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// BookingLocker serializes writers of a single booking.
type BookingLocker interface {
	Lock(ctx context.Context, bookingID uuid.UUID) (unlock func(), err error)
}

type RateProvider interface {
	Current(ctx context.Context) (domain.RateSheet, error)
}

// BreakdownCache holds settled breakdowns. Get returns nil, nil on a miss.
type BreakdownCache interface {
	Get(ctx context.Context, bookingID uuid.UUID) (*domain.MoneyBreakdown, error)
	Set(ctx context.Context, bookingID uuid.UUID, breakdown domain.MoneyBreakdown) error
}

type Clock interface {
	Now() time.Time
}
