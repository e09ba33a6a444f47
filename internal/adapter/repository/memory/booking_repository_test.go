package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/puja_booking/internal/adapter/repository/memory"
	"github.com/srgjo27/puja_booking/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBooking(t *testing.T, now time.Time) *domain.Booking {
	b, err := domain.NewBooking(domain.NewBookingParams{
		CustomerID:  uuid.New(),
		EventDate:   now.Add(72 * time.Hour),
		Venue:       domain.Venue{City: "Haridwar"},
		Commercials: domain.Commercials{DakshinaPaise: 500_000, SamagriChoice: domain.SamagriPlatformList},
	}, now, time.Hour)
	require.NoError(t, err)
	return b
}

func TestBookingRepository_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewBookingRepository()
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	b := newBooking(t, now)

	require.NoError(t, repo.Create(ctx, b))
	assert.Equal(t, int64(1), b.Version)

	first, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)

	first.Status = domain.BookingConfirmed
	require.NoError(t, repo.Update(ctx, first, 1))
	assert.Equal(t, int64(2), first.Version)

	second.Status = domain.BookingRejected
	assert.ErrorIs(t, repo.Update(ctx, second, 1), domain.ErrVersionConflict)

	stored, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, stored.Status)
}

func TestBookingRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewBookingRepository()
	b := newBooking(t, time.Now())
	require.NoError(t, repo.Create(ctx, b))

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	got.Status = domain.BookingCompleted
	got.History[0].Action = domain.ActionSettle

	again, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingRequested, again.Status)
	assert.Equal(t, domain.ActionCreate, again.History[0].Action)
}

func TestBookingRepository_NotFound(t *testing.T) {
	repo := memory.NewBookingRepository()

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)

	err = repo.Update(context.Background(), &domain.Booking{ID: uuid.New()}, 1)
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestBookingRepository_ListExpiredRequests(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewBookingRepository()
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	older := newBooking(t, now.Add(-3*time.Hour))
	old := newBooking(t, now.Add(-2*time.Hour))
	fresh := newBooking(t, now)
	for _, b := range []*domain.Booking{fresh, old, older} {
		require.NoError(t, repo.Create(ctx, b))
	}

	ids, err := repo.ListExpiredRequests(ctx, now, 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{older.ID, old.ID}, ids)

	ids, err = repo.ListExpiredRequests(ctx, now, 1)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{older.ID}, ids)
}

func TestBookingRepository_RejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewBookingRepository()
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	b := newBooking(t, now)
	require.NoError(t, repo.Create(ctx, b))

	assert.ErrorIs(t, repo.Create(ctx, b.Clone()), domain.ErrDuplicateBooking)

	sameNumber := newBooking(t, now)
	sameNumber.Number = b.Number
	assert.ErrorIs(t, repo.Create(ctx, sameNumber), domain.ErrDuplicateBooking)

	_, err := repo.GetByID(ctx, sameNumber.ID)
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}
