package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/puja_booking/internal/core/domain"
)

// BookingRepository keeps bookings in process memory. Stored values are copies, so callers can
// never reach into the store except through Update.
type BookingRepository struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]*domain.Booking
	numbers  map[string]uuid.UUID
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{
		bookings: make(map[uuid.UUID]*domain.Booking),
		numbers:  make(map[string]uuid.UUID),
	}
}

func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[booking.ID]; ok {
		return fmt.Errorf("%w: id %s", domain.ErrDuplicateBooking, booking.ID)
	}
	if _, ok := r.numbers[booking.Number]; ok {
		return fmt.Errorf("%w: number %s", domain.ErrDuplicateBooking, booking.Number)
	}

	booking.Version = 1
	r.bookings[booking.ID] = booking.Clone()
	r.numbers[booking.Number] = booking.ID
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[bookingID]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return b.Clone(), nil
}

func (r *BookingRepository) Update(ctx context.Context, booking *domain.Booking, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.bookings[booking.ID]
	if !ok {
		return domain.ErrBookingNotFound
	}
	if stored.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	if len(booking.History) < len(stored.History) {
		return fmt.Errorf("booking %s: history is append-only", booking.ID)
	}

	booking.Version = expectedVersion + 1
	r.bookings[booking.ID] = booking.Clone()
	return nil
}

func (r *BookingRepository) ListExpiredRequests(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []*domain.Booking
	for _, b := range r.bookings {
		if b.Status == domain.BookingRequested && now.After(b.RequestExpiresAt) {
			due = append(due, b)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].RequestExpiresAt.Before(due[j].RequestExpiresAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	ids := make([]uuid.UUID, 0, len(due))
	for _, b := range due {
		ids = append(ids, b.ID)
	}
	return ids, nil
}
