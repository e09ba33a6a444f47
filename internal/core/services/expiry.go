package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/srgjo27/puja_booking/internal/core/domain"
)

// ExpireStale expires REQUESTED bookings whose window has passed and reports how many moved.
// Reads already expire lazily; the sweep only makes the transition visible without a read.
func (s *BookingService) ExpireStale(ctx context.Context) (int, error) {
	ids, err := s.bookings.ListExpiredRequests(ctx, s.clock.Now(), expirySweepBatch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		b, err := s.expire(ctx, id)
		if err != nil {
			s.log.Warn("failed to expire booking", zap.String("booking_id", id.String()), zap.Error(err))
			continue
		}
		if b.Status == domain.BookingExpired {
			expired++
		}
	}

	return expired, nil
}

func (s *BookingService) RunExpirySweeper(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	s.log.Info("expiry sweeper started", zap.Duration("interval", every))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			n, err := s.ExpireStale(ctx)
			if err != nil {
				s.log.Error("expiry sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.log.Info("expired stale requests", zap.Int("count", n))
			}
		}
	}
}
