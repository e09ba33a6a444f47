package services

import (
	"context"
	"errors"
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

const (
	DefaultRequestWindow   = 6 * time.Hour
	DefaultBoundaryTimeout = 3 * time.Second
	expirySweepBatch       = 100
	createAttempts         = 3
)

// ErrBoundaryUnavailable is returned when the payout/refund collaborator could not record an
// obligation in time. The booking is left in its pre-transition state.
var ErrBoundaryUnavailable = errors.New("payment collaborator unavailable")

type Dependencies struct {
	Bookings    ports.BookingRepository
	Locker      ports.BookingLocker
	Rates       ports.RateProvider
	Notifier    ports.Notifier
	Obligations ports.ObligationRecorder
	Cache       ports.BreakdownCache
	Clock       ports.Clock
	Logger      *zap.Logger
}

type Config struct {
	RequestWindow   time.Duration
	BoundaryTimeout time.Duration
	RefundPolicy    refund.Policy
}

type BookingService struct {
	bookings    ports.BookingRepository
	locker      ports.BookingLocker
	rates       ports.RateProvider
	notifier    ports.Notifier
	obligations ports.ObligationRecorder
	cache       ports.BreakdownCache
	clock       ports.Clock
	log         *zap.Logger

	window          time.Duration
	boundaryTimeout time.Duration
	policy          refund.Policy
}

func NewBookingService(deps Dependencies, cfg Config) *BookingService {
	if cfg.RequestWindow <= 0 {
		cfg.RequestWindow = DefaultRequestWindow
	}
	if cfg.BoundaryTimeout <= 0 {
		cfg.BoundaryTimeout = DefaultBoundaryTimeout
	}
	if len(cfg.RefundPolicy.Tiers()) == 0 {
		cfg.RefundPolicy = refund.DefaultPolicy()
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &BookingService{
		bookings:        deps.Bookings,
		locker:          deps.Locker,
		rates:           deps.Rates,
		notifier:        deps.Notifier,
		obligations:     deps.Obligations,
		cache:           deps.Cache,
		clock:           deps.Clock,
		log:             deps.Logger,
		window:          cfg.RequestWindow,
		boundaryTimeout: cfg.BoundaryTimeout,
		policy:          cfg.RefundPolicy,
	}
}

// Now is the service clock. Callers describing what a booking allows should use it rather than
// wall time so they agree with HandleAction.
func (s *BookingService) Now() time.Time {
	return s.clock.Now()
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

type CreateBookingRequest struct {
	CustomerID  string             `json:"customer_id"`
	AgentID     string             `json:"agent_id,omitempty"`
	EventDate   time.Time          `json:"event_date"`
	Venue       domain.Venue       `json:"venue"`
	Commercials domain.Commercials `json:"commercials"`
}

func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid customer id", domain.ErrInvalidBooking)
	}

	var agentID *uuid.UUID
	if req.AgentID != "" {
		id, err := uuid.Parse(req.AgentID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid agent id", domain.ErrInvalidBooking)
		}
		agentID = &id
	}

	params := domain.NewBookingParams{
		CustomerID:  customerID,
		AgentID:     agentID,
		EventDate:   req.EventDate,
		Venue:       req.Venue,
		Commercials: req.Commercials,
	}

	var b *domain.Booking
	for attempt := 1; ; attempt++ {
		b, err = domain.NewBooking(params, s.clock.Now(), s.window)
		if err != nil {
			return nil, err
		}

		err = s.bookings.Create(ctx, b)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrDuplicateBooking) || attempt == createAttempts {
			return nil, fmt.Errorf("create booking: %w", err)
		}
		s.log.Warn("booking number taken, retrying", zap.String("number", b.Number), zap.Int("attempt", attempt))
	}

	s.log.Info("booking requested",
		zap.String("booking_id", b.ID.String()),
		zap.String("number", b.Number),
		zap.Time("request_expires_at", b.RequestExpiresAt))

	if b.AgentID != nil {
		s.notify(ctx, *b.AgentID, ports.EventBookingRequested, b, map[string]string{
			"request_expires_at": b.RequestExpiresAt.Format(time.RFC3339),
		})
	}

	return b, nil
}

// GetBooking returns the booking, first applying the lazy REQUESTED -> EXPIRED transition when
// the request window has passed. Any reader may trigger it and the outcome is the same.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if b.Status != domain.BookingRequested || b.RequestOpen(s.clock.Now()) {
		return b, nil
	}

	return s.expire(ctx, bookingID)
}

func (s *BookingService) expire(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	unlock, err := s.locker.Lock(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	work := current.Clone()
	if !work.ExpireIfDue(s.clock.Now()) {
		return current, nil
	}

	if err := s.bookings.Update(ctx, work, current.Version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return s.bookings.GetByID(ctx, bookingID)
		}
		return nil, fmt.Errorf("expire booking: %w", err)
	}

	s.log.Info("booking expired", zap.String("booking_id", bookingID.String()))
	s.notify(ctx, work.CustomerID, ports.EventBookingExpired, work, nil)

	return work, nil
}

// HandleAction validates and applies one action. For "complete" the settlement is attempted in
// the same step; if it fails the booking is kept at PUJA_COMPLETED and the error is returned
// together with the booking.
func (s *BookingService) HandleAction(ctx context.Context, req ActionRequest) (*domain.Booking, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var out outcome
	b, err := s.mutate(ctx, req.BookingID, func(work *domain.Booking, now time.Time) error {
		var err error
		out, err = s.apply(ctx, work, req, now)
		return err
	})

	if errors.Is(err, domain.ErrAlreadyRefunded) {
		return s.bookings.GetByID(ctx, req.BookingID)
	}
	if err != nil {
		s.log.Info("action rejected",
			zap.String("booking_id", req.BookingID.String()),
			zap.String("action", string(req.Command.Action())),
			zap.String("actor_id", req.Actor.ID.String()),
			zap.Error(err))
		return nil, err
	}

	s.log.Info("action applied",
		zap.String("booking_id", b.ID.String()),
		zap.String("action", string(req.Command.Action())),
		zap.String("actor_id", req.Actor.ID.String()),
		zap.String("status", string(b.Status)))

	s.afterCommit(ctx, b, out.events)

	if out.deferred != nil {
		s.log.Warn("settlement deferred",
			zap.String("booking_id", b.ID.String()),
			zap.Error(out.deferred))
		return b, out.deferred
	}
	return b, nil
}

type pendingNotification struct {
	userID uuid.UUID
	event  ports.EventType
	fields map[string]string
}

// outcome of a committed action. deferred is an error that did not prevent the commit, such as a
// settlement that has to be retried.
type outcome struct {
	events   []pendingNotification
	deferred error
}

func notifyOnly(events ...pendingNotification) outcome {
	return outcome{events: events}
}

func (s *BookingService) apply(ctx context.Context, work *domain.Booking, req ActionRequest, now time.Time) (outcome, error) {
	actor := req.Actor

	switch cmd := req.Command.(type) {
	case AcceptCommand:
		if err := work.Check(domain.ActionAccept, actor, now); err != nil {
			return outcome{}, err
		}
		rates, err := s.rates.Current(ctx)
		if err != nil {
			return outcome{}, &domain.TransitionError{
				Status: work.Status,
				Action: domain.ActionAccept,
				Err:    fmt.Errorf("%w: load rate sheet: %w", domain.ErrSettlementFailed, err),
			}
		}
		if err := work.Accept(actor, rates, now); err != nil {
			return outcome{}, err
		}
		return notifyOnly(pendingNotification{userID: work.CustomerID, event: ports.EventBookingConfirmed}), nil

	case DeclineCommand:
		if err := work.Decline(actor, now); err != nil {
			return outcome{}, err
		}
		return notifyOnly(pendingNotification{
			userID: work.CustomerID,
			event:  ports.EventBookingRejected,
			fields: map[string]string{"reason": cmd.Reason},
		}), nil

	case StartJourneyCommand:
		if err := work.StartJourney(actor, now); err != nil {
			return outcome{}, err
		}
		return notifyOnly(pendingNotification{userID: work.CustomerID, event: ports.EventAgentEnRoute}), nil

	case ArrivedCommand:
		if err := work.MarkArrived(actor, now); err != nil {
			return outcome{}, err
		}
		return notifyOnly(pendingNotification{userID: work.CustomerID, event: ports.EventAgentArrived}), nil

	case StartPujaCommand:
		if err := work.StartPuja(actor, now); err != nil {
			return outcome{}, err
		}
		return notifyOnly(pendingNotification{userID: work.CustomerID, event: ports.EventPujaStarted}), nil

	case CompleteCommand:
		if err := work.Complete(actor, cmd.ActualTravel, now); err != nil {
			return outcome{}, err
		}
		completed := pendingNotification{userID: work.CustomerID, event: ports.EventPujaCompleted}
		if err := s.settle(ctx, work, now); err != nil {
			return outcome{events: []pendingNotification{completed}, deferred: err}, nil
		}
		return notifyOnly(completed, payoutDue(work)), nil

	case CancelRequestCommand:
		if err := s.requestCancellation(ctx, work, actor, cmd.Reason, now); err != nil {
			return outcome{}, err
		}
		return notifyOnly(cancellationRequested(work)...), nil

	case CancelApproveCommand:
		if err := s.approveCancellation(ctx, work, actor, now); err != nil {
			return outcome{}, err
		}
		return notifyOnly(refundDue(work)), nil
	}

	return outcome{}, fmt.Errorf("%w: unsupported command %T", domain.ErrInvalidPayload, req.Command)
}

// mutate runs fn on a copy of the booking under the booking lock and commits the copy with a
// version compare-and-swap. Nothing is written if fn fails.
func (s *BookingService) mutate(ctx context.Context, bookingID uuid.UUID, fn func(work *domain.Booking, now time.Time) error) (*domain.Booking, error) {
	unlock, err := s.locker.Lock(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	work := current.Clone()
	if err := fn(work, s.clock.Now()); err != nil {
		return nil, err
	}

	if err := s.bookings.Update(ctx, work, current.Version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return nil, s.conflict(ctx, bookingID, work)
		}
		return nil, fmt.Errorf("save booking: %w", err)
	}

	return work, nil
}

func (s *BookingService) conflict(ctx context.Context, bookingID uuid.UUID, attempted *domain.Booking) error {
	action := domain.Action("")
	if n := len(attempted.History); n > 0 {
		action = attempted.History[n-1].Action
	}

	latest, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidTransition, err)
	}
	return &domain.TransitionError{Status: latest.Status, Action: action, Err: domain.ErrInvalidTransition}
}

// Settle retries settlement for a booking stuck at PUJA_COMPLETED. A booking that is already
// settled returns its stored breakdown.
func (s *BookingService) Settle(ctx context.Context, bookingID uuid.UUID) (*domain.MoneyBreakdown, error) {
	var already *domain.MoneyBreakdown

	b, err := s.mutate(ctx, bookingID, func(work *domain.Booking, now time.Time) error {
		if work.Settlement != nil {
			bd := *work.Settlement
			already = &bd
			return domain.ErrAlreadySettled
		}
		if err := work.Check(domain.ActionSettle, domain.SystemActor, now); err != nil {
			return err
		}
		return s.settle(ctx, work, now)
	})

	if already != nil {
		return already, nil
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("booking settled",
		zap.String("booking_id", b.ID.String()),
		zap.Int64("total_payout_paise", b.Settlement.TotalPayoutPaise.Int64()))
	s.afterCommit(ctx, b, []pendingNotification{payoutDue(b)})

	bd := *b.Settlement
	return &bd, nil
}

// settle computes the breakdown, records the payout obligation and advances to COMPLETED. On any
// failure work is left exactly as it was.
func (s *BookingService) settle(ctx context.Context, work *domain.Booking, now time.Time) error {
	in, err := settlement.FromBooking(work)
	if err != nil {
		return err
	}
	bd, err := settlement.Settle(in)
	if err != nil {
		return err
	}

	candidate := work.Clone()
	if err := candidate.AttachSettlement(bd, now); err != nil {
		return err
	}

	if err := s.withBoundary(ctx, func(ctx context.Context) error {
		return s.obligations.RecordPayoutObligation(ctx, work.ID, bd.TotalPayoutPaise)
	}); err != nil {
		return fmt.Errorf("%w: record payout obligation: %v", ErrBoundaryUnavailable, err)
	}

	candidate.Payout = &domain.PayoutRecord{AmountPaise: bd.TotalPayoutPaise, RecordedAt: now}
	*work = *candidate
	return nil
}

// GetBreakdown returns the settled breakdown, or domain.ErrNotYetSettled.
func (s *BookingService) GetBreakdown(ctx context.Context, bookingID uuid.UUID) (*domain.MoneyBreakdown, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, bookingID)
		if err != nil {
			s.log.Warn("breakdown cache read failed", zap.String("booking_id", bookingID.String()), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	b, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Settlement == nil {
		return nil, &domain.TransitionError{Status: b.Status, Action: domain.ActionSettle, Err: domain.ErrNotYetSettled}
	}

	s.cacheBreakdown(ctx, b)

	bd := *b.Settlement
	return &bd, nil
}

func (s *BookingService) cacheBreakdown(ctx context.Context, b *domain.Booking) {
	if s.cache == nil || b.Settlement == nil {
		return
	}
	if err := s.cache.Set(ctx, b.ID, *b.Settlement); err != nil {
		s.log.Warn("breakdown cache write failed", zap.String("booking_id", b.ID.String()), zap.Error(err))
	}
}

func (s *BookingService) withBoundary(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.boundaryTimeout)
	defer cancel()
	return fn(ctx)
}

func (s *BookingService) afterCommit(ctx context.Context, b *domain.Booking, events []pendingNotification) {
	s.cacheBreakdown(ctx, b)
	for _, e := range events {
		s.notify(ctx, e.userID, e.event, b, e.fields)
	}
}

// notify delivers outside the request's cancellation scope and only logs failures.
func (s *BookingService) notify(ctx context.Context, userID uuid.UUID, event ports.EventType, b *domain.Booking, fields map[string]string) {
	if s.notifier == nil || userID == uuid.Nil {
		return
	}

	all := map[string]string{
		"booking_number": b.Number,
		"status":         string(b.Status),
		"event_date":     b.EventDate.Format(time.RFC3339),
	}
	for k, v := range fields {
		all[k] = v
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.boundaryTimeout)
	defer cancel()

	err := s.notifier.Notify(ctx, ports.Notification{
		UserID:    userID,
		EventType: event,
		BookingID: b.ID,
		Fields:    all,
	})
	if err != nil {
		s.log.Warn("notification delivery failed",
			zap.String("booking_id", b.ID.String()),
			zap.String("event", string(event)),
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
}

func payoutDue(b *domain.Booking) pendingNotification {
	n := pendingNotification{event: ports.EventPayoutDue}
	if b.AgentID != nil {
		n.userID = *b.AgentID
	}
	if b.Settlement != nil {
		n.fields = map[string]string{
			"total_payout_paise": fmt.Sprint(b.Settlement.TotalPayoutPaise.Int64()),
			"total_payout":       money.FormatINR(b.Settlement.TotalPayoutPaise),
		}
	}
	return n
}
