package domain

import (
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/puja_booking/internal/core/money"
)

type BookingStatus string

const (
	BookingRequested     BookingStatus = "REQUESTED"
	BookingConfirmed     BookingStatus = "CONFIRMED"
	BookingEnRoute       BookingStatus = "EN_ROUTE"
	BookingArrived       BookingStatus = "ARRIVED"
	BookingInProgress    BookingStatus = "IN_PROGRESS"
	BookingPujaCompleted BookingStatus = "PUJA_COMPLETED"
	BookingCompleted     BookingStatus = "COMPLETED"
	BookingCancelled     BookingStatus = "CANCELLED"
	BookingRefunded      BookingStatus = "REFUNDED"
	BookingExpired       BookingStatus = "EXPIRED"
	BookingRejected      BookingStatus = "REJECTED"
)

var AllStatuses = []BookingStatus{
	BookingRequested, BookingConfirmed, BookingEnRoute, BookingArrived, BookingInProgress,
	BookingPujaCompleted, BookingCompleted, BookingCancelled, BookingRefunded, BookingExpired,
	BookingRejected,
}

func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingCompleted, BookingRefunded, BookingExpired, BookingRejected:
		return true
	}
	return false
}

type SamagriChoice string

const (
	SamagriAgentPackage SamagriChoice = "AGENT_PACKAGE"
	SamagriPlatformList SamagriChoice = "PLATFORM_LIST"
)

func (c SamagriChoice) IsValid() bool {
	return c == SamagriAgentPackage || c == SamagriPlatformList
}

type Venue struct {
	City    string `json:"city"`
	Address string `json:"address"`
}

type TravelCost struct {
	OutboundPaise money.Paise `json:"outbound_paise"`
	ReturnPaise   money.Paise `json:"return_paise"`
}

func (t TravelCost) Total() money.Paise {
	return t.OutboundPaise + t.ReturnPaise
}

// Commercials are the priced inputs of a booking. TravelChargePaise is what the customer is
// charged for travel; AgentTravel is what the agent actually incurs. They are never conflated.
type Commercials struct {
	DakshinaPaise            money.Paise   `json:"dakshina_paise"`
	SamagriChoice            SamagriChoice `json:"samagri_choice"`
	SamagriPaise             money.Paise   `json:"samagri_paise"`
	TravelChargePaise        money.Paise   `json:"travel_charge_paise"`
	AgentTravel              TravelCost    `json:"agent_travel"`
	FoodAllowancePerDayPaise money.Paise   `json:"food_allowance_per_day_paise"`
	TripDays                 int           `json:"trip_days"`
	AccommodationPaise       money.Paise   `json:"accommodation_paise"`
}

// Input bounds. At these limits a full quote still sums well below money.MaxPaise.
const (
	MaxAmountPaise money.Paise = 10_000_000_000_000
	MaxTripDays                = 366
)

func (c Commercials) Validate() error {
	if c.DakshinaPaise <= 0 {
		return fmt.Errorf("%w: dakshina must be positive", ErrInvalidBooking)
	}
	if !c.SamagriChoice.IsValid() {
		return fmt.Errorf("%w: unknown samagri choice %q", ErrInvalidBooking, c.SamagriChoice)
	}
	if c.TripDays < 0 || c.TripDays > MaxTripDays {
		return fmt.Errorf("%w: trip of %d days is out of range", ErrInvalidBooking, c.TripDays)
	}

	amounts := []struct {
		name  string
		value money.Paise
	}{
		{"dakshina", c.DakshinaPaise},
		{"samagri", c.SamagriPaise},
		{"travel charge", c.TravelChargePaise},
		{"food allowance", c.FoodAllowancePerDayPaise},
		{"accommodation", c.AccommodationPaise},
	}

	for _, a := range amounts {
		if err := checkAmount(a.name, a.value); err != nil {
			return err
		}
	}

	return c.AgentTravel.Validate()
}

func (t TravelCost) Validate() error {
	if err := checkAmount("outbound travel", t.OutboundPaise); err != nil {
		return err
	}
	return checkAmount("return travel", t.ReturnPaise)
}

func checkAmount(name string, v money.Paise) error {
	if v < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidBooking, name)
	}
	if v > MaxAmountPaise {
		return fmt.Errorf("%w: %s of %d paise exceeds limit", ErrInvalidBooking, name, v)
	}
	return nil
}

type HistoryEntry struct {
	Seq       int           `json:"seq"`
	Status    BookingStatus `json:"status"`
	Action    Action        `json:"action"`
	ActorID   uuid.UUID     `json:"actor_id"`
	ActorRole Role          `json:"actor_role"`
	At        time.Time     `json:"at"`
}

// PaymentRecord is the captured-payment fact received from the payment collaborator.
type PaymentRecord struct {
	Reference        string      `json:"reference"`
	GrandTotalPaise  money.Paise `json:"grand_total_paise"`
	PlatformFeePaise money.Paise `json:"platform_fee_paise"`
	CapturedAt       time.Time   `json:"captured_at"`
}

type PayoutRecord struct {
	AmountPaise   money.Paise `json:"amount_paise"`
	RecordedAt    time.Time   `json:"recorded_at"`
	TransferredAt *time.Time  `json:"transferred_at,omitempty"`
	Reference     string      `json:"reference,omitempty"`
}

type Booking struct {
	ID               uuid.UUID
	Number           string
	CustomerID       uuid.UUID
	AgentID          *uuid.UUID
	EventDate        time.Time
	Venue            Venue
	Commercials      Commercials
	Rates            *RateSheet
	Status           BookingStatus
	History          []HistoryEntry
	Version          int64
	CreatedAt        time.Time
	RequestExpiresAt time.Time
	ConfirmedAt      *time.Time
	Settlement       *MoneyBreakdown
	Cancellation     *CancellationRecord
	Payment          *PaymentRecord
	Payout           *PayoutRecord
}

type NewBookingParams struct {
	CustomerID  uuid.UUID
	AgentID     *uuid.UUID
	EventDate   time.Time
	Venue       Venue
	Commercials Commercials
}

// NewBooking creates a booking in REQUESTED with its first history entry recorded for the customer.
func NewBooking(p NewBookingParams, now time.Time, window time.Duration) (*Booking, error) {
	if p.CustomerID == uuid.Nil {
		return nil, fmt.Errorf("%w: customer id is required", ErrInvalidBooking)
	}
	if p.EventDate.IsZero() {
		return nil, fmt.Errorf("%w: event date is required", ErrInvalidBooking)
	}
	if strings.TrimSpace(p.Venue.City) == "" {
		return nil, fmt.Errorf("%w: venue city is required", ErrInvalidBooking)
	}
	if err := p.Commercials.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	b := &Booking{
		ID:               id,
		Number:           bookingNumber(id, now),
		CustomerID:       p.CustomerID,
		AgentID:          p.AgentID,
		EventDate:        p.EventDate,
		Venue:            p.Venue,
		Commercials:      p.Commercials,
		Status:           BookingRequested,
		CreatedAt:        now,
		RequestExpiresAt: now.Add(window),
	}
	b.record(BookingRequested, ActionCreate, Actor{ID: p.CustomerID, Role: RoleCustomer}, now)

	return b, nil
}

var numberEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// bookingNumber takes the 48 fully random bits of the id. Storage still rejects a duplicate with
// ErrDuplicateBooking and the caller retries with a new id.
func bookingNumber(id uuid.UUID, now time.Time) string {
	return fmt.Sprintf("PJ-%s-%s", now.UTC().Format("20060102"), numberEncoding.EncodeToString(id[10:16])[:10])
}

// RequestOpen reports whether an agent may still respond. The window is inclusive of its end.
func (b *Booking) RequestOpen(now time.Time) bool {
	return !now.After(b.RequestExpiresAt)
}

// ExpireIfDue moves a REQUESTED booking whose window has passed to EXPIRED. It reports whether
// the booking changed; calling it again is a no-op.
func (b *Booking) ExpireIfDue(now time.Time) bool {
	if b.Status != BookingRequested || b.RequestOpen(now) {
		return false
	}
	b.record(BookingExpired, ActionExpire, SystemActor, now)
	return true
}

func (b *Booking) AssignedTo(agentID uuid.UUID) bool {
	return b.AgentID != nil && *b.AgentID == agentID
}

func (b *Booking) record(status BookingStatus, action Action, actor Actor, at time.Time) {
	b.Status = status
	b.History = append(b.History, HistoryEntry{
		Seq:       len(b.History) + 1,
		Status:    status,
		Action:    action,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		At:        at,
	})
}

// Clone returns a deep copy so callers can mutate a booking without touching a stored value.
func (b *Booking) Clone() *Booking {
	c := *b
	if b.AgentID != nil {
		id := *b.AgentID
		c.AgentID = &id
	}
	if b.Rates != nil {
		r := *b.Rates
		c.Rates = &r
	}
	if b.ConfirmedAt != nil {
		t := *b.ConfirmedAt
		c.ConfirmedAt = &t
	}
	if b.Settlement != nil {
		s := *b.Settlement
		c.Settlement = &s
	}
	if b.Cancellation != nil {
		cr := b.Cancellation.clone()
		c.Cancellation = &cr
	}
	if b.Payment != nil {
		p := *b.Payment
		c.Payment = &p
	}
	if b.Payout != nil {
		p := *b.Payout
		if b.Payout.TransferredAt != nil {
			t := *b.Payout.TransferredAt
			p.TransferredAt = &t
		}
		c.Payout = &p
	}
	c.History = append([]HistoryEntry(nil), b.History...)
	return &c
}
