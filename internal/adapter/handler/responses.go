package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/srgjo27/puja_booking/internal/core/domain"
	"github.com/srgjo27/puja_booking/internal/core/money"
)

type bookingResponse struct {
	ID               uuid.UUID                `json:"id"`
	Number           string                   `json:"number"`
	CustomerID       uuid.UUID                `json:"customer_id"`
	AgentID          *uuid.UUID               `json:"agent_id,omitempty"`
	EventDate        time.Time                `json:"event_date"`
	Venue            domain.Venue             `json:"venue"`
	Commercials      domain.Commercials       `json:"commercials"`
	RateSheet        *domain.RateSheet        `json:"rate_sheet,omitempty"`
	Status           domain.BookingStatus     `json:"status"`
	Version          int64                    `json:"version"`
	History          []domain.HistoryEntry    `json:"history"`
	CreatedAt        time.Time                `json:"created_at"`
	RequestExpiresAt time.Time                `json:"request_expires_at"`
	ConfirmedAt      *time.Time               `json:"confirmed_at,omitempty"`
	Breakdown        *breakdownResponse       `json:"breakdown,omitempty"`
	Cancellation     *cancellationRecord      `json:"cancellation,omitempty"`
	Payment          *domain.PaymentRecord    `json:"payment,omitempty"`
	Payout           *domain.PayoutRecord     `json:"payout,omitempty"`
	AllowedActions   map[domain.Role][]string `json:"allowed_actions,omitempty"`
}

func newBookingResponse(b *domain.Booking, now time.Time) bookingResponse {
	resp := bookingResponse{
		ID:               b.ID,
		Number:           b.Number,
		CustomerID:       b.CustomerID,
		AgentID:          b.AgentID,
		EventDate:        b.EventDate,
		Venue:            b.Venue,
		Commercials:      b.Commercials,
		RateSheet:        b.Rates,
		Status:           b.Status,
		Version:          b.Version,
		History:          b.History,
		CreatedAt:        b.CreatedAt,
		RequestExpiresAt: b.RequestExpiresAt,
		ConfirmedAt:      b.ConfirmedAt,
		Payment:          b.Payment,
		Payout:           b.Payout,
	}
	if b.Settlement != nil {
		bd := newBreakdownResponse(*b.Settlement)
		resp.Breakdown = &bd
	}
	if b.Cancellation != nil {
		c := newCancellationRecord(*b.Cancellation)
		resp.Cancellation = &c
	}

	actors := []domain.Actor{{ID: b.CustomerID, Role: domain.RoleCustomer}, {Role: domain.RoleAdmin}}
	if b.AgentID != nil {
		actors = append(actors, domain.Actor{ID: *b.AgentID, Role: domain.RoleAgent})
	}
	for _, a := range actors {
		allowed := b.AllowedActions(a, now)
		if len(allowed) == 0 {
			continue
		}
		if resp.AllowedActions == nil {
			resp.AllowedActions = make(map[domain.Role][]string)
		}
		for _, action := range allowed {
			resp.AllowedActions[a.Role] = append(resp.AllowedActions[a.Role], string(action))
		}
	}

	return resp
}

// breakdownResponse carries each amount in paise plus its rupee display string.
type breakdownResponse struct {
	domain.MoneyBreakdown
	Display map[string]string `json:"display"`
}

func newBreakdownResponse(bd domain.MoneyBreakdown) breakdownResponse {
	return breakdownResponse{
		MoneyBreakdown: bd,
		Display: map[string]string{
			"dakshina":             money.FormatINR(bd.DakshinaPaise),
			"platform_fee":         money.FormatINR(bd.PlatformFeePaise),
			"net_dakshina":         money.FormatINR(bd.NetDakshinaPaise),
			"samagri_earnings":     money.FormatINR(bd.SamagriEarningsPaise),
			"travel_reimbursement": money.FormatINR(bd.TravelReimbursementPaise),
			"food_allowance":       money.FormatINR(bd.FoodAllowancePaise),
			"travel_service_fee":   money.FormatINR(bd.TravelServiceFeePaise),
			"samagri_service_fee":  money.FormatINR(bd.SamagriServiceFeePaise),
			"gst":                  money.FormatINR(bd.GSTPaise),
			"total_payout":         money.FormatINR(bd.TotalPayoutPaise),
		},
	}
}

type cancellationRecord struct {
	domain.CancellationRecord
	Approved bool              `json:"approved"`
	Display  map[string]string `json:"display"`
}

func newCancellationRecord(c domain.CancellationRecord) cancellationRecord {
	return cancellationRecord{
		CancellationRecord: c,
		Approved:           c.Approved(),
		Display: map[string]string{
			"grand_total":     money.FormatINR(c.GrandTotalPaise),
			"platform_fee":    money.FormatINR(c.PlatformFeePaise),
			"refundable_base": money.FormatINR(c.RefundableBasePaise),
			"refund_amount":   money.FormatINR(c.RefundAmountPaise),
		},
	}
}

type cancellationResponse struct {
	BookingID    uuid.UUID            `json:"booking_id"`
	Status       domain.BookingStatus `json:"status"`
	Cancellation *cancellationRecord  `json:"cancellation,omitempty"`
}

func newCancellationResponse(b *domain.Booking) cancellationResponse {
	resp := cancellationResponse{BookingID: b.ID, Status: b.Status}
	if b.Cancellation != nil {
		c := newCancellationRecord(*b.Cancellation)
		resp.Cancellation = &c
	}
	return resp
}
