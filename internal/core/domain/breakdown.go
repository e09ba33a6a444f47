package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/puja_booking/internal/core/money"
)

// MoneyBreakdown is the settlement of a completed booking. It is written once and never changed.
// PlatformFee, service fees and GST are platform-side and are not part of TotalPayoutPaise.
type MoneyBreakdown struct {
	DakshinaPaise            money.Paise `json:"dakshina_paise"`
	PlatformFeePaise         money.Paise `json:"platform_fee_paise"`
	NetDakshinaPaise         money.Paise `json:"net_dakshina_paise"`
	SamagriEarningsPaise     money.Paise `json:"samagri_earnings_paise"`
	TravelReimbursementPaise money.Paise `json:"travel_reimbursement_paise"`
	FoodAllowancePaise       money.Paise `json:"food_allowance_paise"`
	TravelServiceFeePaise    money.Paise `json:"travel_service_fee_paise"`
	SamagriServiceFeePaise   money.Paise `json:"samagri_service_fee_paise"`
	GSTPaise                 money.Paise `json:"gst_paise"`
	TotalPayoutPaise         money.Paise `json:"total_payout_paise"`
	RateSheetVersion         string      `json:"rate_sheet_version"`
}

func (m MoneyBreakdown) Balanced() bool {
	return m.TotalPayoutPaise == m.NetDakshinaPaise+m.SamagriEarningsPaise+m.TravelReimbursementPaise+m.FoodAllowancePaise
}

// CancellationRecord holds the refund computed when the customer asked to cancel. It stays
// advisory until an admin approves it.
type CancellationRecord struct {
	Reason                  string      `json:"reason"`
	RequestedBy             uuid.UUID   `json:"requested_by"`
	RequestedAt             time.Time   `json:"requested_at"`
	DaysUntilEventAtRequest int         `json:"days_until_event_at_request"`
	RefundPercent           int64       `json:"refund_percent"`
	GrandTotalPaise         money.Paise `json:"grand_total_paise"`
	PlatformFeePaise        money.Paise `json:"platform_fee_paise"`
	RefundableBasePaise     money.Paise `json:"refundable_base_paise"`
	RefundAmountPaise       money.Paise `json:"refund_amount_paise"`
	ApprovedAt              *time.Time  `json:"approved_at,omitempty"`
	ApprovedBy              *uuid.UUID  `json:"approved_by,omitempty"`
}

func (c CancellationRecord) Approved() bool {
	return c.ApprovedAt != nil
}

func (c CancellationRecord) clone() CancellationRecord {
	out := c
	if c.ApprovedAt != nil {
		t := *c.ApprovedAt
		out.ApprovedAt = &t
	}
	if c.ApprovedBy != nil {
		id := *c.ApprovedBy
		out.ApprovedBy = &id
	}
	return out
}
