package settlement

import (
	"fmt"

	"github.com/srgjo27/puja_booking/internal/core/domain"
	"github.com/srgjo27/puja_booking/internal/core/money"
)

// MaxAmountPaise is the per-line input bound enforced by domain.Commercials.
const MaxAmountPaise = domain.MaxAmountPaise

type Input struct {
	Commercials domain.Commercials
	Rates       domain.RateSheet
}

func FromBooking(b *domain.Booking) (Input, error) {
	if b.Rates == nil {
		return Input{}, fmt.Errorf("%w: booking %s has no captured rate sheet", domain.ErrSettlementFailed, b.ID)
	}
	return Input{Commercials: b.Commercials, Rates: *b.Rates}, nil
}

// Settle computes the agent payout. It is pure: no clock, no live configuration, and identical
// input always yields an identical breakdown.
func Settle(in Input) (domain.MoneyBreakdown, error) {
	if err := validate(in); err != nil {
		return domain.MoneyBreakdown{}, err
	}

	c := in.Commercials
	r := in.Rates

	platformFee := money.ApplyPercent(c.DakshinaPaise, r.PlatformCommissionPercent)
	travelServiceFee := money.ApplyPercent(c.TravelChargePaise, r.TravelServiceFeePercent)
	samagriEarnings, samagriServiceFee := samagri(c, r)

	bd := domain.MoneyBreakdown{
		DakshinaPaise:            c.DakshinaPaise,
		PlatformFeePaise:         platformFee,
		NetDakshinaPaise:         c.DakshinaPaise - platformFee,
		SamagriEarningsPaise:     samagriEarnings,
		TravelReimbursementPaise: c.AgentTravel.Total(),
		FoodAllowancePaise:       subsistence(c),
		TravelServiceFeePaise:    travelServiceFee,
		SamagriServiceFeePaise:   samagriServiceFee,
		GSTPaise:                 money.GST(platformFee+travelServiceFee+samagriServiceFee, r.GSTPercent),
		RateSheetVersion:         r.Version,
	}
	bd.TotalPayoutPaise = bd.NetDakshinaPaise + bd.SamagriEarningsPaise + bd.TravelReimbursementPaise + bd.FoodAllowancePaise

	return bd, nil
}

// samagri: an agent package is paid to the agent in full with no platform cut; a platform list
// earns the agent nothing and carries the platform's service fee.
func samagri(c domain.Commercials, r domain.RateSheet) (earnings, serviceFee money.Paise) {
	switch c.SamagriChoice {
	case domain.SamagriAgentPackage:
		return c.SamagriPaise, 0
	default:
		return 0, money.ApplyPercent(c.SamagriPaise, r.SamagriServiceFeePercent)
	}
}

// subsistence is the guaranteed food allowance plus accommodation, paid regardless of receipts.
func subsistence(c domain.Commercials) money.Paise {
	return c.FoodAllowancePerDayPaise*money.Paise(c.TripDays) + c.AccommodationPaise
}

func validate(in Input) error {
	if err := in.Commercials.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSettlementFailed, err)
	}
	if err := in.Rates.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSettlementFailed, err)
	}

	return nil
}
