package settlement

import (
	"github.com/srgjo27/puja_booking/internal/core/money"
)

// CustomerQuote is what the customer is charged for a booking. NonRefundablePaise is the
// platform-side part of that charge that a cancellation never returns.
type CustomerQuote struct {
	DakshinaPaise          money.Paise `json:"dakshina_paise"`
	SamagriPaise           money.Paise `json:"samagri_paise"`
	TravelChargePaise      money.Paise `json:"travel_charge_paise"`
	SubsistencePaise       money.Paise `json:"subsistence_paise"`
	PlatformFeePaise       money.Paise `json:"platform_fee_paise"`
	TravelServiceFeePaise  money.Paise `json:"travel_service_fee_paise"`
	SamagriServiceFeePaise money.Paise `json:"samagri_service_fee_paise"`
	GrandTotalPaise        money.Paise `json:"grand_total_paise"`
	NonRefundablePaise     money.Paise `json:"non_refundable_paise"`
}

func Quote(in Input) (CustomerQuote, error) {
	if err := validate(in); err != nil {
		return CustomerQuote{}, err
	}

	c := in.Commercials
	r := in.Rates
	_, samagriServiceFee := samagri(c, r)

	q := CustomerQuote{
		DakshinaPaise:          c.DakshinaPaise,
		SamagriPaise:           c.SamagriPaise,
		TravelChargePaise:      c.TravelChargePaise,
		SubsistencePaise:       subsistence(c),
		PlatformFeePaise:       money.ApplyPercent(c.DakshinaPaise, r.PlatformCommissionPercent),
		TravelServiceFeePaise:  money.ApplyPercent(c.TravelChargePaise, r.TravelServiceFeePercent),
		SamagriServiceFeePaise: samagriServiceFee,
	}
	q.GrandTotalPaise = q.DakshinaPaise + q.SamagriPaise + q.TravelChargePaise + q.SubsistencePaise +
		q.TravelServiceFeePaise + q.SamagriServiceFeePaise
	q.NonRefundablePaise = q.PlatformFeePaise + q.TravelServiceFeePaise + q.SamagriServiceFeePaise

	return q, nil
}
