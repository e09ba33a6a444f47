package domain

import (
	"fmt"
	"time"
)

// RateSheet is a versioned snapshot of commission and fee percentages. A booking copies the
// current sheet when it is confirmed and never reads live rates again.
type RateSheet struct {
	Version                   string    `json:"version"`
	PlatformCommissionPercent int64     `json:"platform_commission_percent"`
	TravelServiceFeePercent   int64     `json:"travel_service_fee_percent"`
	SamagriServiceFeePercent  int64     `json:"samagri_service_fee_percent"`
	GSTPercent                int64     `json:"gst_percent"`
	EffectiveFrom             time.Time `json:"effective_from"`
}

func (r RateSheet) Validate() error {
	if r.Version == "" {
		return fmt.Errorf("rate sheet version is required")
	}

	checks := []struct {
		name    string
		percent int64
	}{
		{"platform commission", r.PlatformCommissionPercent},
		{"travel service fee", r.TravelServiceFeePercent},
		{"samagri service fee", r.SamagriServiceFeePercent},
		{"gst", r.GSTPercent},
	}

	for _, c := range checks {
		if c.percent < 0 || c.percent > 100 {
			return fmt.Errorf("%s percent %d out of range", c.name, c.percent)
		}
	}

	return nil
}
