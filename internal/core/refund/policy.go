package refund

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/srgjo27/puja_booking/internal/core/money"
)

var (
	ErrInvalidPolicy    = errors.New("invalid refund policy")
	ErrAmountOutOfRange = errors.New("refund amount out of range")
)

// Tier refunds Percent of the refundable base when at least MinDays whole days remain.
type Tier struct {
	MinDays int   `json:"min_days"`
	Percent int64 `json:"percent"`
}

type Policy struct {
	tiers []Tier
}

// DefaultPolicy: more than 7 days 90%, 3 to 7 days 50%, 1 to 3 days 20%, same day nothing.
func DefaultPolicy() Policy {
	p, _ := NewPolicy([]Tier{
		{MinDays: 8, Percent: 90},
		{MinDays: 3, Percent: 50},
		{MinDays: 1, Percent: 20},
		{MinDays: 0, Percent: 0},
	})
	return p
}

func NewPolicy(tiers []Tier) (Policy, error) {
	if len(tiers) == 0 {
		return Policy{}, fmt.Errorf("%w: no tiers", ErrInvalidPolicy)
	}

	sorted := slices.Clone(tiers)
	slices.SortFunc(sorted, func(a, b Tier) int { return b.MinDays - a.MinDays })

	for i, t := range sorted {
		if t.Percent < 0 || t.Percent > 100 {
			return Policy{}, fmt.Errorf("%w: percent %d out of range", ErrInvalidPolicy, t.Percent)
		}
		if i > 0 {
			prev := sorted[i-1]
			if prev.MinDays == t.MinDays {
				return Policy{}, fmt.Errorf("%w: duplicate tier for %d days", ErrInvalidPolicy, t.MinDays)
			}
			if prev.Percent < t.Percent {
				return Policy{}, fmt.Errorf("%w: refund must not grow as the event nears", ErrInvalidPolicy)
			}
		}
	}
	if sorted[len(sorted)-1].MinDays != 0 {
		return Policy{}, fmt.Errorf("%w: lowest tier must start at 0 days", ErrInvalidPolicy)
	}

	return Policy{tiers: sorted}, nil
}

// ParsePolicy reads "minDays:percent" pairs, e.g. "8:90,3:50,1:20,0:0".
func ParsePolicy(s string) (Policy, error) {
	var tiers []Tier
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		days, pct, ok := strings.Cut(part, ":")
		if !ok {
			return Policy{}, fmt.Errorf("%w: malformed tier %q", ErrInvalidPolicy, part)
		}
		d, err := strconv.Atoi(strings.TrimSpace(days))
		if err != nil {
			return Policy{}, fmt.Errorf("%w: tier days %q: %v", ErrInvalidPolicy, days, err)
		}
		p, err := strconv.ParseInt(strings.TrimSpace(pct), 10, 64)
		if err != nil {
			return Policy{}, fmt.Errorf("%w: tier percent %q: %v", ErrInvalidPolicy, pct, err)
		}
		tiers = append(tiers, Tier{MinDays: d, Percent: p})
	}
	return NewPolicy(tiers)
}

func (p Policy) Tiers() []Tier {
	return slices.Clone(p.tiers)
}

func (p Policy) PercentFor(days int) int64 {
	for _, t := range p.tiers {
		if days >= t.MinDays {
			return t.Percent
		}
	}
	return 0
}

// DaysUntil counts whole days from at to event, truncated. An event already past yields a
// negative count.
func DaysUntil(event, at time.Time) int {
	d := event.Sub(at)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}

type Request struct {
	GrandTotalPaise  money.Paise
	PlatformFeePaise money.Paise
	DaysUntilEvent   int
}

type Result struct {
	DaysUntilEvent      int
	Percent             int64
	RefundableBasePaise money.Paise
	RefundAmountPaise   money.Paise
}

// Evaluate computes the advisory refund. The platform fee is never refunded.
func (p Policy) Evaluate(req Request) (Result, error) {
	if req.GrandTotalPaise < 0 || req.PlatformFeePaise < 0 {
		return Result{}, fmt.Errorf("%w: amounts must not be negative", ErrAmountOutOfRange)
	}
	if req.GrandTotalPaise > money.MaxPaise {
		return Result{}, fmt.Errorf("%w: grand total %d exceeds limit", ErrAmountOutOfRange, req.GrandTotalPaise)
	}

	base := req.GrandTotalPaise - req.PlatformFeePaise
	if base < 0 {
		base = 0
	}
	pct := p.PercentFor(req.DaysUntilEvent)

	return Result{
		DaysUntilEvent:      req.DaysUntilEvent,
		Percent:             pct,
		RefundableBasePaise: base,
		RefundAmountPaise:   money.ApplyPercent(base, pct),
	}, nil
}
