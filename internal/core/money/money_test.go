package money_test

import (
	"testing"

	"github.com/srgjo27/puja_booking/internal/core/money"
	"github.com/stretchr/testify/assert"
)

func TestFormatINR(t *testing.T) {
	cases := []struct {
		in   money.Paise
		want string
	}{
		{0, "₹0.00"},
		{5, "₹0.05"},
		{99_999, "₹999.99"},
		{100_000, "₹1,000.00"},
		{1_000_000, "₹10,000.00"},
		{10_000_050, "₹1,00,000.50"},
		{100_000_000, "₹10,00,000.00"},
		{123_456_789_01, "₹12,34,56,789.01"},
		{-250_075, "-₹2,500.75"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, money.FormatINR(tc.in), "paise=%d", int64(tc.in))
	}
}

func TestApplyPercent_Floors(t *testing.T) {
	assert.Equal(t, money.Paise(200_000), money.ApplyPercent(1_000_000, 20))
	assert.Equal(t, money.Paise(1), money.ApplyPercent(9, 18))
	assert.Equal(t, money.Paise(0), money.ApplyPercent(5, 18))
	assert.Equal(t, money.Paise(0), money.ApplyPercent(0, 50))
	assert.Equal(t, money.Paise(-2), money.ApplyPercent(-9, 18))
}

func TestGST(t *testing.T) {
	assert.Equal(t, money.Paise(36_000), money.GST(200_000, money.DefaultGSTPercent))
	assert.Equal(t, money.Paise(17), money.GST(99, money.DefaultGSTPercent))
}

func TestFromRupees(t *testing.T) {
	assert.Equal(t, money.Paise(1_000_000), money.FromRupees(10_000))
}
