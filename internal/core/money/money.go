package money

import (
	"math"
	"strconv"
	"strings"
)

// Paise is an amount in the smallest currency unit. All arithmetic on it is integer-only.
type Paise int64

const (
	PaisePerRupee     Paise = 100
	DefaultGSTPercent int64 = 18

	// MaxPaise is the largest amount ApplyPercent can take without overflowing.
	MaxPaise Paise = math.MaxInt64 / 100
)

func FromRupees(rupees int64) Paise {
	return Paise(rupees) * PaisePerRupee
}

func (p Paise) Int64() int64 {
	return int64(p)
}

func (p Paise) String() string {
	return FormatINR(p)
}

// ApplyPercent returns floor(p * percent / 100). Every fee and tier in the system goes through it.
func ApplyPercent(p Paise, percent int64) Paise {
	return Paise(floorDiv(int64(p)*percent, 100))
}

// GST computes tax on platform-side fee components only.
func GST(p Paise, percent int64) Paise {
	return ApplyPercent(p, percent)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// FormatINR renders paise as rupees with 2-3 digit grouping, e.g. ₹10,00,000.00.
func FormatINR(p Paise) string {
	v := int64(p)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	rupees := v / 100
	paise := v % 100

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString("₹")
	b.WriteString(groupIndian(strconv.FormatInt(rupees, 10)))
	b.WriteByte('.')
	if paise < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(paise, 10))

	return b.String()
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]

	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	parts = append(parts, tail)

	return strings.Join(parts, ",")
}
