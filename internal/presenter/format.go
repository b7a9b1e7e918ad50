package presenter

import (
	"fmt"
	"regexp"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Placeholders
const (
	Dash         = "-"
	NotAvailText = "N/A"
)

const (
	statusLayout  = "1/2/2006, 3:04:05 PM"
	historyLayout = "1/2/2006, 03:04:05 PM MST"
)

// Sub-millisecond digits are dropped before parsing
var excessFraction = regexp.MustCompile(`(\.\d{3})\d+`)

// FormatQuantity renders a BTC quantity with 8 decimals, or Dash when the
// quantity is zero or negative.
func FormatQuantity(qty float64) string {
	if qty > 0 {
		return fmt.Sprintf("%.8f", qty)
	}
	return Dash
}

// PercentString renders a ratio as a percentage with 2 decimals (0.0512 -> "5.12%").
func PercentString(ratio float64) string {
	return fmt.Sprintf("%.2f%%", ratio*100)
}

// SignedPercent renders an already-scaled percentage with an explicit sign
// for non-negative values (1.234 -> "+1.23%").
func SignedPercent(pct float64) string {
	if pct >= 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatNumber groups thousands and keeps at most 3 decimals, rounding half
// away from zero.
func FormatNumber(v float64) string {
	rounded := decimal.NewFromFloat(v).Round(3).InexactFloat64()
	return humanize.CommafWithDigits(rounded, 3)
}

// FormatMoney is FormatNumber with a dollar prefix
func FormatMoney(v float64) string {
	return "$" + FormatNumber(v)
}

// FormatOptionalMoney renders a nil value as "$N/A"
func FormatOptionalMoney(v *float64) string {
	if v == nil {
		return "$" + NotAvailText
	}
	return FormatMoney(*v)
}

// FormatRSI renders an RSI reading with 2 decimals, or N/A
func FormatRSI(v *float64) string {
	if v == nil {
		return NotAvailText
	}
	return fmt.Sprintf("%.2f", *v)
}

// YesNo renders a signal flag
func YesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// TruncateFraction keeps only the first three fractional-second digits.
// Applying it twice gives the same result as applying it once.
func TruncateFraction(ts string) string {
	return excessFraction.ReplaceAllString(ts, "$1")
}

// ParseTimestamp truncates and parses a bot timestamp. Timestamps without a
// zone are read in loc.
func ParseTimestamp(ts string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	ts = TruncateFraction(ts)

	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t, true
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04",
	} {
		if t, err := time.ParseInLocation(layout, ts, loc); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse("2006-01-02 15:04:05.999999999Z07:00", ts); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, ts); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// FormatTimestamp renders ts in loc for the status view, or N/A when it
// cannot be parsed.
func FormatTimestamp(ts string, loc *time.Location) string {
	return formatTimestamp(ts, loc, statusLayout)
}

// FormatHistoryTimestamp renders ts in loc with a zero-padded hour and the
// zone abbreviation.
func FormatHistoryTimestamp(ts string, loc *time.Location) string {
	return formatTimestamp(ts, loc, historyLayout)
}

func formatTimestamp(ts string, loc *time.Location, layout string) string {
	if loc == nil {
		loc = time.Local
	}
	t, ok := ParseTimestamp(ts, loc)
	if !ok {
		return NotAvailText
	}
	return t.In(loc).Format(layout)
}
