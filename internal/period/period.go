package period

import "math"

// Period selects the window dashboard figures are scaled to.
type Period string

// Supported periods.
const (
	Today      Period = "today"
	Yesterday  Period = "yesterday"
	Last7Days  Period = "last7days"
	Last30Days Period = "last30days"
	ThisMonth  Period = "thismonth"
	LastMonth  Period = "lastmonth"
	ThisYear   Period = "thisyear"
	AllTime    Period = "alltime"
)

// Default is the base period of the dataset.
const Default = ThisMonth

// multipliers approximate each window relative to ThisMonth. They are a fixed
// placeholder contract, not derived from real aggregation.
var multipliers = map[Period]float64{
	Today:      0.03,
	Yesterday:  0.03,
	Last7Days:  0.15,
	Last30Days: 0.95,
	ThisMonth:  1.0,
	LastMonth:  0.92,
	ThisYear:   12.5,
	AllTime:    25.3,
}

// All lists the periods in display order.
func All() []Period {
	return []Period{Today, Yesterday, Last7Days, Last30Days, ThisMonth, LastMonth, ThisYear, AllTime}
}

// Parse reports whether raw names a supported period.
func Parse(raw string) (Period, bool) {
	p := Period(raw)
	_, ok := multipliers[p]
	return p, ok
}

// Multiplier returns the scale factor for p; unknown periods scale by 1.
func Multiplier(p Period) float64 {
	if m, ok := multipliers[p]; ok {
		return m
	}
	return 1
}

// LabelKey is the translation key of the period name.
func (p Period) LabelKey() string {
	return "periods." + string(p)
}

// ScaleValue multiplies v by the period factor and rounds half up.
func ScaleValue(v float64, p Period) float64 {
	return math.Floor(v*Multiplier(p) + 0.5)
}

// Scale scales numbers and the numeric fields of a record. Any other value is
// returned unchanged.
func Scale(value any, p Period) any {
	if f, ok := toFloat(value); ok {
		return ScaleValue(f, p)
	}
	record, ok := value.(map[string]any)
	if !ok {
		return value
	}
	out := make(map[string]any, len(record))
	for k, v := range record {
		if f, ok := toFloat(v); ok {
			out[k] = ScaleValue(f, p)
			continue
		}
		out[k] = v
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
