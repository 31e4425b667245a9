package monitor

import "time"

// DefaultTimeRange is used when a range label is not recognized. The label set
// is UI-controlled and exhaustive in practice, so unknown labels fall back to
// the default instead of erroring.
const DefaultTimeRange = "30m"

// TimeRanges lists the selectable range labels in display order.
var TimeRanges = []string{"1m", "5m", "10m", "30m", "1h", "1d"}

// ResolveRange maps a symbolic time-range label to its lookback duration.
func ResolveRange(label string) time.Duration {
	switch label {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "10m":
		return 10 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return 30 * time.Minute
	}
}
