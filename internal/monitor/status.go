package monitor

import (
	"strconv"
	"strings"
)

// Severity tiers a classified status for display.
type Severity string

const (
	SeverityUnknown  Severity = "unknown"
	SeverityNormal   Severity = "normal"
	SeverityWarning  Severity = "warning"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// Classification is the decoded form of a raw rectifier status code.
type Classification struct {
	Label    string   `json:"label"`
	Severity Severity `json:"severity"`
}

// statusBits lists fault bits in priority order; the first set bit wins.
var statusBits = []struct {
	mask     int64
	label    string
	severity Severity
}{
	{0x01, "overvoltage protection", SeverityCritical},
	{0x02, "overcurrent protection", SeverityCritical},
	{0x04, "over-temperature protection", SeverityMajor},
	{0x08, "communication fault", SeverityWarning},
	{0x10, "fan failure", SeverityMajor},
	{0x20, "input power fault", SeverityCritical},
}

// ClassifyStatus decodes a raw status code into a display label and severity.
// The telemetry encoding is ambiguous by inheritance: the code is interpreted
// twice, independently, as a hex bitmask and as a decimal magnitude. Bitmask
// faults take precedence, then the decimal buckets (200-299 normal, 400-499
// warning, >=500 error), then a literal passthrough of the raw code.
func ClassifyStatus(raw string) Classification {
	if raw == "" {
		return Classification{Label: "unknown", Severity: SeverityUnknown}
	}

	hexVal, hexErr := strconv.ParseInt(strings.TrimPrefix(raw, "0x"), 16, 64)
	decVal, decErr := strconv.ParseInt(raw, 10, 64)

	if hexErr != nil && decErr != nil {
		return Classification{Label: "status: " + raw, Severity: SeverityUnknown}
	}

	if hexErr == nil {
		for _, b := range statusBits {
			if hexVal&b.mask != 0 {
				return Classification{Label: b.label, Severity: b.severity}
			}
		}
	}

	if decErr == nil {
		switch {
		case decVal >= 200 && decVal < 300:
			return Classification{Label: "normal operation", Severity: SeverityNormal}
		case decVal >= 400 && decVal < 500:
			return Classification{Label: "warning", Severity: SeverityWarning}
		case decVal >= 500:
			return Classification{Label: "error", Severity: SeverityCritical}
		}
	}

	return Classification{Label: "status: " + raw, Severity: SeverityNormal}
}
