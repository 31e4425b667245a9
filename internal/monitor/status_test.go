package monitor

import "testing"

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		name         string
		raw          string
		wantLabel    string
		wantSeverity Severity
	}{
		{"empty", "", "unknown", SeverityUnknown},
		{"overvoltage bit", "1", "overvoltage protection", SeverityCritical},
		{"overcurrent bit", "2", "overcurrent protection", SeverityCritical},
		{"over-temperature bit", "0x04", "over-temperature protection", SeverityMajor},
		{"comm fault bit", "8", "communication fault", SeverityWarning},
		{"fan failure bit", "0x10", "fan failure", SeverityMajor},
		{"input power bit", "0x20", "input power fault", SeverityCritical},
		// Lowest-priority-index bit wins when several are set.
		{"multiple bits", "0x06", "overcurrent protection", SeverityCritical},
		{"all bits", "0x3f", "overvoltage protection", SeverityCritical},
		// The hex reading runs first, so a decimal-looking code only reaches
		// the numeric buckets when its hex value carries no fault bits.
		{"normal bucket", "200", "normal operation", SeverityNormal},
		{"warning bucket", "400", "warning", SeverityWarning},
		{"error bucket", "500", "error", SeverityCritical},
		{"error bucket high", "640", "error", SeverityCritical},
		// 250 reads as hex 0x250, which has the fan bit set. Inherited
		// ambiguity in the encoding; the bitmask reading wins.
		{"ambiguous 250", "250", "fan failure", SeverityMajor},
		{"hex letters", "c0", "status: c0", SeverityNormal},
		{"below buckets", "0", "status: 0", SeverityNormal},
		{"between buckets", "300", "status: 300", SeverityNormal},
		{"unparseable", "fault-zz", "status: fault-zz", SeverityUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyStatus(tc.raw)
			if got.Label != tc.wantLabel {
				t.Errorf("ClassifyStatus(%q).Label = %q, want %q", tc.raw, got.Label, tc.wantLabel)
			}
			if got.Severity != tc.wantSeverity {
				t.Errorf("ClassifyStatus(%q).Severity = %q, want %q", tc.raw, got.Severity, tc.wantSeverity)
			}
		})
	}
}
