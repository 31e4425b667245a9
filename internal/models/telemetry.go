package models

import "time"

// TelemetryRow is one row of the rectifier_telemetry table, as returned by a
// history query or republished on MQTT when inserted. Voltage and current are
// nullable because a row may carry an update for only one channel.
type TelemetryRow struct {
	ID         int64     `json:"id"`
	SlaveID    int       `json:"slave_id"`
	Voltage    *float64  `json:"voltage"`
	Current    *float64  `json:"current"`
	StatusCode *string   `json:"status_code"`
	Timestamp  time.Time `json:"timestamp"`
}
