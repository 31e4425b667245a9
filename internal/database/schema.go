package database

// SQL schemas for the ClickHouse tables this service reads. The ingest
// pipeline owns the data; the DDL here only guarantees the tables exist on a
// fresh instance.

const (
	// RectifierTelemetryTableSQL creates the rectifier_telemetry table
	RectifierTelemetryTableSQL = `
		CREATE TABLE IF NOT EXISTS rectifier_telemetry (
			id UInt64,
			slave_id Int32,
			voltage Nullable(Float64),
			current Nullable(Float64),
			status_code Nullable(String),
			timestamp DateTime64(3)
		) ENGINE = MergeTree()
		ORDER BY (slave_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// WorkLogsTableSQL creates the work_logs table
	WorkLogsTableSQL = `
		CREATE TABLE IF NOT EXISTS work_logs (
			id UInt64,
			title String,
			content String,
			status LowCardinality(String),
			priority LowCardinality(String),
			assigned_to Nullable(String),
			created_at DateTime64(3),
			updated_at DateTime64(3),
			due_date Nullable(DateTime64(3))
		) ENGINE = MergeTree()
		ORDER BY (created_at)
	`
)

// AllTables returns the CREATE TABLE statements in creation order.
func AllTables() []string {
	return []string{
		RectifierTelemetryTableSQL,
		WorkLogsTableSQL,
	}
}
