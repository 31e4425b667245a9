package database

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"rectifier-monitor/internal/models"
)

// workLogSortColumns whitelists the columns the work-log list may sort by.
var workLogSortColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"priority":   true,
	"due_date":   true,
}

type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(addr, database, username, password string) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Printf("Connected to ClickHouse at %s", addr)

	db := &ClickHouseDB{conn: conn}

	// Initialize schema
	if err := db.InitSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// InitSchema creates the necessary tables if they don't exist
func (db *ClickHouseDB) InitSchema() error {
	ctx := context.Background()

	tables := AllTables()
	for _, tableSQL := range tables {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	log.Println("Database schema initialized successfully")
	return nil
}

// DeviceHistory returns all telemetry rows for the given slaves since the
// given instant, ascending by timestamp, capped at limit rows.
func (db *ClickHouseDB) DeviceHistory(ctx context.Context, slaveIDs []int, since time.Time, limit int) ([]models.TelemetryRow, error) {
	if len(slaveIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, slave_id, voltage, current, status_code, timestamp
		FROM rectifier_telemetry
		WHERE slave_id IN (%s) AND timestamp >= ?
		ORDER BY timestamp ASC
		LIMIT ?
	`, joinIDs(slaveIDs))

	rows, err := db.conn.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query telemetry history: %w", err)
	}
	defer rows.Close()

	var result []models.TelemetryRow
	for rows.Next() {
		var (
			id        uint64
			slaveID   int32
			voltage   *float64
			current   *float64
			status    *string
			timestamp time.Time
		)
		if err := rows.Scan(&id, &slaveID, &voltage, &current, &status, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan telemetry row: %w", err)
		}
		result = append(result, models.TelemetryRow{
			ID:         int64(id),
			SlaveID:    int(slaveID),
			Voltage:    voltage,
			Current:    current,
			StatusCode: status,
			Timestamp:  timestamp,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read telemetry rows: %w", err)
	}

	return result, nil
}

// ListWorkLogs returns work-log rows sorted descending by sortBy, optionally
// filtered to one status. An empty or "all" status disables the filter. The
// sort column must be whitelisted.
func (db *ClickHouseDB) ListWorkLogs(ctx context.Context, status, sortBy string) ([]models.WorkLog, error) {
	if !workLogSortColumns[sortBy] {
		return nil, fmt.Errorf("unsupported work-log sort column %q", sortBy)
	}

	query := `
		SELECT id, title, content, status, priority, assigned_to, created_at, updated_at, due_date
		FROM work_logs
	`
	var args []interface{}
	if status != "" && status != "all" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += fmt.Sprintf(" ORDER BY %s DESC", sortBy)

	rows, err := db.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query work logs: %w", err)
	}
	defer rows.Close()

	var result []models.WorkLog
	for rows.Next() {
		var (
			id         uint64
			wl         models.WorkLog
			assignedTo *string
			dueDate    *time.Time
		)
		if err := rows.Scan(&id, &wl.Title, &wl.Content, &wl.Status, &wl.Priority,
			&assignedTo, &wl.CreatedAt, &wl.UpdatedAt, &dueDate); err != nil {
			return nil, fmt.Errorf("failed to scan work-log row: %w", err)
		}
		wl.ID = int64(id)
		wl.AssignedTo = assignedTo
		wl.DueDate = dueDate
		result = append(result, wl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read work-log rows: %w", err)
	}

	return result, nil
}

// joinIDs renders slave IDs as a SQL IN list. The IDs come from configuration,
// never from user input, so string building is safe here.
func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		if err := db.conn.Close(); err != nil {
			return fmt.Errorf("failed to close ClickHouse connection: %w", err)
		}
		log.Println("ClickHouse connection closed")
	}
	return nil
}
