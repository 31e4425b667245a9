package database

import (
	"context"
	"testing"
	"time"
)

func TestJoinIDs(t *testing.T) {
	cases := []struct {
		ids  []int
		want string
	}{
		{[]int{2}, "2"},
		{[]int{2, 1}, "2,1"},
		{[]int{3, 4}, "3,4"},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := joinIDs(tc.ids); got != tc.want {
			t.Errorf("joinIDs(%v) = %q, want %q", tc.ids, got, tc.want)
		}
	}
}

func TestListWorkLogsRejectsUnknownSortColumn(t *testing.T) {
	db := &ClickHouseDB{}

	// The whitelist check runs before any query is issued, so a nil
	// connection is never touched.
	for _, col := range []string{"", "id; DROP TABLE work_logs", "title"} {
		if _, err := db.ListWorkLogs(context.Background(), "all", col); err == nil {
			t.Errorf("sort column %q accepted, want error", col)
		}
	}
}

func TestDeviceHistoryEmptySlaveSet(t *testing.T) {
	db := &ClickHouseDB{}
	since := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rows, err := db.DeviceHistory(context.Background(), nil, since, 100)
	if err != nil {
		t.Fatalf("DeviceHistory with no slaves: %v", err)
	}
	if rows != nil {
		t.Errorf("rows = %v, want nil", rows)
	}
}
