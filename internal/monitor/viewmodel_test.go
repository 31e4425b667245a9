package monitor

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"rectifier-monitor/internal/models"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fptr(v float64) *float64 { return &v }
func sptr(v string) *string   { return &v }

// fakeStore serves scripted rows and records which slave sets were queried.
type fakeStore struct {
	mu      sync.Mutex
	rows    []models.TelemetryRow
	err     error
	queries [][]int
}

func (f *fakeStore) DeviceHistory(ctx context.Context, slaveIDs []int, since time.Time, limit int) ([]models.TelemetryRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, len(slaveIDs))
	copy(ids, slaveIDs)
	f.queries = append(f.queries, ids)

	if f.err != nil {
		return nil, f.err
	}

	var out []models.TelemetryRow
	for _, r := range f.rows {
		if !containsID(slaveIDs, r.SlaveID) || r.Timestamp.Before(since) {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) queryLog() [][]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]int, len(f.queries))
	copy(out, f.queries)
	return out
}

func (f *fakeStore) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = nil
}

func (f *fakeStore) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func containsID(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func row(slaveID int, offset time.Duration, voltage, current *float64, status *string) models.TelemetryRow {
	return models.TelemetryRow{
		SlaveID:    slaveID,
		Voltage:    voltage,
		Current:    current,
		StatusCode: status,
		Timestamp:  testNow.Add(offset),
	}
}

func newTestVM(cfg Config, store HistoryStore) *ViewModel {
	vm := New(cfg, store)
	vm.now = func() time.Time { return testNow }
	return vm
}

func deviceSnap(t *testing.T, snap Snapshot, slaveID int) DeviceSnapshot {
	t.Helper()
	for _, d := range snap.Devices {
		if d.SlaveID == slaveID {
			return d
		}
	}
	t.Fatalf("no device %d in snapshot", slaveID)
	return DeviceSnapshot{}
}

func TestLoadHistoryReplacesBuffers(t *testing.T) {
	store := &fakeStore{rows: []models.TelemetryRow{
		row(2, -3*time.Second, fptr(48.1), fptr(10.0), sptr("200")),
		row(2, -2*time.Second, fptr(48.3), fptr(10.2), sptr("200")),
		row(2, -1*time.Second, fptr(48.0), fptr(10.1), sptr("200")),
	}}
	vm := newTestVM(Config{Group: "hard", SlaveIDs: []int{2, 1}}, store)

	if err := vm.LoadHistory(context.Background(), 2, "30m"); err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}

	d := deviceSnap(t, vm.Snapshot(), 2)
	wantVolts := []float64{48.1, 48.3, 48.0}
	if len(d.Voltage) != len(wantVolts) {
		t.Fatalf("voltage samples = %d, want %d", len(d.Voltage), len(wantVolts))
	}
	for i, want := range wantVolts {
		if d.Voltage[i].Value != want {
			t.Errorf("voltage[%d] = %v, want %v", i, d.Voltage[i].Value, want)
		}
	}

	if d.Status == nil {
		t.Fatal("status missing after load")
	}
	if d.Status.Voltage != 48.0 {
		t.Errorf("status voltage = %v, want 48.0 (last row)", d.Status.Voltage)
	}
	if !d.Status.IsOnline {
		t.Error("device should be online, latest sample is 1s old")
	}
}

func TestLoadHistoryAgain_ReplacesNotMerges(t *testing.T) {
	store := &fakeStore{rows: []models.TelemetryRow{
		row(2, -3*time.Second, fptr(48.1), nil, nil),
	}}
	vm := newTestVM(Config{Group: "hard", SlaveIDs: []int{2}}, store)

	if err := vm.LoadHistory(context.Background(), 2, "30m"); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if err := vm.LoadHistory(context.Background(), 2, "30m"); err != nil {
		t.Fatalf("second load: %v", err)
	}

	d := deviceSnap(t, vm.Snapshot(), 2)
	if len(d.Voltage) != 1 {
		t.Fatalf("voltage samples = %d after reload, want 1 (replace, not merge)", len(d.Voltage))
	}
}

func TestIncomingPointSingleChannel(t *testing.T) {
	store := &fakeStore{rows: []models.TelemetryRow{
		row(2, -10*time.Second, fptr(48.2), fptr(10.5), sptr("200")),
	}}
	vm := newTestVM(Config{Group: "hard", SlaveIDs: []int{2}}, store)
	if err := vm.LoadHistory(context.Background(), 2, "30m"); err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}

	vm.OnIncomingPoint(row(2, -1*time.Second, fptr(47.9), nil, sptr("0x04")))

	d := deviceSnap(t, vm.Snapshot(), 2)
	if len(d.Voltage) != 2 {
		t.Fatalf("voltage samples = %d, want 2", len(d.Voltage))
	}
	if len(d.Current) != 1 {
		t.Fatalf("current samples = %d, want 1 (null channel must not append)", len(d.Current))
	}
	if d.Status.Voltage != 47.9 {
		t.Errorf("status voltage = %v, want 47.9", d.Status.Voltage)
	}
	if d.Status.Current != 10.5 {
		t.Errorf("status current = %v, want 10.5 (carried from previous)", d.Status.Current)
	}
	if d.Status.Status.Label != "over-temperature protection" {
		t.Errorf("status label = %q, want over-temperature protection", d.Status.Status.Label)
	}
}

func TestIncomingPointLastWriteWins(t *testing.T) {
	store := &fakeStore{}
	vm := newTestVM(Config{Group: "hard", SlaveIDs: []int{2}}, store)

	vm.OnIncomingPoint(row(2, -1*time.Second, fptr(48.5), nil, nil))
	// An older row still replaces the status: ordering is by arrival, not by
	// timestamp comparison.
	vm.OnIncomingPoint(row(2, -30*time.Second, fptr(47.0), nil, nil))

	d := deviceSnap(t, vm.Snapshot(), 2)
	if d.Status.Voltage != 47.0 {
		t.Errorf("status voltage = %v, want 47.0 (last arrival wins)", d.Status.Voltage)
	}
	if !d.Status.Timestamp.Equal(testNow.Add(-30 * time.Second)) {
		t.Errorf("status timestamp = %v, want the last-arrived row's", d.Status.Timestamp)
	}
}

func TestIncomingPointIgnoresUntrackedSlave(t *testing.T) {
	store := &fakeStore{}
	vm := newTestVM(Config{Group: "hard", SlaveIDs: []int{2, 1}}, store)

	vm.OnIncomingPoint(row(9, 0, fptr(48.0), nil, nil))

	for _, d := range vm.Snapshot().Devices {
		if len(d.Voltage) != 0 || d.Status != nil {
			t.Fatalf("untracked slave mutated device %d", d.SlaveID)
		}
	}
}

func TestIncomingPointEvictsAtCap(t *testing.T) {
	store := &fakeStore{}
	vm := newTestVM(Config{Group: "hard", SlaveIDs: []int{2}, CapPerSeries: 3}, store)

	for i := 0; i < 5; i++ {
		vm.OnIncomingPoint(row(2, time.Duration(i)*time.Second, fptr(float64(i)), nil, nil))
	}

	d := deviceSnap(t, vm.Snapshot(), 2)
	if len(d.Voltage) != 3 {
		t.Fatalf("voltage samples = %d, want cap of 3", len(d.Voltage))
	}
	for i, want := range []float64{2, 3, 4} {
		if d.Voltage[i].Value != want {
			t.Errorf("voltage[%d] = %v, want %v", i, d.Voltage[i].Value, want)
		}
	}
}

func TestSetTimeRangeRefetchesOnlyThatDevice(t *testing.T) {
	store := &fakeStore{rows: []models.TelemetryRow{
		row(1, -5*time.Second, fptr(47.5), fptr(9.8), nil),
		row(2, -4*time.Second, fptr(48.2), fptr(10.1), nil),
	}}
	vm := newTestVM(Config{Group: "hard", SlaveIDs: []int{2, 1}, RangeMode: RangePerDevice}, store)
	if err := vm.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	before := deviceSnap(t, vm.Snapshot(), 2)
	store.reset()

	if err := vm.SetTimeRange(context.Background(), 1, "1h"); err != nil {
		t.Fatalf("SetTimeRange: %v", err)
	}

	queries := store.queryLog()
	if len(queries) != 1 || !reflect.DeepEqual(queries[0], []int{1}) {
		t.Fatalf("queries after range change = %v, want exactly [[1]]", queries)
	}

	snap := vm.Snapshot()
	if deviceSnap(t, snap, 1).TimeRange != "1h" {
		t.Error("device 1 range not updated")
	}
	if deviceSnap(t, snap, 2).TimeRange != "30m" {
		t.Error("device 2 range must be untouched")
	}
	after := deviceSnap(t, snap, 2)
	if !reflect.DeepEqual(before.Voltage, after.Voltage) || !reflect.DeepEqual(before.Current, after.Current) {
		t.Error("device 2 buffers changed by device 1's range change")
	}
}

func TestLoadErrorEntersErrorStateAndPreservesBuffers(t *testing.T) {
	store := &fakeStore{rows: []models.TelemetryRow{
		row(2, -5*time.Second, fptr(48.2), fptr(10.1), nil),
	}}
	vm := newTestVM(Config{Group: "hard", SlaveIDs: []int{2}}, store)
	if err := vm.LoadHistory(context.Background(), 2, "30m"); err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	before := deviceSnap(t, vm.Snapshot(), 2)

	store.setErr(errors.New("backend unreachable"))
	if err := vm.LoadHistory(context.Background(), 2, "1h"); err == nil {
		t.Fatal("expected error from failed load")
	}

	snap := vm.Snapshot()
	if snap.Err == "" {
		t.Error("snapshot should carry the error state")
	}
	after := deviceSnap(t, snap, 2)
	if !reflect.DeepEqual(before.Voltage, after.Voltage) || !reflect.DeepEqual(before.Current, after.Current) {
		t.Error("failed load must not mutate buffers")
	}

	// A later successful load clears the error state.
	store.setErr(nil)
	if err := vm.LoadHistory(context.Background(), 2, "30m"); err != nil {
		t.Fatalf("recovery load: %v", err)
	}
	if vm.Snapshot().Err != "" {
		t.Error("error state should clear on successful load")
	}
}

func TestSharedModeLoadsWholeGroup(t *testing.T) {
	store := &fakeStore{rows: []models.TelemetryRow{
		row(3, -6*time.Second, fptr(24.1), fptr(5.0), sptr("200")),
		row(4, -5*time.Second, fptr(24.4), nil, sptr("200")),
		row(3, -4*time.Second, fptr(24.2), fptr(5.1), sptr("200")),
	}}
	vm := newTestVM(Config{
		Group:           "soft",
		SlaveIDs:        []int{3, 4},
		RangeMode:       RangeShared,
		OnlineThreshold: 120 * time.Second,
	}, store)

	if err := vm.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}

	queries := store.queryLog()
	if len(queries) != 1 || !reflect.DeepEqual(queries[0], []int{3, 4}) {
		t.Fatalf("queries = %v, want one combined query [[3 4]]", queries)
	}

	snap := vm.Snapshot()
	d3 := deviceSnap(t, snap, 3)
	d4 := deviceSnap(t, snap, 4)
	if len(d3.Voltage) != 2 || len(d4.Voltage) != 1 {
		t.Fatalf("voltage split = %d/%d, want 2/1", len(d3.Voltage), len(d4.Voltage))
	}
	if d3.Status == nil || d3.Status.Voltage != 24.2 {
		t.Error("device 3 status must come from its newest row")
	}

	// A range change in shared mode refetches the whole group and updates
	// every device's setting.
	store.reset()
	if err := vm.SetTimeRange(context.Background(), 3, "1h"); err != nil {
		t.Fatalf("SetTimeRange: %v", err)
	}
	queries = store.queryLog()
	if len(queries) != 1 || !reflect.DeepEqual(queries[0], []int{3, 4}) {
		t.Fatalf("queries after shared range change = %v, want [[3 4]]", queries)
	}
	snap = vm.Snapshot()
	if deviceSnap(t, snap, 3).TimeRange != "1h" || deviceSnap(t, snap, 4).TimeRange != "1h" {
		t.Error("shared range change must update every device's setting")
	}
}

func TestStatusAbsentUntilFirstData(t *testing.T) {
	vm := newTestVM(Config{Group: "hard", SlaveIDs: []int{2}}, &fakeStore{})
	if d := deviceSnap(t, vm.Snapshot(), 2); d.Status != nil {
		t.Fatal("status must be absent before any data arrives")
	}
}

func TestUpdateCallbackFiresOnAppliedChanges(t *testing.T) {
	store := &fakeStore{}
	vm := newTestVM(Config{Group: "hard", SlaveIDs: []int{2}}, store)

	var got []Snapshot
	vm.SetUpdateFunc(func(s Snapshot) { got = append(got, s) })

	if err := vm.LoadHistory(context.Background(), 2, "30m"); err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	vm.OnIncomingPoint(row(2, 0, fptr(48.0), nil, nil))

	if len(got) != 2 {
		t.Fatalf("callback fired %d times, want 2", len(got))
	}
	if len(got[1].Devices[0].Voltage) != 1 {
		t.Error("callback snapshot should reflect the applied point")
	}
}
