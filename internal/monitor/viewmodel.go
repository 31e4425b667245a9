package monitor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"rectifier-monitor/internal/metrics"
	"rectifier-monitor/internal/models"
)

// RangeMode selects whether each device keeps its own time-range setting or
// the whole group shares one.
type RangeMode int

const (
	// RangePerDevice gives every device an independent range; changing it
	// refetches that device only.
	RangePerDevice RangeMode = iota
	// RangeShared keeps one range for the group; changing it refetches the
	// whole group with a single combined query.
	RangeShared
)

// HistoryStore is the bulk-query side of the backend: all rows for the given
// devices since a point in time, ascending by timestamp, capped at limit.
type HistoryStore interface {
	DeviceHistory(ctx context.Context, slaveIDs []int, since time.Time, limit int) ([]models.TelemetryRow, error)
}

// Config parametrizes a ViewModel for one monitor group.
type Config struct {
	Group           string        // "hard" or "soft", used in logs and metrics labels
	SlaveIDs        []int         // tracked devices, in display order
	CapPerSeries    int           // max retained samples per voltage/current series
	QueryLimit      int           // row cap for one history query
	OnlineThreshold time.Duration // max age of the latest sample to count as online
	RangeMode       RangeMode
	DefaultRange    string
}

// DeviceStatus is the latest known snapshot for one device. It is replaced
// wholesale on every observed row, never partially mutated.
type DeviceStatus struct {
	SlaveID    int            `json:"slave_id"`
	Voltage    float64        `json:"voltage"`
	Current    float64        `json:"current"`
	StatusCode string         `json:"status_code"`
	Status     Classification `json:"status"`
	Timestamp  time.Time      `json:"timestamp"`
	IsOnline   bool           `json:"is_online"`
}

// DeviceSnapshot is the read-only per-device view handed to the presentation
// layer.
type DeviceSnapshot struct {
	SlaveID   int           `json:"slave_id"`
	TimeRange string        `json:"time_range"`
	Voltage   []Sample      `json:"voltage"`
	Current   []Sample      `json:"current"`
	Status    *DeviceStatus `json:"status,omitempty"`
}

// Snapshot is the read-only view of a whole monitor group.
type Snapshot struct {
	Group   string           `json:"group"`
	Devices []DeviceSnapshot `json:"devices"`
	Err     string           `json:"error,omitempty"`
}

// ViewModel owns the in-memory series buffers and latest-status map for one
// monitor group. Bulk history loads replace a device's buffers; pushed rows
// append to them. Nothing else mutates this state.
//
// MQTT delivers pushed rows on the client's own goroutines and HTTP handlers
// read snapshots concurrently, so all state is guarded by a mutex. Bulk
// queries run outside the lock and their results are applied under it, so a
// pushed row interleaved with an in-flight load resolves as last-applied-wins.
type ViewModel struct {
	cfg   Config
	store HistoryStore

	mu       sync.RWMutex
	voltage  map[int]*series
	current  map[int]*series
	statuses map[int]*DeviceStatus
	ranges   map[int]string
	loadErr  error

	// now is swapped out in tests.
	now func() time.Time

	onUpdate func(Snapshot)
}

// New builds a ViewModel for cfg. Zero config values fall back to the
// observed production defaults.
func New(cfg Config, store HistoryStore) *ViewModel {
	if cfg.CapPerSeries <= 0 {
		cfg.CapPerSeries = 1000
	}
	if cfg.QueryLimit <= 0 {
		cfg.QueryLimit = cfg.CapPerSeries
	}
	if cfg.OnlineThreshold <= 0 {
		cfg.OnlineThreshold = time.Minute
	}
	if cfg.DefaultRange == "" {
		cfg.DefaultRange = DefaultTimeRange
	}

	vm := &ViewModel{
		cfg:      cfg,
		store:    store,
		voltage:  make(map[int]*series, len(cfg.SlaveIDs)),
		current:  make(map[int]*series, len(cfg.SlaveIDs)),
		statuses: make(map[int]*DeviceStatus, len(cfg.SlaveIDs)),
		ranges:   make(map[int]string, len(cfg.SlaveIDs)),
		now:      time.Now,
	}
	for _, id := range cfg.SlaveIDs {
		vm.voltage[id] = newSeries(cfg.CapPerSeries)
		vm.current[id] = newSeries(cfg.CapPerSeries)
		vm.ranges[id] = cfg.DefaultRange
	}
	return vm
}

// Group returns the configured group name.
func (vm *ViewModel) Group() string {
	return vm.cfg.Group
}

// SetUpdateFunc registers a callback invoked with a fresh snapshot after
// every applied change. Must be called before the first load or pushed row.
func (vm *ViewModel) SetUpdateFunc(fn func(Snapshot)) {
	vm.onUpdate = fn
}

// Tracks reports whether slaveID belongs to this group.
func (vm *ViewModel) Tracks(slaveID int) bool {
	for _, id := range vm.cfg.SlaveIDs {
		if id == slaveID {
			return true
		}
	}
	return false
}

// LoadAll performs the initial bulk load for every tracked device. Per-device
// loads are issued concurrently and joined; each writes to a disjoint
// per-device slot, so ordering between them does not matter.
func (vm *ViewModel) LoadAll(ctx context.Context) error {
	if vm.cfg.RangeMode == RangeShared {
		return vm.loadShared(ctx, vm.sharedRange())
	}

	errCh := make(chan error, len(vm.cfg.SlaveIDs))
	var wg sync.WaitGroup
	for _, id := range vm.cfg.SlaveIDs {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := vm.LoadHistory(ctx, id, vm.RangeFor(id)); err != nil {
				errCh <- err
			}
		}(id)
	}
	wg.Wait()
	close(errCh)
	return <-errCh
}

// LoadHistory fetches the rows for slaveID within the resolved lookback
// window and replaces that device's buffers with the result. On failure the
// whole group enters the error state and no buffers are touched. In shared
// range mode the load always covers the whole group.
func (vm *ViewModel) LoadHistory(ctx context.Context, slaveID int, rangeLabel string) error {
	if !vm.Tracks(slaveID) {
		return fmt.Errorf("monitor %s: unknown slave id %d", vm.cfg.Group, slaveID)
	}
	if vm.cfg.RangeMode == RangeShared {
		return vm.loadShared(ctx, rangeLabel)
	}
	return vm.load(ctx, []int{slaveID}, rangeLabel)
}

// SetTimeRange updates the stored range setting and refetches immediately.
// In per-device mode only the addressed device is refetched; other devices'
// buffers are untouched.
func (vm *ViewModel) SetTimeRange(ctx context.Context, slaveID int, rangeLabel string) error {
	if !vm.Tracks(slaveID) {
		return fmt.Errorf("monitor %s: unknown slave id %d", vm.cfg.Group, slaveID)
	}

	vm.mu.Lock()
	if vm.cfg.RangeMode == RangeShared {
		for _, id := range vm.cfg.SlaveIDs {
			vm.ranges[id] = rangeLabel
		}
	} else {
		vm.ranges[slaveID] = rangeLabel
	}
	vm.mu.Unlock()

	return vm.LoadHistory(ctx, slaveID, rangeLabel)
}

// RangeFor returns the current range setting for slaveID.
func (vm *ViewModel) RangeFor(slaveID int) string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if r, ok := vm.ranges[slaveID]; ok {
		return r
	}
	return vm.cfg.DefaultRange
}

func (vm *ViewModel) sharedRange() string {
	if len(vm.cfg.SlaveIDs) == 0 {
		return vm.cfg.DefaultRange
	}
	return vm.RangeFor(vm.cfg.SlaveIDs[0])
}

func (vm *ViewModel) loadShared(ctx context.Context, rangeLabel string) error {
	return vm.load(ctx, vm.cfg.SlaveIDs, rangeLabel)
}

// load runs the bulk query outside the lock and applies the result under it.
func (vm *ViewModel) load(ctx context.Context, slaveIDs []int, rangeLabel string) error {
	since := vm.now().Add(-ResolveRange(rangeLabel))

	start := time.Now()
	rows, err := vm.store.DeviceHistory(ctx, slaveIDs, since, vm.cfg.QueryLimit)
	if err != nil {
		metrics.ObserveHistoryLoad(vm.cfg.Group, metrics.ResultError, time.Since(start))
		vm.mu.Lock()
		vm.loadErr = err
		snap := vm.snapshotLocked()
		vm.mu.Unlock()
		vm.notify(snap)
		return fmt.Errorf("history query for slaves %v: %w", slaveIDs, err)
	}
	metrics.ObserveHistoryLoad(vm.cfg.Group, metrics.ResultSuccess, time.Since(start))

	vm.mu.Lock()
	vm.loadErr = nil
	vm.applyHistoryLocked(slaveIDs, rows)
	snap := vm.snapshotLocked()
	vm.mu.Unlock()
	vm.notify(snap)

	log.Printf("monitor %s: loaded %d rows for slaves %v (range %s)",
		vm.cfg.Group, len(rows), slaveIDs, rangeLabel)
	return nil
}

// applyHistoryLocked replaces the buffers of the loaded devices and
// recomputes each device's status from its newest row. Devices with no rows
// keep their previous status. Rows arrive pre-sorted ascending by timestamp.
func (vm *ViewModel) applyHistoryLocked(slaveIDs []int, rows []models.TelemetryRow) {
	latest := make(map[int]models.TelemetryRow, len(slaveIDs))

	for _, id := range slaveIDs {
		vm.voltage[id].reset()
		vm.current[id].reset()
	}

	for _, row := range rows {
		vs, ok := vm.voltage[row.SlaveID]
		if !ok {
			continue
		}
		if row.Voltage != nil {
			vs.append(Sample{Timestamp: row.Timestamp, Value: *row.Voltage})
		}
		if row.Current != nil {
			vm.current[row.SlaveID].append(Sample{Timestamp: row.Timestamp, Value: *row.Current})
		}
		if prev, ok := latest[row.SlaveID]; !ok || !row.Timestamp.Before(prev.Timestamp) {
			latest[row.SlaveID] = row
		}
	}

	now := vm.now()
	for id, row := range latest {
		vm.statuses[id] = vm.statusFromRow(row, now)
	}
}

// OnIncomingPoint applies one pushed change notification. Rows for untracked
// devices are ignored. Null voltage/current fields are skipped individually;
// the device status is replaced unconditionally, last write wins by arrival
// order rather than by timestamp comparison.
func (vm *ViewModel) OnIncomingPoint(row models.TelemetryRow) {
	if !vm.Tracks(row.SlaveID) {
		return
	}

	vm.mu.Lock()
	if row.Voltage != nil {
		vm.voltage[row.SlaveID].append(Sample{Timestamp: row.Timestamp, Value: *row.Voltage})
	}
	if row.Current != nil {
		vm.current[row.SlaveID].append(Sample{Timestamp: row.Timestamp, Value: *row.Current})
	}
	vm.statuses[row.SlaveID] = vm.nextStatus(vm.statuses[row.SlaveID], row)
	snap := vm.snapshotLocked()
	vm.mu.Unlock()

	metrics.IncPointApplied(vm.cfg.Group)
	vm.notify(snap)
}

// statusFromRow derives a status from a bulk-loaded row. Missing channels
// read as zero, matching the replace semantics of a bulk load.
func (vm *ViewModel) statusFromRow(row models.TelemetryRow, now time.Time) *DeviceStatus {
	st := &DeviceStatus{
		SlaveID:   row.SlaveID,
		Timestamp: row.Timestamp,
	}
	if row.Voltage != nil {
		st.Voltage = *row.Voltage
	}
	if row.Current != nil {
		st.Current = *row.Current
	}
	if row.StatusCode != nil {
		st.StatusCode = *row.StatusCode
	}
	st.Status = ClassifyStatus(st.StatusCode)
	st.IsOnline = IsOnline(row.Timestamp, now, vm.cfg.OnlineThreshold)
	return st
}

// nextStatus derives a replacement status from a pushed row. A channel the
// row does not carry keeps its previous value.
func (vm *ViewModel) nextStatus(prev *DeviceStatus, row models.TelemetryRow) *DeviceStatus {
	st := &DeviceStatus{
		SlaveID:   row.SlaveID,
		Timestamp: row.Timestamp,
	}
	if prev != nil {
		st.Voltage = prev.Voltage
		st.Current = prev.Current
	}
	if row.Voltage != nil {
		st.Voltage = *row.Voltage
	}
	if row.Current != nil {
		st.Current = *row.Current
	}
	if row.StatusCode != nil {
		st.StatusCode = *row.StatusCode
	}
	st.Status = ClassifyStatus(st.StatusCode)
	st.IsOnline = IsOnline(row.Timestamp, vm.now(), vm.cfg.OnlineThreshold)
	return st
}

// Snapshot returns a deep copy of the group state for the presentation layer.
func (vm *ViewModel) Snapshot() Snapshot {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.snapshotLocked()
}

func (vm *ViewModel) snapshotLocked() Snapshot {
	snap := Snapshot{
		Group:   vm.cfg.Group,
		Devices: make([]DeviceSnapshot, 0, len(vm.cfg.SlaveIDs)),
	}
	if vm.loadErr != nil {
		snap.Err = vm.loadErr.Error()
	}
	for _, id := range vm.cfg.SlaveIDs {
		ds := DeviceSnapshot{
			SlaveID:   id,
			TimeRange: vm.ranges[id],
			Voltage:   vm.voltage[id].snapshot(),
			Current:   vm.current[id].snapshot(),
		}
		if st, ok := vm.statuses[id]; ok {
			stCopy := *st
			ds.Status = &stCopy
		}
		snap.Devices = append(snap.Devices, ds)
	}
	return snap
}

func (vm *ViewModel) notify(snap Snapshot) {
	if vm.onUpdate != nil {
		vm.onUpdate(snap)
	}
}
