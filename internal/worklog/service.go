package worklog

import (
	"context"
	"fmt"
	"log"
	"sync"

	"rectifier-monitor/internal/metrics"
	"rectifier-monitor/internal/models"
)

// FilterAll disables the status filter.
const FilterAll = "all"

// DefaultSort is the initial sort column.
const DefaultSort = "created_at"

var validFilters = map[string]bool{
	FilterAll:                   true,
	models.WorkStatusPending:    true,
	models.WorkStatusInProgress: true,
	models.WorkStatusCompleted:  true,
	models.WorkStatusCancelled:  true,
}

// Store is the filtered/sorted query side of the backend for work logs.
type Store interface {
	ListWorkLogs(ctx context.Context, status, sortBy string) ([]models.WorkLog, error)
}

// Snapshot is the read-only view handed to the presentation layer.
type Snapshot struct {
	Filter string           `json:"filter"`
	SortBy string           `json:"sort_by"`
	Logs   []models.WorkLog `json:"logs"`
	Counts map[string]int   `json:"counts"`
	Err    string           `json:"error,omitempty"`
}

// Service holds the current work-log list together with the filter and sort
// settings that produced it. A change event on the push side refetches with
// the current settings.
type Service struct {
	store Store

	mu      sync.RWMutex
	filter  string
	sortBy  string
	logs    []models.WorkLog
	loadErr error

	onUpdate func(Snapshot)
}

// NewService builds a Service with the default filter and sort.
func NewService(store Store) *Service {
	return &Service{
		store:  store,
		filter: FilterAll,
		sortBy: DefaultSort,
	}
}

// SetUpdateFunc registers a callback invoked with a fresh snapshot after
// every applied change. Must be called before the first fetch.
func (s *Service) SetUpdateFunc(fn func(Snapshot)) {
	s.onUpdate = fn
}

// Refresh refetches the list with the current filter and sort.
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.RLock()
	filter, sortBy := s.filter, s.sortBy
	s.mu.RUnlock()
	return s.fetch(ctx, filter, sortBy)
}

// Apply updates the filter and/or sort setting and refetches. Empty values
// keep the current setting.
func (s *Service) Apply(ctx context.Context, filter, sortBy string) error {
	s.mu.Lock()
	if filter != "" {
		if !validFilters[filter] {
			s.mu.Unlock()
			return fmt.Errorf("invalid work-log filter %q", filter)
		}
		s.filter = filter
	}
	if sortBy != "" {
		s.sortBy = sortBy
	}
	filter, sortBy = s.filter, s.sortBy
	s.mu.Unlock()

	return s.fetch(ctx, filter, sortBy)
}

// OnChangeEvent handles a pushed table-change notification by refetching.
// Fetch failures surface in the snapshot's error state, as with any load.
func (s *Service) OnChangeEvent(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		log.Printf("work-log refetch after change event failed: %v", err)
	}
}

func (s *Service) fetch(ctx context.Context, filter, sortBy string) error {
	logs, err := s.store.ListWorkLogs(ctx, filter, sortBy)
	if err != nil {
		metrics.IncWorklogFetch(metrics.ResultError)
		s.mu.Lock()
		s.loadErr = err
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		return fmt.Errorf("work-log query (filter=%s sort=%s): %w", filter, sortBy, err)
	}
	metrics.IncWorklogFetch(metrics.ResultSuccess)

	s.mu.Lock()
	s.loadErr = nil
	s.logs = logs
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// Snapshot returns a copy of the current list and settings.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Service) snapshotLocked() Snapshot {
	snap := Snapshot{
		Filter: s.filter,
		SortBy: s.sortBy,
		Logs:   make([]models.WorkLog, len(s.logs)),
		Counts: countByStatus(s.logs),
	}
	copy(snap.Logs, s.logs)
	if s.loadErr != nil {
		snap.Err = s.loadErr.Error()
	}
	return snap
}

// countByStatus tallies the dashboard's summary tiles.
func countByStatus(logs []models.WorkLog) map[string]int {
	counts := map[string]int{
		models.WorkStatusPending:    0,
		models.WorkStatusInProgress: 0,
		models.WorkStatusCompleted:  0,
	}
	for _, l := range logs {
		if _, ok := counts[l.Status]; ok {
			counts[l.Status]++
		}
	}
	return counts
}

func (s *Service) notify(snap Snapshot) {
	if s.onUpdate != nil {
		s.onUpdate(snap)
	}
}
