package monitor

import "time"

// Sample is one telemetry point in a per-device series.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// series is a FIFO-capped sample buffer. Appending beyond the cap drops the
// oldest samples first, preserving recency.
type series struct {
	samples []Sample
	limit   int
}

func newSeries(limit int) *series {
	return &series{samples: make([]Sample, 0, limit), limit: limit}
}

func (s *series) append(p Sample) {
	if len(s.samples) >= s.limit {
		drop := len(s.samples) - s.limit + 1
		s.samples = append(s.samples[:0], s.samples[drop:]...)
	}
	s.samples = append(s.samples, p)
}

// replace discards the buffer contents and refills it from points, still
// honoring the cap.
func (s *series) replace(points []Sample) {
	s.samples = s.samples[:0]
	for _, p := range points {
		s.append(p)
	}
}

func (s *series) reset() {
	s.samples = s.samples[:0]
}

// snapshot returns a copy so callers cannot mutate the buffer.
func (s *series) snapshot() []Sample {
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

func (s *series) len() int {
	return len(s.samples)
}
