package monitor

import (
	"testing"
	"time"
)

func sampleAt(sec int) Sample {
	return Sample{
		Timestamp: time.Date(2024, 3, 1, 12, 0, sec, 0, time.UTC),
		Value:     float64(sec),
	}
}

func TestSeriesAppendBelowCap(t *testing.T) {
	s := newSeries(5)
	for i := 0; i < 3; i++ {
		s.append(sampleAt(i))
	}
	if s.len() != 3 {
		t.Fatalf("len = %d, want 3", s.len())
	}
	got := s.snapshot()
	for i, p := range got {
		if p.Value != float64(i) {
			t.Errorf("sample %d value = %v, want %v", i, p.Value, float64(i))
		}
	}
}

func TestSeriesFIFOEviction(t *testing.T) {
	const limit = 5
	s := newSeries(limit)
	for i := 0; i < limit; i++ {
		s.append(sampleAt(i))
	}

	// Once at the cap, every append drops the oldest sample: the buffer stays
	// at exactly cap samples and equals the previous suffix plus the newest.
	for i := limit; i < limit+4; i++ {
		prev := s.snapshot()
		s.append(sampleAt(i))

		if s.len() != limit {
			t.Fatalf("after append %d: len = %d, want %d", i, s.len(), limit)
		}
		got := s.snapshot()
		for j := 0; j < limit-1; j++ {
			if got[j] != prev[j+1] {
				t.Fatalf("after append %d: sample %d = %+v, want %+v", i, j, got[j], prev[j+1])
			}
		}
		if got[limit-1] != sampleAt(i) {
			t.Fatalf("after append %d: newest = %+v, want %+v", i, got[limit-1], sampleAt(i))
		}
	}
}

func TestSeriesReplaceHonorsCap(t *testing.T) {
	s := newSeries(3)
	points := make([]Sample, 7)
	for i := range points {
		points[i] = sampleAt(i)
	}
	s.replace(points)

	if s.len() != 3 {
		t.Fatalf("len = %d, want 3", s.len())
	}
	got := s.snapshot()
	for i, want := range []float64{4, 5, 6} {
		if got[i].Value != want {
			t.Errorf("sample %d value = %v, want %v", i, got[i].Value, want)
		}
	}
}

func TestSeriesSnapshotIsACopy(t *testing.T) {
	s := newSeries(3)
	s.append(sampleAt(1))
	snap := s.snapshot()
	snap[0].Value = 99
	if s.snapshot()[0].Value != 1 {
		t.Fatal("mutating a snapshot changed the buffer")
	}
}
