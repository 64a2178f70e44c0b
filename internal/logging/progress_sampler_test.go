package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 5},
		{"default bucket size for negative", -1, 5},
		{"custom bucket size", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSampler_NilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "extract") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSampler_PhaseChange(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(0, "split") {
		t.Error("first phase should log")
	}
	if s.ShouldLog(0, "split") {
		t.Error("same phase and percent should not log again")
	}
	if !s.ShouldLog(0, "extract") {
		t.Error("different phase should log")
	}
	if s.lastPhase != "extract" {
		t.Errorf("lastPhase = %q, want extract", s.lastPhase)
	}
}

func TestProgressSampler_PercentBuckets(t *testing.T) {
	s := NewProgressSampler(5)

	steps := []struct {
		percent float64
		want    bool
	}{
		{0, true},
		{3, false},
		{5, true},
		{7, false},
		{10, true},
		{100, true},
		{105, false},
	}
	for _, step := range steps {
		if got := s.ShouldLog(step.percent, "extract"); got != step.want {
			t.Fatalf("ShouldLog(%v) = %v, want %v", step.percent, got, step.want)
		}
	}
}

func TestProgressSampler_UnknownPercent(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(-1, "extract") {
		t.Error("first call should log even with unknown percent")
	}
	if s.ShouldLog(-1, "extract") {
		t.Error("unknown percent should not trigger bucket logging")
	}
}

func TestProgressSampler_ShouldLogCount(t *testing.T) {
	s := NewProgressSampler(25)

	if !s.ShouldLogCount(0, 8, "extract") {
		t.Error("first count should log")
	}
	if s.ShouldLogCount(1, 8, "extract") {
		t.Error("12.5% should stay in the first bucket")
	}
	if !s.ShouldLogCount(2, 8, "extract") {
		t.Error("25% should log")
	}
	if s.ShouldLogCount(5, 0, "extract") {
		t.Error("unknown total should not log within the same phase")
	}
}

func TestProgressSampler_Reset(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "extract")

	s.Reset()

	if s.lastPhase != "" || s.lastBucket != -1 {
		t.Fatalf("unexpected state after reset: %q %d", s.lastPhase, s.lastBucket)
	}
	if !s.ShouldLog(50, "extract") {
		t.Error("should log after reset")
	}
}
