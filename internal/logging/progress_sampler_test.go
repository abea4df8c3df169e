package logging

import "testing"

func TestNewProgressSamplerDefaults(t *testing.T) {
	for _, size := range []float64{0, -3} {
		if s := NewProgressSampler(size); s.bucketSize != DefaultProgressBucket {
			t.Fatalf("bucket size for %v = %v, want %v", size, s.bucketSize, DefaultProgressBucket)
		}
	}
	if s := NewProgressSampler(25); s.bucketSize != 25 || s.lastBucket != -1 {
		t.Fatalf("unexpected sampler state: %+v", s)
	}
}

func TestProgressSamplerNil(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "download") {
		t.Fatal("nil sampler must always log")
	}
	s.Reset()
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(10)
	steps := []struct {
		percent float64
		phase   string
		want    bool
	}{
		{0, "download", true},
		{4.5, "download", false},
		{10, "download", true},
		{19.9, "download", false},
		{45, "download", true},
		{30, "download", false},
		{100, "download", true},
		{140, "download", false},
		{0, "merge", true},
		{5, "merge", false},
		{-1, "merge", false},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.percent, step.phase); got != step.want {
			t.Fatalf("step %d (%v%%, %s): got %v, want %v", i, step.percent, step.phase, got, step.want)
		}
	}
}

func TestProgressSamplerPhaseTrimAndReset(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog(60, "  download  ")
	if s.lastPhase != "download" {
		t.Fatalf("lastPhase = %q, want trimmed value", s.lastPhase)
	}
	if s.ShouldLog(65, "download") {
		t.Fatal("same bucket after trim should not log")
	}
	s.Reset()
	if s.lastPhase != "" || s.lastBucket != -1 {
		t.Fatalf("reset left state: %+v", s)
	}
	if !s.ShouldLog(60, "download") {
		t.Fatal("expected log after reset")
	}
}
