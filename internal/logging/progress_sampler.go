package logging

// ProgressSampler throttles job progress lines. It emits on the first update
// of each stage and whenever progress has advanced by at least step
// percentage points since the last emitted line.
type ProgressSampler struct {
	step  float64
	stage string
	last  float64
}

// NewProgressSampler returns a sampler with the given step; non-positive
// values default to 10.
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 {
		step = 10
	}
	return &ProgressSampler{step: step, last: -1}
}

// ShouldLog reports whether an update for stage at percent should be logged.
// A nil sampler logs everything.
func (s *ProgressSampler) ShouldLog(stage string, percent float64) bool {
	if s == nil {
		return true
	}
	if stage != s.stage {
		s.stage = stage
		s.last = percent
		return true
	}
	if percent-s.last >= s.step || (percent >= 100 && s.last < 100) {
		s.last = percent
		return true
	}
	return false
}
