package metrics

import "github.com/san-kum/fanctl/internal/fan"

// DefaultTolerance is how far off the setpoint, on the 0..50 scale, still
// counts as settled.
const DefaultTolerance = 3

// Stability is the fraction of closed-loop iterations within tolerance of
// the desired speed.
type Stability struct {
	name       string
	tolerance  int
	violations int
	samples    int
}

func NewStability(tolerance int) *Stability {
	return &Stability{
		name:      "stability",
		tolerance: tolerance,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(f fan.Frame) {
	if f.Mode != fan.ModeClosedLoop {
		return
	}
	s.samples++
	if abs(f.DesiredSpeed-f.MeasuredSpeed) > s.tolerance {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
