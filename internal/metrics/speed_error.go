package metrics

import (
	"github.com/eclesh/welford"

	"github.com/san-kum/fanctl/internal/fan"
)

// SpeedError is the mean absolute difference between desired and measured
// speed over closed-loop iterations.
type SpeedError struct {
	name   string
	stats  *welford.Stats
	count  int
	stddev bool
}

func NewSpeedError() *SpeedError {
	return &SpeedError{name: "speed_error", stats: welford.New()}
}

// NewSpeedErrorStddev reports the standard deviation instead of the mean.
func NewSpeedErrorStddev() *SpeedError {
	return &SpeedError{name: "speed_error_stddev", stats: welford.New(), stddev: true}
}

func (s *SpeedError) Name() string {
	return s.name
}

func (s *SpeedError) Observe(f fan.Frame) {
	if f.Mode != fan.ModeClosedLoop {
		return
	}
	s.stats.Add(float64(abs(f.DesiredSpeed - f.MeasuredSpeed)))
	s.count++
}

func (s *SpeedError) Value() float64 {
	if s.count == 0 {
		return 0
	}
	if s.stddev {
		return s.stats.Stddev()
	}
	return s.stats.Mean()
}

func (s *SpeedError) Reset() {
	s.stats = welford.New()
	s.count = 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
