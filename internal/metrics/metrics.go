// Package metrics scores a run of the fan controller and exports its live
// state to Prometheus.
package metrics

import "github.com/san-kum/fanctl/internal/fan"

// Metric accumulates one figure over the frames of a run.
type Metric interface {
	Name() string
	Observe(f fan.Frame)
	Value() float64
	Reset()
}

// Defaults returns a fresh set of the standard run metrics.
func Defaults() []Metric {
	return []Metric{
		NewSpeedError(),
		NewSpeedErrorStddev(),
		NewStability(DefaultTolerance),
		NewControlEffort(),
		NewTransitions(),
	}
}
