package control

import "math"

// Gains tuned against the reference loop cadence. They are per-iteration
// gains: running the loop faster or slower changes the effective response.
const (
	Kp = 0.000025
	Ki = 1.5e-11
	Kd = 0.8
)

// MaxOnTime is the upper bound of the PWM on-time percentage.
const MaxOnTime = 100

// PIDState is the controller memory between calls. Values are single
// precision so accumulation matches the tuned controller.
type PIDState struct {
	Integral  float32
	PrevError float32
	// OnTime is the unfloored output, kept in [0, MaxOnTime].
	OnTime float32
}

// Latch is a single-shot signal raised by one party and consumed by
// another.
type Latch struct {
	raised bool
}

// Raise sets the latch.
func (l *Latch) Raise() { l.raised = true }

// Raised reports whether the latch is set.
func (l *Latch) Raised() bool { return l.raised }

// Consume clears the latch and reports whether it was set.
func (l *Latch) Consume() bool {
	was := l.raised
	l.raised = false
	return was
}

// PID is the closed-loop on-time controller. The gains are double
// precision; the update is summed in double and stored back in single.
type PID struct {
	Kp, Ki, Kd float64

	state PIDState
}

// NewPID returns a controller with the tuned gains.
func NewPID() *PID {
	return &PID{Kp: Kp, Ki: Ki, Kd: Kd}
}

// NewPIDWithGains returns a controller with custom gains.
func NewPIDWithGains(kp, ki, kd float64) *PID {
	return &PID{Kp: kp, Ki: ki, Kd: kd}
}

// Compute returns the next on-time for the given desired and measured
// speeds (both 0..50). A raised reset latch clears the controller memory and
// is consumed; the update then runs against the cleared state. onTime is the
// on-time currently applied and is accepted for interface symmetry with the
// other sources.
func (p *PID) Compute(desired, measured, onTime int, reset *Latch) int {
	if reset != nil && reset.Consume() {
		p.Reset()
	}

	err := float32(desired - measured)
	p.state.Integral += err
	derivative := err - p.state.PrevError

	step := p.Kp*float64(err) + p.Ki*float64(p.state.Integral) + p.Kd*float64(derivative)
	p.state.OnTime = float32(float64(p.state.OnTime) + step)
	if p.state.OnTime > MaxOnTime {
		p.state.OnTime = MaxOnTime
	} else if p.state.OnTime < 0 {
		p.state.OnTime = 0
	}

	p.state.PrevError = err
	return int(math.Floor(float64(p.state.OnTime)))
}

// Reset clears integral, derivative and output memory.
func (p *PID) Reset() {
	p.state = PIDState{}
}

// State returns a copy of the controller memory.
func (p *PID) State() PIDState {
	return p.state
}

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp": p.Kp,
		"Ki": p.Ki,
		"Kd": p.Kd,
	}
}

// SetParam adjusts a PID gain
func (p *PID) SetParam(name string, value float64) {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	}
}
