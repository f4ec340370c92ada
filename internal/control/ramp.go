package control

// RampPeriod is the number of calls between ramp steps at multiplier 1.
const RampPeriod = 1000

// RampState is the sweep direction and the calls since the last step.
type RampState struct {
	Falling bool
	Elapsed int
}

// Ramp sweeps the duty cycle between 0 and 100 and back, one percent per
// RampPeriod*multiplier calls.
type Ramp struct {
	state RampState
}

// NewRamp returns a rising ramp.
func NewRamp() *Ramp {
	return &Ramp{}
}

// Step advances the sweep by one call and returns the duty cycle.
func (r *Ramp) Step(duty, multiplier int) int {
	if r.state.Elapsed >= RampPeriod*multiplier {
		if r.state.Falling {
			duty--
		} else {
			duty++
		}
		r.state.Elapsed = 0
	}

	duty = clampPercent(duty)
	switch duty {
	case 100:
		r.state.Falling = true
	case 0:
		r.state.Falling = false
	}

	r.state.Elapsed++
	return duty
}

// State returns the sweep memory.
func (r *Ramp) State() RampState {
	return r.state
}

// Reset restarts a rising sweep.
func (r *Ramp) Reset() {
	r.state = RampState{}
}
