// Package physics provides plant models for the simulated board.
//
// [Fan] implements [dynamo.System] and [dynamo.Configurable]: a first-order
// rotor driven by the PWM pin, with a tachometer output of two pulses per
// revolution.
package physics
