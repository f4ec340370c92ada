// Package control provides the duty-cycle sources of the fan controller.
//
// Each source owns its state and is stepped once per loop iteration:
//
//   - [Manual]: rotary encoder (quadrature) adjustment
//   - [Ramp]: automatic 0..100..0 sweep
//   - [PID]: closed-loop on-time from desired and measured speed
//
// # Usage
//
//	pid := control.NewPID()
//	var reset control.Latch
//	reset.Raise()                  // fresh start on mode entry
//	on := pid.Compute(25, 0, 0, &reset)
//
// The PID gains are per-iteration: they assume the loop runs at the cadence
// they were tuned for.
package control
