// Package dynamo provides the simulation primitives behind the simulated
// board.
//
//   - [State]: vector representing plant state
//   - [System]: interface for plants (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepping of a System
//
// # Example
//
//	rotor := physics.NewFan(42, 0.6)
//	integ := integrators.NewRK4()
//	x = integ.Step(rotor, x, dynamo.Control{1}, t, dt)
package dynamo
