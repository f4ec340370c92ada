// Package fan implements the fan-speed control loop.
//
// A [Controller] owns every stateful component and runs them in a fixed
// order on each [Controller.Step]:
//
//   - [ModeMachine]: key readings to mode transitions
//   - [PhaseGenerator]: counter to PWM phase
//   - a duty-cycle source from package control (ramp, encoder or PID)
//   - [Driver]: phase and on-time to the fan pin
//   - [Tachometer]: tach pin to revolutions per second
//
// All timing comes from the board counter; nothing in this package reads
// the wall clock or blocks.
//
// # Example
//
//	ctrl := fan.NewController(board, fan.DefaultConfig())
//	for {
//		frame := ctrl.Step(fan.Inputs{Key: panel.Keys(), PWMFrequency: 100, Responsiveness: 1})
//		display.Show(frame)
//	}
package fan
