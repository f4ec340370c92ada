// Package viz is the live terminal front panel, built on Bubble Tea.
//
// A [Feed] sits on the control loop as its display; a [Model] polls it and
// draws the seven-segment readout, the LED bar, mode banners, selector
// notices and a chart of desired against measured speed. When the board
// accepts operator input the model also works the panel:
//
//	1-4   Off / Ramp / Closed loop / Open loop keys
//	←/→   turn the encoder (h/l also work)
//	f     next PWM frequency
//	r     next responsiveness
//	a     toggle SW9, the alternate readout
//	q     quit
package viz
