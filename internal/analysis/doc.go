// Package analysis characterizes recorded runs.
//
// The main use is spotting hunting in closed loop: with aggressive gains
// the measured speed oscillates around the set point instead of settling.
// [Hunting] finds the dominant frequency of the speed error:
//
//	osc, err := analysis.Hunting(trace, 0)
//	if err == nil && osc.Amplitude > 1 {
//	    // loop is hunting at osc.Frequency Hz
//	}
package analysis
