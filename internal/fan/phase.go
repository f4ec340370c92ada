package fan

// PhaseGenerator turns the free-running counter into a PWM phase in
// [0, 100).
type PhaseGenerator struct {
	ClockHz uint32
}

// Period is the number of counter ticks in one PWM cycle. pwmHz must be in
// (0, ClockHz].
func (g PhaseGenerator) Period(pwmHz int) uint32 {
	return g.ClockHz / uint32(pwmHz)
}

// Phase returns how far through the current PWM cycle the counter is, in
// percent.
func (g PhaseGenerator) Phase(counter uint32, pwmHz int) int {
	period := g.Period(pwmHz)
	return int(uint64(counter%period) * 100 / uint64(period))
}

// WrapSafe reports whether the period divides 2^32, in which case the phase
// sawtooth stays continuous when the counter wraps. Otherwise the cycle
// that straddles the wrap is cut short.
func (g PhaseGenerator) WrapSafe(pwmHz int) bool {
	period := uint64(g.Period(pwmHz))
	return period != 0 && (1<<32)%period == 0
}
