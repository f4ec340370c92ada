package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/fanctl/internal/experiment"
	"github.com/san-kum/fanctl/internal/fan"
)

var ErrTooShort = errors.New("analysis: not enough samples")

// MinSamples is the shortest series Spectrum accepts.
const MinSamples = 8

// Spectrum returns the one-sided amplitude spectrum of a uniformly sampled
// series after removing its mean. freqs[i] is the frequency of bin i in Hz.
func Spectrum(data []float64, sampleRate float64) (freqs, amps []float64, err error) {
	n := len(data)
	if n < MinSamples {
		return nil, nil, ErrTooShort
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(n)

	centered := make([]float64, n)
	for i, v := range data {
		centered[i] = v - mean
	}

	coeffs := fft.FFTReal(centered)
	bins := n/2 + 1
	freqs = make([]float64, bins)
	amps = make([]float64, bins)
	for i := 0; i < bins; i++ {
		freqs[i] = float64(i) * sampleRate / float64(n)
		a := cmplx.Abs(coeffs[i]) / float64(n)
		if i != 0 && !(n%2 == 0 && i == n/2) {
			a *= 2
		}
		amps[i] = a
	}
	return freqs, amps, nil
}

// Oscillation is the strongest periodic component of a series.
type Oscillation struct {
	Frequency float64 `json:"frequency"`
	Amplitude float64 `json:"amplitude"`
	Samples   int     `json:"samples"`
}

// Dominant returns the largest non-DC bin of the series.
func Dominant(data []float64, sampleRate float64) (Oscillation, error) {
	freqs, amps, err := Spectrum(data, sampleRate)
	if err != nil {
		return Oscillation{}, err
	}
	best := 1
	for i := 2; i < len(amps); i++ {
		if amps[i] > amps[best] {
			best = i
		}
	}
	return Oscillation{Frequency: freqs[best], Amplitude: amps[best], Samples: len(data)}, nil
}

// Hunting finds the dominant oscillation of the closed-loop speed error in a
// trace. Samples before settle seconds into closed loop are skipped so the
// initial step does not dominate. The longest contiguous closed-loop stretch
// is analysed.
func Hunting(trace []experiment.Sample, settle float64) (Oscillation, error) {
	var best, cur []float64
	var entered float64
	var prev *experiment.Sample
	for i := range trace {
		s := &trace[i]
		if s.Mode != fan.ModeClosedLoop {
			cur = nil
			prev = s
			continue
		}
		if prev == nil || prev.Mode != fan.ModeClosedLoop {
			entered = s.Time
			cur = nil
		}
		prev = s
		if s.Time-entered < settle {
			continue
		}
		cur = append(cur, float64(s.DesiredSpeed-s.MeasuredSpeed))
		if len(cur) > len(best) {
			best = cur
		}
	}
	if len(best) < MinSamples {
		return Oscillation{}, ErrTooShort
	}

	rate, err := sampleRate(trace)
	if err != nil {
		return Oscillation{}, err
	}
	return Dominant(best, rate)
}

// sampleRate infers the trace spacing from its first two samples.
func sampleRate(trace []experiment.Sample) (float64, error) {
	if len(trace) < 2 {
		return 0, ErrTooShort
	}
	dt := trace[1].Time - trace[0].Time
	if dt <= 0 || math.IsNaN(dt) {
		return 0, errors.New("analysis: trace is not time ordered")
	}
	return 1 / dt, nil
}
