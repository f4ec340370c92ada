package control

import (
	"testing"

	"github.com/san-kum/fanctl/internal/hw"
)

type pinBoard struct {
	pins map[hw.Pin]bool
}

func newPinBoard() *pinBoard {
	return &pinBoard{pins: map[hw.Pin]bool{}}
}

func (b *pinBoard) Counter() uint32 { return 0 }
func (b *pinBoard) ReadPin(p hw.Pin) bool { return b.pins[p] }
func (b *pinBoard) WritePin(p hw.Pin, high bool) { b.pins[p] = high }
func (b *pinBoard) set(a, bb bool) { b.pins[hw.PinEncoderA], b.pins[hw.PinEncoderB] = a, bb }
func (b *pinBoard) manual() *Manual { return NewManual(b, hw.PinEncoderA, hw.PinEncoderB) }

func TestManualDirection(t *testing.T) {
	tests := []struct {
		name  string
		seq   [][2]bool
		start int
		step  int
		want  int
	}{
		// A leads B: every A edge sees A != B.
		{"clockwise", [][2]bool{{true, false}, {true, true}, {false, true}, {false, false}}, 50, 5, 60},
		// B leads A: every A edge sees A == B.
		{"counter-clockwise", [][2]bool{{false, true}, {true, true}, {true, false}, {false, false}}, 50, 5, 40},
		{"no movement", [][2]bool{{false, false}, {false, true}, {false, false}}, 30, 20, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newPinBoard()
			m := b.manual()
			duty := tt.start
			for _, s := range tt.seq {
				b.set(s[0], s[1])
				duty = m.Step(duty, tt.step)
			}
			if duty != tt.want {
				t.Errorf("duty = %d, want %d", duty, tt.want)
			}
		})
	}
}

func TestManualClamp(t *testing.T) {
	b := newPinBoard()
	m := b.manual()

	duty := 95
	b.set(true, false)
	duty = m.Step(duty, 20)
	if duty != 100 {
		t.Errorf("upper clamp: got %d, want 100", duty)
	}

	duty = 3
	b.set(false, false)
	duty = m.Step(duty, 20)
	if duty != 0 {
		t.Errorf("lower clamp: got %d, want 0", duty)
	}
}

func TestManualRemembersPhaseA(t *testing.T) {
	b := newPinBoard()
	m := b.manual()

	b.set(true, false)
	m.Step(0, 1)
	if !m.State().PrevA {
		t.Fatal("PrevA not recorded")
	}
	// A held high: no further steps.
	if got := m.Step(10, 1); got != 10 {
		t.Errorf("held A changed duty to %d", got)
	}
	m.Reset()
	if m.State().PrevA {
		t.Error("Reset did not clear PrevA")
	}
}

func TestRampSteps(t *testing.T) {
	r := NewRamp()
	duty := 0
	for i := 0; i < RampPeriod; i++ {
		duty = r.Step(duty, 1)
	}
	if duty != 0 {
		t.Fatalf("after %d calls duty = %d, want 0", RampPeriod, duty)
	}

	duty = r.Step(duty, 1)
	if duty != 1 {
		t.Fatalf("first step: duty = %d, want 1", duty)
	}
	for i := 0; i < RampPeriod; i++ {
		duty = r.Step(duty, 1)
	}
	if duty != 2 {
		t.Errorf("second step: duty = %d, want 2", duty)
	}
}

func TestRampMultiplier(t *testing.T) {
	r := NewRamp()
	duty := 0
	for i := 0; i < 5*RampPeriod; i++ {
		duty = r.Step(duty, 5)
	}
	if duty != 0 {
		t.Fatalf("duty = %d before first step at multiplier 5", duty)
	}
	if duty = r.Step(duty, 5); duty != 1 {
		t.Errorf("duty = %d, want 1", duty)
	}
}

func TestRampFlipsAtBounds(t *testing.T) {
	r := NewRamp()
	duty := 99
	r.state.Elapsed = RampPeriod

	duty = r.Step(duty, 1)
	if duty != 100 || !r.State().Falling {
		t.Fatalf("at top: duty=%d falling=%v", duty, r.State().Falling)
	}

	for i := 0; i < RampPeriod; i++ {
		duty = r.Step(duty, 1)
	}
	if duty != 99 {
		t.Errorf("after flip: duty = %d, want 99", duty)
	}

	r.state.Elapsed = RampPeriod
	duty = r.Step(1, 1)
	if duty != 0 || r.State().Falling {
		t.Errorf("at bottom: duty=%d falling=%v", duty, r.State().Falling)
	}
}

func TestRampClampsOutOfRangeInput(t *testing.T) {
	r := NewRamp()
	if got := r.Step(150, 1); got != 100 {
		t.Errorf("got %d, want 100", got)
	}
	if got := r.Step(-4, 1); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestPIDDeterministic(t *testing.T) {
	inputs := [][2]int{{25, 0}, {25, 3}, {25, 10}, {25, 20}, {25, 27}, {10, 22}}

	a, b := NewPID(), NewPID()
	for i, in := range inputs {
		ga := a.Compute(in[0], in[1], 0, nil)
		gb := b.Compute(in[0], in[1], 0, nil)
		if ga != gb || a.State() != b.State() {
			t.Fatalf("step %d: diverged %d vs %d", i, ga, gb)
		}
	}
}

func TestPIDResetSingleShot(t *testing.T) {
	p := NewPID()
	for i := 0; i < 10; i++ {
		p.Compute(40, 5, 0, nil)
	}

	var reset Latch
	reset.Raise()
	if got := p.Compute(20, 20, 0, &reset); got != 0 {
		t.Errorf("on-time after reset with zero error = %d, want 0", got)
	}
	if reset.Raised() {
		t.Error("reset latch not consumed")
	}
	if s := p.State(); s.Integral != 0 || s.PrevError != 0 || s.OnTime != 0 {
		t.Errorf("state after reset = %+v", s)
	}

	// The consumed latch is still passed in; state must carry over.
	for i, want := range []float32{35, 70} {
		p.Compute(40, 5, 0, &reset)
		s := p.State()
		if s.Integral != want || s.PrevError != 35 {
			t.Errorf("call %d after reset: integral=%v prevError=%v, want %v 35", i+1, s.Integral, s.PrevError, want)
		}
	}
	if p.State().OnTime <= 0 {
		t.Errorf("on-time did not build after reset: %v", p.State().OnTime)
	}
}

func TestPIDWindupFromRest(t *testing.T) {
	p := NewPID()
	var reset Latch
	reset.Raise()

	prevInternal := float32(-1)
	prevOn := -1
	for i := 0; i < 3; i++ {
		on := p.Compute(25, 0, 0, &reset)
		internal := p.State().OnTime
		if on <= 0 {
			t.Fatalf("call %d: on-time %d, want > 0", i, on)
		}
		if internal <= prevInternal {
			t.Errorf("call %d: internal on-time %v not above %v", i, internal, prevInternal)
		}
		if on < prevOn {
			t.Errorf("call %d: on-time decreased %d -> %d", i, prevOn, on)
		}
		prevInternal, prevOn = internal, on
	}
}

func TestPIDClamp(t *testing.T) {
	tests := []struct {
		name              string
		desired, measured int
		want              int
	}{
		{"saturates high", 50, 0, 100},
		{"saturates low", 0, 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPIDWithGains(10, 0, 0)
			got := p.Compute(tt.desired, tt.measured, 0, nil)
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
			if s := p.State().OnTime; s < 0 || s > MaxOnTime {
				t.Errorf("internal on-time %v out of range", s)
			}
		})
	}
}

func TestPIDGainsDoublePrecision(t *testing.T) {
	p := NewPID()
	if p.Kp != 0.000025 || p.Ki != 1.5e-11 || p.Kd != 0.8 {
		t.Fatalf("gains = %v %v %v", p.Kp, p.Ki, p.Kd)
	}

	p.Compute(25, 0, 0, nil)
	kp, ki, kd, e := 0.000025, 1.5e-11, 0.8, 25.0
	want := float32(kp*e + ki*e + kd*e)
	if got := p.State().OnTime; got != want {
		t.Errorf("first update = %v, want %v", got, want)
	}
}

func TestPIDParams(t *testing.T) {
	p := NewPID()
	p.SetParam("Kd", 0.5)
	p.SetParam("bogus", 3)
	params := p.GetParams()
	if params["Kd"] != 0.5 {
		t.Errorf("Kd = %v, want 0.5", params["Kd"])
	}
	if len(params) != 3 {
		t.Errorf("unexpected params %v", params)
	}
}
