package fan_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/fanctl/internal/fan"
	"github.com/san-kum/fanctl/internal/hw"
	"github.com/san-kum/fanctl/internal/hw/simboard"
)

type rig struct {
	board *simboard.Board
	ctrl  *fan.Controller
	freq  int
	resp  int
	last  fan.Frame
}

func newRig(mutate func(*simboard.Config)) *rig {
	cfg := simboard.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	board, err := simboard.New(cfg)
	Expect(err).NotTo(HaveOccurred())

	fc := fan.DefaultConfig()
	fc.ClockHz = cfg.ClockHz
	return &rig{
		board: board,
		ctrl:  fan.NewController(board, fc),
		freq:  1000,
		resp:  1,
	}
}

// run steps the loop for the given simulated seconds, calling check on
// every frame when it is not nil.
func (r *rig) run(seconds float64, check func(fan.Frame)) fan.Frame {
	n := r.board.IterationsFor(seconds)
	for i := uint64(0); i < n; i++ {
		r.last = r.ctrl.Step(fan.Inputs{
			Key:            r.board.Keys(),
			PWMFrequency:   r.freq,
			Responsiveness: r.resp,
		})
		if check != nil {
			check(r.last)
		}
		r.board.Advance()
	}
	return r.last
}

func inBounds(f fan.Frame) {
	if f.DutyCycle < 0 || f.DutyCycle > 100 ||
		f.OnTime < 0 || f.OnTime > 100 ||
		f.Phase < 0 || f.Phase >= 100 ||
		f.DesiredSpeed < 0 || f.DesiredSpeed > fan.MaxSpeed ||
		f.MeasuredSpeed < 0 || f.MeasuredSpeed > fan.MaxSpeed {
		Fail(fmt.Sprintf("frame out of bounds: %+v", f))
	}
}

var _ = Describe("Controller", func() {
	var r *rig

	BeforeEach(func() {
		r = newRig(nil)
	})

	It("starts off with the fan pin low", func() {
		f := r.run(0.1, nil)
		Expect(f.Mode).To(Equal(fan.ModeOff))
		Expect(r.board.ReadPin(hw.PinFan)).To(BeFalse())
		Expect(r.board.Speed()).To(BeZero())
	})

	Context("in open loop", func() {
		BeforeEach(func() {
			r.board.Press(hw.KeyOpenLoop)
			r.run(0.01, nil)
			r.board.Turn(60)
		})

		It("follows the encoder and measures the resulting speed", func() {
			f := r.run(6, inBounds)
			Expect(f.Mode).To(Equal(fan.ModeOpenLoop))
			Expect(f.DutyCycle).To(Equal(60))
			Expect(f.OnTime).To(Equal(60))
			Expect(f.DesiredSpeed).To(Equal(30))
			Expect(r.board.Speed()).To(BeNumerically("~", 0.6*42, 1.5))
			Expect(f.RPS).To(BeNumerically("~", 0.6*42, 4))
		})

		It("zeroes duty and speed when switching modes", func() {
			r.run(3, nil)
			r.board.Press(hw.KeyRamp)
			f := r.run(0.001, nil)
			Expect(f.Mode).To(Equal(fan.ModeRamp))
			Expect(f.DutyCycle).To(BeZero())
			Expect(f.RPS).To(BeZero())
		})

		It("scales encoder steps by the responsiveness", func() {
			r.run(1, nil)
			r.resp = 10
			r.board.Turn(-2)
			f := r.run(0.5, nil)
			Expect(f.DutyCycle).To(Equal(40))
		})
	})

	Context("in ramp mode", func() {
		It("sweeps up to 100 and back down", func() {
			r.board.Press(hw.KeyRamp)
			sawTop := false
			f := r.run(1.5, func(f fan.Frame) {
				inBounds(f)
				if f.DutyCycle == 100 {
					sawTop = true
				}
			})
			Expect(sawTop).To(BeTrue())
			Expect(f.DutyCycle).To(BeNumerically("<", 100))
			Expect(f.DutyCycle).To(BeNumerically(">", 40))
		})
	})

	Context("in closed loop", func() {
		BeforeEach(func() {
			r.board.Press(hw.KeyClosedLoop)
			r.run(0.01, nil)
			r.board.Turn(50)
		})

		It("sets the desired speed from the encoder and drives the fan", func() {
			f := r.run(0.5, inBounds)
			Expect(f.Mode).To(Equal(fan.ModeClosedLoop))
			Expect(f.DesiredSpeed).To(Equal(25))
			Expect(f.OnTime).To(BeNumerically(">", 0))
			Expect(r.board.Speed()).To(BeNumerically(">", 0))
		})

		It("brings the rotor near the target speed", func() {
			r.run(20, inBounds)
			// Desired 25 of 50 is half of the fan's top speed.
			Expect(r.board.Speed()).To(BeNumerically("~", 21, 10))
		})

		It("restarts the controller on re-entry", func() {
			r.run(2, nil)
			r.board.Press(hw.KeyOpenLoop)
			r.run(0.01, nil)
			r.board.Press(hw.KeyClosedLoop)
			f := r.run(0.001, nil)
			Expect(f.Mode).To(Equal(fan.ModeClosedLoop))
			Expect(f.DutyCycle).To(BeZero())
			Expect(r.ctrl.PID().State().Integral).To(BeNumerically("<=", 0))
		})
	})

	Context("across a counter wraparound", func() {
		BeforeEach(func() {
			r = newRig(func(c *simboard.Config) {
				c.StartCounter = 0xFFFFFFFF - 50_000_000
			})
		})

		It("keeps publishing speed", func() {
			r.board.Press(hw.KeyOpenLoop)
			r.run(0.01, nil)
			r.board.Turn(80)
			f := r.run(4, inBounds)
			Expect(r.board.Counter()).To(BeNumerically("<", uint32(0xFFFFFFFF-50_000_000)))
			Expect(f.RPS).To(BeNumerically(">", 20))
		})
	})
})
