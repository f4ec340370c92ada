package fan

import (
	"github.com/san-kum/fanctl/internal/control"
	"github.com/san-kum/fanctl/internal/hw"
)

const (
	// DefaultClockHz is the counter frequency of the reference board.
	DefaultClockHz = 50_000_000
	// DefaultMaxRPS is the full speed of the reference fan.
	DefaultMaxRPS = 42
	// MaxSpeed is the top of the desired/measured speed scale.
	MaxSpeed = 50
)

// Config describes the board the controller runs on.
type Config struct {
	ClockHz uint32
	MaxRPS  int
	Pins    hw.PinMap
}

func DefaultConfig() Config {
	return Config{
		ClockHz: DefaultClockHz,
		MaxRPS:  DefaultMaxRPS,
		Pins:    hw.DefaultPins(),
	}
}

// Vars are the loop variables shared between the components.
type Vars struct {
	DutyCycle    int
	OnTime       int
	DesiredSpeed int
	RPS          int
	FanOn        bool
}

// Inputs are the operator settings sampled for one iteration.
type Inputs struct {
	Key            hw.Key
	PWMFrequency   int
	Responsiveness int
	ShowAlt        bool
}

// Frame is everything one iteration produced, handed to the display and to
// observers.
type Frame struct {
	Iteration      uint64
	Counter        uint32
	Mode           Mode
	Transition     bool
	ShowAlt        bool
	DutyCycle      int
	OnTime         int
	DesiredSpeed   int
	MeasuredSpeed  int
	RPS            int
	PWMFrequency   int
	Responsiveness int
	Phase          int
	FanOn          bool
	// WindowClosed is set when the tachometer published a new RPS.
	WindowClosed bool
}

// MeasuredSpeed scales RPS onto the 0..MaxSpeed scale of the desired speed.
func MeasuredSpeed(rps, maxRPS int) int {
	s := rps * MaxSpeed / maxRPS
	if s > MaxSpeed {
		return MaxSpeed
	}
	if s < 0 {
		return 0
	}
	return s
}

// Controller runs one pass of the control pipeline per Step. It is not safe
// for concurrent use.
type Controller struct {
	cfg   Config
	board hw.Board

	phase  PhaseGenerator
	pwm    *Driver
	tach   *Tachometer
	manual *control.Manual
	ramp   *control.Ramp
	pid    *control.PID
	modes  ModeMachine
	reset  control.Latch

	vars      Vars
	iteration uint64
}

func NewController(board hw.Board, cfg Config) *Controller {
	return &Controller{
		cfg:    cfg,
		board:  board,
		phase:  PhaseGenerator{ClockHz: cfg.ClockHz},
		pwm:    NewDriver(board, cfg.Pins.Fan),
		tach:   NewTachometer(board, cfg.Pins.Tach, cfg.ClockHz),
		manual: control.NewManual(board, cfg.Pins.EncoderA, cfg.Pins.EncoderB),
		ramp:   control.NewRamp(),
		pid:    control.NewPID(),
	}
}

// Step runs the mode selection and the pipeline of the active mode.
func (c *Controller) Step(in Inputs) Frame {
	mode, entered := c.modes.Select(in.Key, &c.vars, &c.reset)
	window := c.tach.State().Window

	phase := 0
	switch mode {
	case ModeOff:
		c.pwm.Stop()
		c.vars.FanOn = false

	case ModeRamp:
		phase = c.phase.Phase(c.board.Counter(), in.PWMFrequency)
		c.vars.DutyCycle = c.ramp.Step(c.vars.DutyCycle, in.Responsiveness)
		c.vars.OnTime = c.vars.DutyCycle
		c.drive(phase)

	case ModeClosedLoop:
		phase = c.phase.Phase(c.board.Counter(), in.PWMFrequency)
		c.vars.DutyCycle = c.manual.Step(c.vars.DutyCycle, in.Responsiveness)
		c.vars.DesiredSpeed = c.vars.DutyCycle / 2
		measured := MeasuredSpeed(c.vars.RPS, c.cfg.MaxRPS)
		c.vars.OnTime = c.pid.Compute(c.vars.DesiredSpeed, measured, c.vars.OnTime, &c.reset)
		c.drive(phase)

	case ModeOpenLoop:
		phase = c.phase.Phase(c.board.Counter(), in.PWMFrequency)
		c.vars.DutyCycle = c.manual.Step(c.vars.DutyCycle, in.Responsiveness)
		c.vars.DesiredSpeed = c.vars.DutyCycle / 2
		c.vars.OnTime = c.vars.DutyCycle
		c.drive(phase)
	}

	c.iteration++
	return Frame{
		Iteration:      c.iteration,
		Counter:        c.board.Counter(),
		Mode:           mode,
		Transition:     entered,
		ShowAlt:        in.ShowAlt,
		DutyCycle:      c.vars.DutyCycle,
		OnTime:         c.vars.OnTime,
		DesiredSpeed:   c.vars.DesiredSpeed,
		MeasuredSpeed:  MeasuredSpeed(c.vars.RPS, c.cfg.MaxRPS),
		RPS:            c.vars.RPS,
		PWMFrequency:   in.PWMFrequency,
		Responsiveness: in.Responsiveness,
		Phase:          phase,
		FanOn:          c.vars.FanOn,
		WindowClosed:   c.tach.State().Window != window,
	}
}

// drive applies the on-time and samples the tachometer while the fan is
// powered or meant to be stopped.
func (c *Controller) drive(phase int) {
	c.vars.FanOn = c.pwm.Drive(phase, c.vars.OnTime)
	if c.vars.FanOn || c.vars.OnTime == 0 {
		c.vars.RPS = c.tach.Sample(c.vars.RPS)
	}
}

// Mode returns the active mode.
func (c *Controller) Mode() Mode {
	return c.modes.Mode()
}

// Vars returns a copy of the loop variables.
func (c *Controller) Vars() Vars {
	return c.vars
}

// PID exposes the closed-loop controller for live tuning.
func (c *Controller) PID() *control.PID {
	return c.pid
}

// Tachometer exposes the speed sensor state.
func (c *Controller) Tachometer() *Tachometer {
	return c.tach
}
