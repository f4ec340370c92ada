package experiment

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/san-kum/fanctl/internal/automation"
	"github.com/san-kum/fanctl/internal/config"
	"github.com/san-kum/fanctl/internal/fan"
	"github.com/san-kum/fanctl/internal/hw"
	"github.com/san-kum/fanctl/internal/metrics"
	"github.com/san-kum/fanctl/internal/panel"
)

// paceEvery is how many iterations run between pacing checks.
const paceEvery = 1000

// Observer sees every frame after the display.
type Observer interface {
	Observe(f fan.Frame)
}

type ObserverFunc func(f fan.Frame)

func (fn ObserverFunc) Observe(f fan.Frame) { fn(f) }

// Sample is one recorded row of the trace.
type Sample struct {
	Iteration      uint64   `json:"iteration"`
	Time           float64  `json:"time"`
	Mode           fan.Mode `json:"mode"`
	DutyCycle      int      `json:"duty_cycle"`
	OnTime         int      `json:"on_time"`
	DesiredSpeed   int      `json:"desired_speed"`
	MeasuredSpeed  int      `json:"measured_speed"`
	RPS            int      `json:"rps"`
	PWMFrequency   int      `json:"pwm_frequency"`
	Responsiveness int      `json:"responsiveness"`
	FanOn          bool     `json:"fan_on"`
}

type Transition struct {
	Iteration uint64   `json:"iteration"`
	Time      float64  `json:"time"`
	Mode      fan.Mode `json:"mode"`
}

type Result struct {
	Backend     string             `json:"backend"`
	Scenario    string             `json:"scenario,omitempty"`
	Iterations  uint64             `json:"iterations"`
	Elapsed     float64            `json:"elapsed"`
	Trace       []Sample           `json:"trace"`
	Transitions []Transition       `json:"transitions"`
	Metrics     map[string]float64 `json:"metrics"`
	Final       fan.Frame          `json:"final"`
}

// advancer is a board whose time only moves when told to.
type advancer interface {
	Advance()
}

// clocked is a board that keeps its own notion of elapsed time.
type clocked interface {
	Elapsed() float64
}

type Experiment struct {
	cfg       *config.Config
	board     Backend
	ctrl      *fan.Controller
	display   panel.Display
	metrics   []metrics.Metric
	observers []Observer
	pace      float64
	log       *log.Entry
}

// New wires a controller to board. Metrics default to metrics.Defaults.
func New(cfg *config.Config, board Backend) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctrl := fan.NewController(board, fan.Config{
		ClockHz: cfg.Board.ClockHz,
		MaxRPS:  cfg.Board.MaxRPS,
		Pins:    cfg.Board.Pins,
	})
	return &Experiment{
		cfg:     cfg,
		board:   board,
		ctrl:    ctrl,
		display: panel.Nop{},
		metrics: metrics.Defaults(),
		log:     log.WithField("backend", cfg.Backend),
	}, nil
}

func (e *Experiment) SetDisplay(d panel.Display) {
	e.display = d
}

func (e *Experiment) AddObserver(o Observer) {
	e.observers = append(e.observers, o)
}

func (e *Experiment) SetMetrics(ms []metrics.Metric) {
	e.metrics = ms
}

// SetPace runs a simulated board at factor times real time; 0 runs as fast
// as possible.
func (e *Experiment) SetPace(factor float64) {
	e.pace = factor
}

// Controller exposes the controller, e.g. for PID tuning between runs.
func (e *Experiment) Controller() *fan.Controller {
	return e.ctrl
}

func (e *Experiment) Board() Backend {
	return e.board
}

// Run drives the loop until the configured duration, a board fault or ctx
// is done. The partial result is returned alongside any error.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	var (
		script *automation.Script
		op     hw.Operator
	)
	if len(e.cfg.Scenario.Events) > 0 {
		var ok bool
		if op, ok = e.board.(hw.Operator); !ok {
			return nil, fmt.Errorf("backend %s cannot replay scenario %q", e.cfg.Backend, e.cfg.Scenario.Name)
		}
		var err error
		if script, err = automation.NewScript(e.cfg.Scenario, e.board.Switches()); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	adv, stepped := e.board.(advancer)
	clk, simulated := e.board.(clocked)
	elapsed := func() float64 {
		if simulated {
			return clk.Elapsed()
		}
		return time.Since(start).Seconds()
	}

	var maxIter uint64
	if stepped {
		maxIter = e.cfg.Iterations()
	}

	for _, m := range e.metrics {
		m.Reset()
	}
	res := &Result{
		Backend:  e.cfg.Backend,
		Scenario: e.cfg.Scenario.Name,
		Metrics:  make(map[string]float64),
	}
	e.log.WithFields(log.Fields{"duration": e.cfg.Run.Duration, "scenario": e.cfg.Scenario.Name}).Info("starting run")

	var (
		sel   panel.Selectors
		frame fan.Frame
		err   error
	)
	for {
		select {
		case <-ctx.Done():
			err = ctx.Err()
		default:
		}
		if err != nil {
			break
		}
		if stepped && maxIter > 0 && res.Iterations >= maxIter {
			break
		}
		if !stepped && e.cfg.Run.Duration > 0 && elapsed() >= e.cfg.Run.Duration {
			break
		}

		if rerr := e.board.Refresh(); rerr != nil {
			e.log.WithError(rerr).WithField("iteration", res.Iterations).Error("board fault")
			err = fmt.Errorf("iteration %d: %w", res.Iterations, rerr)
			break
		}

		now := elapsed()
		if script != nil {
			for _, ev := range script.Apply(now, op) {
				e.log.WithField("event", ev.String()).Debug("scenario event")
			}
		}

		set, notices := sel.Update(e.board.Switches())
		for _, n := range notices {
			e.log.WithField("display", n.Digits().String()).Info("selector changed")
			e.display.Notify(n)
		}

		frame = e.ctrl.Step(fan.Inputs{
			Key:            e.board.Keys(),
			PWMFrequency:   set.PWMFrequency,
			Responsiveness: set.Responsiveness,
			ShowAlt:        set.ShowAlt,
		})

		if frame.Transition {
			e.log.WithFields(log.Fields{"mode": frame.Mode, "iteration": frame.Iteration, "t": now}).Info("mode change")
			res.Transitions = append(res.Transitions, Transition{Iteration: frame.Iteration, Time: now, Mode: frame.Mode})
			e.display.Announce(frame.Mode)
		}
		if frame.WindowClosed {
			e.log.WithFields(log.Fields{"rps": frame.RPS, "measured": frame.MeasuredSpeed, "on_time": frame.OnTime}).Debug("tach window")
		}

		e.display.Show(frame)
		for _, m := range e.metrics {
			m.Observe(frame)
		}
		for _, o := range e.observers {
			o.Observe(frame)
		}

		if every := e.cfg.Run.RecordEvery; every > 0 && frame.Iteration%uint64(every) == 0 {
			res.Trace = append(res.Trace, sampleOf(frame, now))
		}
		res.Iterations = frame.Iteration

		if stepped {
			adv.Advance()
		}
		if e.pace > 0 && simulated && frame.Iteration%paceEvery == 0 {
			e.throttle(ctx, start, clk.Elapsed())
		}
	}

	res.Elapsed = elapsed()
	res.Final = frame
	for _, m := range e.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
	e.log.WithFields(log.Fields{"iterations": res.Iterations, "elapsed": res.Elapsed}).Info("run finished")
	return res, err
}

// throttle sleeps until wall time catches up with simulated time.
func (e *Experiment) throttle(ctx context.Context, start time.Time, simElapsed float64) {
	ahead := time.Duration(simElapsed/e.pace*float64(time.Second)) - time.Since(start)
	if ahead <= 0 {
		return
	}
	t := time.NewTimer(ahead)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func sampleOf(f fan.Frame, t float64) Sample {
	return Sample{
		Iteration:      f.Iteration,
		Time:           t,
		Mode:           f.Mode,
		DutyCycle:      f.DutyCycle,
		OnTime:         f.OnTime,
		DesiredSpeed:   f.DesiredSpeed,
		MeasuredSpeed:  f.MeasuredSpeed,
		RPS:            f.RPS,
		PWMFrequency:   f.PWMFrequency,
		Responsiveness: f.Responsiveness,
		FanOn:          f.FanOn,
	}
}
