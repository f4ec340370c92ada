package experiment

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/fanctl/internal/automation"
	"github.com/san-kum/fanctl/internal/config"
	"github.com/san-kum/fanctl/internal/panel"
)

// SweepPoint is the run at one PWM frequency.
type SweepPoint struct {
	PWMFrequency int
	Result       *Result
}

// RunSweep repeats the base run once per PWM frequency on independent
// simulated boards, at most parallel at a time (0 for no limit). The sweep
// owns the frequency switches, so scenario events that set them are
// rewritten to the swept frequency.
func RunSweep(ctx context.Context, reg *Registry, base *config.Config, freqs []int, parallel int) ([]SweepPoint, error) {
	if base.Backend != "sim" {
		return nil, fmt.Errorf("sweep needs the sim backend, have %s", base.Backend)
	}
	groups := make([]uint16, len(freqs))
	for i, f := range freqs {
		g, ok := panel.FreqSwitches(f)
		if !ok {
			return nil, fmt.Errorf("frequency %d Hz not selectable (have %v)", f, panel.Frequencies)
		}
		groups[i] = g
	}

	points := make([]SweepPoint, len(freqs))
	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, f := range freqs {
		i, f := i, f
		cfg := withFrequency(base, groups[i])
		g.Go(func() error {
			board, err := reg.Open(cfg)
			if err != nil {
				return err
			}
			exp, err := New(cfg, board)
			if err != nil {
				return err
			}
			res, err := exp.Run(ctx)
			if err != nil {
				return fmt.Errorf("%d Hz: %w", f, err)
			}
			points[i] = SweepPoint{PWMFrequency: f, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

func withFrequency(base *config.Config, group uint16) *config.Config {
	cfg := *base
	cfg.Run.Switches = cfg.Run.Switches&^0x1F | group

	events := make([]automation.Event, len(base.Scenario.Events))
	for i, ev := range base.Scenario.Events {
		if ev.Freq != 0 {
			ev.Freq = 0
		}
		if ev.Switches != nil {
			sw := *ev.Switches&^0x1F | group
			ev.Switches = &sw
		}
		events[i] = ev
	}
	cfg.Scenario.Events = events
	return &cfg
}
