package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/fanctl/internal/config"
	"github.com/san-kum/fanctl/internal/experiment"
	"github.com/san-kum/fanctl/internal/hw"
	"github.com/san-kum/fanctl/internal/metrics"
	"github.com/san-kum/fanctl/internal/panel"
	"github.com/san-kum/fanctl/internal/storage"
	"github.com/san-kum/fanctl/internal/viz"
)

// setup opens the backend and builds the experiment. The caller closes the
// backend.
func setup(cmd *cobra.Command, cfg *config.Config) (*experiment.Experiment, error) {
	board, err := experiment.NewRegistry().Open(cfg)
	if err != nil {
		return nil, err
	}
	exp, err := experiment.New(cfg, board)
	if err != nil {
		experiment.Close(board)
		return nil, err
	}
	for name, v := range gainOverrides(cmd) {
		log.WithFields(log.Fields{"gain": name, "value": v}).Info("overriding PID gain")
		exp.Controller().PID().SetParam(name, v)
	}
	return exp, nil
}

// runWithExporter runs exp alongside the metrics server when addr is set.
// A finished run stops the server.
func runWithExporter(ctx context.Context, exp *experiment.Experiment, addr string) (*experiment.Result, error) {
	if addr == "" {
		return exp.Run(ctx)
	}

	exporter := metrics.NewExporter()
	exp.AddObserver(exporter)

	g, ctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(ctx)
	var res *experiment.Result
	g.Go(func() error {
		defer stop()
		var err error
		res, err = exp.Run(runCtx)
		return err
	})
	g.Go(func() error {
		return exporter.Serve(runCtx, addr)
	})
	err := g.Wait()
	return res, err
}

func interrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}

func runController(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := setup(cmd, cfg)
	if err != nil {
		return err
	}
	defer experiment.Close(exp.Board())

	if showPanel {
		exp.SetDisplay(panel.NewConsole(os.Stdout))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	fmt.Printf("running %s backend", cfg.Backend)
	if cfg.Scenario.Name != "" {
		fmt.Printf(", scenario %s", cfg.Scenario.Name)
	}
	fmt.Println("...")
	start := time.Now()

	result, err := runWithExporter(ctx, exp, metricsAddr)
	if err != nil && !interrupted(err) {
		if result == nil {
			return err
		}
		log.Errorf("run stopped: %v", err)
	}
	if result == nil {
		return err
	}

	fmt.Printf("completed in %v\n", time.Since(start).Round(time.Millisecond))
	if !noSave {
		runID, serr := storage.New(dataDir).Save(cfg, result)
		if serr != nil {
			return serr
		}
		fmt.Printf("run id: %s\n", runID)
	}
	if perr := printSummary(cmd.OutOrStdout(), result); perr != nil {
		return perr
	}
	if err != nil && !interrupted(err) {
		return err
	}
	return nil
}

func printSummary(w io.Writer, res *experiment.Result) error {
	fmt.Fprintf(w, "iterations: %d (%.3fs)\n", res.Iterations, res.Elapsed)
	fmt.Fprintf(w, "final: %s  %s\n\n", panel.Readout(res.Final), panel.LEDString(panel.LEDBar(res.Final.DutyCycle)))

	var rows [][]string
	for _, m := range metrics.Defaults() {
		rows = append(rows, []string{m.Name(), strconv.FormatFloat(res.Metrics[m.Name()], 'f', 4, 64)})
	}
	return renderTable(w, []string{"metric", "value"}, rows)
}

func runLive(cmd *cobra.Command, args []string) error {
	if !cmd.Flags().Changed("time") {
		if err := cmd.Flags().Set("time", "0"); err != nil {
			return err
		}
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := setup(cmd, cfg)
	if err != nil {
		return err
	}
	defer experiment.Close(exp.Board())

	feed := viz.NewFeed()
	exp.SetDisplay(feed)
	exp.SetPace(speed)

	// keep logs off the terminal the UI owns
	log.SetOutput(os.Stderr)
	if !verbose {
		log.SetLevel(log.WarnLevel)
	}

	op, _ := exp.Board().(hw.Operator)
	model := viz.NewModel(feed, op, exp.Board().Switches(), fmt.Sprintf("fanctl · %s", cfg.Backend))
	prog := tea.NewProgram(model, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := runWithExporter(ctx, exp, metricsAddr)
		if interrupted(err) {
			err = nil
		}
		feed.Finish(err)
	}()

	_, err = prog.Run()
	cancel()
	<-done
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	fmt.Printf("sweeping %d frequencies over %.1fs runs...\n", len(sweepFreqs), cfg.Run.Duration)
	points, err := experiment.RunSweep(ctx, experiment.NewRegistry(), cfg, sweepFreqs, parallel)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	header := []string{"pwm hz", "wrap safe"}
	for _, m := range metrics.Defaults() {
		header = append(header, m.Name())
	}
	if !noSave {
		header = append(header, "run id")
	}

	var rows [][]string
	gen := fanPhase(cfg)
	for _, p := range points {
		row := []string{strconv.Itoa(p.PWMFrequency), strconv.FormatBool(gen.WrapSafe(p.PWMFrequency))}
		for _, m := range metrics.Defaults() {
			row = append(row, strconv.FormatFloat(p.Result.Metrics[m.Name()], 'f', 3, 64))
		}
		if !noSave {
			runCfg := *cfg
			group, _ := panel.FreqSwitches(p.PWMFrequency)
			runCfg.Run.Switches = cfg.Run.Switches&^0x1F | group
			runID, err := st.Save(&runCfg, p.Result)
			if err != nil {
				return err
			}
			row = append(row, runID)
		}
		rows = append(rows, row)
	}
	return renderTable(cmd.OutOrStdout(), header, rows)
}
