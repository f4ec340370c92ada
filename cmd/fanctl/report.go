package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/fanctl/internal/analysis"
	"github.com/san-kum/fanctl/internal/config"
	"github.com/san-kum/fanctl/internal/fan"
	"github.com/san-kum/fanctl/internal/panel"
	"github.com/san-kum/fanctl/internal/storage"
)

func fanPhase(cfg *config.Config) fan.PhaseGenerator {
	return fan.PhaseGenerator{ClockHz: cfg.Board.ClockHz}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	return writeRuns(cmd.OutOrStdout(), runs)
}

func writeRuns(w io.Writer, runs []storage.RunMetadata) error {
	var rows [][]string
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.Backend,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.2fs", run.Elapsed),
			strconv.FormatUint(run.Iterations, 10),
			fmt.Sprintf("%.2f", run.Metrics["speed_error"]),
			panel.Readout(run.Final).String(),
		})
	}
	return renderTable(w, []string{"id", "backend", "scenario", "time", "elapsed", "iterations", "speed error", "final"}, rows)
}

// huntingSettle skips the step response when looking for oscillation.
const huntingSettle = 1.0

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	trace, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}
	if len(trace) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("backend: %s\n", meta.Backend)
	if meta.Scenario != "" {
		fmt.Printf("scenario: %s\n", meta.Scenario)
	}
	fmt.Printf("samples: %d over %.2fs\n\n", len(trace), meta.Elapsed)

	var desired, measured, onTime, rpm []float64
	for _, s := range trace {
		desired = append(desired, float64(s.DesiredSpeed))
		measured = append(measured, float64(s.MeasuredSpeed))
		onTime = append(onTime, float64(s.OnTime))
		rpm = append(rpm, float64(panel.RPM(s.RPS)))
	}

	fmt.Println(asciigraph.PlotMany([][]float64{desired, measured},
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red),
		asciigraph.Caption("desired (blue) / measured (red) speed"),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(onTime,
		asciigraph.Height(6),
		asciigraph.Width(80),
		asciigraph.Caption("on-time %"),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(rpm,
		asciigraph.Height(6),
		asciigraph.Width(80),
		asciigraph.Caption("fan rpm"),
	))

	if osc, err := analysis.Hunting(trace, huntingSettle); err == nil {
		fmt.Printf("\nclosed-loop error: strongest oscillation %.2f Hz, amplitude %.2f (%d samples)\n",
			osc.Frequency, osc.Amplitude, osc.Samples)
	}

	if len(meta.Transitions) > 0 {
		fmt.Println("\nmode changes:")
		for _, tr := range meta.Transitions {
			fmt.Printf("  %8.3fs  %s\n", tr.Time, tr.Mode)
		}
	}
	return nil
}

// output opens --out, or stdout when it is empty.
func output() (io.WriteCloser, error) {
	if outFile == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(outFile)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func exportCSV(cmd *cobra.Command, args []string) error {
	w, err := output()
	if err != nil {
		return err
	}
	if err := storage.New(dataDir).ExportCSV(w, args[0]); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	if outFile != "" {
		fmt.Printf("exported to %s\n", outFile)
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	w, err := output()
	if err != nil {
		return err
	}
	if err := storage.New(dataDir).ExportJSON(w, args[0]); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	if outFile != "" {
		fmt.Printf("exported to %s\n", outFile)
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	return writePresets(cmd.OutOrStdout())
}

func writePresets(w io.Writer) error {
	var rows [][]string
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		rows = append(rows, []string{
			name,
			strconv.Itoa(len(cfg.Scenario.Events)),
			fmt.Sprintf("%.1fs", cfg.Run.Duration),
			cfg.Scenario.Description,
		})
	}
	return renderTable(w, []string{"preset", "events", "duration", "description"}, rows)
}

func showPeriods(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	freqs := panel.Frequencies
	if len(args) > 0 {
		freqs = nil
		for _, a := range args {
			hz, err := strconv.Atoi(a)
			if err != nil || hz <= 0 || uint32(hz) > cfg.Board.ClockHz {
				return fmt.Errorf("invalid frequency %q", a)
			}
			freqs = append(freqs, hz)
		}
	}

	return writePeriods(cmd.OutOrStdout(), fanPhase(cfg), freqs)
}

func writePeriods(w io.Writer, gen fan.PhaseGenerator, freqs []int) error {
	var rows [][]string
	for _, hz := range freqs {
		period := gen.Period(hz)
		rows = append(rows, []string{
			strconv.Itoa(hz),
			strconv.FormatUint(uint64(period), 10),
			strconv.FormatFloat(float64(period)/100, 'f', 1, 64),
			strconv.FormatBool(gen.WrapSafe(hz)),
		})
	}
	return renderTable(w, []string{"pwm hz", "period ticks", "tick per %", "wrap safe"}, rows)
}
