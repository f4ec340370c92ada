package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/fanctl/internal/automation"
	"github.com/san-kum/fanctl/internal/config"
	"github.com/san-kum/fanctl/internal/panel"
)

var (
	dataDir    string
	configFile string
	verbose    bool

	preset       string
	scenarioFile string
	backend      string
	duration     float64
	recordEvery  int
	switches     uint16
	freq         int
	resp         int
	kp, ki, kd   float64
	metricsAddr  string
	noSave       bool
	showPanel    bool
	speed        float64
	sweepFreqs   []int
	parallel     int
	outFile      string
)

// ConfigureVerbosity configures log verbosity based on parsed flags.
func ConfigureVerbosity() {
	log.SetLevel(log.InfoLevel)
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "fanctl",
		Short: "closed-loop fan speed controller",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ConfigureVerbosity()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".fanctl", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the controller until the duration is up",
		RunE:  runController,
	}
	addRunFlags(runCmd)
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :9110")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().BoolVar(&showPanel, "panel", false, "print the front panel as it changes")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run with the interactive front panel",
		RunE:  runLive,
	}
	addRunFlags(liveCmd)
	liveCmd.Flags().Float64Var(&speed, "speed", 1.0, "simulated seconds per real second (sim backend)")
	liveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "repeat a simulated run at several PWM frequencies",
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().IntSliceVar(&sweepFreqs, "freqs", panel.Frequencies, "PWM frequencies to sweep")
	sweepCmd.Flags().IntVar(&parallel, "parallel", 0, "concurrent runs (0 = all)")
	sweepCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run trace to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available scenario presets",
		RunE:  listPresets,
	}

	periodCmd := &cobra.Command{
		Use:   "period [hz...]",
		Short: "show PWM periods in counter ticks",
		RunE:  showPeriods,
	}

	rootCmd.AddCommand(runCmd, liveCmd, sweepCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, presetsCmd, periodCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "use a scenario preset")
	cmd.Flags().StringVar(&scenarioFile, "scenario", "", "scenario file path (yaml)")
	cmd.Flags().StringVar(&backend, "backend", config.DefaultBackend, "board backend: sim, serial or periph")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration in seconds (0 = until interrupted)")
	cmd.Flags().IntVar(&recordEvery, "record-every", config.DefaultRecordEvery, "record one trace sample every n iterations")
	cmd.Flags().Uint16Var(&switches, "switches", 0, "initial switch word SW9..SW0")
	cmd.Flags().IntVar(&freq, "freq", 0, "initial PWM frequency (sets SW4..SW0)")
	cmd.Flags().IntVar(&resp, "resp", 0, "initial responsiveness (sets SW8..SW5)")
	cmd.Flags().Float64Var(&kp, "kp", 0, "override the proportional gain")
	cmd.Flags().Float64Var(&ki, "ki", 0, "override the integral gain")
	cmd.Flags().Float64Var(&kd, "kd", 0, "override the derivative gain")
}

// resolveConfig layers defaults, the config file, a preset or scenario file
// and then any flag the user set explicitly.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg.Scenario = p.Scenario
		if !cmd.Flags().Changed("time") && p.Run.Duration > cfg.Run.Duration {
			cfg.Run.Duration = p.Run.Duration
		}
	}
	if scenarioFile != "" {
		s, err := automation.LoadScenario(scenarioFile)
		if err != nil {
			return nil, err
		}
		cfg.Scenario = *s
	}

	flags := cmd.Flags()
	if flags.Changed("backend") || configFile == "" {
		cfg.Backend = backend
	}
	if flags.Changed("time") {
		cfg.Run.Duration = duration
	}
	if flags.Changed("record-every") {
		cfg.Run.RecordEvery = recordEvery
	}
	if flags.Changed("switches") {
		cfg.Run.Switches = switches
	}
	if flags.Changed("freq") {
		group, ok := panel.FreqSwitches(freq)
		if !ok {
			return nil, fmt.Errorf("frequency %d Hz not selectable (have %v)", freq, panel.Frequencies)
		}
		cfg.Run.Switches = cfg.Run.Switches&^0x1F | group
	}
	if flags.Changed("resp") {
		group, ok := panel.RespSwitches(resp)
		if !ok {
			return nil, fmt.Errorf("responsiveness %d not selectable (have %v)", resp, panel.Responsivenesses)
		}
		cfg.Run.Switches = cfg.Run.Switches&^0x1E0 | group
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// gainOverrides returns the PID gains set on the command line.
func gainOverrides(cmd *cobra.Command) map[string]float64 {
	gains := map[string]float64{}
	for flag, name := range map[string]string{"kp": "Kp", "ki": "Ki", "kd": "Kd"} {
		if cmd.Flags().Changed(flag) {
			v, _ := cmd.Flags().GetFloat64(flag)
			gains[name] = v
		}
	}
	return gains
}
