package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/fanctl/internal/config"
	"github.com/san-kum/fanctl/internal/experiment"
	"github.com/san-kum/fanctl/internal/fan"
)

const (
	metadataFile = "metadata.json"
	traceFile    = "trace.csv"
)

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string                  `json:"id"`
	Backend     string                  `json:"backend"`
	Scenario    string                  `json:"scenario,omitempty"`
	Timestamp   time.Time               `json:"timestamp"`
	Iterations  uint64                  `json:"iterations"`
	Elapsed     float64                 `json:"elapsed"`
	Config      *config.Config          `json:"config"`
	Metrics     map[string]float64      `json:"metrics"`
	Transitions []experiment.Transition `json:"transitions"`
	Final       fan.Frame               `json:"final"`
}

// Save writes a run directory and returns its ID.
func (s *Store) Save(cfg *config.Config, result *experiment.Result) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}

	ts := s.now()
	name := result.Scenario
	if name == "" {
		name = "manual"
	}
	base := fmt.Sprintf("%s_%s_%s", result.Backend, name, ts.Format("20060102-150405"))

	runID, runDir := base, filepath.Join(s.baseDir, base)
	for i := 2; ; i++ {
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return "", err
		}
		runID = fmt.Sprintf("%s-%d", base, i)
		runDir = filepath.Join(s.baseDir, runID)
	}

	meta := RunMetadata{
		ID:          runID,
		Backend:     result.Backend,
		Scenario:    result.Scenario,
		Timestamp:   ts,
		Iterations:  result.Iterations,
		Elapsed:     result.Elapsed,
		Config:      cfg,
		Metrics:     result.Metrics,
		Transitions: result.Transitions,
		Final:       result.Final,
	}

	if err := writeRun(runDir, meta, result.Trace); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	return runID, nil
}

func writeRun(runDir string, meta RunMetadata, trace []experiment.Sample) error {
	err := writeFile(filepath.Join(runDir, metadataFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	})
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(runDir, traceFile), func(w io.Writer) error {
		return WriteTrace(w, trace)
	})
}

// writeFile creates path, fills it with write and reports close errors.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

var traceHeader = []string{
	"iteration", "time", "mode", "duty_cycle", "on_time", "desired_speed",
	"measured_speed", "rps", "pwm_frequency", "responsiveness", "fan_on",
}

// WriteTrace writes samples as CSV with a header row.
func WriteTrace(w io.Writer, trace []experiment.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(traceHeader); err != nil {
		return err
	}
	for _, s := range trace {
		row := []string{
			strconv.FormatUint(s.Iteration, 10),
			strconv.FormatFloat(s.Time, 'f', 6, 64),
			s.Mode.String(),
			strconv.Itoa(s.DutyCycle),
			strconv.Itoa(s.OnTime),
			strconv.Itoa(s.DesiredSpeed),
			strconv.Itoa(s.MeasuredSpeed),
			strconv.Itoa(s.RPS),
			strconv.Itoa(s.PWMFrequency),
			strconv.Itoa(s.Responsiveness),
			strconv.FormatBool(s.FanOn),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// TracePath is where the trace of a run lives.
func (s *Store) TracePath(runID string) string {
	return filepath.Join(s.baseDir, runID, traceFile)
}

func (s *Store) LoadTrace(runID string) ([]experiment.Sample, error) {
	file, err := os.Open(s.TracePath(runID))
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadTrace(file)
}

// ReadTrace parses CSV written by WriteTrace.
func ReadTrace(r io.Reader) ([]experiment.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(traceHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []experiment.Sample{}, nil
	}

	trace := make([]experiment.Sample, 0, len(records)-1)
	for i, rec := range records[1:] {
		s, err := parseSample(rec)
		if err != nil {
			return nil, fmt.Errorf("trace row %d: %w", i+2, err)
		}
		trace = append(trace, s)
	}
	return trace, nil
}

func parseSample(rec []string) (experiment.Sample, error) {
	var (
		s    experiment.Sample
		err  error
		ints [7]int
	)
	if s.Iteration, err = strconv.ParseUint(rec[0], 10, 64); err != nil {
		return s, err
	}
	if s.Time, err = strconv.ParseFloat(rec[1], 64); err != nil {
		return s, err
	}
	if s.Mode, err = fan.ParseMode(rec[2]); err != nil {
		return s, err
	}
	for i := range ints {
		if ints[i], err = strconv.Atoi(rec[3+i]); err != nil {
			return s, err
		}
	}
	if s.FanOn, err = strconv.ParseBool(rec[10]); err != nil {
		return s, err
	}
	s.DutyCycle, s.OnTime, s.DesiredSpeed, s.MeasuredSpeed = ints[0], ints[1], ints[2], ints[3]
	s.RPS, s.PWMFrequency, s.Responsiveness = ints[4], ints[5], ints[6]
	return s, nil
}
