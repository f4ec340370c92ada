package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/fanctl/internal/experiment"
)

type ExportData struct {
	RunMetadata
	Samples int                 `json:"samples"`
	Trace   []experiment.Sample `json:"trace"`
}

// ExportJSON writes a run with its full trace as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	trace, err := s.LoadTrace(runID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{
		RunMetadata: *meta,
		Samples:     len(trace),
		Trace:       trace,
	})
}

// ExportCSV copies the stored trace of a run to w.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	trace, err := s.LoadTrace(runID)
	if err != nil {
		return err
	}
	return WriteTrace(w, trace)
}
