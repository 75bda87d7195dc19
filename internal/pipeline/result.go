package pipeline

import (
	"time"

	"kratio/internal/analysis"
)

// Result is one completed analysis run.
type Result struct {
	RunID       string         `json:"run_id"`
	Path        string         `json:"path"`
	Kind        analysis.Kind  `json:"kind"`
	Table       analysis.Table `json:"table"`
	Duration    time.Duration  `json:"duration"`
	CompletedAt time.Time      `json:"completed_at"`
	OutputPath  string         `json:"output_path,omitempty"`
	PlotPath    string         `json:"plot_path,omitempty"`
}

// Failure records a file that could not be analyzed during a batch run.
type Failure struct {
	Path string
	Err  error
}

// BatchReport lists the outcome of a directory run in scan order.
type BatchReport struct {
	Root     string
	Results  []Result
	Failures []Failure
}

// Err returns the first failure, or nil when every file succeeded.
func (report BatchReport) Err() error {
	if len(report.Failures) == 0 {
		return nil
	}
	return report.Failures[0].Err
}
