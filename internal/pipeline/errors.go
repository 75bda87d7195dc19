package pipeline

import "fmt"

// Stage names the step of a run that failed.
type Stage string

const (
	StageRead      Stage = "read"
	StageAnalyze   Stage = "analyze"
	StageRender    Stage = "render"
	StageSerialize Stage = "serialize"
	StagePlot      Stage = "plot"
)

// ProcessingError reports a failure after the text was read.
type ProcessingError struct {
	Path  string
	Stage Stage
	Err   error
}

func (err *ProcessingError) Error() string {
	return fmt.Sprintf("%s %s: %v", err.Stage, err.Path, err.Err)
}

func (err *ProcessingError) Unwrap() error {
	return err.Err
}
