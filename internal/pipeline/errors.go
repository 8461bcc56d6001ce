package pipeline

import "fmt"

// Stage identifies where a pipeline run failed.
type Stage string

const (
	StageWorkspace Stage = "workspace"
	StageTranscode Stage = "transcode"
	StageRecognize Stage = "recognize"
	StageMatch     Stage = "match"
	StagePersist   Stage = "persist"
)

// StageError is a fatal pipeline failure tagged with the stage it
// occurred in. Failures before the synchronous reply propagate to the
// caller as a generic failure; failures after it terminate in logging.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(s Stage, err error) *StageError {
	return &StageError{Stage: s, Err: err}
}
