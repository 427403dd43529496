package pipeline

import (
	"errors"
	"fmt"
)

// Stage names used in errors, logs and metrics
const (
	StageTranscribe = "transcribe"
	StageSummarize  = "summarize"
	StageQuiz       = "quiz"
)

// ErrValidation marks errors caused by the client's request
var ErrValidation = errors.New("invalid request")

// StageError is a model invocation failure in one pipeline stage
type StageError struct {
	Stage   string
	Backend string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Stage, e.Backend, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// AsStageError returns the stage error wrapped in err, if any
func AsStageError(err error) (*StageError, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr, true
	}
	return nil, false
}
