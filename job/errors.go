package job

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/kbukum/video-transcriber-mcp/errors"
)

// StageError is the terminal error of a failed job.
type StageError struct {
	JobID string
	Stage State
	Cause Cause
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("transcription failed at %s (%s): %s", e.Stage, e.Cause, e.detail())
}

func (e *StageError) Unwrap() error { return e.Err }

func (e *StageError) detail() string {
	if e.Err == nil {
		return string(e.Cause)
	}
	if appErr, ok := errors.AsAppError(e.Err); ok {
		return appErr.Message
	}
	return e.Err.Error()
}

// RPCCode is the JSON-RPC error code the failure is reported with.
func (e *StageError) RPCCode() int {
	if e.Cause == CauseCancelled {
		return errors.RPCRequestCanceled
	}
	return errors.RPCToolError
}

// RPCData is the structured error data sent to the client.
func (e *StageError) RPCData() map[string]any {
	return map[string]any{
		"stage":  string(e.Stage),
		"cause":  string(e.Cause),
		"job_id": e.JobID,
	}
}

var stageDefaults = map[State]Cause{
	StateQueued:       CauseAcquisitionError,
	StateAcquiring:    CauseAcquisitionError,
	StateExtracting:   CauseCodecError,
	StateTranscribing: CauseInferenceError,
	StateWriting:      CausePersistenceError,
}

var codeCauses = map[errors.ErrorCode]Cause{
	errors.ErrCodeNotFound:    CauseNotFound,
	errors.ErrCodeAcquisition: CauseAcquisitionError,
	errors.ErrCodeCodec:       CauseCodecError,
	errors.ErrCodeInference:   CauseInferenceError,
	errors.ErrCodePersistence: CausePersistenceError,
	errors.ErrCodeCancelled:   CauseCancelled,
}

// classify maps a stage failure to its cause. Cancellation wins; then the
// collaborator's error code; then the stage's own failure kind.
func classify(ctx context.Context, stage State, err error) Cause {
	if ctx.Err() != nil || stderrors.Is(err, context.Canceled) {
		return CauseCancelled
	}
	if appErr, ok := errors.AsAppError(err); ok {
		if c, ok := codeCauses[appErr.Code]; ok {
			return c
		}
	}
	return stageDefaults[stage]
}
