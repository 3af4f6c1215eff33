package job

// State is a step in a job's lifecycle.
type State string

const (
	StateQueued       State = "queued"
	StateAcquiring    State = "acquiring"
	StateExtracting   State = "extracting"
	StateTranscribing State = "transcribing"
	StateWriting      State = "writing"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Terminal reports whether no transition can follow s.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// Progress is the percentage reported when a job enters s.
func (s State) Progress() int {
	switch s {
	case StateAcquiring:
		return 10
	case StateExtracting:
		return 30
	case StateTranscribing:
		return 50
	case StateWriting:
		return 90
	case StateDone:
		return 100
	default:
		return 0
	}
}

// order ranks the non-terminal states; a job only moves forward.
func (s State) order() int {
	switch s {
	case StateQueued:
		return 0
	case StateAcquiring:
		return 1
	case StateExtracting:
		return 2
	case StateTranscribing:
		return 3
	case StateWriting:
		return 4
	default:
		return 5
	}
}

func (s State) message() string {
	switch s {
	case StateQueued:
		return "Queued"
	case StateAcquiring:
		return "Downloading video"
	case StateExtracting:
		return "Extracting audio"
	case StateTranscribing:
		return "Transcribing audio"
	case StateWriting:
		return "Saving transcript"
	case StateDone:
		return "Transcription complete"
	default:
		return "Transcription failed"
	}
}

// Cause classifies a failed job.
type Cause string

const (
	CauseNotFound         Cause = "NotFound"
	CauseAcquisitionError Cause = "AcquisitionError"
	CauseCodecError       Cause = "CodecError"
	CauseInferenceError   Cause = "InferenceError"
	CausePersistenceError Cause = "PersistenceError"
	CauseCancelled        Cause = "Cancelled"
)
