package stage

import (
	"github.com/lucasnoah/remediate/internal/pipeline"
	"github.com/lucasnoah/remediate/internal/session"
)

// Transition names written to the history journal.
const (
	TransitionStarted   = "started"
	TransitionSucceeded = "succeeded"
	TransitionFailed    = "failed"
	TransitionRejected  = "rejected"
	TransitionDiscarded = "discarded"
)

// Event describes one controller transition.
type Event struct {
	Stage      pipeline.Stage
	Session    session.Handle
	Transition string
	Kind       pipeline.ErrorKind
	Message    string
}

// Recorder journals stage transitions. Recording failures are logged and
// never affect the controller.
type Recorder interface {
	RecordStageEvent(ev Event) error
}
