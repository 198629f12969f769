package stage

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/lucasnoah/remediate/internal/notify"
	"github.com/lucasnoah/remediate/internal/pipeline"
	"github.com/lucasnoah/remediate/internal/session"
)

// SessionStore is the write side of the session holder.
type SessionStore interface {
	Set(handle session.Handle) error
	Clear()
}

// UploadCall sends the artifact and returns the handle the service assigned.
type UploadCall func(ctx context.Context) (session.Handle, *pipeline.ErrorInfo)

// Ingest is the controller for the upload step. It is the only writer of the
// session handle: starting an upload clears the current handle and a
// successful upload installs the new one.
type Ingest struct {
	sessions SessionStore
	sink     notify.Sink
	recorder Recorder
	progress io.Writer

	mu    sync.Mutex
	state State[session.Handle]
}

// NewIngest creates an Idle upload controller.
func NewIngest(sessions SessionStore, sink notify.Sink) *Ingest {
	if sink == nil {
		sink = notify.Discard
	}
	return &Ingest{sessions: sessions, sink: sink, state: State[session.Handle]{Phase: Idle}}
}

// SetRecorder attaches a journal for upload transitions.
func (in *Ingest) SetRecorder(r Recorder) {
	in.recorder = r
}

// SetProgress sets a writer for live progress output.
func (in *Ingest) SetProgress(w io.Writer) {
	in.progress = w
}

func (in *Ingest) logf(format string, args ...interface{}) {
	if in.progress != nil {
		fmt.Fprintf(in.progress, "  → upload: "+format+"\n", args...)
	}
}

// State returns a snapshot of the upload controller.
func (in *Ingest) State() State[session.Handle] {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state
}

// Reject fails the upload locally, before any attempt is made. The current
// session handle is left untouched.
func (in *Ingest) Reject(errInfo *pipeline.ErrorInfo) *Future[session.Handle] {
	in.mu.Lock()
	if in.state.Phase == Loading {
		st := in.state
		in.mu.Unlock()
		return settled(Ignored, st)
	}
	in.state = State[session.Handle]{Phase: Failed, Err: errInfo}
	st := in.state
	in.mu.Unlock()

	in.logf("rejected: %s", errInfo.Message)
	in.sink.Error(errInfo.Message)
	in.record(Event{Stage: pipeline.StageUpload, Transition: TransitionRejected, Kind: errInfo.Kind, Message: errInfo.Message})
	return settled(Rejected, st)
}

// Invoke starts an upload. A call while another upload is in flight is a
// silent no-op.
func (in *Ingest) Invoke(ctx context.Context, call UploadCall, msgs Messages) *Future[session.Handle] {
	in.mu.Lock()
	if in.state.Phase == Loading {
		st := in.state
		in.mu.Unlock()
		in.logf("upload already in flight, ignoring")
		return settled(Ignored, st)
	}
	in.state.Phase = Loading
	in.sessions.Clear()
	in.mu.Unlock()

	in.logf("sending file")
	in.record(Event{Stage: pipeline.StageUpload, Transition: TransitionStarted})
	tracker := in.sink.Track(msgs.Pending)

	f := newFuture[session.Handle]()
	go func() {
		handle, errInfo := call(ctx)
		if errInfo == nil {
			if err := in.sessions.Set(handle); err != nil {
				errInfo = &pipeline.ErrorInfo{Kind: pipeline.KindParse, Message: "Could not read the upload data from the server."}
			}
		}

		in.mu.Lock()
		if errInfo != nil {
			in.state = State[session.Handle]{Phase: Failed, Err: errInfo}
		} else {
			h := handle
			in.state = State[session.Handle]{Phase: Succeeded, Result: &h, Session: handle}
		}
		st := in.state
		in.mu.Unlock()

		if errInfo != nil {
			in.logf("failed (%s): %s", errInfo.Kind, errInfo.Message)
			tracker.Error(errInfo.Message)
			in.record(Event{Stage: pipeline.StageUpload, Transition: TransitionFailed, Kind: errInfo.Kind, Message: errInfo.Message})
		} else {
			in.logf("session %s", handle)
			tracker.Success(msgs.Success)
			in.record(Event{Stage: pipeline.StageUpload, Session: handle, Transition: TransitionSucceeded})
		}
		f.resolve(Applied, st)
	}()
	return f
}

func (in *Ingest) record(ev Event) {
	if in.recorder == nil {
		return
	}
	if err := in.recorder.RecordStageEvent(ev); err != nil {
		in.logf("history: %v", err)
	}
}
