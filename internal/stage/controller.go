// Package stage implements the per-stage state machine that gates, serializes
// and resolves calls to one step of the remote pipeline.
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

// Phase is the coarse state of a stage controller.
type Phase string

const (
	Idle      Phase = "idle"
	Loading   Phase = "loading"
	Succeeded Phase = "succeeded"
	Failed    Phase = "failed"
)

// State is a snapshot of a controller. While Loading, Result and Err still hold
// the previous resolution so a view can keep showing it until the refresh lands.
type State[T any] struct {
	Phase   Phase
	Result  *T
	Err     *pipeline.ErrorInfo
	Session session.Handle // session the current Result/Err belongs to
}

// Resolution says what became of an Invoke call.
type Resolution string

const (
	// Applied: the response resolved the controller's state.
	Applied Resolution = "applied"
	// Rejected: no session was available; nothing was sent.
	Rejected Resolution = "rejected"
	// Ignored: a request was already in flight; nothing was sent.
	Ignored Resolution = "ignored"
	// Discarded: the session changed while the request was in flight and the
	// response was dropped.
	Discarded Resolution = "discarded"
)

// Outcome is delivered by a Future once an invocation settles.
type Outcome[T any] struct {
	Resolution Resolution
	State      State[T]
}

// Future is the pending result of Invoke.
type Future[T any] struct {
	done chan struct{}
	out  Outcome[T]
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func settled[T any](res Resolution, st State[T]) *Future[T] {
	f := newFuture[T]()
	f.resolve(res, st)
	return f
}

func (f *Future[T]) resolve(res Resolution, st State[T]) {
	f.out = Outcome[T]{Resolution: res, State: st}
	close(f.done)
}

// Done is closed once the outcome is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the invocation settles.
func (f *Future[T]) Wait() Outcome[T] {
	<-f.done
	return f.out
}

// Call performs the remote work for one invocation. It is the controller's
// only suspension point.
type Call[T any] func(ctx context.Context, handle session.Handle) (T, *pipeline.ErrorInfo)

// SessionSource yields the current session handle.
type SessionSource interface {
	Get() (session.Handle, bool)
}

// Messages are the notification texts for one stage.
type Messages struct {
	Pending string
	Success string
}

// NoSessionMessage is shown when a stage is triggered before any upload succeeded.
const NoSessionMessage = "No session ID available. Please upload a file first."

// Controller is the state machine for one stage.
type Controller[T any] struct {
	stage    pipeline.Stage
	sessions SessionSource
	call     Call[T]
	sink     notify.Sink
	msgs     Messages
	recorder Recorder
	progress io.Writer // live progress output; nil = silent

	mu    sync.Mutex
	state State[T]
}

// New creates a controller in the Idle phase.
func New[T any](st pipeline.Stage, sessions SessionSource, call Call[T], sink notify.Sink, msgs Messages) *Controller[T] {
	if sink == nil {
		sink = notify.Discard
	}
	return &Controller[T]{
		stage:    st,
		sessions: sessions,
		call:     call,
		sink:     sink,
		msgs:     msgs,
		state:    State[T]{Phase: Idle},
	}
}

// SetRecorder attaches a journal for stage transitions.
func (c *Controller[T]) SetRecorder(r Recorder) {
	c.recorder = r
}

// SetProgress sets a writer for live progress output (e.g. os.Stderr).
func (c *Controller[T]) SetProgress(w io.Writer) {
	c.progress = w
}

func (c *Controller[T]) logf(format string, args ...interface{}) {
	if c.progress != nil {
		fmt.Fprintf(c.progress, "  → %s: "+format+"\n", append([]interface{}{c.stage}, args...)...)
	}
}

// Stage returns which pipeline step this controller drives.
func (c *Controller[T]) Stage() pipeline.Stage {
	return c.stage
}

// State returns a snapshot of the controller.
func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Invoke starts one request for this stage.
//
// A call made while a request is already in flight is a silent no-op. A call
// made without a session fails locally with a validation error and sends
// nothing. Cross-stage ordering is not checked here: the remote service owns
// that precondition and its refusal surfaces as a server error.
func (c *Controller[T]) Invoke(ctx context.Context) *Future[T] {
	c.mu.Lock()
	if c.state.Phase == Loading {
		st := c.state
		c.mu.Unlock()
		c.logf("request already in flight, ignoring")
		return settled(Ignored, st)
	}

	handle, ok := c.sessions.Get()
	if !ok {
		errInfo := &pipeline.ErrorInfo{Kind: pipeline.KindValidation, Message: NoSessionMessage}
		c.state = State[T]{Phase: Failed, Err: errInfo}
		st := c.state
		c.mu.Unlock()

		c.logf("rejected: no session")
		c.sink.Error(errInfo.Message)
		c.record(Event{Stage: c.stage, Transition: TransitionRejected, Kind: errInfo.Kind, Message: errInfo.Message})
		return settled(Rejected, st)
	}

	prev := c.state
	c.state.Phase = Loading
	c.mu.Unlock()

	c.logf("sending request for session %s", handle)
	c.record(Event{Stage: c.stage, Session: handle, Transition: TransitionStarted})
	tracker := c.sink.Track(c.msgs.Pending)

	f := newFuture[T]()
	go c.run(ctx, handle, prev, tracker, f)
	return f
}

func (c *Controller[T]) run(ctx context.Context, handle session.Handle, prev State[T], tracker notify.Tracker, f *Future[T]) {
	result, errInfo := c.call(ctx, handle)

	c.mu.Lock()
	if current, _ := c.sessions.Get(); current != handle {
		c.state = prev
		st := c.state
		c.mu.Unlock()

		msg := fmt.Sprintf("Discarded %s result for an earlier upload.", c.stage.Label())
		c.logf("session changed from %s, discarding response", handle)
		tracker.Info(msg)
		c.record(Event{Stage: c.stage, Session: handle, Transition: TransitionDiscarded, Message: msg})
		f.resolve(Discarded, st)
		return
	}

	if errInfo != nil {
		c.state = State[T]{Phase: Failed, Err: errInfo, Session: handle}
	} else {
		r := result
		c.state = State[T]{Phase: Succeeded, Result: &r, Session: handle}
	}
	st := c.state
	c.mu.Unlock()

	if errInfo != nil {
		c.logf("failed (%s): %s", errInfo.Kind, errInfo.Message)
		tracker.Error(errInfo.Message)
		c.record(Event{Stage: c.stage, Session: handle, Transition: TransitionFailed, Kind: errInfo.Kind, Message: errInfo.Message})
	} else {
		c.logf("succeeded")
		tracker.Success(c.msgs.Success)
		c.record(Event{Stage: c.stage, Session: handle, Transition: TransitionSucceeded})
	}
	f.resolve(Applied, st)
}

func (c *Controller[T]) record(ev Event) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordStageEvent(ev); err != nil {
		c.logf("history: %v", err)
	}
}
