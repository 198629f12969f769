package stage

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lucasnoah/remediate/internal/notify"
	"github.com/lucasnoah/remediate/internal/pipeline"
	"github.com/lucasnoah/remediate/internal/session"
)

// --- Mocks ---

type callResult struct {
	value string
	err   *pipeline.ErrorInfo
}

// gatedCall blocks every invocation until a result is pushed on release.
type gatedCall struct {
	calls   atomic.Int32
	started chan session.Handle
	release chan callResult
}

func newGatedCall() *gatedCall {
	return &gatedCall{
		started: make(chan session.Handle, 10),
		release: make(chan callResult, 10),
	}
}

func (g *gatedCall) call(ctx context.Context, handle session.Handle) (string, *pipeline.ErrorInfo) {
	g.calls.Add(1)
	g.started <- handle
	r := <-g.release
	return r.value, r.err
}

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingSink) add(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recordingSink) Info(msg string)    { r.add("info:" + msg) }
func (r *recordingSink) Success(msg string) { r.add("success:" + msg) }
func (r *recordingSink) Error(msg string)   { r.add("error:" + msg) }
func (r *recordingSink) Track(pending string) notify.Tracker {
	r.add("pending:" + pending)
	return notify.NewTracker(func(level notify.Level, msg string) { r.add(string(level) + ":" + msg) })
}

func (r *recordingSink) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type memRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (m *memRecorder) RecordStageEvent(ev Event) error {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	return nil
}

var testMsgs = Messages{Pending: "Running analysis...", Success: "Analysis completed successfully!"}

func newTestController(t *testing.T, h *session.Holder) (*Controller[string], *gatedCall, *recordingSink) {
	t.Helper()
	g := newGatedCall()
	sink := &recordingSink{}
	c := New[string](pipeline.StageAnalyze, h, g.call, sink, testMsgs)
	return c, g, sink
}

func waitStarted(t *testing.T, g *gatedCall) session.Handle {
	t.Helper()
	select {
	case h := <-g.started:
		return h
	case <-time.After(2 * time.Second):
		t.Fatal("call never started")
		return ""
	}
}

func waitOutcome[T any](t *testing.T, f *Future[T]) Outcome[T] {
	t.Helper()
	select {
	case <-f.Done():
		return f.Wait()
	case <-time.After(2 * time.Second):
		t.Fatal("future never settled")
		return Outcome[T]{}
	}
}

// --- Tests ---

func TestController_StartsIdle(t *testing.T) {
	c, _, _ := newTestController(t, session.NewHolder())
	if st := c.State(); st.Phase != Idle || st.Result != nil || st.Err != nil {
		t.Errorf("initial state = %+v", st)
	}
	if c.Stage() != pipeline.StageAnalyze {
		t.Errorf("Stage() = %q", c.Stage())
	}
}

func TestController_NoSessionFailsWithoutCalling(t *testing.T) {
	c, g, sink := newTestController(t, session.NewHolder())

	out := waitOutcome(t, c.Invoke(context.Background()))
	if out.Resolution != Rejected {
		t.Errorf("Resolution = %q, want rejected", out.Resolution)
	}
	st := c.State()
	if st.Phase != Failed || st.Err == nil || st.Err.Kind != pipeline.KindValidation {
		t.Fatalf("state = %+v, want Failed(validation)", st)
	}
	if n := g.calls.Load(); n != 0 {
		t.Errorf("calls = %d, want 0", n)
	}
	events := sink.snapshot()
	if len(events) != 1 || events[0] != "error:"+NoSessionMessage {
		t.Errorf("sink events = %v", events)
	}
}

func TestController_ConcurrentInvokeIsNoOp(t *testing.T) {
	h := session.NewHolder()
	_ = h.Set("abc123")
	c, g, _ := newTestController(t, h)

	first := c.Invoke(context.Background())
	waitStarted(t, g)

	second := c.Invoke(context.Background())
	out2 := waitOutcome(t, second)
	if out2.Resolution != Ignored {
		t.Errorf("second Resolution = %q, want ignored", out2.Resolution)
	}
	if out2.State.Phase != Loading {
		t.Errorf("second saw phase %q, want loading", out2.State.Phase)
	}

	g.release <- callResult{value: "first-result"}
	out1 := waitOutcome(t, first)
	if out1.Resolution != Applied {
		t.Errorf("first Resolution = %q", out1.Resolution)
	}
	if out1.State.Phase != Succeeded || *out1.State.Result != "first-result" {
		t.Errorf("first state = %+v", out1.State)
	}
	if n := g.calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestController_SuccessAndNotification(t *testing.T) {
	h := session.NewHolder()
	_ = h.Set("abc123")
	c, g, sink := newTestController(t, h)

	f := c.Invoke(context.Background())
	if got := waitStarted(t, g); got != "abc123" {
		t.Errorf("call received handle %q", got)
	}
	g.release <- callResult{value: "ok"}
	out := waitOutcome(t, f)

	if out.State.Session != "abc123" {
		t.Errorf("Session = %q", out.State.Session)
	}
	want := []string{"pending:Running analysis...", "success:Analysis completed successfully!"}
	if strings.Join(sink.snapshot(), "|") != strings.Join(want, "|") {
		t.Errorf("sink events = %v, want %v", sink.snapshot(), want)
	}
}

func TestController_FailureCarriesErrorInfo(t *testing.T) {
	h := session.NewHolder()
	_ = h.Set("abc123")
	c, g, sink := newTestController(t, h)

	f := c.Invoke(context.Background())
	waitStarted(t, g)
	g.release <- callResult{err: &pipeline.ErrorInfo{Kind: pipeline.KindNetwork, Message: "connection refused"}}
	out := waitOutcome(t, f)

	if out.State.Phase != Failed || out.State.Err.Kind != pipeline.KindNetwork {
		t.Fatalf("state = %+v", out.State)
	}
	events := sink.snapshot()
	if events[len(events)-1] != "error:connection refused" {
		t.Errorf("last sink event = %q", events[len(events)-1])
	}
}

func TestController_LoadingRetainsPreviousResult(t *testing.T) {
	h := session.NewHolder()
	_ = h.Set("abc123")
	c, g, _ := newTestController(t, h)

	f := c.Invoke(context.Background())
	waitStarted(t, g)
	g.release <- callResult{value: "v1"}
	waitOutcome(t, f)

	f = c.Invoke(context.Background())
	waitStarted(t, g)

	st := c.State()
	if st.Phase != Loading {
		t.Fatalf("phase = %q, want loading", st.Phase)
	}
	if st.Result == nil || *st.Result != "v1" {
		t.Errorf("previous result not retained while loading: %+v", st)
	}

	g.release <- callResult{err: &pipeline.ErrorInfo{Kind: pipeline.KindParse, Message: "Could not read the analysis data from the server."}}
	out := waitOutcome(t, f)
	if out.State.Phase != Failed || out.State.Err.Kind != pipeline.KindParse {
		t.Fatalf("state = %+v, want Failed(parse)", out.State)
	}
	if out.State.Result != nil {
		t.Errorf("Failed state should not carry a result: %+v", out.State)
	}
}

func TestController_RetryAfterFailure(t *testing.T) {
	h := session.NewHolder()
	_ = h.Set("abc123")
	c, g, _ := newTestController(t, h)

	f := c.Invoke(context.Background())
	waitStarted(t, g)
	g.release <- callResult{err: &pipeline.ErrorInfo{Kind: pipeline.KindServer, Message: "busy"}}
	waitOutcome(t, f)

	f = c.Invoke(context.Background())
	waitStarted(t, g)
	g.release <- callResult{value: "second try"}
	out := waitOutcome(t, f)
	if out.State.Phase != Succeeded || out.State.Err != nil || *out.State.Result != "second try" {
		t.Errorf("state = %+v", out.State)
	}
}

func TestController_StaleResponseDiscarded(t *testing.T) {
	tests := []struct {
		name      string
		prime     bool
		wantPhase Phase
	}{
		{"from idle", false, Idle},
		{"from succeeded", true, Succeeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := session.NewHolder()
			_ = h.Set("A")
			c, g, sink := newTestController(t, h)
			rec := &memRecorder{}
			c.SetRecorder(rec)

			if tt.prime {
				f := c.Invoke(context.Background())
				waitStarted(t, g)
				g.release <- callResult{value: "A-first"}
				waitOutcome(t, f)
			}

			f := c.Invoke(context.Background())
			waitStarted(t, g)
			_ = h.Set("B")
			g.release <- callResult{value: "A-stale"}
			out := waitOutcome(t, f)

			if out.Resolution != Discarded {
				t.Errorf("Resolution = %q, want discarded", out.Resolution)
			}
			st := c.State()
			if st.Phase != tt.wantPhase {
				t.Errorf("phase = %q, want %q", st.Phase, tt.wantPhase)
			}
			if st.Result != nil && *st.Result == "A-stale" {
				t.Error("stale result was applied")
			}
			if tt.prime && (st.Result == nil || *st.Result != "A-first") {
				t.Errorf("earlier result not restored: %+v", st)
			}

			events := sink.snapshot()
			if !strings.HasPrefix(events[len(events)-1], "info:Discarded Analysis result") {
				t.Errorf("last sink event = %q", events[len(events)-1])
			}
			last := rec.events[len(rec.events)-1]
			if last.Transition != TransitionDiscarded || last.Session != "A" {
				t.Errorf("last recorded event = %+v", last)
			}

			// The controller is usable again for the new session.
			f = c.Invoke(context.Background())
			if got := waitStarted(t, g); got != "B" {
				t.Errorf("next call used handle %q, want B", got)
			}
			g.release <- callResult{value: "B-result"}
			if out := waitOutcome(t, f); *out.State.Result != "B-result" {
				t.Errorf("state = %+v", out.State)
			}
		})
	}
}

func TestController_RecorderSeesTransitions(t *testing.T) {
	h := session.NewHolder()
	c, g, _ := newTestController(t, h)
	rec := &memRecorder{}
	c.SetRecorder(rec)

	waitOutcome(t, c.Invoke(context.Background()))
	_ = h.Set("abc123")
	f := c.Invoke(context.Background())
	waitStarted(t, g)
	g.release <- callResult{value: "ok"}
	waitOutcome(t, f)

	var got []string
	for _, ev := range rec.events {
		got = append(got, ev.Transition)
	}
	want := []string{TransitionRejected, TransitionStarted, TransitionSucceeded}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("transitions = %v, want %v", got, want)
	}
	if rec.events[0].Kind != pipeline.KindValidation {
		t.Errorf("rejected kind = %q", rec.events[0].Kind)
	}
}

func TestController_IndependentControllers(t *testing.T) {
	h := session.NewHolder()
	_ = h.Set("abc123")
	a, ga, _ := newTestController(t, h)
	b, gb, _ := newTestController(t, h)

	fa := a.Invoke(context.Background())
	fb := b.Invoke(context.Background())
	waitStarted(t, ga)
	waitStarted(t, gb)

	gb.release <- callResult{err: &pipeline.ErrorInfo{Kind: pipeline.KindServer, Message: "no"}}
	if out := waitOutcome(t, fb); out.State.Phase != Failed {
		t.Errorf("b phase = %q", out.State.Phase)
	}
	if a.State().Phase != Loading {
		t.Errorf("a should still be loading, got %q", a.State().Phase)
	}
	ga.release <- callResult{value: "fine"}
	if out := waitOutcome(t, fa); out.State.Phase != Succeeded {
		t.Errorf("a phase = %q", out.State.Phase)
	}
}

func TestController_ProgressOutput(t *testing.T) {
	var buf bytes.Buffer
	c, _, _ := newTestController(t, session.NewHolder())
	c.SetProgress(&buf)
	waitOutcome(t, c.Invoke(context.Background()))
	if !strings.Contains(buf.String(), "analyze: rejected: no session") {
		t.Errorf("progress = %q", buf.String())
	}
}
