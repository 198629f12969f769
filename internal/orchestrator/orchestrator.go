// Package orchestrator wires the session holder, gateway, payload parser and
// stage controllers into the upload → analyze → strategy → refactor pipeline.
package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lucasnoah/remediate/internal/config"
	"github.com/lucasnoah/remediate/internal/gateway"
	"github.com/lucasnoah/remediate/internal/notify"
	"github.com/lucasnoah/remediate/internal/payload"
	"github.com/lucasnoah/remediate/internal/pipeline"
	"github.com/lucasnoah/remediate/internal/session"
	"github.com/lucasnoah/remediate/internal/stage"
)

// SupportedExtension is the artifact type the remediation service understands.
const SupportedExtension = ".java"

// Stage notification texts.
var (
	uploadSuccess = "File uploaded successfully!"
	analyzeMsgs   = stage.Messages{Pending: "Running analysis...", Success: "Analysis completed successfully!"}
	strategyMsgs  = stage.Messages{Pending: "Running strategy agent...", Success: "Strategy loaded successfully!"}
	refactorMsgs  = stage.Messages{Pending: "Loading refactored code...", Success: "Refactored code loaded!"}
)

// Orchestrator owns one pipeline session and its four stage controllers.
// Controllers are independent: any of them may be in flight at the same time.
type Orchestrator struct {
	cfg    *config.Config
	holder *session.Holder
	gw     *gateway.Gateway
	sink   notify.Sink

	mu   sync.Mutex
	file string // name of the artifact behind the latest upload attempt

	ingest   *stage.Ingest
	analyze  *stage.Controller[pipeline.AnalysisResult]
	strategy *stage.Controller[pipeline.StrategyResult]
	refactor *stage.Controller[pipeline.RefactorResult]
}

// New creates an Orchestrator with no session.
func New(cfg *config.Config, gw *gateway.Gateway, sink notify.Sink) *Orchestrator {
	if sink == nil {
		sink = notify.Discard
	}
	h := session.NewHolder()
	o := &Orchestrator{cfg: cfg, holder: h, gw: gw, sink: sink}

	o.ingest = stage.NewIngest(h, sink)
	o.analyze = stage.New(pipeline.StageAnalyze, h,
		sendAndParse(gw, cfg, pipeline.StageAnalyze, payload.ParseAnalysis), sink, analyzeMsgs)
	o.strategy = stage.New(pipeline.StageStrategy, h,
		sendAndParse(gw, cfg, pipeline.StageStrategy, payload.ParseStrategy), sink, strategyMsgs)
	o.refactor = stage.New(pipeline.StageRefactor, h,
		sendAndParse(gw, cfg, pipeline.StageRefactor, payload.ParseRefactor), sink, refactorMsgs)
	return o
}

// sendAndParse builds the remote call for one post-upload stage.
func sendAndParse[T any](gw *gateway.Gateway, cfg *config.Config, st pipeline.Stage, parse func(gateway.RawResponse) (T, *pipeline.ErrorInfo)) stage.Call[T] {
	endpoint := cfg.Endpoint(st)
	fallback := cfg.FallbackMessage(st)
	return func(ctx context.Context, handle session.Handle) (T, *pipeline.ErrorInfo) {
		raw, errInfo := gw.Send(ctx, endpoint, handle, fallback)
		if errInfo != nil {
			var zero T
			return zero, errInfo
		}
		return parse(raw)
	}
}

// SetRecorder journals every stage transition to r.
func (o *Orchestrator) SetRecorder(r stage.Recorder) {
	o.ingest.SetRecorder(r)
	o.analyze.SetRecorder(r)
	o.strategy.SetRecorder(r)
	o.refactor.SetRecorder(r)
}

// SetProgress sets a writer for live progress output from every stage.
func (o *Orchestrator) SetProgress(w io.Writer) {
	o.ingest.SetProgress(w)
	o.analyze.SetProgress(w)
	o.strategy.SetProgress(w)
	o.refactor.SetProgress(w)
}

// Session returns the current session handle, if any.
func (o *Orchestrator) Session() (session.Handle, bool) {
	return o.holder.Get()
}

// UseSession adopts a handle obtained by an earlier upload, e.g. from the
// --session flag.
func (o *Orchestrator) UseSession(h session.Handle) error {
	if err := o.holder.Set(h); err != nil {
		return fmt.Errorf("use session: %w", err)
	}
	return nil
}

// Upload reads path and sends it to the service. A file that cannot be read
// fails locally and leaves the current session untouched.
func (o *Orchestrator) Upload(ctx context.Context, path string) *stage.Future[session.Handle] {
	data, err := os.ReadFile(path)
	if err != nil {
		return o.ingest.Reject(pipeline.NewError(pipeline.KindValidation, "Could not read %s: %v", path, unwrapPathError(err)))
	}
	return o.UploadReader(ctx, filepath.Base(path), bytes.NewReader(data))
}

// UploadReader sends content under filename.
func (o *Orchestrator) UploadReader(ctx context.Context, filename string, content io.Reader) *stage.Future[session.Handle] {
	if !strings.EqualFold(filepath.Ext(filename), SupportedExtension) {
		o.sink.Info(fmt.Sprintf("%s is not a %s file; the service may reject it.", filename, SupportedExtension))
	}

	endpoint := o.cfg.Endpoint(pipeline.StageUpload)
	fallback := o.cfg.FallbackMessage(pipeline.StageUpload)
	call := func(ctx context.Context) (session.Handle, *pipeline.ErrorInfo) {
		raw, errInfo := o.gw.Upload(ctx, endpoint, filename, content, fallback)
		if errInfo != nil {
			return "", errInfo
		}
		return payload.ParseUpload(raw)
	}

	f := o.ingest.Invoke(ctx, call, stage.Messages{
		Pending: fmt.Sprintf("Uploading %s...", filename),
		Success: uploadSuccess,
	})
	if ignored(f) {
		return f
	}
	o.mu.Lock()
	o.file = filename
	o.mu.Unlock()
	return f
}

// ignored reports whether f was settled immediately as a no-op.
func ignored[T any](f *stage.Future[T]) bool {
	select {
	case <-f.Done():
		return f.Wait().Resolution == stage.Ignored
	default:
		return false
	}
}

func unwrapPathError(err error) error {
	var pe *os.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}

// Analyze triggers the analysis stage for the current session.
func (o *Orchestrator) Analyze(ctx context.Context) *stage.Future[pipeline.AnalysisResult] {
	return o.analyze.Invoke(ctx)
}

// Strategy triggers the strategy stage for the current session. Ordering
// against Analyze is enforced by the service, not here.
func (o *Orchestrator) Strategy(ctx context.Context) *stage.Future[pipeline.StrategyResult] {
	return o.strategy.Invoke(ctx)
}

// Refactor triggers the refactor stage for the current session.
func (o *Orchestrator) Refactor(ctx context.Context) *stage.Future[pipeline.RefactorResult] {
	return o.refactor.Invoke(ctx)
}

// Snapshot is a point-in-time view of every controller.
type Snapshot struct {
	Session  session.Handle
	File     string
	Upload   stage.State[session.Handle]
	Analysis stage.State[pipeline.AnalysisResult]
	Strategy stage.State[pipeline.StrategyResult]
	Refactor stage.State[pipeline.RefactorResult]
}

// Snapshot returns the current state of all stages.
func (o *Orchestrator) Snapshot() Snapshot {
	h, _ := o.holder.Get()
	o.mu.Lock()
	file := o.file
	o.mu.Unlock()
	return Snapshot{
		Session:  h,
		File:     file,
		Upload:   o.ingest.State(),
		Analysis: o.analyze.State(),
		Strategy: o.strategy.State(),
		Refactor: o.refactor.State(),
	}
}

// Phase returns the phase of st.
func (s Snapshot) Phase(st pipeline.Stage) stage.Phase {
	switch st {
	case pipeline.StageUpload:
		return s.Upload.Phase
	case pipeline.StageAnalyze:
		return s.Analysis.Phase
	case pipeline.StageStrategy:
		return s.Strategy.Phase
	case pipeline.StageRefactor:
		return s.Refactor.Phase
	}
	return stage.Idle
}

// Err returns the error recorded for st, if any.
func (s Snapshot) Err(st pipeline.Stage) *pipeline.ErrorInfo {
	switch st {
	case pipeline.StageUpload:
		return s.Upload.Err
	case pipeline.StageAnalyze:
		return s.Analysis.Err
	case pipeline.StageStrategy:
		return s.Strategy.Err
	case pipeline.StageRefactor:
		return s.Refactor.Err
	}
	return nil
}

// Report converts the snapshot into the exported report document.
func (s Snapshot) Report() *pipeline.Report {
	r := &pipeline.Report{
		SessionID: string(s.Session),
		File:      s.File,
		Stages:    make(map[pipeline.Stage]pipeline.StageReport, len(pipeline.Stages)),
		Analysis:  s.Analysis.Result,
		Strategy:  s.Strategy.Result,
		Refactor:  s.Refactor.Result,
	}
	for _, st := range pipeline.Stages {
		r.Stages[st] = pipeline.StageReport{Phase: string(s.Phase(st)), Error: s.Err(st)}
	}
	return r
}

// RunResult summarises a sequential run.
type RunResult struct {
	Snapshot Snapshot
	// FailedStage is the first stage that did not succeed; empty when every
	// requested stage succeeded.
	FailedStage pipeline.Stage
	Err         *pipeline.ErrorInfo
}

// RunAll uploads path and then runs each stage in order up to and including
// through, awaiting each one and stopping at the first failure.
func (o *Orchestrator) RunAll(ctx context.Context, path string, through pipeline.Stage) RunResult {
	steps := []struct {
		stage pipeline.Stage
		run   func() (stage.Resolution, stage.Phase, *pipeline.ErrorInfo)
	}{
		{pipeline.StageUpload, func() (stage.Resolution, stage.Phase, *pipeline.ErrorInfo) {
			out := o.Upload(ctx, path).Wait()
			return out.Resolution, out.State.Phase, out.State.Err
		}},
		{pipeline.StageAnalyze, func() (stage.Resolution, stage.Phase, *pipeline.ErrorInfo) {
			out := o.Analyze(ctx).Wait()
			return out.Resolution, out.State.Phase, out.State.Err
		}},
		{pipeline.StageStrategy, func() (stage.Resolution, stage.Phase, *pipeline.ErrorInfo) {
			out := o.Strategy(ctx).Wait()
			return out.Resolution, out.State.Phase, out.State.Err
		}},
		{pipeline.StageRefactor, func() (stage.Resolution, stage.Phase, *pipeline.ErrorInfo) {
			out := o.Refactor(ctx).Wait()
			return out.Resolution, out.State.Phase, out.State.Err
		}},
	}

	for _, step := range steps {
		res, phase, errInfo := step.run()
		if phase != stage.Succeeded || res != stage.Applied {
			if errInfo == nil {
				errInfo = pipeline.NewError(pipeline.KindValidation, "%s did not complete (%s)", step.stage.Label(), res)
			}
			return RunResult{Snapshot: o.Snapshot(), FailedStage: step.stage, Err: errInfo}
		}
		if step.stage == through {
			break
		}
	}
	return RunResult{Snapshot: o.Snapshot()}
}
