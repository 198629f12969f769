// Package notify reports stage progress to the user. Sinks only display; they
// never influence orchestration decisions.
package notify

import "sync"

// Sink receives user-facing notifications.
type Sink interface {
	Info(msg string)
	Success(msg string)
	Error(msg string)
	// Track shows a pending indicator until the returned Tracker is resolved.
	Track(pending string) Tracker
}

// Tracker resolves a pending indicator started by Sink.Track. Only the first
// resolution is shown.
type Tracker interface {
	Success(msg string)
	Error(msg string)
	// Info dismisses the indicator with a neutral message.
	Info(msg string)
}

// Discard is a Sink that drops every notification.
var Discard Sink = discard{}

type discard struct{}

func (discard) Info(string)           {}
func (discard) Success(string)        {}
func (discard) Error(string)          {}
func (discard) Track(string) Tracker { return discardTracker{} }

type discardTracker struct{}

func (discardTracker) Success(string) {}
func (discardTracker) Error(string)   {}
func (discardTracker) Info(string)    {}

// Multi fans every notification out to each sink in order.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

type multi []Sink

func (m multi) Info(msg string) {
	for _, s := range m {
		s.Info(msg)
	}
}

func (m multi) Success(msg string) {
	for _, s := range m {
		s.Success(msg)
	}
}

func (m multi) Error(msg string) {
	for _, s := range m {
		s.Error(msg)
	}
}

func (m multi) Track(pending string) Tracker {
	ts := make(multiTracker, len(m))
	for i, s := range m {
		ts[i] = s.Track(pending)
	}
	return ts
}

type multiTracker []Tracker

func (m multiTracker) Success(msg string) {
	for _, t := range m {
		t.Success(msg)
	}
}

func (m multiTracker) Error(msg string) {
	for _, t := range m {
		t.Error(msg)
	}
}

func (m multiTracker) Info(msg string) {
	for _, t := range m {
		t.Info(msg)
	}
}

// once wraps a resolve function so a Tracker reports at most one outcome.
type once struct {
	o       sync.Once
	resolve func(level Level, msg string)
}

func (t *once) Success(msg string) { t.o.Do(func() { t.resolve(LevelSuccess, msg) }) }
func (t *once) Error(msg string)   { t.o.Do(func() { t.resolve(LevelError, msg) }) }
func (t *once) Info(msg string)    { t.o.Do(func() { t.resolve(LevelInfo, msg) }) }

// NewTracker returns a Tracker that calls resolve exactly once.
func NewTracker(resolve func(level Level, msg string)) Tracker {
	return &once{resolve: resolve}
}

// Level tags a notification for rendering.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelPending Level = "pending"
)
