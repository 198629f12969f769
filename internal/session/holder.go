package session

import (
	"errors"
	"sync"
)

// Handle is the opaque token returned by the upload endpoint. Every downstream
// stage call is bound to the uploaded artifact through it.
type Handle string

// ErrEmptyHandle is returned by Set when asked to store an empty token.
var ErrEmptyHandle = errors.New("session handle must not be empty")

// Holder stores the current session handle. It is written only by the ingest
// flow and read once per stage invocation.
type Holder struct {
	mu     sync.RWMutex
	handle Handle
}

// NewHolder returns an empty Holder.
func NewHolder() *Holder {
	return &Holder{}
}

// Get returns the current handle and whether one is set.
func (h *Holder) Get() (Handle, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.handle, h.handle != ""
}

// Set replaces the current handle wholesale.
func (h *Holder) Set(handle Handle) error {
	if handle == "" {
		return ErrEmptyHandle
	}
	h.mu.Lock()
	h.handle = handle
	h.mu.Unlock()
	return nil
}

// Clear marks the handle absent. A fresh upload attempt calls this before
// sending the file so results for the previous artifact can no longer apply.
func (h *Holder) Clear() {
	h.mu.Lock()
	h.handle = ""
	h.mu.Unlock()
}
