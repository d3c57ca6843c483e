// Package testutils holds helpers shared by the package tests.
package testutils

import (
	"context"
	"sync"

	"github.com/aretw0/mosaic/pkg/domain"
)

// Recorder collects lifecycle hook calls as "name:hook" strings, in call order.
type Recorder struct {
	mu    sync.Mutex
	calls []string
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one entry.
func (r *Recorder) Record(entry string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, entry)
}

// HookSet returns a complete hook set that records each call under name.
func (r *Recorder) HookSet(name string) domain.HookFuncs {
	hs := make(domain.HookFuncs, len(domain.RequiredHooks))
	for _, hook := range domain.RequiredHooks {
		hook := hook
		hs[hook] = func(context.Context, domain.Props) error {
			r.Record(name + ":" + string(hook))
			return nil
		}
	}
	return hs
}

// FailingHookSet is HookSet with hook returning err after recording.
func (r *Recorder) FailingHookSet(name string, hook domain.HookName, err error) domain.HookFuncs {
	hs := r.HookSet(name)
	hs[hook] = func(context.Context, domain.Props) error {
		r.Record(name + ":" + string(hook))
		return err
	}
	return hs
}

// Calls returns a copy of the recorded entries.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Reset forgets every recorded entry.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
