package memory

import (
	"context"
	"sync"

	"github.com/aretw0/mosaic/pkg/dom"
	"golang.org/x/net/html"
)

// ScriptRun is one recorded script execution.
type ScriptRun struct {
	Location string
	Src      string
	Text     string
}

// Scripts implements ports.ScriptRunner by recording every script it is handed.
// OnRun, when set, runs after recording and stands in for the script's own work.
type Scripts struct {
	mu    sync.Mutex
	runs  []ScriptRun
	OnRun func(ctx context.Context, run ScriptRun) error
}

// NewScripts creates an empty recorder.
func NewScripts() *Scripts {
	return &Scripts{}
}

// Run records the script and calls OnRun.
func (s *Scripts) Run(ctx context.Context, location string, script *html.Node) error {
	src, _ := dom.Attr(script, "src")
	run := ScriptRun{Location: location, Src: src, Text: dom.Text(script)}

	s.mu.Lock()
	s.runs = append(s.runs, run)
	onRun := s.OnRun
	s.mu.Unlock()

	if onRun != nil {
		return onRun(ctx, run)
	}
	return nil
}

// Runs returns the recorded executions in order.
func (s *Scripts) Runs() []ScriptRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ScriptRun(nil), s.runs...)
}
