package loader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/mosaic/pkg/dom"
	"github.com/aretw0/mosaic/pkg/domain"
	"github.com/aretw0/mosaic/pkg/ports"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Prepare walks an index tree in document order. Script elements get their src rooted
// under publicRoot and are detached from the tree; link hrefs and img srcs are
// rewritten in place. The detached scripts are returned in the order found.
func Prepare(root *html.Node, publicRoot string, prefixer ports.URLPrefixer) []*html.Node {
	var scripts []*html.Node

	stack := []*html.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script:
				if src, ok := dom.Attr(n, "src"); ok && src != "" {
					dom.SetAttr(n, "src", prefixer.Prepend(publicRoot, src))
				}
				scripts = append(scripts, n)
				if n.Parent != nil {
					n.Parent.RemoveChild(n)
				}
				continue
			case atom.Link:
				rewrite(n, "href", publicRoot, prefixer)
			case atom.Img:
				rewrite(n, "src", publicRoot, prefixer)
			}
		}

		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return scripts
}

func rewrite(n *html.Node, key, publicRoot string, prefixer ports.URLPrefixer) {
	if v, ok := dom.Attr(n, key); ok && v != "" {
		dom.SetAttr(n, key, prefixer.Prepend(publicRoot, v))
	}
}

// Sequencer injects scripts into the live head strictly one at a time.
type Sequencer struct {
	runner   ports.ScriptRunner
	inFlight chan struct{}
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
}

// NewSequencer creates a sequencer around runner.
func NewSequencer(runner ports.ScriptRunner, hooks domain.LifecycleHooks, logger *slog.Logger) *Sequencer {
	return &Sequencer{
		runner:   runner,
		inFlight: make(chan struct{}, 1),
		hooks:    hooks,
		logger:   logger,
	}
}

// Drain inserts each script into live's head and waits for it to finish before the next.
func (s *Sequencer) Drain(ctx context.Context, location string, live *dom.Document, scripts []*html.Node) error {
	for i, orig := range scripts {
		if err := s.inject(ctx, location, live, orig); err != nil {
			return fmt.Errorf("script %d of %d: %w", i+1, len(scripts), err)
		}
	}
	return nil
}

func (s *Sequencer) inject(ctx context.Context, location string, live *dom.Document, orig *html.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.inFlight <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.inFlight }()

	el := freshScript(orig)
	src, _ := dom.Attr(el, "src")
	inline := src == ""

	start := time.Now()
	live.AppendHead(el)
	if err := s.runner.Run(ctx, location, el); err != nil {
		return err
	}

	s.logger.Debug("script loaded", "app", location, "src", src, "inline", inline)
	if s.hooks.OnScriptLoaded != nil {
		s.hooks.OnScriptLoaded(ctx, &domain.ScriptEvent{
			Timestamp: time.Now(),
			Location:  location,
			Src:       src,
			Inline:    inline,
			Duration:  time.Since(start),
		})
	}
	return nil
}

// freshScript builds a new script element carrying orig's attributes.
// Inline source is copied only when there is no src.
func freshScript(orig *html.Node) *html.Node {
	attrs := make([]html.Attribute, len(orig.Attr))
	copy(attrs, orig.Attr)
	el := &html.Node{Type: html.ElementNode, Data: "script", DataAtom: atom.Script, Attr: attrs}
	if src, ok := dom.Attr(orig, "src"); !ok || src == "" {
		el.AppendChild(&html.Node{Type: html.TextNode, Data: dom.Text(orig)})
	}
	return el
}
