package file

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/aretw0/mosaic/pkg/dom"
	"golang.org/x/net/html"
)

// Scripts implements ports.ScriptRunner for same-origin scripts served from disk.
// An external script has loaded once its file is found under Root; inline scripts
// complete immediately. Cross-origin sources are not checked.
type Scripts struct {
	assets *Indexes
	origin *url.URL
}

// NewScripts creates a runner for pages served from origin with assets under root.
func NewScripts(root string, origin *url.URL) *Scripts {
	return &Scripts{assets: NewIndexes(root), origin: origin}
}

// Run checks that the script source exists.
func (s *Scripts) Run(ctx context.Context, location string, script *html.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, ok := dom.Attr(script, "src")
	if !ok || src == "" {
		return nil
	}
	u, err := s.origin.Parse(src)
	if err != nil {
		return fmt.Errorf("invalid script src %q: %w", src, err)
	}
	if u.Host != s.origin.Host {
		return nil
	}
	if _, err := os.Stat(s.assets.path(u.Path)); err != nil {
		return fmt.Errorf("script %s of %s failed to load: %w", u.Path, location, err)
	}
	return nil
}
