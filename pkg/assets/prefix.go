// Package assets roots same-origin asset URLs under an application's public root.
package assets

import (
	"fmt"
	"net/url"
	"regexp"
)

var slashes = regexp.MustCompile(`/+`)

// Prefixer rewrites asset URLs relative to the page origin.
type Prefixer struct {
	origin *url.URL
}

// New creates a Prefixer for pages served from origin (e.g. "http://localhost:8080/").
func New(origin string) (*Prefixer, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("origin %q must be absolute", origin)
	}
	return &Prefixer{origin: u}, nil
}

// Origin returns the page origin the Prefixer resolves against.
func (p *Prefixer) Origin() *url.URL {
	return p.origin
}

// Prepend returns raw rooted under prefix when it resolves to the page origin,
// and raw unchanged otherwise.
func (p *Prefixer) Prepend(prefix, raw string) string {
	if raw == "" {
		return raw
	}
	u, err := p.origin.Parse(raw)
	if err != nil || u.Host != p.origin.Host {
		return raw
	}

	out := u.Scheme + "://" + u.Host + slashes.ReplaceAllString("/"+prefix+"/"+u.EscapedPath(), "/")
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		out += "#" + u.EscapedFragment()
	}
	return out
}
