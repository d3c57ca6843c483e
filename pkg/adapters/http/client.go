package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/aretw0/mosaic/pkg/dom"
	"golang.org/x/net/html"
)

// origin resolves asset paths against a base URL and GETs them.
type origin struct {
	base   *url.URL
	client *http.Client
}

func newOrigin(base string, client *http.Client) (origin, error) {
	u, err := url.Parse(base)
	if err != nil {
		return origin{}, fmt.Errorf("invalid origin %q: %w", base, err)
	}
	if !u.IsAbs() {
		return origin{}, fmt.Errorf("origin %q must be absolute", base)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return origin{base: u, client: client}, nil
}

// get returns the body of a 2xx response. The caller closes it.
func (o origin) get(ctx context.Context, ref string) (io.ReadCloser, error) {
	u, err := o.base.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", ref, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", u, resp.Status)
	}
	return resp.Body, nil
}

// Indexes implements ports.IndexFetcher with GET <origin>/<publicRoot>/<indexPath>.
type Indexes struct {
	origin origin
}

// NewIndexes creates a fetcher for base. A nil client means http.DefaultClient.
func NewIndexes(base string, client *http.Client) (*Indexes, error) {
	o, err := newOrigin(base, client)
	if err != nil {
		return nil, err
	}
	return &Indexes{origin: o}, nil
}

// FetchIndex GETs the index document.
func (i *Indexes) FetchIndex(ctx context.Context, publicRoot, indexPath string) (io.ReadCloser, error) {
	return i.origin.get(ctx, path.Join("/", publicRoot, indexPath))
}

// Scripts implements ports.ScriptRunner. An external script has loaded once its
// source was fetched with a 2xx status; inline scripts complete immediately.
// Nothing is executed.
type Scripts struct {
	origin origin
}

// NewScripts creates a runner resolving relative sources against base.
func NewScripts(base string, client *http.Client) (*Scripts, error) {
	o, err := newOrigin(base, client)
	if err != nil {
		return nil, err
	}
	return &Scripts{origin: o}, nil
}

// Run fetches the script source, if any.
func (s *Scripts) Run(ctx context.Context, location string, script *html.Node) error {
	src, ok := dom.Attr(script, "src")
	if !ok || src == "" {
		return ctx.Err()
	}
	body, err := s.origin.get(ctx, src)
	if err != nil {
		return fmt.Errorf("script of %s failed to load: %w", location, err)
	}
	defer body.Close()
	_, err = io.Copy(io.Discard, body)
	return err
}
