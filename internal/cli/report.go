package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/aretw0/mosaic/internal/config"
	"github.com/aretw0/mosaic/internal/presentation/graph"
	"github.com/aretw0/mosaic/pkg/domain"
	"github.com/aretw0/mosaic/pkg/registry"
	"github.com/aretw0/mosaic/pkg/routes"
)

// RouteResult is who owns one URL.
type RouteResult struct {
	URL    string
	Owners []string
}

// Unhandled reports that no application claims the URL.
func (r RouteResult) Unhandled() bool { return len(r.Owners) == 0 }

// Conflict reports that several applications claim the URL.
func (r RouteResult) Conflict() bool { return len(r.Owners) > 1 }

// Report resolves sample URLs against a config without loading any module.
type Report struct {
	Applications []domain.ApplicationInfo
	Results      []RouteResult
}

// BuildReport declares cfg's applications in a bare registry and resolves each URL.
// Relative URLs are resolved against the config's origin.
func BuildReport(cfg *config.Config, urls []string) (*Report, error) {
	origin, err := url.Parse(cfg.Origin)
	if err != nil {
		return nil, fmt.Errorf("invalid origin: %w", err)
	}

	reg := registry.NewRegistry()
	for _, a := range cfg.Applications {
		pred, err := routes.FromRule(a.ActiveWhen)
		if err != nil {
			return nil, fmt.Errorf("application %s: %w", a.Location, err)
		}
		if _, err := reg.Declare(a.Location, pred, ""); err != nil {
			return nil, err
		}
	}

	rep := &Report{}
	for _, app := range reg.List() {
		rep.Applications = append(rep.Applications, app.Info())
	}
	for _, raw := range urls {
		u, err := origin.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid url %q: %w", raw, err)
		}
		res := RouteResult{URL: u.String()}
		app, err := reg.Resolve(u)
		switch conflict := err.(type) {
		case nil:
			if app != nil {
				res.Owners = []string{app.Location}
			}
		case *domain.ConflictError:
			res.Owners = conflict.Locations
		default:
			return nil, err
		}
		rep.Results = append(rep.Results, res)
	}
	return rep, nil
}

// HasConflict reports whether any URL is claimed twice.
func (r *Report) HasConflict() bool {
	for _, res := range r.Results {
		if res.Conflict() {
			return true
		}
	}
	return false
}

// Markdown renders the report as a table.
func (r *Report) Markdown() string {
	var sb strings.Builder
	sb.WriteString("# Routes\n\n")
	fmt.Fprintf(&sb, "%d applications declared.\n\n", len(r.Applications))
	if len(r.Results) == 0 {
		return sb.String()
	}
	sb.WriteString("| URL | Owner |\n|---|---|\n")
	for _, res := range r.Results {
		owner := ""
		switch {
		case res.Unhandled():
			owner = "_unhandled_"
		case res.Conflict():
			owner = "**conflict**: " + strings.Join(res.Owners, ", ")
		default:
			owner = res.Owners[0]
		}
		fmt.Fprintf(&sb, "| `%s` | %s |\n", res.URL, owner)
	}
	return sb.String()
}

// Mermaid renders the applications with every URL pointing at its owners.
func (r *Report) Mermaid() string {
	overlay := &graph.Overlay{Routes: make(map[string][]string, len(r.Results))}
	for _, res := range r.Results {
		overlay.Routes[res.URL] = res.Owners
	}
	return graph.GenerateMermaid(r.Applications, overlay)
}
