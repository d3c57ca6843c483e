package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/mosaic/pkg/domain"
)

// Overlay contains runtime data to draw on top of the declared applications.
type Overlay struct {
	// Mounted is the location of the mounted application, if any.
	Mounted string
	// Routes maps a URL to the locations that claim it. Zero owners is an
	// unhandled route, more than one a conflict.
	Routes map[string][]string
}

// GenerateMermaid produces a Mermaid flowchart of the declared applications.
// Shapes:
// - Loaded application: [Rectangle]
// - Not loaded yet: ([Stadium])
// - URL: >Flag]
// Parent locations are drawn as dotted edges, URL owners as solid ones.
func GenerateMermaid(apps []domain.ApplicationInfo, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, app := range apps {
		safeID := sanitizeMermaidID(app.Location)
		opener, closer := "([", "])"
		if app.ScriptsLoaded {
			opener, closer = "[", "]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, app.Location, closer))
		if app.ParentLocation != "" {
			sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", sanitizeMermaidID(app.ParentLocation), safeID))
		}
	}

	if overlay == nil {
		return sb.String()
	}

	urls := make([]string, 0, len(overlay.Routes))
	for u := range overlay.Routes {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	var unhandled, conflicts []string
	for i, u := range urls {
		urlID := fmt.Sprintf("url%d", i)
		owners := overlay.Routes[u]
		sb.WriteString(fmt.Sprintf("    %s>\"%s\"]\n", urlID, strings.ReplaceAll(u, "\"", "'")))
		switch len(owners) {
		case 0:
			unhandled = append(unhandled, urlID)
		case 1:
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", urlID, sanitizeMermaidID(owners[0])))
		default:
			conflicts = append(conflicts, urlID)
			for _, o := range owners {
				sb.WriteString(fmt.Sprintf("    %s -- conflict --> %s\n", urlID, sanitizeMermaidID(o)))
			}
		}
	}

	sb.WriteString("\n    %% Overlay Styles\n")
	// Force black text (color:#000) for high-contrast regardless of theme (Light/Dark)
	sb.WriteString("    classDef mounted fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
	sb.WriteString("    classDef unhandled fill:#eeeeee,stroke:#9e9e9e,stroke-dasharray:4,color:#000;\n")
	sb.WriteString("    classDef conflict fill:#ffcdd2,stroke:#c62828,stroke-width:2px,color:#000;\n")
	if overlay.Mounted != "" {
		sb.WriteString(fmt.Sprintf("    class %s mounted;\n", sanitizeMermaidID(overlay.Mounted)))
	}
	for _, id := range unhandled {
		sb.WriteString(fmt.Sprintf("    class %s unhandled;\n", id))
	}
	for _, id := range conflicts {
		sb.WriteString(fmt.Sprintf("    class %s conflict;\n", id))
	}
	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return "app_" + s
}
