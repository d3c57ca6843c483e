package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/mosaic/internal/presentation/graph"
	"github.com/aretw0/mosaic/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		apps     []domain.ApplicationInfo
		overlay  *graph.Overlay
		contains []string
		excludes []string
	}{
		{
			name: "Loaded and pending shapes",
			apps: []domain.ApplicationInfo{
				{Location: "users", ScriptsLoaded: true},
				{Location: "orders"},
			},
			contains: []string{
				"app_users[\"users\"]",
				"app_orders([\"orders\"])",
			},
			excludes: []string{"classDef"},
		},
		{
			name: "ID Sanitization",
			apps: []domain.ApplicationInfo{
				{Location: "apps/user-list.v2"},
			},
			contains: []string{"app_apps_user_list_v2"},
		},
		{
			name: "Parent edge",
			apps: []domain.ApplicationInfo{
				{Location: "shell"},
				{Location: "child", ParentLocation: "shell"},
			},
			contains: []string{"app_shell -.-> app_child"},
		},
		{
			name: "Routes overlay",
			apps: []domain.ApplicationInfo{{Location: "a"}, {Location: "b"}},
			overlay: &graph.Overlay{
				Mounted: "a",
				Routes: map[string][]string{
					"/a":    {"a"},
					"/both": {"a", "b"},
					"/none": nil,
				},
			},
			contains: []string{
				"url0>\"/a\"]",
				"url0 --> app_a",
				"url1 -- conflict --> app_a",
				"url1 -- conflict --> app_b",
				"class app_a mounted;",
				"class url1 conflict;",
				"class url2 unhandled;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.apps, tt.overlay)
			if !strings.HasPrefix(got, "graph LR\n") {
				t.Errorf("missing header:\n%s", got)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, got)
				}
			}
			for _, not := range tt.excludes {
				if strings.Contains(got, not) {
					t.Errorf("expected output not to contain %q, got:\n%s", not, got)
				}
			}
		})
	}
}
