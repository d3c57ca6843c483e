package validator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/mosaic/internal/config"
	"github.com/aretw0/mosaic/pkg/adapters/file"
	"github.com/aretw0/mosaic/pkg/domain"
	"github.com/aretw0/mosaic/pkg/routes"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestValidateShell(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{
		Origin:     "http://localhost:8080/",
		ModulesDir: filepath.Join(root, "modules"),
		AssetsDir:  filepath.Join(root, "public"),
	}
	catalog := file.Catalog{"noop": domain.NoopHooks()}

	// 1. Scenario A: valid shell
	write(t, filepath.Join(cfg.ModulesDir, "users", "manifest.yaml"), "public_root: users\npath_to_index: index.html\nlifecycles: noop\n")
	write(t, filepath.Join(cfg.AssetsDir, "users", "index.html"), `<script src="main.js"></script><script>inline()</script><script src="https://cdn.example.com/x.js"></script>`)
	write(t, filepath.Join(cfg.AssetsDir, "users", "main.js"), "")
	cfg.Applications = []config.Application{{Location: "users", ActiveWhen: routes.Rule{PathPrefix: "/users"}}}

	if err := ValidateShell(context.Background(), cfg, catalog); err != nil {
		t.Errorf("Scenario A (Valid) failed: %v", err)
	}

	// 2. Scenario B: every kind of breakage is reported at once
	write(t, filepath.Join(cfg.ModulesDir, "orders", "manifest.yaml"), "public_root: orders\npath_to_index: index.html\nlifecycles: noop\n")
	write(t, filepath.Join(cfg.AssetsDir, "orders", "index.html"), `<script src="missing.js"></script>`)
	write(t, filepath.Join(cfg.ModulesDir, "noindex", "manifest.yaml"), "public_root: noindex\npath_to_index: index.html\nlifecycles: noop\n")
	write(t, filepath.Join(cfg.ModulesDir, "nohooks", "manifest.yaml"), "public_root: nohooks\npath_to_index: index.html\n")
	cfg.Applications = append(cfg.Applications,
		config.Application{Location: "orders", ActiveWhen: routes.Rule{PathPrefix: "/orders"}},
		config.Application{Location: "noindex", ActiveWhen: routes.Rule{PathPrefix: "/noindex"}},
		config.Application{Location: "nohooks", ActiveWhen: routes.Rule{PathPrefix: "/nohooks"}},
		config.Application{Location: "ghost", ActiveWhen: routes.Rule{PathPrefix: "/ghost"}},
	)

	err := ValidateShell(context.Background(), cfg, catalog)
	if err == nil {
		t.Fatal("Scenario B (Broken) expected error, got nil")
	}
	msg := err.Error()
	if !strings.Contains(msg, "found 4 errors") {
		t.Errorf("expected 4 errors, got: %s", msg)
	}
	for _, want := range []string{"orders: script /orders/missing.js", "noindex:", "nohooks:", "ghost: module ghost has no manifest.yaml"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected error to mention %q, got: %s", want, msg)
		}
	}
}
