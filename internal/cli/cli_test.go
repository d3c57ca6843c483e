package cli_test

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/aretw0/mosaic/internal/cli"
	"github.com/aretw0/mosaic/internal/config"
	"github.com/aretw0/mosaic/pkg/adapters/process"
	"github.com/aretw0/mosaic/pkg/routes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// newShellDir lays out a shell with a users and an orders application.
func newShellDir(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	for _, loc := range []string{"users", "orders"} {
		write(t, filepath.Join(root, "modules", loc, "manifest.yaml"),
			"public_root: apps/"+loc+"\npath_to_index: index.html\nlifecycles: noop\n")
		write(t, filepath.Join(root, "public", "apps", loc, "index.html"),
			`<html><body><main>`+loc+`</main><script src="main.js"></script></body></html>`)
		write(t, filepath.Join(root, "public", "apps", loc, "main.js"), "console.log('"+loc+"')")
	}
	return &config.Config{
		Origin:     "http://localhost:8080/users",
		ModulesDir: filepath.Join(root, "modules"),
		AssetsDir:  filepath.Join(root, "public"),
		LogLevel:   "info",
		Applications: []config.Application{
			{Location: "users", ActiveWhen: routes.Rule{PathPrefix: "/users"}},
			{Location: "orders", ActiveWhen: routes.Rule{PathPrefix: "/orders"}},
		},
	}
}

func TestNewHost_DeclaresConfiguredApplications(t *testing.T) {
	cfg := newShellDir(t)
	host, err := cli.NewHost(context.Background(), cfg, "s-1", cli.ShellOptions{})
	require.NoError(t, err)

	assert.Equal(t, "s-1", host.SessionID())
	assert.Len(t, host.Applications(), 2)
	require.NotNil(t, host.Mounted())
	assert.Equal(t, "users", host.Mounted().Location)

	_, err = host.Navigate(context.Background(), "/orders")
	require.NoError(t, err)
	var buf strings.Builder
	require.NoError(t, host.Render(&buf))
	assert.Contains(t, buf.String(), "<main>orders</main>")
	assert.Contains(t, buf.String(), "http://localhost:8080/apps/orders/main.js")
}

func TestNewHost_BrokenApplicationDoesNotStopTheShell(t *testing.T) {
	cfg := newShellDir(t)
	require.NoError(t, os.Remove(filepath.Join(cfg.ModulesDir, "users", "manifest.yaml")))

	host, err := cli.NewHost(context.Background(), cfg, "", cli.ShellOptions{})
	require.NoError(t, err)
	assert.Nil(t, host.Mounted())
	assert.NotEmpty(t, host.SessionID())
}

func TestNewHost_RejectsInvalidRule(t *testing.T) {
	cfg := newShellDir(t)
	cfg.Applications = append(cfg.Applications, config.Application{Location: "empty"})
	_, err := cli.NewHost(context.Background(), cfg, "", cli.ShellOptions{})
	assert.ErrorIs(t, err, routes.ErrEmptyRule)
}

func TestBuildReport(t *testing.T) {
	cfg := newShellDir(t)
	cfg.Applications = append(cfg.Applications, config.Application{Location: "legacy", ActiveWhen: routes.Rule{PathPrefix: "/orders/old"}})

	rep, err := cli.BuildReport(cfg, []string{"/users/1", "/orders/old/9", "/nowhere"})
	require.NoError(t, err)
	require.Len(t, rep.Results, 3)

	assert.Equal(t, []string{"users"}, rep.Results[0].Owners)
	assert.Equal(t, "http://localhost:8080/users/1", rep.Results[0].URL)
	assert.True(t, rep.Results[1].Conflict())
	assert.Equal(t, []string{"legacy", "orders"}, rep.Results[1].Owners)
	assert.True(t, rep.Results[2].Unhandled())
	assert.True(t, rep.HasConflict())

	md := rep.Markdown()
	assert.Contains(t, md, "3 applications declared.")
	assert.Contains(t, md, "| `http://localhost:8080/users/1` | users |")
	assert.Contains(t, md, "**conflict**: legacy, orders")
	assert.Contains(t, md, "_unhandled_")

	mm := rep.Mermaid()
	assert.Contains(t, mm, "app_users([\"users\"])")
	assert.Contains(t, mm, "-- conflict --> app_legacy")
}

func TestBuildReport_NoConflict(t *testing.T) {
	rep, err := cli.BuildReport(newShellDir(t), []string{"/users"})
	require.NoError(t, err)
	assert.False(t, rep.HasConflict())
}

func TestServeHandler(t *testing.T) {
	cfg := newShellDir(t)
	reg := prometheus.NewRegistry()
	metrics, err := cli.NewMetrics(reg)
	require.NoError(t, err)

	backend, err := cli.OpenBackend(cfg, filepath.Join(t.TempDir(), "sessions"), nil)
	require.NoError(t, err)
	defer backend.Close()

	api := cli.NewShellAPI(cfg, backend, cli.ShellOptions{Hooks: metrics.Hooks()})
	srv := httptest.NewServer(cli.NewServeHandler(cfg, api, reg))
	defer srv.Close()

	get := func(path string) (int, string) {
		resp, err := srv.Client().Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	resp, err := srv.Client().Post(srv.URL+"/api/sessions", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	ids, err := backend.Store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	status, body := get("/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `mosaic_transitions_total{app="users",result="mounted"} 1`)

	status, body = get("/apps/users/main.js")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "console.log('users')")

	status, _ = get("/healthz")
	assert.Equal(t, http.StatusOK, status)
}

func TestCheckDirs(t *testing.T) {
	cfg := newShellDir(t)
	assert.Empty(t, cli.CheckDirs(cfg))
	cfg.AssetsDir = filepath.Join(t.TempDir(), "missing")
	assert.Equal(t, []string{cfg.AssetsDir}, cli.CheckDirs(cfg))
}

func TestOpenBackend_SealsAndMasksSnapshots(t *testing.T) {
	cfg := newShellDir(t)
	cfg.Sessions = &config.Sessions{MaskQuery: []string{"token"}, EncryptionKeyEnv: "MOSAIC_CLI_TEST_KEY"}
	t.Setenv("MOSAIC_CLI_TEST_KEY", base64.StdEncoding.EncodeToString(make([]byte, 32)))
	dir := filepath.Join(t.TempDir(), "sessions")

	backend, err := cli.OpenBackend(cfg, dir, nil)
	require.NoError(t, err)
	ctx := context.Background()

	host, err := cli.NewHost(ctx, cfg, "sealed", cli.ShellOptions{Store: backend.Store})
	require.NoError(t, err)
	_, err = host.Navigate(ctx, "/orders?token=abc")
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "sealed.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "orders")
	assert.Contains(t, string(raw), `"sealed"`)

	snap, err := backend.Store.Load(ctx, "sealed")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/orders?token=%2A%2A%2A", snap.URL)
	assert.Equal(t, "orders", snap.Mounted)
}

func TestOpenBackend_BadKey(t *testing.T) {
	cfg := newShellDir(t)
	cfg.Sessions = &config.Sessions{EncryptionKeyEnv: "MOSAIC_CLI_MISSING_KEY"}
	t.Setenv("MOSAIC_CLI_MISSING_KEY", "")
	_, err := cli.OpenBackend(cfg, t.TempDir(), nil)
	assert.ErrorContains(t, err, "is empty")
}

func TestNewHost_WiresReloadCommands(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	cfg := newShellDir(t)
	cfg.Applications[0].Reload = &process.Command{Command: "sh", Args: []string{"-c", "touch rebuilt"}, Dir: "users"}

	ctx := context.Background()
	host, err := cli.NewHost(ctx, cfg, "", cli.ShellOptions{})
	require.NoError(t, err)
	require.NoError(t, host.UpdateApplicationSourceCode(ctx, "users"))

	_, err = os.Stat(filepath.Join(cfg.ModulesDir, "users", "rebuilt"))
	assert.NoError(t, err)
}
