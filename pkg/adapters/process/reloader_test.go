package process

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/mosaic/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
}

func TestReloader_RunsRegisteredCommand(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	r := NewReloader(
		WithBaseDir(dir),
		WithRegistry(map[string]Command{
			"users": {
				Command:     "sh",
				Args:        []string{"-c", `printf '%s %s %s' "$MOSAIC_LOCATION" "$MOSAIC_PUBLIC_ROOT" "$BUILD_MODE" > built.txt`},
				Environment: map[string]string{"BUILD_MODE": "dev"},
			},
		}),
	)
	assert.Equal(t, []string{"users"}, r.Locations())

	app := &domain.Application{Location: "users", PublicRoot: "apps/users"}
	require.NoError(t, r.Reload(context.Background(), app))

	out, err := os.ReadFile(filepath.Join(dir, "built.txt"))
	require.NoError(t, err)
	assert.Equal(t, "users apps/users dev", string(out))
}

func TestReloader_RelativeDirIsUnderBaseDir(t *testing.T) {
	skipOnWindows(t)
	base := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(base, "users"), 0755))

	r := NewReloader(WithBaseDir(base))
	r.Register("users", Command{Command: "sh", Args: []string{"-c", "touch here"}, Dir: "users"})
	require.NoError(t, r.Reload(context.Background(), &domain.Application{Location: "users"}))

	_, err := os.Stat(filepath.Join(base, "users", "here"))
	assert.NoError(t, err)
}

func TestReloader_UnregisteredLocationIsNoop(t *testing.T) {
	r := NewReloader()
	assert.NoError(t, r.Reload(context.Background(), &domain.Application{Location: "orders"}))
	assert.Empty(t, r.Locations())
}

func TestReloader_FailureCarriesStderr(t *testing.T) {
	skipOnWindows(t)
	r := NewReloader()
	r.Register("users", Command{Command: "sh", Args: []string{"-c", "echo bundle broken >&2; exit 3"}})

	err := r.Reload(context.Background(), &domain.Application{Location: "users"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bundle broken")
}

func TestReloader_Timeout(t *testing.T) {
	skipOnWindows(t)
	r := NewReloader(WithTimeout(50 * time.Millisecond))
	r.Register("users", Command{Command: "sleep", Args: []string{"5"}})

	start := time.Now()
	err := r.Reload(context.Background(), &domain.Application{Location: "users"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
}
