// Package process runs allow-listed local commands as the source reload step of
// UpdateApplicationSourceCode, e.g. rebuilding an application's bundle.
package process

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/mosaic/internal/logging"
	"github.com/aretw0/mosaic/pkg/domain"
)

// Reloader implements ports.SourceReloader. Only registered locations run a
// command; the others reload as a no-op.
type Reloader struct {
	registry map[string]Command
	baseDir  string
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures the reloader.
type Option func(*Reloader)

// WithRegistry registers one command per location.
func WithRegistry(commands map[string]Command) Option {
	return func(r *Reloader) {
		for location, c := range commands {
			r.Register(location, c)
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) Option {
	return func(r *Reloader) {
		r.baseDir = dir
	}
}

// WithTimeout bounds each command. Zero means only ctx bounds it.
func WithTimeout(d time.Duration) Option {
	return func(r *Reloader) {
		r.timeout = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reloader) {
		r.logger = logger
	}
}

// NewReloader creates a Reloader with an empty allow-list.
func NewReloader(opts ...Option) *Reloader {
	r := &Reloader{
		registry: make(map[string]Command),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command for location.
func (r *Reloader) Register(location string, c Command) {
	r.registry[location] = c
}

// Locations lists the registered locations, sorted.
func (r *Reloader) Locations() []string {
	out := make([]string, 0, len(r.registry))
	for loc := range r.registry {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// Reload runs the command registered for app. The application's location and
// public root are passed as MOSAIC_LOCATION and MOSAIC_PUBLIC_ROOT rather than
// as flags, so they cannot inject arguments.
func (r *Reloader) Reload(ctx context.Context, app *domain.Application) error {
	c, ok := r.registry[app.Location]
	if !ok {
		return nil
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Command, c.Args...)
	cmd.Dir = r.baseDir
	if c.Dir != "" {
		cmd.Dir = c.Dir
		if r.baseDir != "" && !filepath.IsAbs(c.Dir) {
			cmd.Dir = filepath.Join(r.baseDir, c.Dir)
		}
	}

	env := []string{"MOSAIC_LOCATION=" + app.Location, "MOSAIC_PUBLIC_ROOT=" + app.PublicRoot}
	for k, v := range c.Environment {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = append(cmd.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("reload command %s failed: %w. Stderr: %s", c.Command, err, strings.TrimSpace(stderr.String()))
	}
	r.logger.InfoContext(ctx, "application source reloaded",
		"app", app.Location, "command", c.Command, "duration", time.Since(start), "output", strings.TrimSpace(stdout.String()))
	return nil
}
