// Package loader completes an application record on its first activation:
// it imports the manifest, fetches the index document and runs its scripts.
package loader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/mosaic/internal/logging"
	"github.com/aretw0/mosaic/pkg/dom"
	"github.com/aretw0/mosaic/pkg/domain"
	"github.com/aretw0/mosaic/pkg/ports"
)

// Loader populates applications from their modules.
type Loader struct {
	modules   ports.ModuleLoader
	fetcher   ports.IndexFetcher
	prefixer  ports.URLPrefixer
	sequencer *Sequencer
	logger    *slog.Logger
}

// Option configures the Loader.
type Option func(*config)

type config struct {
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// WithLifecycleHooks registers observability hooks (script loads).
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *config) {
		c.hooks = hooks
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// New creates a Loader.
func New(modules ports.ModuleLoader, fetcher ports.IndexFetcher, runner ports.ScriptRunner, prefixer ports.URLPrefixer, opts ...Option) *Loader {
	cfg := config{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Loader{
		modules:   modules,
		fetcher:   fetcher,
		prefixer:  prefixer,
		sequencer: NewSequencer(runner, cfg.hooks, cfg.logger),
		logger:    cfg.logger,
	}
}

// Load imports app's manifest, validates it, populates the record, then runs
// scriptsWillBeLoaded, the index load and scriptsWereLoaded in that order.
// A manifest that fails validation leaves the record untouched.
func (l *Loader) Load(ctx context.Context, app *domain.Application, live *dom.Document, props domain.Props) error {
	manifest, err := l.modules.Import(ctx, app.Location)
	if err != nil {
		return fmt.Errorf("import module %s: %w", app.Location, err)
	}
	hookSets, err := manifest.Validate(app.Location)
	if err != nil {
		return err
	}

	app.PublicRoot = manifest.PublicRoot
	app.IndexPath = manifest.PathToIndex
	app.HookSets = hookSets

	if err := domain.CallHookSets(ctx, app.HookSets, domain.HookScriptsWillBeLoaded, props); err != nil {
		return err
	}
	if err := l.loadIndex(ctx, app, live); err != nil {
		return err
	}
	return domain.CallHookSets(ctx, app.HookSets, domain.HookScriptsWereLoaded, props)
}

// loadIndex returns once the tree walk is done and every script has finished.
func (l *Loader) loadIndex(ctx context.Context, app *domain.Application, live *dom.Document) error {
	rc, err := l.fetcher.FetchIndex(ctx, app.PublicRoot, app.IndexPath)
	if err != nil {
		return fmt.Errorf("fetch index of %s: %w", app.Location, err)
	}
	defer rc.Close()

	doc, err := dom.Parse(rc)
	if err != nil {
		return fmt.Errorf("parse index of %s: %w", app.Location, err)
	}

	scripts := Prepare(doc.Root(), app.PublicRoot, l.prefixer)
	app.Tree = doc.Root()
	l.logger.Debug("index parsed", "app", app.Location, "scripts", len(scripts))

	if err := l.sequencer.Drain(ctx, app.Location, live, scripts); err != nil {
		return err
	}
	app.ScriptsLoaded = true
	return nil
}
