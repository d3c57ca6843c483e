// Package cli wires a shell config to the host, its adapters and the commands of cmd/mosaic.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aretw0/mosaic"
	"github.com/aretw0/mosaic/internal/config"
	"github.com/aretw0/mosaic/internal/logging"
	"github.com/aretw0/mosaic/pkg/adapters/file"
	mhttp "github.com/aretw0/mosaic/pkg/adapters/http"
	"github.com/aretw0/mosaic/pkg/adapters/process"
	"github.com/aretw0/mosaic/pkg/domain"
	"github.com/aretw0/mosaic/pkg/observability"
	"github.com/aretw0/mosaic/pkg/ports"
	"github.com/aretw0/mosaic/pkg/routes"
)

// ReloadTimeout bounds one application rebuild.
const ReloadTimeout = 2 * time.Minute

// ShellOptions carries what every host of a shell shares.
type ShellOptions struct {
	Logger  *slog.Logger
	Hooks   domain.LifecycleHooks
	Store   ports.SnapshotStore
	Catalog file.Catalog
}

// DefaultCatalog lists the hook sets a manifest can name.
func DefaultCatalog(logger *slog.Logger) file.Catalog {
	return file.Catalog{
		"noop": domain.NoopHooks(),
		"log":  observability.LoggingHookSet(logger),
	}
}

// NewLogger builds the logger for the configured level.
func NewLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

// NewHost builds a host that reads applications from cfg.ModulesDir and declares
// every configured application. A declaration that only fails to mount is logged,
// so one broken application does not keep the shell from starting.
func NewHost(ctx context.Context, cfg *config.Config, sessionID string, opts ShellOptions) (*mosaic.Host, error) {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Catalog == nil {
		opts.Catalog = DefaultCatalog(opts.Logger)
	}
	origin, err := url.Parse(cfg.Origin)
	if err != nil {
		return nil, fmt.Errorf("invalid origin: %w", err)
	}

	hostOpts := []mosaic.Option{
		mosaic.WithLogger(opts.Logger),
		mosaic.WithLifecycleHooks(opts.Hooks),
		mosaic.WithModuleLoader(file.NewModules(cfg.ModulesDir, opts.Catalog)),
		mosaic.WithIndexFetcher(file.NewIndexes(cfg.AssetsDir)),
		mosaic.WithScriptRunner(file.NewScripts(cfg.AssetsDir, origin)),
		mosaic.WithInitialURL(cfg.Origin),
	}
	if sessionID != "" {
		hostOpts = append(hostOpts, mosaic.WithSessionID(sessionID))
	}
	if opts.Store != nil {
		hostOpts = append(hostOpts, mosaic.WithStore(opts.Store))
	}
	if cmds := cfg.ReloadCommands(); len(cmds) > 0 {
		hostOpts = append(hostOpts, mosaic.WithSourceReloader(process.NewReloader(
			process.WithRegistry(cmds),
			process.WithBaseDir(cfg.ModulesDir),
			process.WithTimeout(ReloadTimeout),
			process.WithLogger(opts.Logger),
		)))
	}

	host, err := mosaic.New(hostOpts...)
	if err != nil {
		return nil, err
	}

	for _, a := range cfg.Applications {
		pred, err := routes.FromRule(a.ActiveWhen)
		if err != nil {
			return nil, fmt.Errorf("application %s: %w", a.Location, err)
		}
		app, err := host.Declare(ctx, a.Location, pred)
		if app == nil {
			return nil, fmt.Errorf("application %s: %w", a.Location, err)
		}
		if err != nil {
			opts.Logger.Warn("application declared but not mounted", "location", a.Location, "err", err)
		}
	}
	return host, nil
}

// HostFactory adapts NewHost to the shell API.
func HostFactory(cfg *config.Config, opts ShellOptions) mhttp.HostFactory {
	return func(ctx context.Context, sessionID string) (*mosaic.Host, error) {
		return NewHost(ctx, cfg, sessionID, opts)
	}
}
