// Package runtime holds the lifecycle orchestrator: the only component that
// changes which application is mounted.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/aretw0/mosaic/internal/loader"
	"github.com/aretw0/mosaic/internal/logging"
	"github.com/aretw0/mosaic/pkg/dom"
	"github.com/aretw0/mosaic/pkg/domain"
	"github.com/aretw0/mosaic/pkg/events"
	"github.com/aretw0/mosaic/pkg/ports"
	"github.com/aretw0/mosaic/pkg/registry"
)

// UnhandledRouteHandler is notified when no application owns a URL.
// It runs inside the navigation; it must not navigate synchronously.
type UnhandledRouteHandler func(ctx context.Context, mounted *domain.Application, u *url.URL)

// Orchestrator is the transition state machine. Transitions are serialized:
// a navigation that arrives while another runs waits for it to settle.
type Orchestrator struct {
	mu sync.Mutex

	registry *registry.Registry
	loader   *loader.Loader
	doc      *dom.Document
	router   *events.Router
	reloader ports.SourceReloader

	stateMu   sync.RWMutex
	mounted   *domain.Application
	unhandled []UnhandledRouteHandler

	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = hooks
	}
}

// WithSourceReloader sets the step run between the two source-update hooks.
func WithSourceReloader(r ports.SourceReloader) Option {
	return func(o *Orchestrator) {
		o.reloader = r
	}
}

// NewOrchestrator creates an idle orchestrator: nothing mounted, blank document.
func NewOrchestrator(reg *registry.Registry, ld *loader.Loader, doc *dom.Document, router *events.Router, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: reg,
		loader:   ld,
		doc:      doc,
		router:   router,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Mounted returns the mounted application, or nil when idle.
func (o *Orchestrator) Mounted() *domain.Application {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.mounted
}

func (o *Orchestrator) setMounted(app *domain.Application) {
	o.stateMu.Lock()
	o.mounted = app
	o.stateMu.Unlock()
}

// Declare registers an application. Its parent is the application mounted once
// any running transition has settled.
func (o *Orchestrator) Declare(location string, activeWhen domain.ActivationFunc) (*domain.Application, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var parent string
	if m := o.Mounted(); m != nil {
		parent = m.Location
	}
	app, err := o.registry.Declare(location, activeWhen, parent)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("application declared", "app", location, "parent", parent)
	return app, nil
}

// AddUnhandledRouteHandler registers an observer for URLs no application owns.
func (o *Orchestrator) AddUnhandledRouteHandler(h UnhandledRouteHandler) error {
	if h == nil {
		return errors.New("the first argument must be a handler function")
	}
	o.stateMu.Lock()
	o.unhandled = append(o.unhandled, h)
	o.stateMu.Unlock()
	return nil
}

// Navigate runs one transition for u, then delivers ev to its listeners.
// ev is nil for explicit triggers and carries the popstate or hashchange event otherwise.
func (o *Orchestrator) Navigate(ctx context.Context, u *url.URL, ev *domain.NavigationEvent) (domain.Outcome, error) {
	outcome, batch, err := o.Apply(ctx, u, ev)
	batch.Run(ctx)
	return outcome, err
}

// Apply runs one transition for u and returns the listener calls ev still owes:
// the global listeners, then those of the mounted application when it stayed
// mounted. Callers run the batch after releasing their own locks.
func (o *Orchestrator) Apply(ctx context.Context, u *url.URL, ev *domain.NavigationEvent) (domain.Outcome, events.Batch, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", events.Batch{}, err
	}
	var batch events.Batch
	if ev != nil {
		batch = o.router.CollectGlobal(ev)
	}

	target, err := o.registry.Resolve(u)
	if err != nil {
		o.logger.Error("cannot resolve application", "url", u.String(), "err", err)
		return "", batch, err
	}

	mounted := o.Mounted()
	if target == nil {
		o.notifyUnhandled(ctx, mounted, u)
		return domain.OutcomeUnhandled, batch, nil
	}

	if target == mounted {
		if ev == nil {
			return domain.OutcomeUnchanged, batch, nil
		}
		return domain.OutcomeDispatched, batch.Then(o.router.CollectScoped(ev)), nil
	}

	start := time.Now()
	if err := o.transition(ctx, mounted, target); err != nil {
		o.logger.Error("transition failed", "url", u.String(), "from", location(mounted), "to", target.Location, "err", err)
		if o.hooks.OnTransitionFailed != nil {
			o.hooks.OnTransitionFailed(ctx, &domain.TransitionEvent{
				Timestamp: time.Now(), URL: u.String(), From: location(mounted), To: target.Location,
				Duration: time.Since(start), Err: err,
			})
		}
		return "", batch, err
	}

	o.logger.Info("application mounted", "url", u.String(), "from", location(mounted), "to", target.Location, "duration", time.Since(start))
	if o.hooks.OnApplicationMounted != nil {
		o.hooks.OnApplicationMounted(ctx, &domain.TransitionEvent{
			Timestamp: time.Now(), URL: u.String(), From: location(mounted), To: target.Location,
			Duration: time.Since(start),
		})
	}
	return domain.OutcomeMounted, batch, nil
}

func (o *Orchestrator) notifyUnhandled(ctx context.Context, mounted *domain.Application, u *url.URL) {
	o.stateMu.RLock()
	handlers := append([]UnhandledRouteHandler(nil), o.unhandled...)
	o.stateMu.RUnlock()

	o.logger.Warn("no application matches the url", "url", u.String(), "handlers", len(handlers))
	for _, h := range handlers {
		h(ctx, mounted, u)
	}
	if o.hooks.OnUnhandledRoute != nil {
		o.hooks.OnUnhandledRoute(ctx, &domain.RouteEvent{Timestamp: time.Now(), URL: u.String(), Mounted: location(mounted)})
	}
}

// transition unmounts from (if any), loads to on first activation, then mounts it.
// On failure after teardown has begun, the host settles idle with a blank document.
func (o *Orchestrator) transition(ctx context.Context, from, to *domain.Application) error {
	if from != nil {
		if err := o.unmount(ctx, from); err != nil {
			return err
		}
	}

	if !to.ScriptsLoaded {
		if err := o.loader.Load(ctx, to, o.doc, o.props(to)); err != nil {
			o.abort()
			return &domain.TransitionError{Phase: domain.PhaseLoad, Location: to.Location, Err: err}
		}
	}

	if err := o.mount(ctx, to); err != nil {
		o.abort()
		return &domain.TransitionError{Phase: domain.PhaseMount, Location: to.Location, Err: err}
	}
	o.setMounted(to)
	return nil
}

func (o *Orchestrator) unmount(ctx context.Context, app *domain.Application) error {
	props := o.props(app)
	if err := domain.CallHookSets(ctx, app.HookSets, domain.HookApplicationWillUnmount, props); err != nil {
		// Nothing has been torn down yet: the application stays mounted.
		return &domain.TransitionError{Phase: domain.PhaseUnmount, Location: app.Location, Err: err}
	}

	o.doc.Reset()
	o.router.Detach(app)
	o.setMounted(nil)

	if err := domain.CallHookSets(ctx, app.HookSets, domain.HookApplicationWasUnmounted, props); err != nil {
		return &domain.TransitionError{Phase: domain.PhaseUnmount, Location: app.Location, Err: err}
	}

	o.logger.Debug("application unmounted", "app", app.Location)
	if o.hooks.OnApplicationUnmounted != nil {
		o.hooks.OnApplicationUnmounted(ctx, &domain.TransitionEvent{Timestamp: time.Now(), From: app.Location})
	}
	return nil
}

func (o *Orchestrator) mount(ctx context.Context, app *domain.Application) error {
	props := o.props(app)
	if err := domain.CallHookSets(ctx, app.HookSets, domain.HookApplicationWillMount, props); err != nil {
		return err
	}
	o.router.Attach(app)
	if err := o.doc.Graft(app); err != nil {
		return err
	}
	return domain.CallHookSets(ctx, app.HookSets, domain.HookApplicationWasMounted, props)
}

func (o *Orchestrator) abort() {
	o.doc.Reset()
	if app := o.router.Attached(); app != nil {
		o.router.Detach(app)
	}
	o.setMounted(nil)
}

func (o *Orchestrator) props(app *domain.Application) domain.Props {
	return domain.Props{Location: app.Location, Listeners: o.router.For(app)}
}

// UpdateApplicationSourceCode runs activeApplicationSourceWillUpdate, the configured
// reload step, then activeApplicationSourceWasUpdated for the named application.
func (o *Orchestrator) UpdateApplicationSourceCode(ctx context.Context, loc string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	app, err := o.registry.Get(loc)
	if err != nil {
		return err
	}
	if !app.Loaded() {
		return fmt.Errorf("%w: %s", domain.ErrApplicationNotLoaded, loc)
	}

	props := o.props(app)
	if err := domain.CallHookSets(ctx, app.HookSets, domain.HookActiveApplicationSourceWillUpdate, props); err != nil {
		return &domain.TransitionError{Phase: domain.PhaseUpdate, Location: loc, Err: err}
	}
	if o.reloader != nil {
		if err := o.reloader.Reload(ctx, app); err != nil {
			return &domain.TransitionError{Phase: domain.PhaseUpdate, Location: loc, Err: err}
		}
	}
	if err := domain.CallHookSets(ctx, app.HookSets, domain.HookActiveApplicationSourceWasUpdated, props); err != nil {
		return &domain.TransitionError{Phase: domain.PhaseUpdate, Location: loc, Err: err}
	}
	o.logger.Info("application source updated", "app", loc)
	return nil
}

// Render writes the live document. It waits for any running transition.
func (o *Orchestrator) Render(w io.Writer) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.doc.Render(w)
}

// Router returns the event router applications register listeners with.
func (o *Orchestrator) Router() *events.Router {
	return o.router
}

// Applications returns a copy of every record in declaration order. It waits for
// any running transition, so the copies are never half loaded.
func (o *Orchestrator) Applications() []domain.ApplicationInfo {
	o.mu.Lock()
	defer o.mu.Unlock()

	mounted := o.Mounted()
	apps := o.registry.List()
	out := make([]domain.ApplicationInfo, len(apps))
	for i, app := range apps {
		out[i] = app.Info()
		out[i].Mounted = app == mounted
	}
	return out
}

func location(app *domain.Application) string {
	if app == nil {
		return ""
	}
	return app.Location
}
