package mosaic

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
	"github.com/aretw0/mosaic/internal/runtime"
	"github.com/aretw0/mosaic/pkg/assets"
	"github.com/aretw0/mosaic/pkg/dom"
	"github.com/aretw0/mosaic/pkg/domain"
	"github.com/aretw0/mosaic/pkg/events"
	"github.com/aretw0/mosaic/pkg/ports"
	"github.com/aretw0/mosaic/pkg/registry"
	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// DefaultURL is where a host starts when no initial URL is configured.
const DefaultURL = "http://localhost/"

// ErrNoHistory is returned by Back when there is no earlier entry.
var ErrNoHistory = errors.New("no earlier history entry")

// UnhandledRouteHandler is notified when no application owns the current URL.
// It runs while the navigation is in progress and must not call back into the
// Host synchronously; start a goroutine to redirect. Lifecycle hooks are bound
// the same way. Navigation listeners run after the navigation settles and may
// call the Host directly.
type UnhandledRouteHandler = runtime.UnhandledRouteHandler

// Host is one page: a live document, the declared applications and a history.
// It is safe for concurrent use. Navigations are applied one at a time.
type Host struct {
	orch *runtime.Orchestrator

	modules  ports.ModuleLoader
	fetcher  ports.IndexFetcher
	runner   ports.ScriptRunner
	prefixer ports.URLPrefixer
	reloader ports.SourceReloader
	store    ports.SnapshotStore
	hooks    domain.LifecycleHooks
	logger   *slog.Logger

	sessionID  string
	initialURL string

	// navMu serializes history changes with the navigation they trigger.
	navMu   sync.Mutex
	histMu  sync.RWMutex
	current *url.URL
	history []string
}

// Option defines a functional option for configuring the Host.
type Option func(*Host)

// WithLogger sets a custom structured logger for the host.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithModuleLoader sets how a declared location is turned into a manifest.
func WithModuleLoader(m ports.ModuleLoader) Option {
	return func(h *Host) {
		h.modules = m
	}
}

// WithIndexFetcher sets how index documents are retrieved.
func WithIndexFetcher(f ports.IndexFetcher) Option {
	return func(h *Host) {
		h.fetcher = f
	}
}

// WithScriptRunner sets what executes injected scripts.
func WithScriptRunner(r ports.ScriptRunner) Option {
	return func(h *Host) {
		h.runner = r
	}
}

// WithPrefixer overrides the asset URL rewriter. The default is rooted at the initial URL's origin.
func WithPrefixer(p ports.URLPrefixer) Option {
	return func(h *Host) {
		h.prefixer = p
	}
}

// WithSourceReloader sets the step UpdateApplicationSourceCode runs between its hooks.
func WithSourceReloader(r ports.SourceReloader) Option {
	return func(h *Host) {
		h.reloader = r
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(h *Host) {
		h.hooks = hooks
	}
}

// WithStore persists a snapshot after every navigation.
func WithStore(s ports.SnapshotStore) Option {
	return func(h *Host) {
		h.store = s
	}
}

// WithSessionID names the session snapshots are saved under (default: a random UUID).
func WithSessionID(id string) Option {
	return func(h *Host) {
		h.sessionID = id
	}
}

// WithInitialURL sets the URL the host starts at (default: DefaultURL).
func WithInitialURL(raw string) Option {
	return func(h *Host) {
		h.initialURL = raw
	}
}

// New creates an idle host. A module loader, an index fetcher and a script runner are required.
func New(opts ...Option) (*Host, error) {
	h := &Host{initialURL: DefaultURL}
	for _, opt := range opts {
		opt(h)
	}

	switch {
	case h.modules == nil:
		return nil, errors.New("a module loader is required")
	case h.fetcher == nil:
		return nil, errors.New("an index fetcher is required")
	case h.runner == nil:
		return nil, errors.New("a script runner is required")
	}

	start, err := url.Parse(h.initialURL)
	if err != nil || !start.IsAbs() {
		return nil, fmt.Errorf("initial url %q must be absolute", h.initialURL)
	}
	h.current = start
	h.history = []string{start.String()}

	if h.prefixer == nil {
		p, err := assets.New(start.Scheme + "://" + start.Host + "/")
		if err != nil {
			return nil, err
		}
		h.prefixer = p
	}
	if h.sessionID == "" {
		h.sessionID = uuid.NewString()
	}
	if h.logger == nil {
		h.logger = logging.NewNop()
	}
	h.logger = h.logger.With("session", h.sessionID)

	ld := loader.New(h.modules, h.fetcher, h.runner, h.prefixer,
		loader.WithLifecycleHooks(h.hooks),
		loader.WithLogger(h.logger),
	)
	orchOpts := []runtime.Option{
		runtime.WithLifecycleHooks(h.hooks),
		runtime.WithLogger(h.logger),
	}
	if h.reloader != nil {
		orchOpts = append(orchOpts, runtime.WithSourceReloader(h.reloader))
	}
	h.orch = runtime.NewOrchestrator(registry.NewRegistry(), ld, dom.New(), events.NewRouter(), orchOpts...)
	return h, nil
}

// SessionID returns the name snapshots are saved under.
func (h *Host) SessionID() string {
	return h.sessionID
}

// Declare registers an application and re-evaluates the current URL, so an
// application that owns it is mounted right away. The returned error is either
// a declaration error (no application returned) or the error of that re-evaluation.
func (h *Host) Declare(ctx context.Context, location string, activeWhen domain.ActivationFunc) (*domain.Application, error) {
	app, err := h.orch.Declare(location, activeWhen)
	if err != nil {
		return nil, err
	}
	if _, err := h.Trigger(ctx); err != nil {
		return app, err
	}
	return app, nil
}

// AddUnhandledRouteHandler registers an observer for URLs no application owns.
func (h *Host) AddUnhandledRouteHandler(fn UnhandledRouteHandler) error {
	return h.orch.AddUnhandledRouteHandler(fn)
}

// UpdateApplicationSourceCode runs the source-update hooks of a loaded application.
func (h *Host) UpdateApplicationSourceCode(ctx context.Context, location string) error {
	return h.orch.UpdateApplicationSourceCode(ctx, location)
}

// Trigger re-evaluates the current URL without changing history.
func (h *Host) Trigger(ctx context.Context) (domain.Outcome, error) {
	h.navMu.Lock()
	return h.applyAndUnlock(ctx, h.URL(), nil)
}

// Navigate pushes raw onto the history and resolves it. Relative URLs are
// resolved against the current one.
func (h *Host) Navigate(ctx context.Context, raw string) (domain.Outcome, error) {
	h.navMu.Lock()
	u, err := h.URL().Parse(raw)
	if err != nil {
		h.navMu.Unlock()
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	h.push(u)
	return h.applyAndUnlock(ctx, u, nil)
}

// NavigateTo follows the href of an anchor-like element.
func (h *Host) NavigateTo(ctx context.Context, el *html.Node) (domain.Outcome, error) {
	if el == nil {
		return "", errors.New("navigateTo needs an element")
	}
	href, ok := dom.Attr(el, "href")
	if !ok {
		return "", fmt.Errorf("element <%s> has no href", el.Data)
	}
	return h.Navigate(ctx, href)
}

// Back returns to the previous history entry and delivers it as a popstate event.
func (h *Host) Back(ctx context.Context) (domain.Outcome, error) {
	h.navMu.Lock()

	h.histMu.Lock()
	if len(h.history) < 2 {
		h.histMu.Unlock()
		h.navMu.Unlock()
		return "", ErrNoHistory
	}
	prev, err := url.Parse(h.history[len(h.history)-2])
	if err != nil {
		h.histMu.Unlock()
		h.navMu.Unlock()
		return "", err
	}
	h.history = h.history[:len(h.history)-1]
	h.current = prev
	h.histMu.Unlock()

	return h.applyAndUnlock(ctx, prev, &domain.NavigationEvent{Kind: domain.EventPopState, URL: prev, Timestamp: time.Now()})
}

// ChangeHash replaces the fragment of the current URL and delivers a hashchange
// event. Setting the fragment it already has changes nothing.
func (h *Host) ChangeHash(ctx context.Context, fragment string) (domain.Outcome, error) {
	h.navMu.Lock()

	u := *h.URL()
	if u.Fragment == fragment {
		h.navMu.Unlock()
		return domain.OutcomeUnchanged, nil
	}
	u.Fragment = fragment
	u.RawFragment = ""
	h.push(&u)
	return h.applyAndUnlock(ctx, &u, &domain.NavigationEvent{Kind: domain.EventHashChange, URL: &u, Timestamp: time.Now()})
}

// Resume restores the stored session's history and navigates to its URL.
func (h *Host) Resume(ctx context.Context) (domain.Outcome, error) {
	if h.store == nil {
		return "", errors.New("no snapshot store configured")
	}
	snap, err := h.store.Load(ctx, h.sessionID)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(snap.URL)
	if err != nil {
		return "", fmt.Errorf("snapshot url %q: %w", snap.URL, err)
	}

	h.navMu.Lock()

	h.histMu.Lock()
	h.current = u
	h.history = append([]string(nil), snap.History...)
	if len(h.history) == 0 {
		h.history = []string{u.String()}
	}
	h.histMu.Unlock()

	h.logger.Info("session resumed", "url", u.String(), "entries", len(h.history))
	return h.applyAndUnlock(ctx, u, nil)
}

func (h *Host) push(u *url.URL) {
	h.histMu.Lock()
	h.current = u
	h.history = append(h.history, u.String())
	h.histMu.Unlock()
}

// applyAndUnlock hands u to the orchestrator, persists the result and releases
// navMu, which the caller must hold. Listeners owed by ev run last, with no lock
// held, so they may navigate.
func (h *Host) applyAndUnlock(ctx context.Context, u *url.URL, ev *domain.NavigationEvent) (domain.Outcome, error) {
	outcome, batch, err := h.orch.Apply(ctx, u, ev)
	if saveErr := h.persist(ctx); saveErr != nil {
		err = errors.Join(err, fmt.Errorf("persist snapshot: %w", saveErr))
	}
	h.navMu.Unlock()

	batch.Run(ctx)
	return outcome, err
}

func (h *Host) persist(ctx context.Context) error {
	if h.store == nil {
		return nil
	}
	return h.store.Save(ctx, h.sessionID, h.Snapshot())
}

// Snapshot returns the current session state.
func (h *Host) Snapshot() *domain.Snapshot {
	snap := domain.NewSnapshot(h.sessionID, h.URL().String())
	snap.History = h.History()
	if m := h.orch.Mounted(); m != nil {
		snap.Mounted = m.Location
	}
	return snap
}

// URL returns the current URL.
func (h *Host) URL() *url.URL {
	h.histMu.RLock()
	defer h.histMu.RUnlock()
	u := *h.current
	return &u
}

// History returns the history entries, oldest first.
func (h *Host) History() []string {
	h.histMu.RLock()
	defer h.histMu.RUnlock()
	return append([]string(nil), h.history...)
}

// Mounted returns the mounted application, or nil when idle. Only its Location
// and ParentLocation may be read while navigations run; use Applications for the rest.
func (h *Host) Mounted() *domain.Application {
	return h.orch.Mounted()
}

// Applications returns a copy of every declared application in declaration order.
func (h *Host) Applications() []domain.ApplicationInfo {
	return h.orch.Applications()
}

// AddListener registers a navigation listener. Popstate and hashchange listeners
// added while an application is mounted belong to that application.
func (h *Host) AddListener(kind domain.EventKind, fn domain.Listener) func() {
	return h.orch.Router().AddListener(kind, fn)
}

// Render writes the live document.
func (h *Host) Render(w io.Writer) error {
	return h.orch.Render(w)
}
