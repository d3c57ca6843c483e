// Package events routes navigation events to the listeners of the mounted application.
//
// Applications never register popstate or hashchange listeners globally. They go
// through a Router, which records them against the application and only delivers
// events to them while that application is attached.
package events

import (
	"context"
	"sync"

	"github.com/aretw0/mosaic/pkg/domain"
)

// Router owns listener registration for one host.
type Router struct {
	mu      sync.Mutex
	global  []*domain.Subscription
	mounted *domain.Application
}

// NewRouter creates a router with nothing attached.
func NewRouter() *Router {
	return &Router{}
}

func scoped(kind domain.EventKind) bool {
	return kind == domain.EventPopState || kind == domain.EventHashChange
}

// AddListener registers fn. Navigation listeners added while an application is
// attached are recorded against it; everything else is global.
func (r *Router) AddListener(kind domain.EventKind, fn domain.Listener) func() {
	r.mu.Lock()
	app := r.mounted
	r.mu.Unlock()

	if app != nil && scoped(kind) {
		return r.add(app, kind, fn)
	}
	return r.add(nil, kind, fn)
}

// For returns a registrar that records navigation listeners against app,
// whether or not it is attached yet.
func (r *Router) For(app *domain.Application) domain.ListenerRegistrar {
	return appRegistrar{r: r, app: app}
}

type appRegistrar struct {
	r   *Router
	app *domain.Application
}

func (a appRegistrar) AddListener(kind domain.EventKind, fn domain.Listener) func() {
	if !scoped(kind) {
		return a.r.add(nil, kind, fn)
	}
	return a.r.add(a.app, kind, fn)
}

func (r *Router) add(app *domain.Application, kind domain.EventKind, fn domain.Listener) func() {
	sub := &domain.Subscription{Kind: kind, Fn: fn}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case app == nil:
		r.global = append(r.global, sub)
	case kind == domain.EventPopState:
		app.PopStateListeners = append(app.PopStateListeners, sub)
	default:
		app.HashChangeListeners = append(app.HashChangeListeners, sub)
	}

	return func() { r.remove(app, sub) }
}

func (r *Router) remove(app *domain.Application, sub *domain.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case app == nil:
		r.global = without(r.global, sub)
	case sub.Kind == domain.EventPopState:
		app.PopStateListeners = without(app.PopStateListeners, sub)
	default:
		app.HashChangeListeners = without(app.HashChangeListeners, sub)
	}
}

func without(subs []*domain.Subscription, sub *domain.Subscription) []*domain.Subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s != sub {
			out = append(out, s)
		}
	}
	return out
}

// Attach makes app's listeners live.
func (r *Router) Attach(app *domain.Application) {
	r.mu.Lock()
	r.mounted = app
	r.mu.Unlock()
}

// Detach silences app's listeners. Its registrations are kept for the next attach.
func (r *Router) Detach(app *domain.Application) {
	r.mu.Lock()
	if r.mounted == app {
		r.mounted = nil
	}
	r.mu.Unlock()
}

// Attached returns the application whose listeners are live, or nil.
func (r *Router) Attached() *domain.Application {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mounted
}

// Batch is a set of listener calls collected under the router lock. Run it
// once every lock held by the caller is released, so listeners may navigate.
type Batch struct {
	ev   *domain.NavigationEvent
	subs []*domain.Subscription
}

// Then returns a batch that runs b's listeners followed by next's. Both must
// carry the same event.
func (b Batch) Then(next Batch) Batch {
	if b.ev == nil {
		return next
	}
	return Batch{ev: b.ev, subs: append(append([]*domain.Subscription(nil), b.subs...), next.subs...)}
}

// Len reports how many listeners the batch will call.
func (b Batch) Len() int {
	return len(b.subs)
}

// Run calls every collected listener in order.
func (b Batch) Run(ctx context.Context) {
	for _, s := range b.subs {
		s.Fn(ctx, b.ev)
	}
}

// CollectGlobal gathers the listeners of ev's kind that are not scoped to an application.
func (r *Router) CollectGlobal(ev *domain.NavigationEvent) Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Batch{ev: ev, subs: matching(r.global, ev.Kind)}
}

// CollectScoped gathers the attached application's listeners of ev's kind, in registration order.
func (r *Router) CollectScoped(ev *domain.NavigationEvent) Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := Batch{ev: ev}
	if r.mounted != nil {
		b.subs = matching(r.mounted.Listeners(ev.Kind), ev.Kind)
	}
	return b
}

// DispatchGlobal delivers ev to listeners that are not scoped to an application.
func (r *Router) DispatchGlobal(ctx context.Context, ev *domain.NavigationEvent) {
	r.CollectGlobal(ev).Run(ctx)
}

// DispatchScoped delivers ev to the attached application's listeners, in registration order.
func (r *Router) DispatchScoped(ctx context.Context, ev *domain.NavigationEvent) {
	r.CollectScoped(ev).Run(ctx)
}

func matching(subs []*domain.Subscription, kind domain.EventKind) []*domain.Subscription {
	var out []*domain.Subscription
	for _, s := range subs {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}
