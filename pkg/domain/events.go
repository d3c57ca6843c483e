package domain

import (
	"context"
	"net/url"
	"time"
)

// EventKind is the category of a navigation event routed to applications.
type EventKind string

const (
	EventPopState   EventKind = "popstate"
	EventHashChange EventKind = "hashchange"
)

// NavigationEvent is a history or hash change entering the host.
type NavigationEvent struct {
	Kind      EventKind
	URL       *url.URL
	Timestamp time.Time
}

// Listener receives navigation events. It runs after the navigation that
// raised the event has settled, so it may start another one.
type Listener func(ctx context.Context, ev *NavigationEvent)

// Subscription is one registered listener. Its pointer identity is what removal matches on.
type Subscription struct {
	Kind EventKind
	Fn   Listener
}

// TransitionEvent describes a mount, unmount or failed transition.
type TransitionEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	URL       string        `json:"url"`
	From      string        `json:"from,omitempty"`
	To        string        `json:"to,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Err       error         `json:"-"`
}

// ScriptEvent describes one script injected into the live document.
type ScriptEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Location  string        `json:"location"`
	Src       string        `json:"src,omitempty"`
	Inline    bool          `json:"inline"`
	Duration  time.Duration `json:"duration"`
}

// RouteEvent describes a URL that no application claimed.
type RouteEvent struct {
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url"`
	Mounted   string    `json:"mounted,omitempty"`
}

// LifecycleHooks defines callbacks for host observability.
// Any field may be nil.
type LifecycleHooks struct {
	OnApplicationMounted   func(context.Context, *TransitionEvent)
	OnApplicationUnmounted func(context.Context, *TransitionEvent)
	OnTransitionFailed     func(context.Context, *TransitionEvent)
	OnScriptLoaded         func(context.Context, *ScriptEvent)
	OnUnhandledRoute       func(context.Context, *RouteEvent)
}
