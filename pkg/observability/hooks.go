package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/mosaic/pkg/domain"
)

// Combine fans every event out to each set of hooks, in order. Nil fields are skipped.
func Combine(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnApplicationMounted: func(ctx context.Context, e *domain.TransitionEvent) {
			for _, h := range all {
				if h.OnApplicationMounted != nil {
					h.OnApplicationMounted(ctx, e)
				}
			}
		},
		OnApplicationUnmounted: func(ctx context.Context, e *domain.TransitionEvent) {
			for _, h := range all {
				if h.OnApplicationUnmounted != nil {
					h.OnApplicationUnmounted(ctx, e)
				}
			}
		},
		OnTransitionFailed: func(ctx context.Context, e *domain.TransitionEvent) {
			for _, h := range all {
				if h.OnTransitionFailed != nil {
					h.OnTransitionFailed(ctx, e)
				}
			}
		},
		OnScriptLoaded: func(ctx context.Context, e *domain.ScriptEvent) {
			for _, h := range all {
				if h.OnScriptLoaded != nil {
					h.OnScriptLoaded(ctx, e)
				}
			}
		},
		OnUnhandledRoute: func(ctx context.Context, e *domain.RouteEvent) {
			for _, h := range all {
				if h.OnUnhandledRoute != nil {
					h.OnUnhandledRoute(ctx, e)
				}
			}
		},
	}
}

// LoggingHookSet returns a complete hook set that logs each call at debug level.
func LoggingHookSet(logger *slog.Logger) domain.HookFuncs {
	hs := make(domain.HookFuncs, len(domain.RequiredHooks))
	for _, name := range domain.RequiredHooks {
		name := name
		hs[name] = func(ctx context.Context, p domain.Props) error {
			logger.DebugContext(ctx, "lifecycle hook", "app", p.Location, "hook", string(name))
			return nil
		}
	}
	return hs
}

// LoggingHooks returns lifecycle hooks that log transitions at info level and
// script loads at debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnApplicationMounted: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.InfoContext(ctx, "application mounted", "app", e.To, "from", e.From, "url", e.URL, "duration", e.Duration)
		},
		OnApplicationUnmounted: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.DebugContext(ctx, "application unmounted", "app", e.From, "url", e.URL)
		},
		OnTransitionFailed: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.ErrorContext(ctx, "transition failed", "from", e.From, "to", e.To, "url", e.URL, "err", e.Err)
		},
		OnScriptLoaded: func(ctx context.Context, e *domain.ScriptEvent) {
			logger.DebugContext(ctx, "script loaded", "app", e.Location, "src", e.Src, "inline", e.Inline)
		},
		OnUnhandledRoute: func(ctx context.Context, e *domain.RouteEvent) {
			logger.WarnContext(ctx, "unhandled route", "url", e.URL, "mounted", e.Mounted)
		},
	}
}
