package domain

import (
	"context"
	"fmt"
)

// HookName identifies one of the eight lifecycle hooks.
type HookName string

const (
	HookScriptsWillBeLoaded               HookName = "scriptsWillBeLoaded"
	HookScriptsWereLoaded                 HookName = "scriptsWereLoaded"
	HookApplicationWillMount              HookName = "applicationWillMount"
	HookApplicationWasMounted             HookName = "applicationWasMounted"
	HookApplicationWillUnmount            HookName = "applicationWillUnmount"
	HookApplicationWasUnmounted           HookName = "applicationWasUnmounted"
	HookActiveApplicationSourceWillUpdate HookName = "activeApplicationSourceWillUpdate"
	HookActiveApplicationSourceWasUpdated HookName = "activeApplicationSourceWasUpdated"
)

// RequiredHooks lists every hook a hook set must implement.
var RequiredHooks = []HookName{
	HookScriptsWillBeLoaded,
	HookScriptsWereLoaded,
	HookApplicationWillMount,
	HookApplicationWasMounted,
	HookApplicationWillUnmount,
	HookApplicationWasUnmounted,
	HookActiveApplicationSourceWillUpdate,
	HookActiveApplicationSourceWasUpdated,
}

// ListenerRegistrar lets an application register navigation listeners scoped to itself.
type ListenerRegistrar interface {
	// AddListener records fn for the given kind and returns a function that removes it.
	AddListener(kind EventKind, fn Listener) (remove func())
}

// Props are passed to every hook invocation.
type Props struct {
	Location  string
	Listeners ListenerRegistrar
}

// HookSet is the lifecycle contract exported by an application module.
// Each hook returns once that phase's work is done.
type HookSet interface {
	ScriptsWillBeLoaded(ctx context.Context, props Props) error
	ScriptsWereLoaded(ctx context.Context, props Props) error
	ApplicationWillMount(ctx context.Context, props Props) error
	ApplicationWasMounted(ctx context.Context, props Props) error
	ApplicationWillUnmount(ctx context.Context, props Props) error
	ApplicationWasUnmounted(ctx context.Context, props Props) error
	ActiveApplicationSourceWillUpdate(ctx context.Context, props Props) error
	ActiveApplicationSourceWasUpdated(ctx context.Context, props Props) error
}

// HookFunc is the signature of a single lifecycle hook. Hooks run inside a
// transition; one that needs to navigate must do so from another goroutine.
type HookFunc func(ctx context.Context, props Props) error

// HookFuncs adapts a map of plain functions into a HookSet.
// Every required hook must be present; Validate reports the first one missing.
type HookFuncs map[HookName]HookFunc

func (h HookFuncs) call(ctx context.Context, name HookName, props Props) error {
	fn, ok := h[name]
	if !ok || fn == nil {
		return fmt.Errorf("%w: %s", ErrMissingHook, name)
	}
	return fn(ctx, props)
}

func (h HookFuncs) ScriptsWillBeLoaded(ctx context.Context, p Props) error {
	return h.call(ctx, HookScriptsWillBeLoaded, p)
}

func (h HookFuncs) ScriptsWereLoaded(ctx context.Context, p Props) error {
	return h.call(ctx, HookScriptsWereLoaded, p)
}

func (h HookFuncs) ApplicationWillMount(ctx context.Context, p Props) error {
	return h.call(ctx, HookApplicationWillMount, p)
}

func (h HookFuncs) ApplicationWasMounted(ctx context.Context, p Props) error {
	return h.call(ctx, HookApplicationWasMounted, p)
}

func (h HookFuncs) ApplicationWillUnmount(ctx context.Context, p Props) error {
	return h.call(ctx, HookApplicationWillUnmount, p)
}

func (h HookFuncs) ApplicationWasUnmounted(ctx context.Context, p Props) error {
	return h.call(ctx, HookApplicationWasUnmounted, p)
}

func (h HookFuncs) ActiveApplicationSourceWillUpdate(ctx context.Context, p Props) error {
	return h.call(ctx, HookActiveApplicationSourceWillUpdate, p)
}

func (h HookFuncs) ActiveApplicationSourceWasUpdated(ctx context.Context, p Props) error {
	return h.call(ctx, HookActiveApplicationSourceWasUpdated, p)
}

// MissingHooks returns the required hooks absent from the map, in canonical order.
func (h HookFuncs) MissingHooks() []HookName {
	var missing []HookName
	for _, name := range RequiredHooks {
		if fn, ok := h[name]; !ok || fn == nil {
			missing = append(missing, name)
		}
	}
	return missing
}

// NoopHooks returns a HookFuncs whose hooks all succeed immediately.
func NoopHooks() HookFuncs {
	h := make(HookFuncs, len(RequiredHooks))
	for _, name := range RequiredHooks {
		h[name] = func(context.Context, Props) error { return nil }
	}
	return h
}

// InvokeHook calls the named hook on a single hook set.
func InvokeHook(ctx context.Context, hs HookSet, name HookName, props Props) error {
	switch name {
	case HookScriptsWillBeLoaded:
		return hs.ScriptsWillBeLoaded(ctx, props)
	case HookScriptsWereLoaded:
		return hs.ScriptsWereLoaded(ctx, props)
	case HookApplicationWillMount:
		return hs.ApplicationWillMount(ctx, props)
	case HookApplicationWasMounted:
		return hs.ApplicationWasMounted(ctx, props)
	case HookApplicationWillUnmount:
		return hs.ApplicationWillUnmount(ctx, props)
	case HookApplicationWasUnmounted:
		return hs.ApplicationWasUnmounted(ctx, props)
	case HookActiveApplicationSourceWillUpdate:
		return hs.ActiveApplicationSourceWillUpdate(ctx, props)
	case HookActiveApplicationSourceWasUpdated:
		return hs.ActiveApplicationSourceWasUpdated(ctx, props)
	}
	return fmt.Errorf("unknown lifecycle hook %q", name)
}

// ValidateHookSet checks that the hook set at the given index can serve every required hook.
func ValidateHookSet(location string, index int, hs HookSet) error {
	if hs == nil {
		return fmt.Errorf("%w: in app '%s', the lifecycle at index %d is nil", ErrMissingHook, location, index)
	}
	if partial, ok := hs.(interface{ MissingHooks() []HookName }); ok {
		if missing := partial.MissingHooks(); len(missing) > 0 {
			return fmt.Errorf("%w: in app '%s', the lifecycle at index %d does not have required function %s",
				ErrMissingHook, location, index, missing[0])
		}
	}
	return nil
}

// CallHookSets invokes the named hook on each hook set in order, waiting for each
// to return before starting the next. It stops at the first failure.
func CallHookSets(ctx context.Context, sets []HookSet, name HookName, props Props) error {
	for i, hs := range sets {
		if err := InvokeHook(ctx, hs, name, props); err != nil {
			return fmt.Errorf("%s on lifecycle %d: %w", name, i, err)
		}
	}
	return nil
}
