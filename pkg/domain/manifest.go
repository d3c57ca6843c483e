package domain

import "fmt"

// Lifecycles is what a module exports under "lifecycles": either one hook set
// or an ordered list. It is normalized once, at load time.
type Lifecycles struct {
	single HookSet
	list   []HookSet
	isList bool
}

// SingleHookSet wraps one hook set.
func SingleHookSet(hs HookSet) Lifecycles {
	return Lifecycles{single: hs}
}

// HookSetList wraps an ordered list of hook sets.
func HookSetList(hs ...HookSet) Lifecycles {
	return Lifecycles{list: hs, isList: true}
}

// IsList reports whether the module exported a list.
func (l Lifecycles) IsList() bool {
	return l.isList
}

// Normalize returns the hook sets as one ordered list.
func (l Lifecycles) Normalize() []HookSet {
	if l.isList {
		out := make([]HookSet, len(l.list))
		copy(out, l.list)
		return out
	}
	if l.single == nil {
		return nil
	}
	return []HookSet{l.single}
}

// Manifest is the module contract consumed on an application's first activation.
type Manifest struct {
	PublicRoot  string
	PathToIndex string
	Lifecycles  Lifecycles
}

// Validate checks the manifest exported for location and returns its normalized hook sets.
func (m *Manifest) Validate(location string) ([]HookSet, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: app %s did not export a manifest", ErrInvalidManifest, location)
	}
	if m.PublicRoot == "" {
		return nil, fmt.Errorf("%w: app %s must export a publicRoot string", ErrInvalidManifest, location)
	}
	if m.PathToIndex == "" {
		return nil, fmt.Errorf("%w: app %s must export a pathToIndex string", ErrInvalidManifest, location)
	}
	hookSets := m.Lifecycles.Normalize()
	if len(hookSets) == 0 {
		return nil, fmt.Errorf("%w: app %s must export a 'lifecycles' object or array of objects", ErrInvalidManifest, location)
	}
	for i, hs := range hookSets {
		if err := ValidateHookSet(location, i, hs); err != nil {
			return nil, err
		}
	}
	return hookSets, nil
}
