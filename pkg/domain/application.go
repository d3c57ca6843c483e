package domain

import (
	"net/url"

	"golang.org/x/net/html"
)

// ActivationFunc decides whether an application owns the given URL.
type ActivationFunc func(u *url.URL) bool

// Application is the record kept for every declared location.
// It is created partially at declaration and completed on first activation.
// Location, ActiveWhen and ParentLocation never change after declaration; the
// other fields belong to the host that loads the application.
type Application struct {
	// Location is the unique registry key, also passed to the module loader.
	Location string

	// ActiveWhen decides URL ownership.
	ActiveWhen ActivationFunc

	// ParentLocation is the application that was mounted when this one was declared.
	ParentLocation string

	// PublicRoot and IndexPath locate the application's assets. Set on first load.
	PublicRoot string
	IndexPath  string

	// HookSets are invoked strictly in order. Set on first load.
	HookSets []HookSet

	// ScriptsLoaded flips to true once, after every script was injected.
	ScriptsLoaded bool

	// Tree is the cached <html> element. Each graft moves its children into the
	// live document and replaces Tree with a pristine clone.
	Tree *html.Node

	// Listeners registered by the application, keyed by event kind.
	// They only receive events while the application is mounted.
	PopStateListeners   []*Subscription
	HashChangeListeners []*Subscription
}

// Loaded reports whether the first activation completed: the manifest was
// applied, the index fetched and every script ran.
func (a *Application) Loaded() bool {
	return a.ScriptsLoaded
}

// ApplicationInfo is a point-in-time copy of an Application record.
type ApplicationInfo struct {
	Location       string `json:"location"`
	ParentLocation string `json:"parent_location,omitempty"`
	PublicRoot     string `json:"public_root,omitempty"`
	IndexPath      string `json:"index_path,omitempty"`
	ScriptsLoaded  bool   `json:"scripts_loaded"`
	Mounted        bool   `json:"mounted"`
}

// Info copies the record's descriptive fields. The caller must hold whatever
// lock guards the record's loading.
func (a *Application) Info() ApplicationInfo {
	return ApplicationInfo{
		Location:       a.Location,
		ParentLocation: a.ParentLocation,
		PublicRoot:     a.PublicRoot,
		IndexPath:      a.IndexPath,
		ScriptsLoaded:  a.ScriptsLoaded,
	}
}

// Listeners returns the listeners registered for the given event kind.
func (a *Application) Listeners(kind EventKind) []*Subscription {
	switch kind {
	case EventPopState:
		return a.PopStateListeners
	case EventHashChange:
		return a.HashChangeListeners
	}
	return nil
}
