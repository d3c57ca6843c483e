package registry

import (
	"fmt"
	"net/url"
	"sort"
	"sync"

	"github.com/aretw0/mosaic/pkg/domain"
)

// Registry holds every declared application, keyed by location.
type Registry struct {
	mu    sync.RWMutex
	apps  map[string]*domain.Application
	order []string
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		apps: make(map[string]*domain.Application),
	}
}

// Declare inserts a partial application record.
// It fails on an empty location, a nil predicate, or a location already declared,
// in which case the existing record is left untouched.
func (r *Registry) Declare(location string, activeWhen domain.ActivationFunc, parent string) (*domain.Application, error) {
	if location == "" {
		return nil, domain.ErrInvalidLocation
	}
	if activeWhen == nil {
		return nil, fmt.Errorf("%w: 'activeWhen' for %s", domain.ErrInvalidPredicate, location)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.apps[location]; exists {
		return nil, fmt.Errorf("%w: there is already an app declared at location %s", domain.ErrDuplicateLocation, location)
	}

	app := &domain.Application{
		Location:       location,
		ActiveWhen:     activeWhen,
		ParentLocation: parent,
	}
	r.apps[location] = app
	r.order = append(r.order, location)
	return app, nil
}

// Get looks up an application by location.
func (r *Registry) Get(location string) (*domain.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	app, ok := r.apps[location]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", domain.ErrApplicationNotFound, location)
	}
	return app, nil
}

// List returns the applications in declaration order.
func (r *Registry) List() []*domain.Application {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Application, 0, len(r.order))
	for _, loc := range r.order {
		out = append(out, r.apps[loc])
	}
	return out
}

// Resolve returns the single application whose predicate matches u.
// It returns nil when nothing matches and a *domain.ConflictError when several do.
func (r *Registry) Resolve(u *url.URL) (*domain.Application, error) {
	var matches []*domain.Application
	for _, app := range r.List() {
		if app.ActiveWhen(u) {
			matches = append(matches, app)
		}
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	}

	locations := make([]string, len(matches))
	for i, app := range matches {
		locations[i] = app.Location
	}
	sort.Strings(locations)
	return nil, &domain.ConflictError{URL: u.String(), Locations: locations}
}
