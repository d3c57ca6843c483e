package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/mosaic/pkg/domain"
)

// Modules implements ports.ModuleLoader from manifests registered in process.
type Modules struct {
	mu        sync.Mutex
	manifests map[string]*domain.Manifest
	failures  map[string]error
	imports   map[string]int
}

// NewModules creates an empty module loader.
func NewModules() *Modules {
	return &Modules{
		manifests: make(map[string]*domain.Manifest),
		failures:  make(map[string]error),
		imports:   make(map[string]int),
	}
}

// Add registers the manifest exported for location.
func (m *Modules) Add(location string, manifest *domain.Manifest) *Modules {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifests[location] = manifest
	delete(m.failures, location)
	return m
}

// Fail makes every import of location return err.
func (m *Modules) Fail(location string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[location] = err
}

// Import returns the manifest registered for location.
func (m *Modules) Import(ctx context.Context, location string) (*domain.Manifest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.imports[location]++
	if err, ok := m.failures[location]; ok {
		return nil, err
	}
	manifest, ok := m.manifests[location]
	if !ok {
		return nil, fmt.Errorf("module not found: %s", location)
	}
	return manifest, nil
}

// Imports reports how many times location was imported.
func (m *Modules) Imports(location string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.imports[location]
}
