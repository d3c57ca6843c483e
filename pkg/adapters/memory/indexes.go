package memory

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
)

// Indexes implements ports.IndexFetcher from documents held in memory.
type Indexes struct {
	mu      sync.Mutex
	docs    map[string]string
	fetches map[string]int
}

// NewIndexes creates an empty fetcher.
func NewIndexes() *Indexes {
	return &Indexes{
		docs:    make(map[string]string),
		fetches: make(map[string]int),
	}
}

func indexKey(publicRoot, indexPath string) string {
	return path.Join("/", publicRoot, indexPath)
}

// Add registers the HTML served at publicRoot/indexPath.
func (i *Indexes) Add(publicRoot, indexPath, html string) *Indexes {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.docs[indexKey(publicRoot, indexPath)] = html
	return i
}

// FetchIndex returns the registered document.
func (i *Indexes) FetchIndex(ctx context.Context, publicRoot, indexPath string) (io.ReadCloser, error) {
	key := indexKey(publicRoot, indexPath)

	i.mu.Lock()
	defer i.mu.Unlock()

	i.fetches[key]++
	doc, ok := i.docs[key]
	if !ok {
		return nil, fmt.Errorf("index not found: %s", key)
	}
	return io.NopCloser(strings.NewReader(doc)), nil
}

// Fetches reports how many times publicRoot/indexPath was fetched.
func (i *Indexes) Fetches(publicRoot, indexPath string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.fetches[indexKey(publicRoot, indexPath)]
}
