package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// Indexes implements ports.IndexFetcher by reading <root>/<publicRoot>/<indexPath>.
type Indexes struct {
	Root string
}

// NewIndexes creates a fetcher rooted at the asset directory.
func NewIndexes(root string) *Indexes {
	return &Indexes{Root: root}
}

// FetchIndex opens the index document.
func (i *Indexes) FetchIndex(ctx context.Context, publicRoot, indexPath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(i.path(publicRoot, indexPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return f, nil
}

// path joins the parts under Root. Cleaning them as an absolute path first
// keeps ".." from climbing out of it.
func (i *Indexes) path(parts ...string) string {
	rel := path.Join(append([]string{"/"}, parts...)...)
	return filepath.Join(i.Root, filepath.FromSlash(rel))
}
