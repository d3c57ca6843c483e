package ports

import (
	"context"
	"io"

	"github.com/aretw0/mosaic/pkg/domain"
	"golang.org/x/net/html"
)

// ModuleLoader resolves a declared location to the module it names.
type ModuleLoader interface {
	// Import returns the manifest the module exports.
	Import(ctx context.Context, location string) (*domain.Manifest, error)
}

// IndexFetcher retrieves the index document of an application.
type IndexFetcher interface {
	// FetchIndex returns the raw HTML found at publicRoot/indexPath.
	// The caller closes the reader.
	FetchIndex(ctx context.Context, publicRoot, indexPath string) (io.ReadCloser, error)
}

// ScriptRunner executes a script element that was just inserted into the live head.
type ScriptRunner interface {
	// Run blocks until the script finished loading. Inline scripts complete
	// as soon as they run; external ones once their source has been loaded.
	Run(ctx context.Context, location string, script *html.Node) error
}

// SourceReloader refreshes the code of an already loaded application.
// It runs between the two source-update hooks.
type SourceReloader interface {
	Reload(ctx context.Context, app *domain.Application) error
}

// URLPrefixer roots a same-origin asset URL under an application's public root.
// Cross-origin URLs are returned unchanged.
type URLPrefixer interface {
	Prepend(prefix, raw string) string
}
