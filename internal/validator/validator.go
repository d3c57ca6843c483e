// Package validator checks a shell on disk without mounting anything.
package validator

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aretw0/mosaic/internal/config"
	"github.com/aretw0/mosaic/internal/loader"
	"github.com/aretw0/mosaic/pkg/adapters/file"
	"github.com/aretw0/mosaic/pkg/assets"
	"github.com/aretw0/mosaic/pkg/dom"
)

// ValidateShell imports every configured application's manifest, parses its
// index and checks that each same-origin script it references exists.
// All problems are reported together.
func ValidateShell(ctx context.Context, cfg *config.Config, catalog file.Catalog) error {
	origin, err := url.Parse(cfg.Origin)
	if err != nil {
		return fmt.Errorf("invalid origin: %w", err)
	}
	prefixer, err := assets.New(origin.Scheme + "://" + origin.Host + "/")
	if err != nil {
		return err
	}

	modules := file.NewModules(cfg.ModulesDir, catalog)
	indexes := file.NewIndexes(cfg.AssetsDir)
	scripts := file.NewScripts(cfg.AssetsDir, origin)

	var errors []string
	for _, app := range cfg.Applications {
		manifest, err := modules.Import(ctx, app.Location)
		if err != nil {
			errors = append(errors, fmt.Sprintf("%s: %v", app.Location, err))
			continue
		}
		if _, err := manifest.Validate(app.Location); err != nil {
			errors = append(errors, fmt.Sprintf("%s: %v", app.Location, err))
			continue
		}

		rc, err := indexes.FetchIndex(ctx, manifest.PublicRoot, manifest.PathToIndex)
		if err != nil {
			errors = append(errors, fmt.Sprintf("%s: %v", app.Location, err))
			continue
		}
		doc, err := dom.Parse(rc)
		rc.Close()
		if err != nil {
			errors = append(errors, fmt.Sprintf("%s: unreadable index: %v", app.Location, err))
			continue
		}

		for _, s := range loader.Prepare(doc.Root(), manifest.PublicRoot, prefixer) {
			if err := scripts.Run(ctx, app.Location, s); err != nil {
				errors = append(errors, fmt.Sprintf("%s: %v", app.Location, err))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errors), strings.Join(errors, "\n- "))
	}
	return nil
}
