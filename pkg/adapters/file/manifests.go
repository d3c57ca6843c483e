package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/aretw0/mosaic/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ManifestFileName is the file read from each application directory.
const ManifestFileName = "manifest.yaml"

// Catalog maps the names used under "lifecycles" to hook sets.
type Catalog map[string]domain.HookSet

// Names returns the catalog entries, sorted.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ManifestFile is the on-disk shape of a manifest.
type ManifestFile struct {
	PublicRoot  string `yaml:"public_root" mapstructure:"public_root"`
	PathToIndex string `yaml:"path_to_index" mapstructure:"path_to_index"`
	// Lifecycles is a catalog name or a list of names.
	Lifecycles any `yaml:"lifecycles" mapstructure:"lifecycles"`
}

// Modules implements ports.ModuleLoader over a directory of manifests.
type Modules struct {
	Root    string
	Catalog Catalog
}

// NewModules creates a loader reading <root>/<location>/manifest.yaml.
func NewModules(root string, catalog Catalog) *Modules {
	return &Modules{Root: root, Catalog: catalog}
}

// Import reads and decodes the manifest of location.
func (m *Modules) Import(ctx context.Context, location string) (*domain.Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(m.Root, filepath.FromSlash(location), ManifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("module %s has no %s", location, ManifestFileName)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return DecodeManifest(data, m.Catalog)
}

// DecodeManifest parses a YAML manifest and resolves its lifecycle names against catalog.
// Missing fields are left for Manifest.Validate; wrongly typed ones are rejected here.
func DecodeManifest(data []byte, catalog Catalog) (*domain.Manifest, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidManifest, err)
	}

	var mf ManifestFile
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &mf,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidManifest, err)
	}

	lifecycles, err := resolve(mf.Lifecycles, catalog)
	if err != nil {
		return nil, err
	}
	return &domain.Manifest{
		PublicRoot:  mf.PublicRoot,
		PathToIndex: mf.PathToIndex,
		Lifecycles:  lifecycles,
	}, nil
}

func resolve(v any, catalog Catalog) (domain.Lifecycles, error) {
	switch v := v.(type) {
	case nil:
		return domain.Lifecycles{}, nil
	case string:
		hs, err := lookup(v, catalog)
		if err != nil {
			return domain.Lifecycles{}, err
		}
		return domain.SingleHookSet(hs), nil
	case []any:
		sets := make([]domain.HookSet, 0, len(v))
		for i, item := range v {
			name, ok := item.(string)
			if !ok {
				return domain.Lifecycles{}, fmt.Errorf("%w: lifecycles[%d] must be a name, got %T", domain.ErrInvalidManifest, i, item)
			}
			hs, err := lookup(name, catalog)
			if err != nil {
				return domain.Lifecycles{}, err
			}
			sets = append(sets, hs)
		}
		return domain.HookSetList(sets...), nil
	default:
		return domain.Lifecycles{}, fmt.Errorf("%w: lifecycles must be a name or a list of names, got %T", domain.ErrInvalidManifest, v)
	}
}

func lookup(name string, catalog Catalog) (domain.HookSet, error) {
	hs, ok := catalog[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown lifecycles %q (known: %v)", domain.ErrInvalidManifest, name, catalog.Names())
	}
	return hs, nil
}
