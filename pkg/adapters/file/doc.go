// Package file serves applications from a directory tree.
//
// Each application lives under <root>/<location>/ with a manifest.yaml:
//
//	public_root: apps/users
//	path_to_index: index.html
//	lifecycles: [router, logger]
//
// Hook sets cannot be expressed in YAML, so "lifecycles" names entries of a Catalog
// that the embedding program fills in. It may be a single name or a list.
package file
