package schema

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the top-level shape of a catalog file.
type Catalog struct {
	DocumentTypes []TypeSpec `yaml:"document_types"`
}

// DecodeCatalog reads a YAML catalog. Unknown keys are rejected so typos
// in a field definition do not silently drop a pattern.
func DecodeCatalog(r io.Reader) ([]TypeSpec, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cat Catalog
	if err := dec.Decode(&cat); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return cat.DocumentTypes, nil
}

// LoadCatalogFile reads a YAML catalog from path.
func LoadCatalogFile(path string) ([]TypeSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	defer f.Close()

	return DecodeCatalog(f)
}

// NewRegistryWithCatalog builds the built-in catalog and then applies the
// entries of the catalog file at path, which may add types or replace
// built-in ones. An empty path yields the default registry.
func NewRegistryWithCatalog(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}

	extra, err := LoadCatalogFile(path)
	if err != nil {
		return nil, err
	}

	r, err := NewBuilder().AddAll(builtinTypes).AddAll(extra).Build()
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return r, nil
}
