package library

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CatalogEntry overrides the author and title derived from a label.
type CatalogEntry struct {
	Label  string `yaml:"label"`
	Author string `yaml:"author"`
	Title  string `yaml:"title"`
}

// Catalog is the optional YAML metadata file for the books directory:
//
//	documents:
//	  - label: "Locke -- Second Treatise of Government"
//	    author: "John Locke"
//	    title: "Two Treatises of Government, Book II"
type Catalog struct {
	Documents []CatalogEntry `yaml:"documents"`

	byLabel map[string]CatalogEntry
}

// LoadCatalog reads the catalog at path. An empty path or a missing file
// yields an empty catalog.
func LoadCatalog(path string) (*Catalog, error) {
	catalog := &Catalog{}
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return catalog, nil
		}
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	if err := yaml.Unmarshal(data, catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	catalog.byLabel = make(map[string]CatalogEntry, len(catalog.Documents))
	for i, entry := range catalog.Documents {
		if entry.Label == "" {
			return nil, fmt.Errorf("catalog entry %d has no label", i)
		}
		catalog.byLabel[entry.Label] = entry
	}
	return catalog, nil
}

// Entry returns the catalog entry for label.
func (c *Catalog) Entry(label string) (CatalogEntry, bool) {
	if c.byLabel != nil {
		entry, ok := c.byLabel[label]
		return entry, ok
	}
	for _, entry := range c.Documents {
		if entry.Label == label {
			return entry, true
		}
	}
	return CatalogEntry{}, false
}
