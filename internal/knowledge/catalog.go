// Package knowledge holds the movement catalog and the repositories that serve it.
package knowledge

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the YAML document describing movements and transitions.
type Catalog struct {
	FoundationalMovement string              `yaml:"foundational_movement"`
	Movements            []domain.Movement   `yaml:"movements"`
	Transitions          []domain.Transition `yaml:"transitions"`
}

// DefaultCatalog returns the built-in mat catalog.
func DefaultCatalog() (Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(defaultCatalog, &catalog); err != nil {
		return Catalog{}, fmt.Errorf("decode built-in catalog: %w", err)
	}
	return catalog, catalog.Validate()
}

// LoadCatalog decodes a catalog document.
func LoadCatalog(r io.Reader) (Catalog, error) {
	var catalog Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&catalog); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	return catalog, catalog.Validate()
}

// LoadCatalogFile reads a catalog from disk; an empty path selects the built-in catalog.
func LoadCatalogFile(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	f, err := os.Open(path)
	if err != nil {
		return Catalog{}, err
	}
	defer f.Close()
	return LoadCatalog(f)
}

// Validate checks ids are present and unique.
func (c Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c.Movements))
	for _, m := range c.Movements {
		if err := m.Validate(); err != nil {
			return err
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("duplicate movement id %s", m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	if c.FoundationalMovement != "" {
		if _, ok := seen[c.FoundationalMovement]; !ok {
			return fmt.Errorf("foundational movement %s is not in the catalog", c.FoundationalMovement)
		}
	}
	for _, t := range c.Transitions {
		if t.FromPosition == "" || t.ToPosition == "" {
			return fmt.Errorf("transition %q is missing a position", t.Narrative)
		}
	}
	return nil
}
