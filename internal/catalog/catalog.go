// Package catalog enumerates the item definitions the economy can hand out.
package catalog

import (
	"fmt"
	"os"
	"sort"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"cardvault-api/internal/model"
)

// Catalog is the read-only view of item definitions used by the engines.
type Catalog interface {
	// Categories returns category names in configuration order.
	Categories() []string
	// ListItems returns the definitions of a category.
	ListItems(category string) []model.ItemDefinition
	// Lookup resolves a key case-insensitively to its canonical definition.
	Lookup(key model.ItemKey) (model.ItemDefinition, bool)
}

// CategorySpec is the static draw configuration of a category.
type CategorySpec struct {
	Name             string                 `yaml:"name"`
	Weight           float64                `yaml:"weight"`
	UpgradeThreshold int                    `yaml:"upgrade_threshold"`
	Items            []model.ItemDefinition `yaml:"items"`
}

// File is the on-disk catalog layout.
type File struct {
	Categories []CategorySpec `yaml:"categories"`
}

// Static is an immutable in-memory catalog.
type Static struct {
	specs []CategorySpec
	order []string
	items map[string][]model.ItemDefinition
	index map[string]model.ItemDefinition
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*Static, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML catalog.
func Parse(raw []byte) (*Static, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("catalog.yaml: %w", err)
	}
	return New(f.Categories)
}

// New builds a catalog from category specs.
func New(specs []CategorySpec) (*Static, error) {
	s := &Static{
		items: make(map[string][]model.ItemDefinition),
		index: make(map[string]model.ItemDefinition),
	}
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("catalog: category without name")
		}
		if spec.Weight < 0 {
			return nil, fmt.Errorf("catalog: category %s has negative weight", spec.Name)
		}
		if _, dup := s.items[spec.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate category %s", spec.Name)
		}
		s.order = append(s.order, spec.Name)
		defs := make([]model.ItemDefinition, 0, len(spec.Items))
		for _, item := range spec.Items {
			if item.Name == "" {
				return nil, fmt.Errorf("catalog: item without name in %s", spec.Name)
			}
			item.Category = spec.Name
			if model.IsUpgradedName(item.Name) {
				item.IsUpgraded = true
			}
			k := foldKey(item.Key())
			if _, dup := s.index[k]; dup {
				return nil, fmt.Errorf("catalog: duplicate item %s", item.Key())
			}
			s.index[k] = item
			defs = append(defs, item)
		}
		s.items[spec.Name] = defs
		spec.Items = nil
		s.specs = append(s.specs, spec)
	}
	return s, nil
}

// Specs returns the category draw configuration without items.
func (s *Static) Specs() []CategorySpec {
	out := make([]CategorySpec, len(s.specs))
	copy(out, s.specs)
	return out
}

// Categories returns category names in configuration order.
func (s *Static) Categories() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// ListItems returns the definitions of a category.
func (s *Static) ListItems(category string) []model.ItemDefinition {
	defs := s.items[category]
	out := make([]model.ItemDefinition, len(defs))
	copy(out, defs)
	return out
}

// Lookup resolves a key case-insensitively.
func (s *Static) Lookup(key model.ItemKey) (model.ItemDefinition, bool) {
	def, ok := s.index[foldKey(key)]
	return def, ok
}

// Size returns the number of definitions.
func (s *Static) Size() int {
	return len(s.index)
}

// Fold normalizes a string for case-insensitive comparison.
func Fold(v string) string {
	// A Caser is stateful, so each call gets its own.
	return cases.Fold().String(v)
}

func foldKey(k model.ItemKey) string {
	return Fold(k.Category) + "\x1f" + Fold(k.Name)
}

// Resolve canonicalizes a key against c or fails with ErrUnknownItem.
func Resolve(c Catalog, key model.ItemKey) (model.ItemDefinition, error) {
	def, ok := c.Lookup(key)
	if !ok {
		return model.ItemDefinition{}, model.Wrap(model.ErrUnknownItem, key.String(), nil)
	}
	return def, nil
}

// SortedKeys returns the keys of an owned multiset in a stable order.
func SortedKeys(owned map[model.ItemKey]int) []model.ItemKey {
	keys := make([]model.ItemKey, 0, len(owned))
	for k := range owned {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Category != keys[j].Category {
			return keys[i].Category < keys[j].Category
		}
		return keys[i].Name < keys[j].Name
	})
	return keys
}

// Ensure Static implements Catalog
var _ Catalog = (*Static)(nil)
