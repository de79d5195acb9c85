package model

import "strings"

// UpgradedSuffix marks the name of an upgraded ("Full") variant of a base item.
const UpgradedSuffix = " (Full)"

// ItemKey identifies an item definition by category and name.
type ItemKey struct {
	Category string `json:"category" yaml:"category"`
	Name     string `json:"name" yaml:"name"`
}

// String returns "Category/Name".
func (k ItemKey) String() string {
	return k.Category + "/" + k.Name
}

// IsZero reports whether the key is empty.
func (k ItemKey) IsZero() bool {
	return k.Category == "" && k.Name == ""
}

// UpgradedKey returns the key of the upgraded variant of a base item.
func (k ItemKey) UpgradedKey() ItemKey {
	return ItemKey{Category: k.Category, Name: k.Name + UpgradedSuffix}
}

// IsUpgradedName reports whether name follows the upgraded-variant naming.
func IsUpgradedName(name string) bool {
	return strings.HasSuffix(name, UpgradedSuffix)
}

// ItemDefinition is a catalog entry. The engine never creates or deletes these.
type ItemDefinition struct {
	Category    string `json:"category" yaml:"-"`
	Name        string `json:"name" yaml:"name"`
	MediaHandle string `json:"media_handle" yaml:"media"`
	IsUpgraded  bool   `json:"is_upgraded" yaml:"upgraded"`
}

// Key returns the definition's item key.
func (d ItemDefinition) Key() ItemKey {
	return ItemKey{Category: d.Category, Name: d.Name}
}

// OwnershipRow holds every owner's count of a single item.
type OwnershipRow struct {
	Key    ItemKey
	Owners map[string]int
}

// Total returns the sum of counts across owners.
func (r OwnershipRow) Total() int {
	total := 0
	for _, c := range r.Owners {
		total += c
	}
	return total
}

// OwnedItem is a single line of a user's collection.
type OwnedItem struct {
	Category    string `json:"category"`
	Name        string `json:"name"`
	Count       int    `json:"count"`
	IsUpgraded  bool   `json:"is_upgraded"`
	MediaHandle string `json:"media_handle,omitempty"`
}
