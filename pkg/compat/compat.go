// Package compat resolves the livestock choices offered for a category given
// the tank's water chemistry. Compatibility is advisory: lists are returned
// even for a tank the category does not suit.
package compat

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"tankcore/pkg/domain"
)

//go:embed catalog.yaml
var catalogYAML []byte

type categoryEntry struct {
	Key        string   `yaml:"key"`
	Aliases    []string `yaml:"aliases"`
	Native     []string `yaml:"native"`
	Freshwater []string `yaml:"freshwater"`
	Saltwater  []string `yaml:"saltwater"`
	All        []string `yaml:"all"`
}

func (c categoryEntry) waterDependent() bool {
	return len(c.Freshwater) > 0 || len(c.Saltwater) > 0
}

// Catalog is a decoded livestock catalog.
type Catalog struct {
	order   []string
	entries map[string]categoryEntry
	aliases map[string]string
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Categories []categoryEntry `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	cat := &Catalog{
		entries: make(map[string]categoryEntry, len(doc.Categories)),
		aliases: make(map[string]string),
	}
	for _, entry := range doc.Categories {
		key := normalize(entry.Key)
		if key == "" {
			return nil, fmt.Errorf("catalog category without key")
		}
		if _, dup := cat.entries[key]; dup {
			return nil, fmt.Errorf("duplicate catalog category %q", key)
		}
		if entry.waterDependent() && len(entry.All) > 0 {
			return nil, fmt.Errorf("category %q mixes per-water and shared lists", key)
		}
		cat.entries[key] = entry
		cat.order = append(cat.order, key)
		cat.aliases[key] = key
		for _, alias := range entry.Aliases {
			cat.aliases[normalize(alias)] = key
		}
	}
	return cat, nil
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	cat, err := ParseCatalog(catalogYAML)
	if err != nil {
		panic(fmt.Errorf("compat: embedded catalog: %w", err))
	}
	return cat
})

// Default returns the embedded catalog.
func Default() *Catalog { return defaultCatalog() }

// Options returns the choices for category in the default catalog.
func Options(category string, c domain.Classification) []string {
	return Default().Options(category, c)
}

// Categories lists the category keys of the default catalog in display order.
func Categories() []string { return Default().Categories() }

// Options returns the ordered choices for a livestock category. Fish and
// invertebrates switch lists on water family; single-habitat categories return
// the same list for every classification. Unknown or open categories yield an
// empty slice.
func (c *Catalog) Options(category string, cls domain.Classification) []string {
	entry, ok := c.lookup(category)
	if !ok {
		return []string{}
	}
	var src []string
	switch {
	case entry.waterDependent() && cls.Saltwater():
		src = entry.Saltwater
	case entry.waterDependent():
		src = entry.Freshwater
	default:
		src = entry.All
	}
	return append([]string{}, src...)
}

// Categories lists the category keys in display order.
func (c *Catalog) Categories() []string {
	return append([]string(nil), c.order...)
}

// Canonical maps a category name or alias to its catalog key.
func (c *Catalog) Canonical(category string) (string, bool) {
	key, ok := c.aliases[normalize(category)]
	return key, ok
}

// NativeWaterTypes returns the water families a single-habitat category lives
// in. Water-dependent, open and unknown categories return nil.
func (c *Catalog) NativeWaterTypes(category string) []domain.WaterType {
	entry, ok := c.lookup(category)
	if !ok || len(entry.Native) == 0 {
		return nil
	}
	out := make([]domain.WaterType, 0, len(entry.Native))
	for _, n := range entry.Native {
		out = append(out, domain.WaterType(normalize(n)))
	}
	return out
}

// Advisory reports whether category suits the classification and, when it
// does not, a short explanation. Unknown categories are always suitable.
func (c *Catalog) Advisory(category string, cls domain.Classification) (bool, string) {
	native := c.NativeWaterTypes(category)
	if len(native) == 0 {
		return true, ""
	}
	for _, w := range native {
		if w.IsSaltwaterFamily() == cls.Saltwater() {
			return true, ""
		}
	}
	key, _ := c.Canonical(category)
	return false, fmt.Sprintf("%s normally lives in %s tanks, this tank is %s", key, native[0], cls)
}

func (c *Catalog) lookup(category string) (categoryEntry, bool) {
	key, ok := c.Canonical(category)
	if !ok {
		return categoryEntry{}, false
	}
	entry, ok := c.entries[key]
	return entry, ok
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
