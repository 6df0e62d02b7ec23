// Package catalog is the fixed set of furniture types a plan can hold.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"

	"seatplan/internal/domain"
)

// Item describes one furniture type. Sizes are in grid units.
type Item struct {
	Type  string  `toml:"type" json:"type"`
	Label string  `toml:"label" json:"label"`
	W     float64 `toml:"w" json:"w"`
	H     float64 `toml:"h" json:"h"`
	Color string  `toml:"color" json:"color"`
}

var defaults = []Item{
	{Type: "desk", Label: "Desk", W: 2, H: 1, Color: "#f1e7db"},
	{Type: "table_rect", Label: "Rectangular table", W: 2, H: 1, Color: "#fffef7"},
	{Type: "table_round", Label: "Round table", W: 2, H: 2, Color: "#fffef7"},
	{Type: "armoire", Label: "Cabinet", W: 1, H: 2, Color: "#d7c5ad"},
	{Type: "board", Label: "Board", W: 4, H: 1, Color: "#0f5132"},
	{Type: "door", Label: "Door", W: 1, H: 1, Color: "#b87333"},
	{Type: "window", Label: "Window", W: 2, H: 1, Color: "#cfe8ff"},
	{Type: "sink", Label: "Sink", W: 2, H: 1, Color: "#e5e7eb"},
	{Type: "trash", Label: "Bin", W: 1, H: 1, Color: "#475569"},
	{Type: "plant", Label: "Plant", W: 1, H: 1, Color: "#def7ec"},
}

// fallbackColor paints items whose type is no longer in the catalog.
const fallbackColor = "#e5e7eb"

// Catalog is safe for concurrent use; Replace swaps the whole set.
type Catalog struct {
	mu    sync.RWMutex
	items map[string]Item
	order []string
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c := &Catalog{}
	c.Replace(nil)
	return c
}

// file is the on-disk override format:
//
//	[[furniture]]
//	type = "desk"
//	w = 3
type file struct {
	Furniture []Item `toml:"furniture"`
}

// Load reads a TOML file of overrides on top of the defaults.
func Load(path string) (*Catalog, error) {
	items, err := readFile(path)
	if err != nil {
		return nil, err
	}
	c := &Catalog{}
	c.Replace(items)
	return c, nil
}

func readFile(path string) ([]Item, error) {
	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	for i, it := range f.Furniture {
		if it.Type == "" {
			return nil, fmt.Errorf("catalog %s: entry %d has no type", path, i)
		}
		if it.W < 0 || it.H < 0 {
			return nil, fmt.Errorf("catalog %s: %s has a negative size", path, it.Type)
		}
	}
	return f.Furniture, nil
}

// Replace resets the catalog to the defaults merged with overrides. Zero
// fields in an override keep the default value.
func (c *Catalog) Replace(overrides []Item) {
	items := make(map[string]Item, len(defaults)+len(overrides))
	order := make([]string, 0, len(defaults)+len(overrides))
	for _, it := range defaults {
		items[it.Type] = it
		order = append(order, it.Type)
	}
	for _, o := range overrides {
		base, known := items[o.Type]
		if !known {
			base = Item{Type: o.Type, Label: o.Type, W: 1, H: 1, Color: fallbackColor}
			order = append(order, o.Type)
		}
		if o.Label != "" {
			base.Label = o.Label
		}
		if o.W > 0 {
			base.W = o.W
		}
		if o.H > 0 {
			base.H = o.H
		}
		if o.Color != "" {
			base.Color = o.Color
		}
		items[o.Type] = base
	}

	c.mu.Lock()
	c.items = items
	c.order = order
	c.mu.Unlock()
}

// Lookup returns the item for typ.
func (c *Catalog) Lookup(typ string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[typ]
	return it, ok
}

// Items lists the catalog in palette order.
func (c *Catalog) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, 0, len(c.order))
	for _, t := range c.order {
		out = append(out, c.items[t])
	}
	return out
}

// Types lists the known type tags, sorted.
func (c *Catalog) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.items))
	for t := range c.items {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ColorFor resolves the paint of f: its override, else the type default.
func (c *Catalog) ColorFor(f domain.Furniture) string {
	if f.Color != "" {
		return f.Color
	}
	if it, ok := c.Lookup(f.Type); ok {
		return it.Color
	}
	return fallbackColor
}
