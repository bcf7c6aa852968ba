package deck

import (
	"fmt"
	"sort"
	"strings"
)

// Layout describes the page geometry of a deck, in inches.
type Layout struct {
	Name   string
	Width  float64
	Height float64
}

// Aspect layouts match the common presentation geometries; the paper layouts
// match A-series sheet dimensions for print-oriented decks.
var layouts = map[string]Layout{
	"16:9": {Name: "16:9", Width: 13.33, Height: 7.5},
	"4:3":  {Name: "4:3", Width: 10, Height: 7.5},
	"A1":   {Name: "A1", Width: 23.39, Height: 33.11},
	"A2":   {Name: "A2", Width: 16.54, Height: 23.39},
	"A3":   {Name: "A3", Width: 11.69, Height: 16.54},
	"A4":   {Name: "A4", Width: 8.27, Height: 11.69},
}

// DefaultLayout is used when no layout is selected.
const DefaultLayout = "16:9"

// LayoutByName resolves a layout selection. Paper sizes are matched
// case-insensitively.
func LayoutByName(name string) (Layout, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultLayout
	}
	if layout, ok := layouts[name]; ok {
		return layout, nil
	}
	if layout, ok := layouts[strings.ToUpper(name)]; ok {
		return layout, nil
	}
	return Layout{}, fmt.Errorf("unsupported layout %q (valid: %s)", name, strings.Join(LayoutNames(), ", "))
}

// LayoutNames returns the supported layout selections, sorted.
func LayoutNames() []string {
	names := make([]string, 0, len(layouts))
	for name := range layouts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
