package scene

import (
	"sort"
	"strings"
)

// PxToPt converts CSS pixels (96 per inch) to points (72 per inch).
const PxToPt = 72.0 / 96.0

// Size is a page size in points.
type Size struct {
	W, H float64
}

var pageSizes = map[string]Size{
	"a3":      {841.89, 1190.55},
	"a4":      {595.28, 841.89},
	"a5":      {419.53, 595.28},
	"letter":  {612, 792},
	"legal":   {612, 1008},
	"tabloid": {792, 1224},
}

// PageSize looks up a named page size, case-insensitively.
func PageSize(name string) (Size, bool) {
	s, ok := pageSizes[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// PageSizeNames lists the named page sizes.
func PageSizeNames() []string {
	names := make([]string, 0, len(pageSizes))
	for n := range pageSizes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Page is the resolved page setup, in points.
type Page struct {
	Name       string // size name, "" for custom sizes
	Width      float64
	Height     float64
	Landscape  bool
	Margins    Margins
	HasMargins bool
	Background string
}
