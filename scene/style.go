package scene

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an RGB color. The zero value is "unset".
type Color struct {
	R, G, B int
	Set     bool
}

// RGB returns a set color.
func RGB(r, g, b int) Color { return Color{R: r, G: g, B: b, Set: true} }

// Or returns c when set, otherwise def.
func (c Color) Or(def Color) Color {
	if c.Set {
		return c
	}
	return def
}

// Channels returns the red, green and blue components.
func (c Color) Channels() (r, g, b int) { return c.R, c.G, c.B }

var namedColors = map[string]Color{
	"black":  RGB(0, 0, 0),
	"white":  RGB(255, 255, 255),
	"red":    RGB(255, 0, 0),
	"green":  RGB(0, 128, 0),
	"blue":   RGB(0, 0, 255),
	"gray":   RGB(128, 128, 128),
	"grey":   RGB(128, 128, 128),
	"silver": RGB(192, 192, 192),
	"navy":   RGB(0, 0, 128),
}

// ParseColor parses #rgb, #rrggbb or a basic color name. An empty string or
// "transparent"/"none" yields an unset color.
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "none", "transparent":
		return Color{}, nil
	}
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	if !strings.HasPrefix(s, "#") {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	return RGB(int(v>>16&0xff), int(v>>8&0xff), int(v&0xff)), nil
}

// Core font families available without embedding.
const (
	FontHelvetica = "Helvetica"
	FontTimes     = "Times"
	FontCourier   = "Courier"
)

var fontAliases = map[string]string{
	"helvetica":       FontHelvetica,
	"arial":           FontHelvetica,
	"sans-serif":      FontHelvetica,
	"inter":           FontHelvetica,
	"roboto":          FontHelvetica,
	"times":           FontTimes,
	"times new roman": FontTimes,
	"georgia":         FontTimes,
	"serif":           FontTimes,
	"courier":         FontCourier,
	"courier new":     FontCourier,
	"monospace":       FontCourier,
}

// FontFamily maps a family name onto a core font.
func FontFamily(name string) (string, bool) {
	n := strings.ToLower(strings.Trim(strings.TrimSpace(name), `"'`))
	if n == "" {
		return FontHelvetica, true
	}
	f, ok := fontAliases[n]
	return f, ok
}

// Style is the resolved style of an element. Sizes are in points.
type Style struct {
	FontFamily  string
	FontSize    float64 // 0 = renderer default
	Bold        bool
	Italic      bool
	Color       Color
	Fill        Color
	Stroke      Color
	StrokeWidth float64
	Align       string // L, C, R
}

// FontStyle returns the gofpdf style string: "", "B", "I" or "BI".
func (s Style) FontStyle() string {
	var b strings.Builder
	if s.Bold {
		b.WriteByte('B')
	}
	if s.Italic {
		b.WriteByte('I')
	}
	return b.String()
}

// Align normalizes an alignment value to L, C or R.
func Align(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "l", "left", "start", "justify":
		return "L", true
	case "c", "center", "centre", "middle":
		return "C", true
	case "r", "right", "end":
		return "R", true
	}
	return "L", false
}
