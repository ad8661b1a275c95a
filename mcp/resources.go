package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/lvillar/invoicepdf/expr"
	"github.com/lvillar/invoicepdf/rows"
	"github.com/lvillar/invoicepdf/scene"
)

// RegisterDefaultResources adds the template reference resources. They use
// the invoicepdf:// scheme.
func RegisterDefaultResources(s *Server) {
	s.AddResource(Resource{
		URI:         "invoicepdf://page-sizes",
		Name:        "Page Sizes",
		Description: "Named page sizes a template may use, in points",
		MIMEType:    "application/json",
		Handler:     handlePageSizes,
	})
	s.AddResource(Resource{
		URI:         "invoicepdf://functions",
		Name:        "Template Functions",
		Description: "Helper functions available inside {{ expressions }}",
		MIMEType:    "application/json",
		Handler:     handleFunctions,
	})
	s.AddResource(Resource{
		URI:         "invoicepdf://element-kinds",
		Name:        "Element Kinds",
		Description: "Element kinds a template may place, and the table data sources",
		MIMEType:    "application/json",
		Handler:     handleElementKinds,
	})
}

func jsonContent(uri string, v any) ([]ResourceContent, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", uri, err)
	}
	return []ResourceContent{{URI: uri, MIMEType: "application/json", Text: string(data)}}, nil
}

func handlePageSizes(uri string) ([]ResourceContent, error) {
	type size struct {
		Name   string  `json:"name"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	var sizes []size
	for _, name := range scene.PageSizeNames() {
		s, _ := scene.PageSize(name)
		sizes = append(sizes, size{Name: name, Width: s.W, Height: s.H})
	}
	return jsonContent(uri, map[string]any{"unit": "pt", "sizes": sizes})
}

func handleFunctions(uri string) ([]ResourceContent, error) {
	return jsonContent(uri, map[string]any{
		"version":   expr.Version,
		"functions": expr.Functions(),
	})
}

var kindDocs = map[scene.Kind]string{
	scene.KindText:        "Text with {{ expressions }}, wrapped to its box",
	scene.KindShape:       "Rectangle, line or circle",
	scene.KindImage:       "PNG, JPEG or GIF image from an asset reference",
	scene.KindTable:       "Item table bound to a data source; paginates with a repeated header",
	scene.KindBarcode:     "code128, qr, datamatrix or pdf417 barcode",
	scene.KindPageNumber:  "Page number, repeated on every page",
	scene.KindCurrentDate: "Render date in a date pattern",
	scene.KindWatermark:   "Rotated translucent text behind the content, on every page",
}

func handleElementKinds(uri string) ([]ResourceContent, error) {
	type kind struct {
		Kind        scene.Kind `json:"kind"`
		Description string     `json:"description"`
	}
	var kinds []kind
	for _, k := range scene.Kinds() {
		kinds = append(kinds, kind{Kind: k, Description: kindDocs[k]})
	}
	return jsonContent(uri, map[string]any{
		"kinds":       kinds,
		"dataSources": rows.Sources(),
	})
}
