package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/lvillar/invoicepdf"
	"github.com/lvillar/invoicepdf/datactx"
	"github.com/lvillar/invoicepdf/rows"
	"github.com/lvillar/invoicepdf/scene"
)

// RegisterDefaultTools adds the document tools backed by eng.
func RegisterDefaultTools(s *Server, eng *invoicepdf.Engine) {
	s.AddTool(renderDocumentTool(eng))
	s.AddTool(previewTemplateTool(eng))
	s.AddTool(validateTemplateTool(eng))
	s.AddTool(resolveRowsTool(eng))
}

var (
	templateProp = map[string]any{
		"type":        "object",
		"description": "Document template: page setup and positioned elements, or legacy {html, css}",
	}
	dataProp = map[string]any{
		"type":        "object",
		"description": "Data context with document, customer, organization, line_items, extra_goods and expenses",
	}
)

type documentArgs struct {
	Template   json.RawMessage `json:"template"`
	Data       json.RawMessage `json:"data"`
	OutputPath string          `json:"outputPath"`
	Paged      bool            `json:"paged"`
	Mode       string          `json:"mode"`
	Source     string          `json:"source"`
}

func decodeArgs(raw json.RawMessage, needTemplate bool) (*documentArgs, error) {
	var a documentArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if needTemplate && (len(a.Template) == 0 || string(a.Template) == "null") {
		return nil, errors.New("missing 'template' argument")
	}
	return &a, nil
}

// data decodes the data argument. An absent argument yields an empty
// context when optional is set.
func (a *documentArgs) data(optional bool) (*datactx.Snapshot, error) {
	if len(a.Data) == 0 || string(a.Data) == "null" {
		if optional {
			return (&datactx.Snapshot{}).Freeze(), nil
		}
		return nil, errors.New("missing 'data' argument")
	}
	return datactx.Decode(a.Data)
}

func renderDocumentTool(eng *invoicepdf.Engine) Tool {
	return Tool{
		Name:        "render_document",
		Description: "Render a document template bound to a data context as a PDF. Falls back to the stock layout when the template cannot be drawn. Returns the PDF as base64 unless outputPath is given.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"template": templateProp,
				"data":     dataProp,
				"outputPath": map[string]any{
					"type":        "string",
					"description": "Optional file path to save the PDF. If omitted, returns base64.",
				},
			},
			"required": []string{"template", "data"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (ToolResult, error) {
			args, err := decodeArgs(raw, true)
			if err != nil {
				return ToolResult{}, err
			}
			tpl, err := scene.Decode(args.Template)
			if err != nil {
				return ToolResult{}, err
			}
			data, err := args.data(false)
			if err != nil {
				return ToolResult{}, err
			}

			var buf bytes.Buffer
			res, err := eng.Render(ctx, tpl, data, &buf)
			if err != nil {
				return ToolResult{}, fmt.Errorf("rendering PDF: %w", err)
			}
			summary := fmt.Sprintf("PDF rendered via %s path: %d page(s), %d bytes", res.Path, res.Pages, buf.Len())
			if res.Cause != nil {
				summary += fmt.Sprintf("\nPrimary render failed: %v", res.Cause)
			}

			if args.OutputPath != "" {
				if err := os.WriteFile(args.OutputPath, buf.Bytes(), 0o644); err != nil {
					return ToolResult{}, fmt.Errorf("writing file: %w", err)
				}
				return TextResult(summary + "\nSaved to " + args.OutputPath), nil
			}
			return ToolResult{Content: []ContentBlock{
				{Type: "text", Text: summary},
				{Type: "resource", MIMEType: "application/pdf", Data: base64.StdEncoding.EncodeToString(buf.Bytes())},
			}}, nil
		},
	}
}

func previewTemplateTool(eng *invoicepdf.Engine) Tool {
	return Tool{
		Name:        "preview_template",
		Description: "Render a draft template as HTML markup. Validation is strict. Data is optional; without it fields resolve to empty text.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"template": templateProp,
				"data":     dataProp,
				"paged": map[string]any{
					"type":        "boolean",
					"description": "Split the preview into one section per output page",
				},
			},
			"required": []string{"template"},
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (ToolResult, error) {
			args, err := decodeArgs(raw, true)
			if err != nil {
				return ToolResult{}, err
			}
			tpl, err := scene.Decode(args.Template)
			if err != nil {
				return ToolResult{}, err
			}
			data, err := args.data(true)
			if err != nil {
				return ToolResult{}, err
			}
			var html string
			if args.Paged {
				html, err = eng.PreviewPages(ctx, tpl, data)
			} else {
				html, err = eng.Preview(ctx, tpl, data)
			}
			if err != nil {
				return ToolResult{}, err
			}
			return ToolResult{Content: []ContentBlock{{Type: "text", MIMEType: "text/html", Text: html}}}, nil
		},
	}
}

// validation is the validate_template result.
type validation struct {
	Valid    bool     `json:"valid"`
	Elements int      `json:"elements"`
	Warnings []string `json:"warnings,omitempty"`
	Problems []string `json:"problems,omitempty"`
}

func validateTemplateTool(eng *invoicepdf.Engine) Tool {
	return Tool{
		Name:        "validate_template",
		Description: "Validate a document template and list every problem found. Mode is strict (authoring) or lenient (export).",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"template": templateProp,
				"mode": map[string]any{
					"type": "string",
					"enum": []string{"strict", "lenient"},
				},
			},
			"required": []string{"template"},
		},
		Handler: func(_ context.Context, raw json.RawMessage) (ToolResult, error) {
			args, err := decodeArgs(raw, true)
			if err != nil {
				return ToolResult{}, err
			}
			mode := scene.Strict
			switch args.Mode {
			case "", "strict":
			case "lenient":
				mode = scene.Lenient
			default:
				return ToolResult{}, fmt.Errorf("unknown mode %q", args.Mode)
			}

			var v validation
			g, err := eng.Validate(args.Template, mode)
			if err != nil {
				for _, p := range scene.Problems(err) {
					v.Problems = append(v.Problems, p.Error())
				}
				if v.Problems == nil {
					v.Problems = []string{err.Error()}
				}
			} else {
				v = validation{Valid: true, Elements: len(g.Elements), Warnings: g.Warnings}
			}
			out, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return ToolResult{}, err
			}
			res := TextResult(string(out))
			res.IsError = !v.Valid
			return res, nil
		},
	}
}

func resolveRowsTool(eng *invoicepdf.Engine) Tool {
	sources := make([]string, 0, 2)
	for _, s := range rows.Sources() {
		sources = append(sources, string(s))
	}
	return Tool{
		Name:        "resolve_rows",
		Description: "Resolve a table data source against a data context and return the normalized rows a table would print.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"source": map[string]any{
					"type": "string",
					"enum": sources,
				},
				"data": dataProp,
			},
			"required": []string{"source", "data"},
		},
		Handler: func(_ context.Context, raw json.RawMessage) (ToolResult, error) {
			args, err := decodeArgs(raw, false)
			if err != nil {
				return ToolResult{}, err
			}
			data, err := args.data(false)
			if err != nil {
				return ToolResult{}, err
			}
			rs, err := eng.Rows(rows.Source(args.Source), data)
			if err != nil {
				return ToolResult{}, err
			}
			out, err := json.MarshalIndent(rs, "", "  ")
			if err != nil {
				return ToolResult{}, err
			}
			return TextResult(string(out)), nil
		},
	}
}
