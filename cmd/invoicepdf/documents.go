package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lvillar/invoicepdf/scene"
)

func addDataFlags(cmd *cobra.Command, f *dataFlags) {
	cmd.Flags().StringVarP(&f.template, "template", "t", "", "template JSON file (required)")
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "data context JSON file")
	cmd.Flags().StringVar(&f.kind, "kind", "invoice", "document kind for --document-id (invoice or quote)")
	cmd.Flags().UintVar(&f.documentID, "document-id", 0, "load the data context from the database")
	cmd.MarkFlagRequired("template")
}

// writeOutput writes data to path; "-" or "" is stdout. A failed write
// leaves no file behind.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		os.Remove(path)
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func newRenderCmd(root *rootFlags) *cobra.Command {
	var (
		df  dataFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a document to PDF",
		Long:  "Render a template bound to a data context as PDF. Templates that cannot be drawn are printed with the stock fallback layout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			tpl, err := df.loadTemplate()
			if err != nil {
				return err
			}
			data, err := df.loadData(ctx, a, false)
			if err != nil {
				return err
			}
			// The output file is only created once a document exists.
			var pdf bytes.Buffer
			res, err := a.engine.Render(ctx, tpl, data, &pdf)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, out, pdf.Bytes()); err != nil {
				return err
			}
			a.log.Info().
				Str("render_id", res.ID).
				Str("path", string(res.Path)).
				Int("pages", res.Pages).
				Str("output", out).
				Msg("document rendered")
			for _, warn := range res.Warnings {
				a.log.Warn().Str("render_id", res.ID).Msg(warn)
			}
			return nil
		},
	}
	addDataFlags(cmd, &df)
	cmd.Flags().StringVarP(&out, "output", "o", "-", "output PDF file")
	return cmd
}

func newPreviewCmd(root *rootFlags) *cobra.Command {
	var (
		df    dataFlags
		out   string
		paged bool
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render a template as HTML",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			tpl, err := df.loadTemplate()
			if err != nil {
				return err
			}
			data, err := df.loadData(ctx, a, true)
			if err != nil {
				return err
			}
			var html string
			if paged {
				html, err = a.engine.PreviewPages(ctx, tpl, data)
			} else {
				html, err = a.engine.Preview(ctx, tpl, data)
			}
			if err != nil {
				return err
			}
			return writeOutput(cmd, out, []byte(html))
		},
	}
	addDataFlags(cmd, &df)
	cmd.Flags().StringVarP(&out, "output", "o", "-", "output HTML file")
	cmd.Flags().BoolVar(&paged, "paged", false, "one section per output page")
	return cmd
}

func newValidateCmd(root *rootFlags) *cobra.Command {
	var (
		path    string
		lenient bool
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a template",
		Long:  "Validate a template and list every problem. Strict mode (default) matches the authoring preview; --lenient matches export.",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read template: %w", err)
			}
			mode := scene.Strict
			if lenient {
				mode = scene.Lenient
			}
			g, verr := scene.Parse(raw, mode)

			problems := scene.Problems(verr)
			stdout := cmd.OutOrStdout()
			if asJSON {
				report := struct {
					Valid    bool     `json:"valid"`
					Warnings []string `json:"warnings,omitempty"`
					Problems []string `json:"problems,omitempty"`
				}{Valid: verr == nil}
				if g != nil {
					report.Warnings = g.Warnings
				}
				for _, p := range problems {
					report.Problems = append(report.Problems, p.Error())
				}
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else if verr == nil {
				fmt.Fprintf(stdout, "ok: %d element(s), %s mode\n", len(g.Elements), mode)
				for _, w := range g.Warnings {
					fmt.Fprintf(stdout, "warning: %s\n", w)
				}
			} else {
				for _, p := range problems {
					fmt.Fprintln(stdout, p.Error())
				}
			}
			if verr != nil {
				return fmt.Errorf("template is invalid (%d problem(s))", max(len(problems), 1))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "template", "t", "", "template JSON file (required)")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "validate as export does")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON report")
	cmd.MarkFlagRequired("template")
	return cmd
}
