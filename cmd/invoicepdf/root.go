package main

import (
	"io"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	config   string
	envFiles []string
	verbose  bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var flags rootFlags
	root := &cobra.Command{
		Use:           "invoicepdf",
		Short:         "Render invoice and quote templates to PDF",
		Long:          "invoicepdf binds document templates to invoice or quote data and prints them as PDF, with an HTML preview for authoring.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "config file path")
	root.PersistentFlags().StringSliceVar(&flags.envFiles, "env-file", nil, "env files to load (default ./.env if present)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newRenderCmd(&flags),
		newPreviewCmd(&flags),
		newValidateCmd(&flags),
		newServeCmd(&flags),
		newMCPCmd(&flags),
	)
	return root
}
