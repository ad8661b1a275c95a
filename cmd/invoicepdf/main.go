// Command invoicepdf renders invoice and quote templates.
//
// Usage:
//
//	invoicepdf render   --template t.json --data d.json -o invoice.pdf
//	invoicepdf preview  --template t.json --data d.json -o preview.html
//	invoicepdf validate --template t.json
//	invoicepdf serve    --config invoicepdf.yaml
//	invoicepdf mcp
//
// Settings come from --config (YAML), a .env file and INVOICEPDF_*
// environment variables.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "invoicepdf: %v\n", err)
		os.Exit(1)
	}
}
