// Package main generates the CLI reference and the OpenAPI description from
// the car-deal-tracker command tree.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra/doc"

	"github.com/donaldgifford/car-deal-tracker/cmd/car-deal-tracker/cmd"
)

func main() {
	output := flag.String("output", "docs/cli", "output directory for generated markdown")
	spec := flag.String("openapi", "docs/openapi.yaml", "OpenAPI output file; empty skips it")
	flag.Parse()

	if err := os.MkdirAll(*output, 0o750); err != nil {
		log.Fatalf("creating output directory: %v", err)
	}

	root := cmd.Root()
	root.DisableAutoGenTag = true

	if err := doc.GenMarkdownTree(root, *output); err != nil {
		log.Fatalf("generating docs: %v", err)
	}
	fmt.Printf("CLI docs generated in %s/\n", *output)

	if *spec == "" {
		return
	}
	data, err := cmd.OpenAPISpec(formatFor(*spec))
	if err != nil {
		log.Fatalf("rendering openapi: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(*spec), 0o750); err != nil {
		log.Fatalf("creating openapi directory: %v", err)
	}
	if err := os.WriteFile(*spec, data, 0o600); err != nil {
		log.Fatalf("writing openapi: %v", err)
	}
	fmt.Printf("OpenAPI description written to %s\n", *spec)
}

func formatFor(path string) string {
	if filepath.Ext(path) == ".json" {
		return "json"
	}
	return "yaml"
}
