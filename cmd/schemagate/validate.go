package main

import (
	"fmt"
	"os"

	"github.com/artpar/schemagate/config"
	"github.com/artpar/schemagate/core/convention"
	"github.com/artpar/schemagate/core/schema"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [schema-file]",
	Short: "Validate a schema document before deployment",
	Long: `Validate a schema document.

Checks:
  - JSON syntax is valid
  - Every entity has a route and at least one field
  - Field types and defaults resolve cleanly

Without an argument the schema path comes from the config file.

Examples:
  schemagate validate
  schemagate validate ./models.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := config.LoadWithFallback(cfgFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		path = cfg.Schema.File
	}

	fmt.Printf("Validating %s...\n\n", path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("  %s Schema file exists\n", crossMark)
		return fmt.Errorf("schema file not found: %s", path)
	}
	fmt.Printf("  %s Schema file exists\n", checkMark)

	doc, err := schema.LoadFile(path)
	if err != nil {
		fmt.Printf("  %s JSON syntax valid\n", crossMark)
		return fmt.Errorf("schema error: %w", err)
	}
	fmt.Printf("  %s JSON syntax valid\n", checkMark)

	result := schema.Validate(doc)
	for _, w := range result.Warnings {
		fmt.Printf("  %s %s\n", warnMark, w)
	}
	if !result.Valid {
		for _, e := range result.Errors {
			fmt.Printf("  %s %s\n", crossMark, e)
		}
		return fmt.Errorf("schema invalid: %d error(s)", len(result.Errors))
	}
	fmt.Printf("  %s Document valid\n", checkMark)

	// Summarize what a server would bind.
	for name, entity := range doc.Record {
		if !schema.Bindable(entity) {
			fmt.Printf("  %s Entity %q has no route, skipped\n", warnMark, name)
			continue
		}
		model := convention.Derive(name, entity)
		fmt.Printf("  %s %s -> %s (%d fields, collection %s)\n",
			checkMark, name, model.Route, len(model.Fields), model.Collection)
	}

	return nil
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
	warnMark  = "\033[33m!\033[0m"
)
