package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "schemagate",
	Short: "Schema-driven CRUD server with hot reload",
	Long: `Schemagate turns a JSON schema document into a running REST API.

Each entity in the document gets a full set of CRUD routes backed by
SQLite (with an in-memory fallback). Editing the document - on disk or
through the admin endpoint - rebinds the routes without a restart.

Quick start:
  schemagate serve              # Start the server
  schemagate validate           # Lint a schema document

Configuration comes from schemagate.yaml (or --config) with
SCHEMAGATE_* environment variables taking precedence.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "schemagate.yaml", "config file path")
}
