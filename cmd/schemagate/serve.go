package main

import (
	"fmt"

	"github.com/artpar/schemagate/bootstrap"
	"github.com/artpar/schemagate/config"
	"github.com/spf13/cobra"
)

var (
	watchSchema bool
	schemaPath  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the CRUD server",
	Long: `Start the schemagate server.

The server will:
  - Load configuration from schemagate.yaml (or --config)
  - Or run on defaults plus SCHEMAGATE_* environment variables
  - Load the schema document (creating a starter one if missing)
  - Mount CRUD routes for every bindable entity
  - Rebind routes when the schema file changes on disk

Environment variables (for Docker deployments):
  SCHEMAGATE_SERVER_PORT      - Server port (default: 8080)
  SCHEMAGATE_DATABASE_PATH    - SQLite path (default: schemagate.db)
  SCHEMAGATE_SCHEMA_FILE      - Schema document path (default: schema.json)
  SCHEMAGATE_LOG_LEVEL        - Log level: debug, info, warn, error

Examples:
  schemagate serve
  schemagate serve --config /etc/schemagate/config.yaml
  schemagate serve --schema ./models.json --watch=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&watchSchema, "watch", true, "rebind routes when the schema file changes")
	serveCmd.Flags().StringVar(&schemaPath, "schema", "", "schema document path (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if schemaPath != "" {
		cfg.Schema.File = schemaPath
	}
	if !watchSchema {
		cfg.Schema.Watch = false
	}

	app, err := bootstrap.New(cfg)
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
