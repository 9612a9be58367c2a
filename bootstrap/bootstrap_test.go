package bootstrap_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/artpar/schemagate/bootstrap"
	"github.com/artpar/schemagate/config"
	"github.com/artpar/schemagate/core/schema"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Database.Path = filepath.Join(dir, "test.db")
	cfg.Schema.File = filepath.Join(dir, "schema.json")
	cfg.Schema.Watch = false
	// The default registry is process-wide; bootstrap tests leave the
	// collector off so repeated App construction cannot collide.
	cfg.Metrics.Enabled = false
	return cfg
}

func TestNew_Integration(t *testing.T) {
	cfg := testConfig(t)

	app, err := bootstrap.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Shutdown()

	if app.Store == nil {
		t.Fatal("Store is nil")
	}
	if app.Store.Kind() != "sqlite" {
		t.Errorf("Store.Kind() = %q, want sqlite", app.Store.Kind())
	}
	if app.Binder == nil {
		t.Fatal("Binder is nil")
	}

	// No schema file on disk: the default document is bound.
	routes := app.Binder.Routes()
	if len(routes) != 1 || routes[0].Entity != "item" {
		t.Errorf("routes = %v, want the default item binding", routes)
	}
}

func TestNew_LoadsSchemaFile(t *testing.T) {
	cfg := testConfig(t)

	doc := &schema.Document{Record: map[string]schema.Entity{
		"product": {
			Route: "/api/products",
			Backend: schema.Backend{
				Schema: map[string]schema.Field{
					"name": {Type: "String", Required: true},
				},
			},
		},
	}}
	if err := schema.SaveFile(cfg.Schema.File, doc); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}

	app, err := bootstrap.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Shutdown()

	routes := app.Binder.Routes()
	if len(routes) != 1 || routes[0].Route != "/api/products" {
		t.Errorf("routes = %v, want /api/products", routes)
	}
}

func TestNew_InvalidSchemaFileFallsBack(t *testing.T) {
	cfg := testConfig(t)

	if err := os.WriteFile(cfg.Schema.File, []byte(`{broken`), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}

	app, err := bootstrap.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v, startup must survive a bad schema file", err)
	}
	defer app.Shutdown()

	routes := app.Binder.Routes()
	if len(routes) != 1 || routes[0].Entity != "item" {
		t.Errorf("routes = %v, want the default item binding", routes)
	}
}

func TestNew_NoDatabaseRunsDegraded(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Path = ""

	app, err := bootstrap.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Shutdown()

	if !app.Store.Degraded() {
		t.Error("Degraded() = false without a database, want true")
	}
	if app.Store.Kind() != "memory" {
		t.Errorf("Store.Kind() = %q, want memory", app.Store.Kind())
	}
}
