// Package main is the entry point for schemagate, a schema-driven
// CRUD server. A single JSON schema document describes the entities;
// the server derives models, storage tables, and REST routes from it
// at runtime and rebinds them whenever the document changes.
package main

func main() {
	Execute()
}
