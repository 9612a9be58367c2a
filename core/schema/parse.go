package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Parse parses a schema document from JSON bytes.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return &doc, nil
}

// LoadFile reads and parses the schema document from a file.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file %s: %w", path, err)
	}
	return Parse(data)
}

// SaveFile persists the active document, overwriting the previous one
// wholesale. The write goes through a temp file and rename so a watcher
// or crashed process never observes a half-written document.
func SaveFile(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".schema-*.json")
	if err != nil {
		return fmt.Errorf("create temp schema file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write schema: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close schema file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace schema file: %w", err)
	}

	return nil
}

// Default returns the hard-coded minimal fallback document used when no
// schema file exists or the provided one does not validate. The process
// must never fail to start over a bad schema file.
func Default() *Document {
	return &Document{
		Record: map[string]Entity{
			"item": {
				Route: "/api/items",
				Backend: Backend{
					Schema: map[string]Field{
						"name":        {Type: "String", Required: true, Trim: true},
						"description": {Type: "String", Required: true},
					},
				},
				Frontend: json.RawMessage(`{"formFields":["name","description"],"listColumns":["name","description"]}`),
			},
		},
	}
}
