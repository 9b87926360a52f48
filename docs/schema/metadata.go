// Package schema exposes the embedded content-pack manifest schema for
// runtime use.
package schema

import (
	_ "embed"
	"encoding/json"
	"sync"
)

// Canonical packinfo.json schema embedded so tooling can surface it without
// reading the repository tree.
//
//go:embed packinfo.schema.json
var packInfoSchema []byte

type schemaDoc struct {
	ID         string                     `json:"$id"`
	Title      string                     `json:"title"`
	Required   []string                   `json:"required"`
	Properties map[string]json.RawMessage `json:"properties"`
}

var (
	docOnce sync.Once
	doc     schemaDoc
	docErr  error
)

func parsedSchema() (schemaDoc, error) {
	docOnce.Do(func() {
		docErr = json.Unmarshal(packInfoSchema, &doc)
	})
	return doc, docErr
}

// PackInfoSchema returns a copy of the embedded schema document bytes.
func PackInfoSchema() []byte {
	out := make([]byte, len(packInfoSchema))
	copy(out, packInfoSchema)
	return out
}

// PackInfoSchemaID returns the canonical identifier declared in the schema.
func PackInfoSchemaID() (string, error) {
	d, err := parsedSchema()
	return d.ID, err
}

// PackInfoRequiredFields returns the manifest fields the schema marks as
// required. The manifest reader enforces the same set.
func PackInfoRequiredFields() ([]string, error) {
	d, err := parsedSchema()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(d.Required))
	copy(out, d.Required)
	return out, nil
}
