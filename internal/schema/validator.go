// Package schema validates definition documents against the embedded JSON
// schemas before they are decoded.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed all:schemas
var schemaFS embed.FS

const (
	schemaRoot   = "schemas/v1/"
	rootSchemaID = "document.json"
)

type SchemaError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e SchemaError) String() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationError carries every schema violation found in one document.
type ValidationError struct {
	Errors []SchemaError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, se := range e.Errors {
		msgs[i] = se.String()
	}
	return "schema validation failed: " + strings.Join(msgs, "; ")
}

type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()

	err := fs.WalkDir(schemaFS, "schemas", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		data, err := schemaFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read embedded schema %s: %w", path, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("parse embedded schema %s: %w", path, err)
		}
		id := strings.TrimPrefix(path, schemaRoot)
		if err := c.AddResource(id, doc); err != nil {
			return fmt.Errorf("add schema resource %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load embedded schemas: %w", err)
	}

	sch, err := c.Compile(rootSchemaID)
	if err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}
	return &Validator{schema: sch}, nil
}

// ValidateYAML checks a YAML (or JSON, which YAML accepts) document.
func (v *Validator) ValidateYAML(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	if raw == nil {
		return &ValidationError{Errors: []SchemaError{{Message: "document is empty"}}}
	}
	// Round-trip through JSON so numbers and maps take the shapes the
	// validator expects.
	buf, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("normalize document: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("normalize document: %w", err)
	}
	return v.ValidateDocument(doc)
}

// ValidateDocument checks an already parsed JSON value.
func (v *Validator) ValidateDocument(doc any) error {
	err := v.schema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &ValidationError{Errors: []SchemaError{{Message: err.Error()}}}
	}
	return &ValidationError{Errors: collectErrors(ve)}
}

func collectErrors(ve *jsonschema.ValidationError) []SchemaError {
	if len(ve.Causes) == 0 {
		path := ""
		if len(ve.InstanceLocation) > 0 {
			path = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		return []SchemaError{{Path: path, Message: ve.Error()}}
	}
	var out []SchemaError
	for _, cause := range ve.Causes {
		out = append(out, collectErrors(cause)...)
	}
	return out
}
