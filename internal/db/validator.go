package db

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/skshohagmiah/docquery/internal/document"
)

// Validator checks a document before it is written. A non-nil error
// rejects the write.
type Validator interface {
	Validate(doc document.Document) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(doc document.Document) error

// Validate calls f(doc).
func (f ValidatorFunc) Validate(doc document.Document) error {
	return f(doc)
}

// JSONSchemaValidator validates documents against a JSON Schema.
type JSONSchemaValidator struct {
	source string
	schema *gojsonschema.Schema
}

// NewJSONSchemaValidator compiles a JSON Schema document.
func NewJSONSchemaValidator(schema string) (*JSONSchemaValidator, error) {
	loader := gojsonschema.NewStringLoader(schema)
	compiled, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("invalid json schema: %w", err)
	}
	return &JSONSchemaValidator{source: schema, schema: compiled}, nil
}

// Source returns the schema text the validator was compiled from.
func (v *JSONSchemaValidator) Source() string {
	return v.source
}

// Validate reports ErrValidation with every schema violation.
func (v *JSONSchemaValidator) Validate(doc document.Document) error {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(errs, "; "))
}
