package validation

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrInvalidPatch is returned (wrapped) when a request body is not a JSON Patch document.
var ErrInvalidPatch = errors.New("invalid patch document")

//go:embed jsonpatch.schema.json
var jsonPatchSchema string

const jsonPatchSchemaURL = "jsonpatch.schema.json"

// PatchValidator checks request bodies against the JSON Patch (RFC 6902) schema.
// The schema is compiled once; Validate is safe for concurrent use.
type PatchValidator struct {
	schema *jsonschema.Schema
}

// NewPatchValidator compiles the embedded JSON Patch schema.
func NewPatchValidator() (*PatchValidator, error) {
	parsed, err := jsonschema.UnmarshalJSON(strings.NewReader(jsonPatchSchema))
	if err != nil {
		return nil, fmt.Errorf("parse patch schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft7)
	if err := compiler.AddResource(jsonPatchSchemaURL, parsed); err != nil {
		return nil, fmt.Errorf("add patch schema resource: %w", err)
	}

	schema, err := compiler.Compile(jsonPatchSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile patch schema: %w", err)
	}
	return &PatchValidator{schema: schema}, nil
}

// Validate reports ErrInvalidPatch with the failing location when body is
// not a non-empty array of well-formed patch operations.
func (v *PatchValidator) Validate(body []byte) error {
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	if err := v.schema.Validate(instance); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPatch, formatValidationError(err))
	}
	return nil
}

// formatValidationError renders the instance location as a JSON path, e.g.
// "validation failed at '$.0.op': value must be one of ...".
func formatValidationError(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}

	path := "$"
	var parts []string
	for _, part := range ve.InstanceLocation {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) > 0 {
		path += "." + strings.Join(parts, ".")
	}

	msg := ve.Error()
	if len(msg) > 200 {
		msg = msg[:200] + "... (truncated)"
	}
	return fmt.Sprintf("validation failed at '%s': %s", path, msg)
}

// MustNewPatchValidator is NewPatchValidator for the embedded schema, which always compiles.
func MustNewPatchValidator() *PatchValidator {
	v, err := NewPatchValidator()
	if err != nil {
		panic(err)
	}
	return v
}
