// Package schema wraps github.com/santhosh-tekuri/jsonschema/v6 for the
// two validation needs of §4.4: validating message/system content against
// a Function's static role/system schemas (compiled once, reused across
// many requests) and validating a JSON function's dynamic per-request
// output_schema (compiled fresh, since it varies by request).
//
// Grounded on goadesign-goa-ai's registry.validatePayloadJSONAgainstSchema
// (registry/service.go): compile a schema via jsonschema.NewCompiler +
// AddResource + Compile, then call Validate against a decoded JSON value.
package schema

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/inferly/gatewaycore/internal/gatewayerr"
)

// Validator wraps a single compiled JSON Schema document for repeated
// validation against many payloads.
type Validator struct {
	schema *jsonschema.Schema
	raw    map[string]any
}

// Compile compiles a JSON Schema document (already decoded into a Go
// value, e.g. from a Function's static schema config) into a reusable
// Validator.
func Compile(doc map[string]any) (*Validator, error) {
	c := jsonschema.NewCompiler()
	const resourceID = "schema.json"
	if err := c.AddResource(resourceID, doc); err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindConfig, "adding json schema resource", err)
	}
	compiled, err := c.Compile(resourceID)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindConfig, "compiling json schema", err)
	}
	return &Validator{schema: compiled, raw: doc}, nil
}

// Validate checks value (already decoded from JSON, e.g. via
// json.Unmarshal into `any`) against the compiled schema, returning a
// gatewayerr.KindJSONSchemaValidation error on failure.
func (v *Validator) Validate(value any) error {
	if v == nil {
		return nil
	}
	if err := v.schema.Validate(value); err != nil {
		return gatewayerr.Wrap(gatewayerr.KindJSONSchemaValidation, "schema validation failed", err)
	}
	return nil
}

// Raw returns the decoded schema document this Validator was compiled
// from, e.g. so JSONModeImplicitTool can reuse it as a synthesized
// tool's parameter schema (§4.4).
func (v *Validator) Raw() map[string]any {
	if v == nil {
		return nil
	}
	return v.raw
}

// ValidateOnce compiles doc and validates value against it in one shot,
// for the dynamic per-request schemas (§4.4's "validate against the
// dynamic schema (if any) else the static output schema") that aren't
// worth caching a Validator for.
func ValidateOnce(doc map[string]any, value any) error {
	v, err := Compile(doc)
	if err != nil {
		return err
	}
	return v.Validate(value)
}

// errUnsupportedValue is returned when a caller passes a value that
// cannot possibly satisfy any object schema, used by callers that want a
// fast-path rejection before invoking the compiler.
var errUnsupportedValue = fmt.Errorf("schema: value is not a JSON-compatible type")

// EnsureJSONCompatible reports whether value is a type jsonschema.Validate
// can introspect (the decoded-JSON value shapes: nil, bool, float64,
// string, []any, map[string]any). Callers that received already-typed Go
// structs must json.Marshal/Unmarshal them through `any` first.
func EnsureJSONCompatible(value any) error {
	switch value.(type) {
	case nil, bool, float64, string, []any, map[string]any:
		return nil
	default:
		return errUnsupportedValue
	}
}
