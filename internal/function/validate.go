package function

import (
	"encoding/json"

	"github.com/inferly/gatewaycore/internal/gatewayerr"
	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/schema"
)

// ValidateInput implements §4.4's input-validation algorithm: it checks the
// system value and every message's content blocks against the function's
// schemas, falling back to the explicit-template-name allowlist for
// schema-less template invocations.
func ValidateInput(fn Function, input model.Input) error {
	schemas := fn.FuncSchemas()
	names := fn.ExplicitTemplateNames()

	if err := validateSystem(schemas, names, input.System); err != nil {
		return err
	}
	for _, msg := range input.Messages {
		roleValidator := schemas.RoleValidator(msg.Role)
		for _, block := range msg.Content {
			if err := validateBlock(roleValidator, schemas, names, block); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateSystem(schemas Schemas, names map[string]struct{}, sys *model.SystemValue) error {
	if sys == nil {
		return nil
	}
	if schemas.System != nil {
		if !sys.IsTemplateArguments() {
			return gatewayerr.New(gatewayerr.KindInvalidMessage,
				"system content must be supplied as template arguments when a system schema is configured")
		}
		if err := schemas.System.Validate(sys.Arguments); err != nil {
			return err
		}
		return nil
	}
	// No system schema: a string system value always passes through. A
	// non-string arguments object must name an explicitly invokable
	// template (§4.4).
	if sys.IsTemplateArguments() {
		if _, ok := names["system"]; !ok {
			return gatewayerr.New(gatewayerr.KindInvalidMessage,
				"no variant of this function can service an implicit system template")
		}
	}
	return nil
}

// validateBlock implements the per-content-block dispatch of §4.4: Text
// validates against the role schema when one exists; Template validates its
// arguments against a named custom-template schema or falls back to the
// explicit-name allowlist; every other content kind bypasses validation.
func validateBlock(roleValidator *schema.Validator, schemas Schemas, names map[string]struct{}, block model.InputContent) error {
	switch b := block.(type) {
	case model.TextContent:
		return validateText(roleValidator, b)
	case model.TemplateContent:
		return validateTemplate(schemas, names, b)
	case model.RawTextContent, model.ToolCallContent, model.ToolResultContent,
		model.FileContent, model.ThoughtContent, model.UnknownContent:
		return nil
	default:
		return gatewayerr.New(gatewayerr.KindUnsupportedContentBlockType, "unrecognized input content block")
	}
}

func validateText(roleValidator *schema.Validator, b model.TextContent) error {
	if roleValidator == nil {
		return nil
	}
	// A role schema is configured: a plain string block is only valid if it
	// decodes into a value the schema accepts (schemas describe objects, so
	// a bare string value will fail unless the schema itself permits
	// strings — this is not special-cased, the validator is the judge).
	var v any
	if err := json.Unmarshal(b.Value, &v); err != nil {
		return gatewayerr.Wrap(gatewayerr.KindInvalidMessage, "decoding text content for schema validation", err)
	}
	return roleValidator.Validate(v)
}

func validateTemplate(schemas Schemas, names map[string]struct{}, b model.TemplateContent) error {
	if v, ok := schemas.Templates[b.Name]; ok {
		return v.Validate(b.Arguments)
	}
	if _, ok := names[b.Name]; !ok {
		return gatewayerr.New(gatewayerr.KindInvalidMessage,
			"template \""+b.Name+"\" is not invokable by any variant of this function")
	}
	return nil
}
