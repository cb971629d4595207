// Package function implements the Function component from §4.4: the typed
// request entrypoint that validates caller input against role/system
// schemas, assembles a per-request ToolCallConfig from static and dynamic
// tool sources, and turns provider output back into either a chat result
// (content blocks, forwarded as-is) or a JSON result (raw text, a best-effort
// parse, and schema validation that degrades to parsed=nil rather than
// erroring).
//
// Grounded on goadesign-goa-ai's registry-driven payload validation
// (registry/service.go, which this repo's internal/schema already wraps)
// generalized from "validate one payload against one schema" into the
// richer per-role, per-template-name dispatch §4.4 requires; there is no
// single teacher file for the Function type itself, since the teacher has
// no function/variant split — only a flat model.Client per inference call.
package function

import (
	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/schema"
)

// Kind discriminates the two Function variants.
type Kind string

const (
	KindChat Kind = "chat"
	KindJSON Kind = "json"
)

// Schemas bundles a Function's optional system/user/assistant JSON Schemas
// plus named custom-template schemas (§3's Function.schemas).
type Schemas struct {
	System     *schema.Validator
	User       *schema.Validator
	Assistant  *schema.Validator
	Templates  map[string]*schema.Validator
}

// RoleValidator returns the schema for the given role, or nil if the
// function defines none for that role.
func (s Schemas) RoleValidator(role model.Role) *schema.Validator {
	switch role {
	case model.RoleUser:
		return s.User
	case model.RoleAssistant:
		return s.Assistant
	default:
		return nil
	}
}

// Function is implemented by ChatFunction and JSONFunction. Both variants
// share schema validation and the template-name allowlist; Kind lets
// callers that hold a Function interface value recover the concrete type.
type Function interface {
	Kind() Kind
	FuncSchemas() Schemas
	ExplicitTemplateNames() map[string]struct{}
}

// ChatFunction is the Chat variant of §3's Function type: free-form content
// block output, static tools, and a default tool choice.
type ChatFunction struct {
	Schemas Schemas

	StaticTools       []model.ToolDefinition
	ToolChoice        model.ToolChoice
	ParallelToolCalls *bool
	Description       string

	// AllExplicitTemplateNames is the union, across every variant of this
	// function, of template identifiers invokable by name — used to reject
	// early a template invocation no variant could ever service.
	AllExplicitTemplateNames map[string]struct{}
}

func (f *ChatFunction) Kind() Kind                                { return KindChat }
func (f *ChatFunction) FuncSchemas() Schemas                      { return f.Schemas }
func (f *ChatFunction) ExplicitTemplateNames() map[string]struct{} { return f.AllExplicitTemplateNames }

// JSONFunction is the JSON variant of §3's Function type: a fixed output
// schema that every variant's response must (loosely, per JSONMode) satisfy.
type JSONFunction struct {
	Schemas      Schemas
	OutputSchema *schema.Validator
	Description  string

	// StaticTools, ToolChoice, and ParallelToolCalls are normally unset for
	// a JSON function. They exist only so §4.4's ImplicitTool preconditions
	// ("rejected if the function already defines tools...") have something
	// concrete to check against; a JSON function that legitimately wants
	// tool use alongside structured output is not this mode's use case.
	StaticTools       []model.ToolDefinition
	ToolChoice        model.ToolChoice
	ParallelToolCalls *bool

	AllExplicitTemplateNames map[string]struct{}
}

func (f *JSONFunction) Kind() Kind                                { return KindJSON }
func (f *JSONFunction) FuncSchemas() Schemas                      { return f.Schemas }
func (f *JSONFunction) ExplicitTemplateNames() map[string]struct{} { return f.AllExplicitTemplateNames }

var (
	_ Function = (*ChatFunction)(nil)
	_ Function = (*JSONFunction)(nil)
)
