package function

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/schema"
)

func userSchema(t *testing.T) *schema.Validator {
	t.Helper()
	v, err := schema.Compile(map[string]any{
		"type":       "object",
		"properties": map[string]any{"topic": map[string]any{"type": "string"}},
		"required":   []any{"topic"},
	})
	require.NoError(t, err)
	return v
}

func textBlock(t *testing.T, v any) model.TextContent {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return model.TextContent{Kind: model.TextKindText, Value: raw}
}

func TestValidateInputUserSchemaRejectsPlainString(t *testing.T) {
	fn := &ChatFunction{Schemas: Schemas{User: userSchema(t)}}
	input := model.Input{Messages: []model.InputMessage{
		{Role: model.RoleUser, Content: []model.InputContent{textBlock(t, "just a string")}},
	}}
	require.Error(t, ValidateInput(fn, input))
}

func TestValidateInputUserSchemaAcceptsConformingObject(t *testing.T) {
	fn := &ChatFunction{Schemas: Schemas{User: userSchema(t)}}
	input := model.Input{Messages: []model.InputMessage{
		{Role: model.RoleUser, Content: []model.InputContent{textBlock(t, map[string]any{"topic": "weather"})}},
	}}
	require.NoError(t, ValidateInput(fn, input))
}

func TestValidateInputTemplateRequiresAllowlistWhenNoSchema(t *testing.T) {
	fn := &ChatFunction{AllExplicitTemplateNames: map[string]struct{}{"greeting": {}}}
	input := model.Input{Messages: []model.InputMessage{
		{Role: model.RoleUser, Content: []model.InputContent{
			model.TemplateContent{Name: "greeting", Arguments: map[string]any{"name": "ada"}},
		}},
	}}
	require.NoError(t, ValidateInput(fn, input))

	input.Messages[0].Content[0] = model.TemplateContent{Name: "unknown_template"}
	require.Error(t, ValidateInput(fn, input))
}

func TestValidateInputBypassesNonTextBlocks(t *testing.T) {
	fn := &ChatFunction{Schemas: Schemas{User: userSchema(t)}}
	input := model.Input{Messages: []model.InputMessage{
		{Role: model.RoleUser, Content: []model.InputContent{
			model.RawTextContent{Value: "anything at all"},
			model.ToolResultContent{ID: "1", Name: "t", Result: "ok"},
		}},
	}}
	require.NoError(t, ValidateInput(fn, input))
}

func TestValidateInputSystemRequiresTemplateArgumentsWhenSchemaSet(t *testing.T) {
	fn := &ChatFunction{Schemas: Schemas{System: userSchema(t)}}
	text := "hello"
	input := model.Input{System: &model.SystemValue{Text: &text}}
	require.Error(t, ValidateInput(fn, input))

	input.System = &model.SystemValue{Arguments: map[string]any{"topic": "x"}}
	require.NoError(t, ValidateInput(fn, input))
}

func TestValidateInputSystemStringPassesWithoutSchema(t *testing.T) {
	fn := &ChatFunction{}
	text := "hello"
	input := model.Input{System: &model.SystemValue{Text: &text}}
	require.NoError(t, ValidateInput(fn, input))
}
