package function

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/schema"
)

func ageSchema(t *testing.T) *schema.Validator {
	t.Helper()
	v, err := schema.Compile(map[string]any{
		"type":       "object",
		"properties": map[string]any{"name": map[string]any{"type": "string"}, "age": map[string]any{"type": "integer"}},
		"required":   []any{"name", "age"},
	})
	require.NoError(t, err)
	return v
}

func TestPrepareImplicitToolConfigSynthesizesTool(t *testing.T) {
	fn := &JSONFunction{OutputSchema: ageSchema(t)}
	cfg, err := PrepareImplicitToolConfig(fn, false)
	require.NoError(t, err)
	require.Len(t, cfg.Tools, 1)
	require.Equal(t, ImplicitToolName, cfg.Tools[0].Name)
	require.Equal(t, model.ToolChoiceSpecific, cfg.ToolChoice.Mode)
	require.Equal(t, ImplicitToolName, cfg.ToolChoice.Name)
}

func TestPrepareImplicitToolConfigRejectsExistingTools(t *testing.T) {
	fn := &JSONFunction{OutputSchema: ageSchema(t), StaticTools: []model.ToolDefinition{{Name: "x"}}}
	_, err := PrepareImplicitToolConfig(fn, false)
	require.Error(t, err)
}

func TestPrepareImplicitToolConfigRejectsNonAutoToolChoice(t *testing.T) {
	fn := &JSONFunction{OutputSchema: ageSchema(t), ToolChoice: model.ToolChoice{Mode: model.ToolChoiceRequired}}
	_, err := PrepareImplicitToolConfig(fn, false)
	require.Error(t, err)
}

func TestPrepareImplicitToolConfigRejectsParallelToolCalls(t *testing.T) {
	parallel := true
	fn := &JSONFunction{OutputSchema: ageSchema(t), ParallelToolCalls: &parallel}
	_, err := PrepareImplicitToolConfig(fn, false)
	require.Error(t, err)
}

func TestPrepareImplicitToolConfigRejectsDynamicToolParams(t *testing.T) {
	fn := &JSONFunction{OutputSchema: ageSchema(t)}
	_, err := PrepareImplicitToolConfig(fn, true)
	require.Error(t, err)
}
