package function

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inferly/gatewaycore/internal/model"
)

func TestPrepareToolConfigMergesStaticAndDynamic(t *testing.T) {
	fn := &ChatFunction{
		StaticTools: []model.ToolDefinition{{Name: "weather"}},
		ToolChoice:  model.ToolChoice{Mode: model.ToolChoiceAuto},
	}
	cfg, err := PrepareToolConfig(fn, DynamicToolParams{
		AdditionalTools: []model.ToolDefinition{{Name: "calculator"}},
	})
	require.NoError(t, err)
	require.Len(t, cfg.Tools, 2)
	require.Equal(t, model.ToolChoiceAuto, cfg.ToolChoice.Mode)
}

func TestPrepareToolConfigDynamicChoiceOverridesStatic(t *testing.T) {
	fn := &ChatFunction{
		StaticTools: []model.ToolDefinition{{Name: "weather"}},
		ToolChoice:  model.ToolChoice{Mode: model.ToolChoiceAuto},
	}
	dynChoice := model.ToolChoice{Mode: model.ToolChoiceRequired}
	cfg, err := PrepareToolConfig(fn, DynamicToolParams{ToolChoice: &dynChoice})
	require.NoError(t, err)
	require.Equal(t, model.ToolChoiceRequired, cfg.ToolChoice.Mode)
}

func TestPrepareToolConfigAllowedToolsFiltersAndRejectsUnknown(t *testing.T) {
	fn := &ChatFunction{
		StaticTools: []model.ToolDefinition{{Name: "weather"}, {Name: "calculator"}},
	}
	cfg, err := PrepareToolConfig(fn, DynamicToolParams{AllowedTools: []string{"weather"}})
	require.NoError(t, err)
	require.Len(t, cfg.Tools, 1)
	require.Equal(t, "weather", cfg.Tools[0].Name)

	_, err = PrepareToolConfig(fn, DynamicToolParams{AllowedTools: []string{"nonexistent"}})
	require.Error(t, err)
}
