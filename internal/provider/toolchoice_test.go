package provider_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
)

func TestTranslateToolChoice(t *testing.T) {
	cases := []struct {
		name      string
		choice    model.ToolChoice
		toolsFull bool
		wantOK    bool
		want      provider.GenericToolChoice
	}{
		{"none suppresses tools", model.ToolChoice{Mode: model.ToolChoiceNone}, true, true,
			provider.GenericToolChoice{Mode: model.ToolChoiceAuto, SuppressTools: true}},
		{"auto passthrough", model.ToolChoice{Mode: model.ToolChoiceAuto}, true, true,
			provider.GenericToolChoice{Mode: model.ToolChoiceAuto}},
		{"required maps to any", model.ToolChoice{Mode: model.ToolChoiceRequired}, true, true,
			provider.GenericToolChoice{Mode: model.ToolChoiceRequired}},
		{"specific carries name", model.ToolChoice{Mode: model.ToolChoiceSpecific, Name: "lookup"}, true, true,
			provider.GenericToolChoice{Mode: model.ToolChoiceSpecific, Name: "lookup"}},
		{"empty tools list suppresses tool_choice entirely", model.ToolChoice{Mode: model.ToolChoiceAuto}, false, false,
			provider.GenericToolChoice{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := provider.TranslateToolChoice(tc.choice, tc.toolsFull)
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestNormalizeFinishReason(t *testing.T) {
	table := map[string]model.FinishReason{
		"end_turn":   model.FinishReasonStop,
		"max_tokens": model.FinishReasonLength,
	}
	assert.Equal(t, model.FinishReasonStop, provider.NormalizeFinishReason(table, "end_turn"))
	assert.Equal(t, model.FinishReasonUnknown, provider.NormalizeFinishReason(table, "something_new"))
}
