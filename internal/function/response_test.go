package function

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inferly/gatewaycore/internal/model"
)

func TestPrepareJSONResponseFromToolCall(t *testing.T) {
	// Scenario D from spec.md §8: a tool call carrying the JSON payload.
	fn := &JSONFunction{OutputSchema: ageSchema(t)}
	resp := &model.ProviderInferenceResponse{
		Output: []model.OutputContent{
			model.ToolCallOutput{ID: "1", Name: ImplicitToolName, Arguments: `{"name":"Jerry","age":30}`},
		},
	}
	result := PrepareJSONResponse(fn, resp, nil, nil)
	require.NotNil(t, result.Raw)
	require.Equal(t, `{"name":"Jerry","age":30}`, *result.Raw)
	require.Equal(t, map[string]any{"name": "Jerry", "age": float64(30)}, result.Parsed)
	require.Empty(t, result.AuxiliaryContent)
	require.NotNil(t, result.JSONBlockIndex)
	require.Equal(t, 0, *result.JSONBlockIndex)
}

func TestPrepareJSONResponseScansInReverseAndPreservesAuxiliary(t *testing.T) {
	fn := &JSONFunction{OutputSchema: ageSchema(t)}
	resp := &model.ProviderInferenceResponse{
		Output: []model.OutputContent{
			model.ThoughtOutput{Text: "thinking..."},
			model.TextOutput{Text: `{"name":"Ada","age":28}`},
		},
	}
	result := PrepareJSONResponse(fn, resp, nil, nil)
	require.Equal(t, 1, *result.JSONBlockIndex)
	require.Len(t, result.AuxiliaryContent, 1)
	require.Equal(t, model.ThoughtOutput{Text: "thinking..."}, result.AuxiliaryContent[0])
	require.NotNil(t, result.Parsed)
}

func TestPrepareJSONResponseDegradesOnUnparseableRaw(t *testing.T) {
	fn := &JSONFunction{OutputSchema: ageSchema(t)}
	resp := &model.ProviderInferenceResponse{
		Output: []model.OutputContent{model.TextOutput{Text: "not json"}},
	}
	result := PrepareJSONResponse(fn, resp, nil, nil)
	require.Nil(t, result.Parsed)
	require.NotNil(t, result.Raw)
	require.Equal(t, "not json", *result.Raw)
}

func TestPrepareJSONResponseDegradesOnSchemaMismatch(t *testing.T) {
	fn := &JSONFunction{OutputSchema: ageSchema(t)}
	resp := &model.ProviderInferenceResponse{
		Output: []model.OutputContent{model.TextOutput{Text: `{"name":"Ada"}`}},
	}
	result := PrepareJSONResponse(fn, resp, nil, nil)
	require.Nil(t, result.Parsed)
	require.NotNil(t, result.Raw)
}

func TestPrepareChatResponseForwardsContentAsIs(t *testing.T) {
	stop := model.FinishReasonStop
	resp := &model.ProviderInferenceResponse{
		Output:       []model.OutputContent{model.TextOutput{Text: "hi"}},
		FinishReason: &stop,
		Usage:        model.Usage{InputTokens: 1, OutputTokens: 2},
	}
	result := PrepareChatResponse(resp)
	require.Equal(t, resp.Output, result.Content)
	require.Equal(t, &stop, result.FinishReason)
	require.Equal(t, resp.Usage, result.Usage)
}
