package openaicompat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inferly/gatewaycore/internal/model"
)

func TestStreamTranslatorRoleOnlyOnFirstChunk(t *testing.T) {
	tr := NewStreamTranslator("id1", "tensorzero::model_name::m", 1000, false)

	first := tr.Next(&model.ProviderInferenceResponseChunk{
		Content: []model.ContentBlockChunk{{Type: model.ChunkTypeText, Text: "Hel"}},
	})
	require.Equal(t, "assistant", first.Choices[0].Delta.Role)
	require.Equal(t, "Hel", first.Choices[0].Delta.Content)

	second := tr.Next(&model.ProviderInferenceResponseChunk{
		Content: []model.ContentBlockChunk{{Type: model.ChunkTypeText, Text: "lo"}},
	})
	require.Empty(t, second.Choices[0].Delta.Role)
	require.Equal(t, "lo", second.Choices[0].Delta.Content)
}

func TestStreamTranslatorToolCallDelta(t *testing.T) {
	tr := NewStreamTranslator("id1", "tensorzero::model_name::m", 1000, false)
	chunk := tr.Next(&model.ProviderInferenceResponseChunk{
		Content: []model.ContentBlockChunk{{
			Type:                   model.ChunkTypeToolCall,
			ToolCallID:             "t1",
			ToolCallName:           "weather",
			ToolCallArgumentsDelta: `{"city":`,
		}},
	})
	require.Len(t, chunk.Choices[0].Delta.ToolCalls, 1)
	tc := chunk.Choices[0].Delta.ToolCalls[0]
	require.Equal(t, "t1", tc.ID)
	require.Equal(t, "weather", tc.Function.Name)
	require.Equal(t, `{"city":`, tc.Function.Arguments)
}

func TestStreamTranslatorSuppressesPerChunkUsageWhenIncludeUsageRequested(t *testing.T) {
	tr := NewStreamTranslator("id1", "tensorzero::model_name::m", 1000, true)
	chunk := tr.Next(&model.ProviderInferenceResponseChunk{
		Content: []model.ContentBlockChunk{{Type: model.ChunkTypeText, Text: "hi"}},
		Usage:   &model.Usage{InputTokens: 5, OutputTokens: 1},
	})
	require.Nil(t, chunk.Usage)
}

func TestStreamTranslatorAttachesPerChunkUsageByDefault(t *testing.T) {
	tr := NewStreamTranslator("id1", "tensorzero::model_name::m", 1000, false)
	chunk := tr.Next(&model.ProviderInferenceResponseChunk{
		Content: []model.ContentBlockChunk{{Type: model.ChunkTypeText, Text: "hi"}},
		Usage:   &model.Usage{InputTokens: 5, OutputTokens: 1},
	})
	require.NotNil(t, chunk.Usage)
	require.Equal(t, 6, chunk.Usage.TotalTokens)
}

func TestStreamTranslatorFinalUsageChunkHasNoChoices(t *testing.T) {
	tr := NewStreamTranslator("id1", "tensorzero::model_name::m", 1000, true)
	chunk := tr.FinalUsageChunk(model.Usage{InputTokens: 10, OutputTokens: 20})
	require.Empty(t, chunk.Choices)
	require.NotNil(t, chunk.Usage)
	require.Equal(t, 30, chunk.Usage.TotalTokens)
}

func TestMarshalSSEAndDoneSentinel(t *testing.T) {
	chunk := &StreamChunk{ID: "id1", Object: "chat.completion.chunk"}
	frame, err := MarshalSSE(chunk)
	require.NoError(t, err)
	require.Contains(t, string(frame), "data: ")
	require.Contains(t, string(frame), "\n\n")
	require.Equal(t, []byte("data: [DONE]\n\n"), DoneSentinel)
}
