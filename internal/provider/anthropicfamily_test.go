package provider_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
)

func text(role model.Role, s string) model.Message {
	return model.Message{Role: role, Content: []model.OutputContent{model.TextOutput{Text: s}}}
}

func TestWantsJSONPrefill(t *testing.T) {
	assert.True(t, provider.WantsJSONPrefill(&model.ModelInferenceRequest{FunctionType: model.FunctionTypeJSON, JSONMode: model.JSONModeOn}))
	assert.True(t, provider.WantsJSONPrefill(&model.ModelInferenceRequest{FunctionType: model.FunctionTypeJSON, JSONMode: model.JSONModeStrict}))
	assert.False(t, provider.WantsJSONPrefill(&model.ModelInferenceRequest{FunctionType: model.FunctionTypeJSON, JSONMode: model.JSONModeOff}))
	assert.False(t, provider.WantsJSONPrefill(&model.ModelInferenceRequest{FunctionType: model.FunctionTypeChat, JSONMode: model.JSONModeOn}))
	assert.False(t, provider.WantsJSONPrefill(&model.ModelInferenceRequest{FunctionType: model.FunctionTypeJSON, JSONMode: model.JSONModeImplicitTool}))
}

func TestAppendJSONPrefillMessage(t *testing.T) {
	msgs := []model.Message{text(model.RoleUser, "hi")}
	out := provider.AppendJSONPrefillMessage(msgs)
	require.Len(t, out, 2)
	require.Len(t, msgs, 1, "original slice must not be mutated")
	assert.Equal(t, model.RoleAssistant, out[1].Role)
	assert.Equal(t, provider.JSONPrefillText, out[1].Content[0].(model.TextOutput).Text)
}

func TestReopenJSONPrefillText(t *testing.T) {
	assert.Equal(t, `{"name":"Jerry"}`, provider.ReopenJSONPrefillText(`"name":"Jerry"}`))
}

func TestConsolidateAnthropicFamilyMergesConsecutiveRoles(t *testing.T) {
	in := []model.Message{
		text(model.RoleUser, "a"),
		text(model.RoleUser, "b"),
		text(model.RoleAssistant, "c"),
	}
	out := provider.ConsolidateAnthropicFamily(in)
	require.Len(t, out, 3) // user(a+b), assistant(c), listening
	assert.Equal(t, model.RoleUser, out[0].Role)
	assert.Len(t, out[0].Content, 2)
	assert.Equal(t, model.RoleAssistant, out[1].Role)
	assert.Equal(t, model.RoleUser, out[2].Role)
	assert.Equal(t, "[listening]", out[2].Content[0].(model.TextOutput).Text)
}

func TestConsolidateAnthropicFamilyPrependsListeningWhenFirstIsAssistant(t *testing.T) {
	out := provider.ConsolidateAnthropicFamily([]model.Message{text(model.RoleAssistant, "hi")})
	require.Len(t, out, 2)
	assert.Equal(t, model.RoleUser, out[0].Role)
	assert.Equal(t, "[listening]", out[0].Content[0].(model.TextOutput).Text)
	assert.Equal(t, model.RoleAssistant, out[1].Role)
}

func TestConsolidateAnthropicFamilyEmptyConversation(t *testing.T) {
	out := provider.ConsolidateAnthropicFamily(nil)
	require.Len(t, out, 1)
	assert.Equal(t, model.RoleUser, out[0].Role)
}
