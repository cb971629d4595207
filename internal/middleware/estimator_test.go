package middleware

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inferly/gatewaycore/internal/model"
)

func TestEstimateByCharCountMinimumFloor(t *testing.T) {
	require.Equal(t, 500, estimateByCharCount(&model.ModelInferenceRequest{}))
}

func TestEstimateByCharCountScalesWithContent(t *testing.T) {
	req := &model.ModelInferenceRequest{
		Messages: []model.Message{
			{Role: model.RoleUser, Content: []model.OutputContent{model.TextOutput{Text: string(make([]byte, 3000))}}},
		},
	}
	got := estimateByCharCount(req)
	require.Greater(t, got, 500)
}

func TestEncodingForModelPrefixMatch(t *testing.T) {
	enc, ok := encodingForModel("gpt-4o-mini")
	require.True(t, ok)
	require.Equal(t, "o200k_base", enc)
}

func TestEncodingForModelUnknownFamily(t *testing.T) {
	_, ok := encodingForModel("claude-3-opus")
	require.False(t, ok)
}

func TestTiktokenEstimatorFallsBackForUnknownFamily(t *testing.T) {
	est := NewTiktokenEstimator("claude-3-opus")
	req := &model.ModelInferenceRequest{
		Messages: []model.Message{
			{Role: model.RoleUser, Content: []model.OutputContent{model.TextOutput{Text: "hello"}}},
		},
	}
	require.Equal(t, estimateByCharCount(req), est.Estimate(req))
}
