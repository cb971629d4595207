package openaicompat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseModelStringFunctionName(t *testing.T) {
	target, err := ParseModelString("tensorzero::function_name::chat_fn")
	require.NoError(t, err)
	require.NotNil(t, target.FunctionName)
	require.Equal(t, "chat_fn", *target.FunctionName)
	require.Nil(t, target.ModelName)
}

func TestParseModelStringModelName(t *testing.T) {
	target, err := ParseModelString("tensorzero::model_name::claude-3")
	require.NoError(t, err)
	require.NotNil(t, target.ModelName)
	require.Equal(t, "claude-3", *target.ModelName)
}

func TestParseModelStringRejectsEmptySuffix(t *testing.T) {
	_, err := ParseModelString("tensorzero::function_name::")
	require.Error(t, err)
}

func TestParseModelStringRejectsMissingPrefix(t *testing.T) {
	_, err := ParseModelString("gpt-4")
	require.Error(t, err)
}

func TestParseEmbeddingModelStringAcceptsMissingPrefixWithDeprecation(t *testing.T) {
	name, deprecated := ParseEmbeddingModelString("text-embedding-3-small")
	require.True(t, deprecated)
	require.Equal(t, "text-embedding-3-small", name)

	name, deprecated = ParseEmbeddingModelString("tensorzero::embedding_model_name::text-embedding-3-small")
	require.False(t, deprecated)
	require.Equal(t, "text-embedding-3-small", name)
}
