package compatible

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferly/gatewaycore/internal/credential"
	"github.com/inferly/gatewaycore/internal/provider"
)

func TestDefaultCredentialEnvKnownFamily(t *testing.T) {
	cl := New(provider.CompatibleConfig{Family: "together", Model: "meta-llama/Llama-3-70b", APIBase: "https://api.together.xyz/v1"})
	assert.Equal(t, "together", cl.cfg.Family)
}

func TestUnknownFamilyHasNoDefaultCredentialEnv(t *testing.T) {
	_, ok := defaultCredentialEnv["vllm"]
	assert.False(t, ok, "self-hosted families must not silently look for an API key env var")
}

func TestResolveDoesNotCacheDynamicallyCredentialedClient(t *testing.T) {
	loc := credential.Location{Kind: credential.KindDynamic, Arg: "together_key"}
	cl := New(provider.CompatibleConfig{
		Family:             "together",
		Model:              "meta-llama/Llama-3-70b",
		APIBase:            "https://api.together.xyz/v1",
		CredentialLocation: &loc,
	})

	inner, err := cl.resolve(map[string]string{"together_key": "sk-one"})
	require.NoError(t, err)
	require.NotNil(t, inner)
	assert.Nil(t, cl.inner, "a request-scoped credential must not be memoized")

	_, err = cl.resolve(nil)
	require.Error(t, err, "a dynamic location without the per-request key must fail")
}
