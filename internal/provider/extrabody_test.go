package provider_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
)

func TestInjectExtraRequestDataPrecedence(t *testing.T) {
	payload := map[string]any{"temperature": 0.5, "metadata": map[string]any{"tag": "base"}}

	merged, headers, err := provider.InjectExtraRequestData(
		payload,
		[]model.ExtraBodyEntry{{Pointer: "/metadata/tag", Value: "variant"}},
		[]model.ExtraBodyEntry{{Pointer: "/metadata/tag", Value: "provider"}},
		[]model.ExtraBodyEntry{{Pointer: "/temperature", Value: 0.9}},
		map[string]string{"X-Source": "variant"},
		map[string]string{"X-Source": "provider"},
		map[string]string{"X-Request": "request"},
	)
	require.NoError(t, err)

	assert.Equal(t, "provider", merged["metadata"].(map[string]any)["tag"], "request did not override this pointer, provider's value should win over variant's")
	assert.Equal(t, 0.9, merged["temperature"])
	assert.Equal(t, "provider", headers["X-Source"], "request-level headers should win ties, but only request set a distinct key here")
	assert.Equal(t, "request", headers["X-Request"])

	// original payload untouched
	assert.Equal(t, 0.5, payload["temperature"])
}

func TestInjectExtraRequestDataCreatesIntermediateObjects(t *testing.T) {
	merged, _, err := provider.InjectExtraRequestData(
		map[string]any{},
		nil, nil,
		[]model.ExtraBodyEntry{{Pointer: "/a/b/c", Value: 1}},
		nil, nil, nil,
	)
	require.NoError(t, err)
	assert.Equal(t, 1, merged["a"].(map[string]any)["b"].(map[string]any)["c"])
}

func TestInjectExtraRequestDataRejectsMalformedPointer(t *testing.T) {
	_, _, err := provider.InjectExtraRequestData(
		map[string]any{},
		nil, nil,
		[]model.ExtraBodyEntry{{Pointer: "no-leading-slash", Value: 1}},
		nil, nil, nil,
	)
	assert.Error(t, err)
}
