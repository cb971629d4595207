package gatewayerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorMessageFallsBackToKindWhenNoMessage(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Wrap(KindInferenceServer, "", cause)
	require.Equal(t, "inference_server: dial tcp: timeout", err.Error())
}

func TestErrorMessageTakesPriorityOverCause(t *testing.T) {
	err := Wrap(KindInvalidRequest, "missing model field", errors.New("ignored"))
	require.Equal(t, "invalid_request: missing model field", err.Error())
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindInternal, "wrapping", cause)
	require.ErrorIs(t, err, cause)
}

func TestFromProviderClassifiesByStatus(t *testing.T) {
	clientErr := FromProvider("anthropic", 429, true, "rate limited", nil)
	require.Equal(t, KindInferenceClient, clientErr.Kind)
	require.True(t, clientErr.Retryable)

	serverErr := FromProvider("openai", 503, true, "unavailable", nil)
	require.Equal(t, KindInferenceServer, serverErr.Kind)
}

func TestExhaustedAggregatesProviderErrors(t *testing.T) {
	errs := map[string]error{"anthropic": errors.New("down"), "bedrock": errors.New("throttled")}
	err := Exhausted(errs)
	require.Equal(t, KindModelProvidersExhausted, err.Kind)
	require.Len(t, err.ProviderErrors, 2)
	require.Contains(t, err.Error(), "2 model providers failed")
}

func TestHTTPStatusForKind(t *testing.T) {
	require.Equal(t, 400, HTTPStatusForKind(KindInvalidRequest))
	require.Equal(t, 401, HTTPStatusForKind(KindAPIKeyMissing))
	require.Equal(t, 500, HTTPStatusForKind(KindInferenceServer))
	require.Equal(t, 500, HTTPStatusForKind(Kind("unknown")))
}
