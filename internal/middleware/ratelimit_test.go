package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inferly/gatewaycore/internal/gatewayerr"
	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
)

type fakeProvider struct {
	inferErr error
	calls    int
}

func (f *fakeProvider) Infer(ctx context.Context, req *model.ModelInferenceRequest) (*model.ProviderInferenceResponse, error) {
	f.calls++
	if f.inferErr != nil {
		return nil, f.inferErr
	}
	return &model.ProviderInferenceResponse{}, nil
}

func (f *fakeProvider) InferStream(ctx context.Context, req *model.ModelInferenceRequest) (provider.Stream, error) {
	return nil, nil
}

func TestAdaptiveRateLimiterProbesUpOnSuccess(t *testing.T) {
	fp := &fakeProvider{}
	limiter := NewAdaptiveRateLimiter(1000, 2000, &charCountOnlyEstimator{}, nil)
	wrapped := limiter.Middleware()(fp)

	_, err := wrapped.Infer(context.Background(), &model.ModelInferenceRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, fp.calls)
	require.Greater(t, limiter.currentTPM, 1000.0)
}

func TestAdaptiveRateLimiterBacksOffOn429(t *testing.T) {
	fp := &fakeProvider{inferErr: &gatewayerr.Error{Kind: gatewayerr.KindInferenceServer, HTTPStatus: 429}}
	limiter := NewAdaptiveRateLimiter(1000, 2000, &charCountOnlyEstimator{}, nil)
	wrapped := limiter.Middleware()(fp)

	_, err := wrapped.Infer(context.Background(), &model.ModelInferenceRequest{})
	require.Error(t, err)
	require.Less(t, limiter.currentTPM, 1000.0)
	require.GreaterOrEqual(t, limiter.currentTPM, limiter.minTPM)
}

func TestAdaptiveRateLimiterBackoffClampsToMin(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(10, 10, &charCountOnlyEstimator{}, nil)
	for i := 0; i < 10; i++ {
		limiter.backoff()
	}
	require.Equal(t, limiter.minTPM, limiter.currentTPM)
}

func TestAdaptiveRateLimiterProbeClampsToMax(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(1000, 1100, &charCountOnlyEstimator{}, nil)
	for i := 0; i < 20; i++ {
		limiter.probe()
	}
	require.Equal(t, limiter.maxTPM, limiter.currentTPM)
}

type charCountOnlyEstimator struct{}

func (charCountOnlyEstimator) Estimate(req *model.ModelInferenceRequest) int { return 1 }
