package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inferly/gatewaycore/internal/model"
)

type fakeEmbedProvider struct {
	vectors [][]float32
	err     error
}

func (f *fakeEmbedProvider) Embed(ctx context.Context, texts []string) ([][]float32, model.Usage, error) {
	if f.err != nil {
		return nil, model.Usage{}, f.err
	}
	return f.vectors, model.Usage{InputTokens: len(texts)}, nil
}

func TestEmbedFallsBackToSecondProvider(t *testing.T) {
	primary := &fakeEmbedProvider{err: gatewayErr()}
	secondary := &fakeEmbedProvider{vectors: [][]float32{{0.1, 0.2}}}

	m, err := New("embed-m", []string{"primary", "secondary"}, map[string]ModelProvider{
		"primary":   {Name: "primary", Provider: primary},
		"secondary": {Name: "secondary", Provider: secondary},
	})
	require.NoError(t, err)

	vectors, _, err := m.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Equal(t, secondary.vectors, vectors)
}

func TestEmbedExhaustedWhenAllFail(t *testing.T) {
	primary := &fakeEmbedProvider{err: gatewayErr()}
	m, err := New("embed-m", []string{"primary"}, map[string]ModelProvider{
		"primary": {Name: "primary", Provider: primary},
	})
	require.NoError(t, err)

	_, _, err = m.Embed(context.Background(), []string{"hello"})
	require.Error(t, err)
}

func gatewayErr() error { return &fakeErr{} }

type fakeErr struct{}

func (*fakeErr) Error() string { return "boom" }
