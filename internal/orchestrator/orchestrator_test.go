package orchestrator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inferly/gatewaycore/internal/function"
	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
	"github.com/inferly/gatewaycore/internal/routing"
	"github.com/inferly/gatewaycore/internal/schema"
)

type fakeProvider struct {
	resp *model.ProviderInferenceResponse
	err  error
}

func (f *fakeProvider) Infer(ctx context.Context, req *model.ModelInferenceRequest) (*model.ProviderInferenceResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeProvider) InferStream(ctx context.Context, req *model.ModelInferenceRequest) (provider.Stream, error) {
	return nil, f.err
}

func newTestModel(t *testing.T, p provider.Provider) *routing.Model {
	t.Helper()
	m, err := routing.New("m", []string{"p1"}, map[string]routing.ModelProvider{
		"p1": {Name: "p1", Provider: p},
	})
	require.NoError(t, err)
	return m
}

func textInput(s string) model.Input {
	v, _ := json.Marshal(s)
	return model.Input{Messages: []model.InputMessage{
		{Role: model.RoleUser, Content: []model.InputContent{model.TextContent{Kind: model.TextKindText, Value: v}}},
	}}
}

func TestInferModelTargetReturnsChatResult(t *testing.T) {
	fp := &fakeProvider{resp: &model.ProviderInferenceResponse{
		Output: []model.OutputContent{model.TextOutput{Text: "hi"}},
	}}
	m := newTestModel(t, fp)
	g := New(nil, map[string]*routing.Model{"m": m})

	name := "m"
	res, err := g.Infer(context.Background(), Request{ModelName: &name, Input: textInput("hello")})
	require.NoError(t, err)
	require.NotNil(t, res.Chat)
	text, ok := res.Chat.Content[0].(model.TextOutput)
	require.True(t, ok)
	require.Equal(t, "hi", text.Text)
}

func TestInferFunctionTargetValidatesAndPreparesTools(t *testing.T) {
	fp := &fakeProvider{resp: &model.ProviderInferenceResponse{
		Output: []model.OutputContent{model.TextOutput{Text: "ok"}},
	}}
	m := newTestModel(t, fp)
	fn := &function.ChatFunction{ToolChoice: model.ToolChoice{Mode: model.ToolChoiceAuto}}
	g := New(map[string]FunctionEntry{
		"greet": {Function: fn, Model: m},
	}, nil)

	name := "greet"
	res, err := g.Infer(context.Background(), Request{FunctionName: &name, Input: textInput("hi")})
	require.NoError(t, err)
	require.NotNil(t, res.Chat)
}

func TestInferFunctionTargetJSONDegradesOnBadOutput(t *testing.T) {
	fp := &fakeProvider{resp: &model.ProviderInferenceResponse{
		Output: []model.OutputContent{model.TextOutput{Text: "not json"}},
	}}
	m := newTestModel(t, fp)
	validator, err := schema.Compile(map[string]any{"type": "object"})
	require.NoError(t, err)
	fn := &function.JSONFunction{OutputSchema: validator}
	g := New(map[string]FunctionEntry{
		"extract": {Function: fn, Model: m},
	}, nil)

	name := "extract"
	res, err := g.Infer(context.Background(), Request{FunctionName: &name, Input: textInput("hi"), JSONMode: model.JSONModeOn})
	require.NoError(t, err)
	require.NotNil(t, res.JSON)
	require.Nil(t, res.JSON.Parsed)
	require.Equal(t, "not json", *res.JSON.Raw)
}

func TestInferUnknownFunctionErrors(t *testing.T) {
	g := New(nil, nil)
	name := "missing"
	_, err := g.Infer(context.Background(), Request{FunctionName: &name})
	require.Error(t, err)
}

func TestInferStreamRejectsJSONFunctions(t *testing.T) {
	fp := &fakeProvider{}
	m := newTestModel(t, fp)
	validator, err := schema.Compile(map[string]any{"type": "object"})
	require.NoError(t, err)
	fn := &function.JSONFunction{OutputSchema: validator}
	g := New(map[string]FunctionEntry{
		"extract": {Function: fn, Model: m},
	}, nil)

	name := "extract"
	_, err = g.InferStream(context.Background(), Request{FunctionName: &name, Input: textInput("hi")})
	require.Error(t, err)
}

func TestInferSelectsVariantByWeightAndPin(t *testing.T) {
	heavy := &fakeProvider{resp: &model.ProviderInferenceResponse{
		Output: []model.OutputContent{model.TextOutput{Text: "heavy"}},
	}}
	light := &fakeProvider{resp: &model.ProviderInferenceResponse{
		Output: []model.OutputContent{model.TextOutput{Text: "light"}},
	}}
	fn := &function.ChatFunction{ToolChoice: model.ToolChoice{Mode: model.ToolChoiceAuto}}
	g := New(map[string]FunctionEntry{
		"greet": {Function: fn, Variants: map[string]VariantEntry{
			"heavy": {Model: newTestModel(t, heavy), Weight: 0.9},
			"light": {Model: newTestModel(t, light), Weight: 0.1},
		}},
	}, nil)

	name := "greet"
	res, err := g.Infer(context.Background(), Request{FunctionName: &name, Input: textInput("hi")})
	require.NoError(t, err)
	require.Equal(t, "heavy", res.VariantName)
	require.Equal(t, "heavy", res.Chat.Content[0].(model.TextOutput).Text)

	pinned := "light"
	res, err = g.Infer(context.Background(), Request{FunctionName: &name, VariantName: &pinned, Input: textInput("hi")})
	require.NoError(t, err)
	require.Equal(t, "light", res.VariantName)

	missing := "nope"
	_, err = g.Infer(context.Background(), Request{FunctionName: &name, VariantName: &missing, Input: textInput("hi")})
	require.Error(t, err)
}
