// Package orchestrator implements the Inference Orchestrator of §2: it
// wires a request's Function (validation, tool config, response shaping),
// its target Model (provider fallback and cache coherence), and the
// normalized request/response types together into the single end-to-end
// call every transport surface (the OpenAI-compatible HTTP API, eventually
// a native surface) drives.
//
// Grounded on goadesign-goa-ai's features/model/gateway.Server, the
// teacher's own "one entrypoint composes validation, routing, and
// response shaping" component, generalized from a flat model.Client call
// into the function/variant dispatch §2-§4.4 require.
package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/inferly/gatewaycore/internal/function"
	"github.com/inferly/gatewaycore/internal/gatewayerr"
	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
	"github.com/inferly/gatewaycore/internal/routing"
	"github.com/inferly/gatewaycore/internal/telemetry"
)

// VariantEntry is one named realization of a Function (a Variant): its model
// selection, sampling-parameter defaults applied when the caller's request
// leaves them unset, optional static extra_body/extra_headers overlays
// spliced in ahead of the request-level entries, and a selection weight.
type VariantEntry struct {
	Model  *routing.Model
	Weight float64

	Temperature *float32
	MaxTokens   *int
	TopP        *float32

	ExtraBody    []model.ExtraBodyEntry
	ExtraHeaders map[string]string
}

// FunctionEntry pairs a configured Function with its routing targets, keyed
// by function name in a Gateway's registry. Variants, when present, are the
// function's named realizations; Model is the fallback route for a function
// wired without an explicit variant table (it behaves as a single variant
// named "default").
type FunctionEntry struct {
	Function function.Function
	Model    *routing.Model
	Variants map[string]VariantEntry
}

// Gateway is the top-level registry an HTTP surface calls into: named
// functions (routed through their own Model) and named models (addressed
// directly via tensorzero::model_name::, bypassing function validation).
type Gateway struct {
	functions map[string]FunctionEntry
	models    map[string]*routing.Model
	logger    *zap.Logger
}

// Option configures a Gateway during construction.
type Option func(*Gateway)

// WithLogger overrides the default no-op zap.Logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// New builds a Gateway from its function and model registries.
func New(functions map[string]FunctionEntry, models map[string]*routing.Model, opts ...Option) *Gateway {
	g := &Gateway{functions: functions, models: models, logger: zap.NewNop()}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Request is the orchestrator-facing request shape: a normalized input
// plus the routing target and per-call overrides an openaicompat.Params
// (or any future transport-specific normalizer) already resolved.
type Request struct {
	FunctionName *string
	ModelName    *string

	// VariantName pins the function call to one named variant instead of
	// letting the gateway select by weight. Rejected when the function has
	// no variant of that name.
	VariantName *string

	Input model.Input

	DynamicTools function.DynamicToolParams
	JSONMode     model.JSONMode

	InferenceID string

	Temperature      *float32
	MaxTokens        *int
	TopP             *float32
	PresencePenalty  *float32
	FrequencyPenalty *float32
	Seed             *int64
	StopSequences    []string

	ExtraBody    []model.ExtraBodyEntry
	ExtraHeaders map[string]string

	// DynamicCredentials is the per-request credential map backing
	// dynamic::KEY provider credential locations.
	DynamicCredentials map[string]string

	// CacheMode/CacheMaxAgeS carry the request's tensorzero::cache_options
	// override; empty/nil defers to the routing Model's configured mode.
	CacheMode    string
	CacheMaxAgeS *int64
}

// Result is the orchestrator's output: exactly one of Chat or JSON is set,
// mirroring the Function variant that produced it. VariantName is the
// variant that served a function call, or the model name for a direct
// model target.
type Result struct {
	Chat        *function.ChatResult
	JSON        *function.JSONResult
	Cached      bool
	VariantName string
}

// StreamResult is InferStream's output, carrying the same routing metadata
// as Result alongside the live chunk stream.
type StreamResult struct {
	Stream      provider.Stream
	Cached      bool
	VariantName string
}

// Infer implements §2's orchestration: resolve the function or model
// target, validate input and prepare tool config (function calls only),
// render the request into provider-facing messages, dispatch through the
// target Model's fallback list, and shape the response back into a Chat
// or JSON result.
func (g *Gateway) Infer(ctx context.Context, req Request) (*Result, error) {
	if req.FunctionName == nil && req.ModelName == nil {
		return nil, gatewayerr.New(gatewayerr.KindInvalidRequest, "request names neither a function nor a model target")
	}

	resolved, err := g.resolve(req)
	if err != nil {
		return nil, err
	}

	resp, cached, err := resolved.model.Infer(ctx, resolved.inferReq)
	telemetry.RoutingAttemptsTotal.WithLabelValues(resolved.label, resolved.label, outcomeLabel(err)).Inc()
	if err != nil {
		g.logger.Warn("inference exhausted every provider", zap.String("target", resolved.label), zap.Error(err))
		return nil, err
	}

	if resolved.functionType == model.FunctionTypeJSON {
		return &Result{
			JSON:        function.PrepareJSONResponse(resolved.jsonFn, resp, nil, g.logger),
			Cached:      cached,
			VariantName: resolved.variantName,
		}, nil
	}
	return &Result{Chat: function.PrepareChatResponse(resp), Cached: cached, VariantName: resolved.variantName}, nil
}

// resolvedRequest is the shared result of resolving a Request's target and
// preparing its ModelInferenceRequest, common to both Infer and
// InferStream.
type resolvedRequest struct {
	model        *routing.Model
	inferReq     *model.ModelInferenceRequest
	functionType model.FunctionType
	jsonFn       *function.JSONFunction
	label        string
	variantName  string
}

func (g *Gateway) resolve(req Request) (*resolvedRequest, error) {
	if req.ModelName != nil {
		m, ok := g.models[*req.ModelName]
		if !ok {
			return nil, gatewayerr.New(gatewayerr.KindConfig, "unknown model \""+*req.ModelName+"\"")
		}
		messages, system := function.RenderMessages(req.Input)
		return &resolvedRequest{
			model: m,
			inferReq: &model.ModelInferenceRequest{
				InferenceID:        req.InferenceID,
				Messages:           messages,
				System:             system,
				Temperature:        req.Temperature,
				MaxTokens:          req.MaxTokens,
				Seed:               req.Seed,
				TopP:               req.TopP,
				PresencePenalty:    req.PresencePenalty,
				FrequencyPenalty:   req.FrequencyPenalty,
				StopSequences:      req.StopSequences,
				JSONMode:           req.JSONMode,
				FunctionType:       model.FunctionTypeChat,
				ExtraBody:          req.ExtraBody,
				ExtraHeaders:       req.ExtraHeaders,
				DynamicCredentials: req.DynamicCredentials,
				CacheMode:          req.CacheMode,
				CacheMaxAgeS:       req.CacheMaxAgeS,
			},
			functionType: model.FunctionTypeChat,
			label:        *req.ModelName,
			variantName:  *req.ModelName,
		}, nil
	}

	name := *req.FunctionName
	entry, ok := g.functions[name]
	if !ok {
		return nil, gatewayerr.New(gatewayerr.KindConfig, "unknown function \""+name+"\"")
	}
	if err := function.ValidateInput(entry.Function, req.Input); err != nil {
		return nil, err
	}

	var toolConfig *model.ToolCallConfig
	functionType := model.FunctionTypeChat
	var jsonFn *function.JSONFunction

	switch fn := entry.Function.(type) {
	case *function.ChatFunction:
		cfg, err := function.PrepareToolConfig(fn, req.DynamicTools)
		if err != nil {
			return nil, err
		}
		toolConfig = cfg
	case *function.JSONFunction:
		functionType = model.FunctionTypeJSON
		jsonFn = fn
		if req.JSONMode == model.JSONModeImplicitTool {
			dynamicSupplied := len(req.DynamicTools.AdditionalTools) > 0 || len(req.DynamicTools.AllowedTools) > 0 ||
				req.DynamicTools.ToolChoice != nil || req.DynamicTools.ParallelToolCalls != nil
			cfg, err := function.PrepareImplicitToolConfig(fn, dynamicSupplied)
			if err != nil {
				return nil, err
			}
			toolConfig = cfg
		}
	default:
		return nil, gatewayerr.New(gatewayerr.KindInternal, "unrecognized function variant")
	}

	variantName, variant, err := selectVariant(entry, req.VariantName, name)
	if err != nil {
		return nil, err
	}

	inferReq := &model.ModelInferenceRequest{
		InferenceID:        req.InferenceID,
		ToolConfig:         toolConfig,
		Temperature:        req.Temperature,
		MaxTokens:          req.MaxTokens,
		Seed:               req.Seed,
		TopP:               req.TopP,
		PresencePenalty:    req.PresencePenalty,
		FrequencyPenalty:   req.FrequencyPenalty,
		StopSequences:      req.StopSequences,
		JSONMode:           req.JSONMode,
		FunctionType:       functionType,
		DynamicCredentials: req.DynamicCredentials,
		CacheMode:          req.CacheMode,
		CacheMaxAgeS:       req.CacheMaxAgeS,
	}
	applyVariantDefaults(inferReq, variant, req)

	inferReq.Messages, inferReq.System = function.RenderMessages(req.Input)

	return &resolvedRequest{
		model:        variant.Model,
		inferReq:     inferReq,
		functionType: functionType,
		jsonFn:       jsonFn,
		label:        name,
		variantName:  variantName,
	}, nil
}

// selectVariant resolves a function call's variant: a pinned name must
// exist; otherwise the highest-weight variant wins (ties broken by name for
// determinism), and a function wired with only a Model behaves as a single
// variant named "default".
func selectVariant(entry FunctionEntry, pinned *string, functionName string) (string, VariantEntry, error) {
	if pinned != nil {
		v, ok := entry.Variants[*pinned]
		if !ok {
			return "", VariantEntry{}, gatewayerr.New(gatewayerr.KindInvalidRequest,
				"function \""+functionName+"\" has no variant named \""+*pinned+"\"")
		}
		if v.Model == nil {
			return "", VariantEntry{}, gatewayerr.New(gatewayerr.KindConfig,
				"variant \""+*pinned+"\" of function \""+functionName+"\" has no routable model")
		}
		return *pinned, v, nil
	}
	if len(entry.Variants) > 0 {
		var bestName string
		var best VariantEntry
		for name, v := range entry.Variants {
			if bestName == "" || v.Weight > best.Weight || (v.Weight == best.Weight && name < bestName) {
				bestName, best = name, v
			}
		}
		if best.Model == nil {
			return "", VariantEntry{}, gatewayerr.New(gatewayerr.KindConfig,
				"variant \""+bestName+"\" of function \""+functionName+"\" has no routable model")
		}
		return bestName, best, nil
	}
	if entry.Model == nil {
		return "", VariantEntry{}, gatewayerr.New(gatewayerr.KindConfig,
			"function \""+functionName+"\" has no routable model")
	}
	return "default", VariantEntry{Model: entry.Model}, nil
}

// applyVariantDefaults fills the variant's sampling defaults into the
// request where the caller left them unset, and carries the variant's
// extra_body/extra_headers overlay as its own tier alongside the request's,
// preserving the variant < provider < request precedence adapters enforce
// via provider.InjectExtraRequestData.
func applyVariantDefaults(inferReq *model.ModelInferenceRequest, variant VariantEntry, req Request) {
	if inferReq.Temperature == nil {
		inferReq.Temperature = variant.Temperature
	}
	if inferReq.MaxTokens == nil {
		inferReq.MaxTokens = variant.MaxTokens
	}
	if inferReq.TopP == nil {
		inferReq.TopP = variant.TopP
	}

	inferReq.VariantExtraBody = variant.ExtraBody
	inferReq.ExtraBody = req.ExtraBody
	inferReq.VariantExtraHeaders = variant.ExtraHeaders
	inferReq.ExtraHeaders = req.ExtraHeaders
}

// InferStream implements §2's streaming path. JSON functions are not
// supported here: §4.4's JSON-bearing-block extraction needs the full,
// completed output, so streaming is restricted to Chat functions and
// direct model targets.
func (g *Gateway) InferStream(ctx context.Context, req Request) (*StreamResult, error) {
	resolved, err := g.resolve(req)
	if err != nil {
		return nil, err
	}
	if resolved.functionType == model.FunctionTypeJSON {
		return nil, gatewayerr.New(gatewayerr.KindInvalidRequest,
			"streaming is not supported for json functions")
	}
	resolved.inferReq.Stream = true

	stream, cached, err := resolved.model.InferStream(ctx, resolved.inferReq)
	telemetry.RoutingAttemptsTotal.WithLabelValues(resolved.label, resolved.label, outcomeLabel(err)).Inc()
	if err != nil {
		return nil, err
	}
	return &StreamResult{Stream: stream, Cached: cached, VariantName: resolved.variantName}, nil
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	return "error"
}
