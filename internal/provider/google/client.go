// Package google implements provider.Provider against Google's Gemini
// models via github.com/google/generative-ai-go/genai. Gemini has no
// native tool_choice "none" and represents tool calls as untyped
// FunctionCall parts rather than streamed JSON fragments, so unlike the
// Anthropic/OpenAI families this adapter buffers each tool call's
// arguments whole rather than decoding incremental JSON.
package google

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/inferly/gatewaycore/internal/credential"
	"github.com/inferly/gatewaycore/internal/gatewayerr"
	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
)

// GenerativeModel is the subset of *genai.GenerativeModel the adapter
// needs, narrowed for test substitution following the MessagesClient /
// ChatClient / RuntimeClient pattern used by the other adapters.
type GenerativeModel interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, parts ...genai.Part) *genai.GenerateContentResponseIterator
}

// EmbeddingModel is the subset of *genai.EmbeddingModel the adapter needs
// for the §4.8 EXPANSION embeddings path.
type EmbeddingModel interface {
	EmbedContent(ctx context.Context, parts ...genai.Part) (*genai.EmbedContentResponse, error)
}

// Client implements provider.Provider against the Gemini Generative
// Language API.
type Client struct {
	newModel      func(ctx context.Context, dynCredentials map[string]string) (GenerativeModel, error)
	newEmbedModel func(ctx context.Context) (EmbeddingModel, error)
	cfg           provider.GoogleConfig
	credCell      credential.DefaultCache[model.Credential]
}

// New builds a Client. The underlying *genai.Client (and its
// GenerativeModel) is constructed lazily on first use once the API key
// credential resolves, since credential resolution can fail and genai.New
// performs network-free but allocation-bearing setup.
func New(cfg provider.GoogleConfig) *Client {
	c := &Client{cfg: cfg}
	c.newModel = c.buildModel
	c.newEmbedModel = c.buildEmbedModel
	return c
}

// NewWithModel bypasses SDK construction entirely, for tests.
func NewWithModel(m GenerativeModel, cfg provider.GoogleConfig) *Client {
	return &Client{cfg: cfg, newModel: func(context.Context, map[string]string) (GenerativeModel, error) { return m, nil }}
}

// NewWithEmbedModel bypasses SDK construction for the embeddings path
// specifically, for tests.
func NewWithEmbedModel(m EmbeddingModel, cfg provider.GoogleConfig) *Client {
	return &Client{cfg: cfg, newEmbedModel: func(context.Context) (EmbeddingModel, error) { return m, nil }}
}

func (c *Client) resolveCredential(ctx context.Context, dynCredentials map[string]string) (*genai.Client, error) {
	defaultLoc := credential.Location{Kind: credential.KindEnv, Arg: "GOOGLE_API_KEY"}
	cred, err := credential.BuildDefaultCached(c.cfg.CredentialLocation, defaultLoc, "google", &c.credCell, credential.Resolve)
	if err != nil {
		return nil, err
	}
	if cred, err = credential.ResolveDynamic(cred, dynCredentials); err != nil {
		return nil, err
	}
	secret, ok := cred.(model.StaticCredential)
	if !ok {
		return nil, fmt.Errorf("google: credential must resolve to a static API key")
	}
	// Note: genai.NewClient rejects combining WithAPIKey with WithHTTPClient
	// (the generated google-api-go-client option validator treats them as
	// conflicting auth sources), so GoogleConfig.HTTPClient is accepted for
	// interface consistency with the other providers but intentionally not
	// threaded through here.
	cl, err := genai.NewClient(ctx, option.WithAPIKey(secret.Secret))
	if err != nil {
		return nil, fmt.Errorf("google: creating client: %w", err)
	}
	return cl, nil
}

func (c *Client) buildModel(ctx context.Context, dynCredentials map[string]string) (GenerativeModel, error) {
	cl, err := c.resolveCredential(ctx, dynCredentials)
	if err != nil {
		return nil, err
	}
	return cl.GenerativeModel(c.cfg.Model), nil
}

func (c *Client) buildEmbedModel(ctx context.Context) (EmbeddingModel, error) {
	cl, err := c.resolveCredential(ctx, nil)
	if err != nil {
		return nil, err
	}
	return cl.EmbeddingModel(c.cfg.Model), nil
}

// Embed implements embedding.Provider (§4.8's EXPANSION) against
// Gemini's embedContent endpoint. The API embeds one content at a time,
// so unlike OpenAI's batched /v1/embeddings, this issues one call per
// input text; Gemini's response carries no per-call token usage, so
// Usage is left zero-valued.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, model.Usage, error) {
	em, err := c.newEmbedModel(ctx)
	if err != nil {
		return nil, model.Usage{}, err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		resp, err := em.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, model.Usage{}, translateError(err)
		}
		if resp.Embedding == nil {
			return nil, model.Usage{}, fmt.Errorf("google: embedContent returned no embedding for input %d", i)
		}
		vectors[i] = resp.Embedding.Values
	}
	return vectors, model.Usage{}, nil
}

func (c *Client) Infer(ctx context.Context, req *model.ModelInferenceRequest) (*model.ProviderInferenceResponse, error) {
	gm, err := c.newModel(ctx, req.DynamicCredentials)
	if err != nil {
		return nil, err
	}
	configure(gm, req)
	parts, err := encodeParts(req.Messages)
	if err != nil {
		return nil, err
	}
	resp, err := gm.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, translateError(err)
	}
	out, err := translateResponse(resp, req)
	if err != nil {
		return nil, err
	}
	out.RawRequest = rawRequestJSON(parts)
	return out, nil
}

// rawRequestJSON approximates the raw_request capture the Anthropic/OpenAI
// adapters get for free from their SDKs' request structs: genai has no
// equivalent serializable request type, so this marshals the part list
// actually sent, which is sufficient for cache-key debugging and
// raw_request logging purposes.
func rawRequestJSON(parts []genai.Part) string {
	data, err := json.Marshal(parts)
	if err != nil {
		return ""
	}
	return string(data)
}

func (c *Client) InferStream(ctx context.Context, req *model.ModelInferenceRequest) (provider.Stream, error) {
	gm, err := c.newModel(ctx, req.DynamicCredentials)
	if err != nil {
		return nil, err
	}
	configure(gm, req)
	parts, err := encodeParts(req.Messages)
	if err != nil {
		return nil, err
	}
	iter := gm.GenerateContentStream(ctx, parts...)
	d := &decoder{iter: iter, rawRequest: rawRequestJSON(parts), prefill: provider.WantsJSONPrefill(req), firstText: true}
	// Peek the first chunk synchronously so setup-time auth/4xx errors
	// surface before the stream is handed to the caller, per §4.2.
	if err := d.peek(); err != nil {
		return nil, err
	}
	return d, nil
}

func configure(gm GenerativeModel, req *model.ModelInferenceRequest) {
	m, ok := gm.(*genai.GenerativeModel)
	if !ok {
		return
	}
	if req.System != nil && *req.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(*req.System)}}
	}
	if req.Temperature != nil {
		t := *req.Temperature
		if t > 1.0 {
			t = 1.0
		}
		m.SetTemperature(t)
	}
	if req.MaxTokens != nil {
		m.SetMaxOutputTokens(int32(*req.MaxTokens))
	}
	if req.TopP != nil {
		m.SetTopP(*req.TopP)
	}
	if len(req.StopSequences) > 0 {
		m.StopSequences = req.StopSequences
	}
	toolsNonEmpty := req.ToolConfig != nil && len(req.ToolConfig.Tools) > 0
	if toolsNonEmpty {
		m.Tools = encodeTools(req.ToolConfig.Tools)
		if choice, ok := provider.TranslateToolChoice(req.ToolConfig.ToolChoice, toolsNonEmpty); ok {
			if choice.SuppressTools {
				m.Tools = nil
			} else {
				mode := genai.FunctionCallingAuto
				var allowed []string
				switch choice.Mode {
				case model.ToolChoiceRequired:
					mode = genai.FunctionCallingAny
				case model.ToolChoiceSpecific:
					mode = genai.FunctionCallingAny
					allowed = []string{choice.Name}
				}
				m.ToolConfig = &genai.ToolConfig{
					FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: mode, AllowedFunctionNames: allowed},
				}
			}
		}
	}
}

func encodeTools(defs []model.ToolDefinition) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, d := range defs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  schemaFromJSONSchema(d.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// schemaFromJSONSchema translates a minimal subset of JSON Schema (object
// with typed properties) into genai.Schema; Gemini's schema dialect does
// not cover the full JSON Schema vocabulary, so nested combinators
// ($ref/oneOf/anyOf) are not translated and such tools should avoid them.
func schemaFromJSONSchema(js map[string]any) *genai.Schema {
	if js == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}
	s := &genai.Schema{Type: genai.TypeObject}
	if props, ok := js["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			propSchema, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			s.Properties[name] = &genai.Schema{Type: jsonTypeToGenai(propSchema["type"])}
		}
	}
	if req, ok := js["required"].([]any); ok {
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	return s
}

func jsonTypeToGenai(t any) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

func encodeParts(messages []model.Message) ([]genai.Part, error) {
	var parts []genai.Part
	for _, m := range messages {
		for _, c := range m.Content {
			switch v := c.(type) {
			case model.TextOutput:
				if v.Text != "" {
					parts = append(parts, genai.Text(v.Text))
				}
			case model.ToolCallOutput:
				var args map[string]any
				if len(v.Arguments) > 0 {
					if err := json.Unmarshal([]byte(v.Arguments), &args); err != nil {
						return nil, fmt.Errorf("google: decoding tool call arguments: %w", err)
					}
				}
				parts = append(parts, genai.FunctionCall{Name: v.Name, Args: args})
			}
		}
	}
	return parts, nil
}

func translateResponse(resp *genai.GenerateContentResponse, req *model.ModelInferenceRequest) (*model.ProviderInferenceResponse, error) {
	var out []model.OutputContent
	var reason *model.FinishReason
	firstText := true
	if len(resp.Candidates) > 0 {
		cand := resp.Candidates[0]
		if cand.Content != nil {
			for _, p := range cand.Content.Parts {
				switch v := p.(type) {
				case genai.Text:
					text := string(v)
					if text == "" {
						continue
					}
					if firstText && provider.WantsJSONPrefill(req) {
						text = provider.ReopenJSONPrefillText(text)
					}
					firstText = false
					out = append(out, model.TextOutput{Text: text})
				case genai.FunctionCall:
					args, err := json.Marshal(v.Args)
					if err != nil {
						return nil, fmt.Errorf("google: encoding tool call arguments: %w", err)
					}
					out = append(out, model.ToolCallOutput{Name: v.Name, Arguments: string(args)})
				}
			}
		}
		if cand.FinishReason != genai.FinishReasonUnspecified {
			r := provider.NormalizeFinishReason(finishReasonTable, cand.FinishReason.String())
			reason = &r
		}
	}

	var usage model.Usage
	if resp.UsageMetadata != nil {
		usage = model.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	return &model.ProviderInferenceResponse{
		Output:       out,
		Usage:        usage,
		FinishReason: reason,
	}, nil
}

var finishReasonTable = map[string]model.FinishReason{
	"STOP":          model.FinishReasonStop,
	"MAX_TOKENS":    model.FinishReasonLength,
	"SAFETY":        model.FinishReasonContentFilter,
	"RECITATION":    model.FinishReasonContentFilter,
}

func translateError(err error) error {
	if err == nil || err == iterator.Done {
		return err
	}
	return gatewayerr.FromProvider("google", 0, true, err.Error(), err)
}
