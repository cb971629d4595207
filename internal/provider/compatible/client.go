// Package compatible implements provider.Provider for the family of
// backends that speak the OpenAI Chat Completions wire format against a
// non-OpenAI base URL: Together AI, Fireworks, Mistral, xAI, DeepSeek,
// OpenRouter, Hyperbolic, and self-hosted vLLM/TGI/SGLang deployments. It
// is a thin wrapper around internal/provider/openai's adapter, since the
// wire format is identical; the only per-family difference is the base URL
// and default credential env var.
package compatible

import (
	"context"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/inferly/gatewaycore/internal/credential"
	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/provider"
	"github.com/inferly/gatewaycore/internal/provider/openai"
)

// defaultCredentialEnv maps a known compatible family to the environment
// variable its API key conventionally lives in. Families not listed here
// require an explicit CredentialLocation in CompatibleConfig.
var defaultCredentialEnv = map[string]string{
	"together":   "TOGETHER_API_KEY",
	"fireworks":  "FIREWORKS_API_KEY",
	"mistral":    "MISTRAL_API_KEY",
	"xai":        "XAI_API_KEY",
	"deepseek":   "DEEPSEEK_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"hyperbolic": "HYPERBOLIC_API_KEY",
}

// New builds a provider.Provider for an OpenAI-compatible backend. The
// underlying OpenAI SDK client is constructed lazily via a credential
// resolved from cfg.CredentialLocation, or from the family's conventional
// default env var when unset. Self-hosted families (vllm, tgi, sglang)
// typically have no credential at all; callers should set
// CredentialLocation to credential.Location{Kind: credential.KindNone} for
// those.
func New(cfg provider.CompatibleConfig) *Client {
	return &Client{cfg: cfg}
}

type Client struct {
	cfg      provider.CompatibleConfig
	credCell credential.DefaultCache[model.Credential]
	inner    *openai.Client
}

func (l *Client) resolve(dynCredentials map[string]string) (*openai.Client, error) {
	if l.inner != nil {
		return l.inner, nil
	}
	defaultLoc := credential.Location{Kind: credential.KindNone}
	if env, ok := defaultCredentialEnv[l.cfg.Family]; ok {
		defaultLoc = credential.Location{Kind: credential.KindEnv, Arg: env}
	}
	cred, err := credential.BuildDefaultCached(l.cfg.CredentialLocation, defaultLoc, "compatible::"+l.cfg.Family, &l.credCell, credential.Resolve)
	if err != nil {
		return nil, err
	}
	_, dynamic := cred.(model.DynamicCredential)
	if cred, err = credential.ResolveDynamic(cred, dynCredentials); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{option.WithBaseURL(l.cfg.APIBase)}
	if secret, ok := cred.(model.StaticCredential); ok {
		opts = append(opts, option.WithAPIKey(secret.Secret))
	}
	if l.cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(l.cfg.HTTPClient))
	}
	cl := sdk.NewClient(opts...)
	inner := openai.NewWithClients(&cl.Chat.Completions, &cl.Embeddings, provider.OpenAIConfig{
		Model:        l.cfg.Model,
		ExtraHeaders: l.cfg.ExtraHeaders,
		ExtraBody:    l.cfg.ExtraBody,
	})
	// A dynamically-credentialed client is request-scoped: caching it would
	// leak one caller's secret into every later request.
	if !dynamic {
		l.inner = inner
	}
	return inner, nil
}

func (l *Client) Infer(ctx context.Context, req *model.ModelInferenceRequest) (*model.ProviderInferenceResponse, error) {
	inner, err := l.resolve(req.DynamicCredentials)
	if err != nil {
		return nil, err
	}
	return inner.Infer(ctx, req)
}

func (l *Client) InferStream(ctx context.Context, req *model.ModelInferenceRequest) (provider.Stream, error) {
	inner, err := l.resolve(req.DynamicCredentials)
	if err != nil {
		return nil, err
	}
	return inner.InferStream(ctx, req)
}

// Embed implements embedding.Provider for the families (Together,
// Fireworks, self-hosted vLLM/TGI) that expose an OpenAI-compatible
// /v1/embeddings route alongside chat completions.
func (l *Client) Embed(ctx context.Context, texts []string) ([][]float32, model.Usage, error) {
	inner, err := l.resolve(nil)
	if err != nil {
		return nil, model.Usage{}, err
	}
	return inner.Embed(ctx, texts)
}
