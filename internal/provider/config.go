package provider

import (
	"net/http"

	"github.com/inferly/gatewaycore/internal/credential"
	"github.com/inferly/gatewaycore/internal/model"
)

// AnthropicConfig configures an internal/provider/anthropic.Client.
type AnthropicConfig struct {
	Model              string
	CredentialLocation *credential.Location // nil selects the default (env::ANTHROPIC_API_KEY)
	APIBase            string               // empty selects the SDK default
	ExtraHeaders       map[string]string

	// ExtraBody carries this ModelProvider's extra_body overlay (§3's
	// ModelProvider tuple), applied between the variant-level overlay
	// (ModelInferenceRequest.VariantExtraBody) and the request-level overlay
	// (ModelInferenceRequest.ExtraBody).
	ExtraBody []model.ExtraBodyEntry

	// HTTPClient is the process-wide shared client from internal/httpclient
	// (§5). Nil selects the SDK's own default transport, which every
	// concrete adapter avoids in production wiring since it defeats the
	// shared connection pool.
	HTTPClient *http.Client
}

func (c AnthropicConfig) ProviderType() string { return "anthropic" }
func (c AnthropicConfig) ModelName() string    { return c.Model }

// OpenAIConfig configures an internal/provider/openai.Client.
type OpenAIConfig struct {
	Model              string
	CredentialLocation *credential.Location // nil selects the default (env::OPENAI_API_KEY)
	APIBase            string
	OrgID              string
	ExtraHeaders       map[string]string
	ExtraBody          []model.ExtraBodyEntry
	HTTPClient         *http.Client
}

func (c OpenAIConfig) ProviderType() string { return "openai" }
func (c OpenAIConfig) ModelName() string    { return c.Model }

// CompatibleConfig configures an internal/provider/compatible.Client, which
// speaks the OpenAI Chat Completions wire format against a third-party
// endpoint (Together, Fireworks, Mistral, xAI, DeepSeek, OpenRouter,
// Hyperbolic, or a self-hosted vLLM/TGI/SGLang deployment).
type CompatibleConfig struct {
	Family             string // e.g. "together", "fireworks", "vllm"
	Model              string
	APIBase            string // required: these backends have no fixed default
	CredentialLocation *credential.Location
	ExtraHeaders       map[string]string
	ExtraBody          []model.ExtraBodyEntry
	HTTPClient         *http.Client
}

func (c CompatibleConfig) ProviderType() string { return "compatible::" + c.Family }
func (c CompatibleConfig) ModelName() string    { return c.Model }

// BedrockConfig configures an internal/provider/bedrock.Client.
type BedrockConfig struct {
	ModelID            string // Bedrock model identifier, e.g. "anthropic.claude-3-5-sonnet-20241022-v2:0"
	Region             string
	CredentialLocation *credential.Location // not read by bedrock.New, which always uses the ambient AWS credential chain
	HTTPClient         *http.Client
}

func (c BedrockConfig) ProviderType() string { return "bedrock" }
func (c BedrockConfig) ModelName() string    { return c.ModelID }

// SageMakerConfig configures an internal/provider/sagemaker.Client, which
// invokes a SageMaker real-time endpoint that itself speaks another
// provider's wire format (the "hosted_provider" indirection from §3's
// polymorphic-recursion invariant).
type SageMakerConfig struct {
	EndpointName       string
	Region             string
	CredentialLocation *credential.Location
	HostedProvider     Config // the wire format the endpoint actually speaks
}

func (c SageMakerConfig) ProviderType() string { return "sagemaker" }
func (c SageMakerConfig) ModelName() string    { return c.EndpointName }

// GoogleConfig configures an internal/provider/google.Client (Gemini via
// the Generative Language API).
type GoogleConfig struct {
	Model              string
	CredentialLocation *credential.Location // nil selects the default (env::GOOGLE_API_KEY)
	HTTPClient         *http.Client
}

func (c GoogleConfig) ProviderType() string { return "google" }
func (c GoogleConfig) ModelName() string    { return c.Model }
