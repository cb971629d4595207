// Command gateway starts the inference gateway's OpenAI-compatible HTTP
// surface and its Prometheus metrics listener.
//
// Grounded on DatanoiseTV-aigateway's cmd/server/main.go (chi.Router +
// middleware chain construction, signal.Notify/server.Shutdown graceful
// shutdown) and BaSui01-agentflow's cmd/agentflow/main.go initLogger
// (zap.Config built from a level string), generalized from that repo's
// config-file-driven provider registry into this module's env-driven
// internal/config.Config, since dynamic per-deployment model/function
// registration from a config file is out of scope here (see DESIGN.md).
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inferly/gatewaycore/internal/cache"
	"github.com/inferly/gatewaycore/internal/config"
	"github.com/inferly/gatewaycore/internal/credential"
	"github.com/inferly/gatewaycore/internal/embedding"
	"github.com/inferly/gatewaycore/internal/function"
	"github.com/inferly/gatewaycore/internal/httpapi"
	"github.com/inferly/gatewaycore/internal/httpclient"
	"github.com/inferly/gatewaycore/internal/middleware"
	"github.com/inferly/gatewaycore/internal/model"
	"github.com/inferly/gatewaycore/internal/orchestrator"
	"github.com/inferly/gatewaycore/internal/provider"
	"github.com/inferly/gatewaycore/internal/provider/anthropic"
	"github.com/inferly/gatewaycore/internal/provider/bedrock"
	"github.com/inferly/gatewaycore/internal/provider/compatible"
	"github.com/inferly/gatewaycore/internal/provider/google"
	"github.com/inferly/gatewaycore/internal/provider/openai"
	"github.com/inferly/gatewaycore/internal/routing"
	"github.com/inferly/gatewaycore/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("loading config: " + err.Error())
	}

	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	credential.SkipValidation.Store(cfg.SkipCredentialValidation)

	httpClient := httpclient.New(httpclient.Options{
		IdleConnTimeout: cfg.HTTPClientIdleConnTimeout,
		KeepAlive:       cfg.HTTPClientKeepAlive,
		Timeout:         cfg.HTTPClientTimeout,
	})

	store, err := buildCacheStore(cfg, logger)
	if err != nil {
		logger.Fatal("building cache store", zap.Error(err))
	}

	limiter := middleware.NewAdaptiveRateLimiter(
		cfg.RateLimitInitialTPM, cfg.RateLimitMaxTPM,
		middleware.NewTiktokenEstimator("gpt-4"), logger,
	)
	if cfg.RateLimitClusterKey != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		limiter = middleware.NewClusterAdaptiveRateLimiter(context.Background(), rdb, cfg.RateLimitClusterKey,
			cfg.RateLimitInitialTPM, cfg.RateLimitMaxTPM, middleware.NewTiktokenEstimator("gpt-4"), 30*time.Second, logger)
	}
	wrap := limiter.Middleware()

	overlays, err := loadOverlayPresets(cfg, logger)
	if err != nil {
		logger.Fatal("loading overlay presets", zap.Error(err))
	}

	gateway, err := buildGateway(httpClient, wrap, store, overlays, logger)
	if err != nil {
		logger.Fatal("building gateway", zap.Error(err))
	}

	embedders, err := buildEmbedders(httpClient, logger)
	if err != nil {
		logger.Fatal("building embedding models", zap.Error(err))
	}

	server := httpapi.NewServer(gateway, embedders, logger, func() int64 { return time.Now().Unix() })

	r := chi.NewRouter()
	r.Use(httpapi.WithRecovery(logger))
	r.Use(httpapi.WithRequestID)
	r.Use(httpapi.WithRequestLogging(logger))
	server.Routes(r)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", telemetry.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsListenAddr, Handler: metricsMux}

	go func() {
		logger.Info("gateway listening", zap.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("gateway server failed", zap.Error(err))
		}
	}()
	go func() {
		logger.Info("metrics listening", zap.String("addr", cfg.MetricsListenAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("gateway shutdown error", zap.Error(err))
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Error("metrics shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func initLogger(levelStr string) *zap.Logger {
	var level zapcore.Level
	switch levelStr {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}
	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	logger, err := zapCfg.Build(zap.AddCaller())
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

// loadOverlayPresets reads cfg.OverlayConfigPath, if set, into the
// name->OverlayPreset table buildGateway consults for per-ModelProvider
// extra_body/extra_headers. Unset path yields a nil, empty table and
// disables preset lookup entirely (ModelProviders built without a preset
// fall back to their literal ExtraBody/ExtraHeaders wiring).
func loadOverlayPresets(cfg *config.Config, logger *zap.Logger) (map[string]config.OverlayPreset, error) {
	if cfg.OverlayConfigPath == "" {
		return nil, nil
	}
	presets, err := config.LoadOverlayPresets(cfg.OverlayConfigPath)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded overlay presets", zap.Int("count", len(presets)), zap.String("path", cfg.OverlayConfigPath))
	return presets, nil
}

func buildCacheStore(cfg *config.Config, logger *zap.Logger) (cache.Store, error) {
	switch cfg.CacheBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		logger.Info("response cache backend: redis", zap.String("addr", cfg.RedisAddr))
		return cache.NewRedisStore(rdb, cfg.CacheTTL), nil
	default:
		logger.Info("response cache backend: in-memory")
		return cache.NewInMemoryStore(cfg.CacheTTL, cfg.CacheTTL), nil
	}
}

// buildGateway wires a representative set of providers and models:
// Anthropic Claude (with a Bedrock-hosted Claude as its fallback), OpenAI
// GPT, Google Gemini, and the generic OpenAI-compatible family (Together
// AI here), each wrapped in the adaptive rate limiter. Dynamic,
// config-file-driven provider/model/function registration is out of
// scope (see DESIGN.md), so this demonstrates the wiring shape a
// deployment-specific registry would populate from its own configuration
// source. overlays, when non-nil, supplies a "together-metadata" preset
// applying static extra_headers/extra_body to the Together ModelProvider
// (see internal/config.OverlayPreset).
func buildGateway(httpClient *http.Client, wrap func(provider.Provider) provider.Provider, store cache.Store, overlays map[string]config.OverlayPreset, logger *zap.Logger) (*orchestrator.Gateway, error) {
	togetherCfg := provider.CompatibleConfig{
		Family:     "together",
		Model:      "meta-llama/Llama-3.3-70B-Instruct-Turbo",
		APIBase:    "https://api.together.xyz/v1",
		HTTPClient: httpClient,
	}
	if preset, ok := overlays["together-metadata"]; ok {
		togetherCfg.ExtraHeaders = preset.Headers
		togetherCfg.ExtraBody = preset.ToExtraBody()
	}

	anthropicProvider := wrap(anthropic.New(provider.AnthropicConfig{
		Model:      "claude-sonnet-4-20250514",
		HTTPClient: httpClient,
	}))
	bedrockClient, err := bedrock.New(context.Background(), provider.BedrockConfig{
		ModelID:    "anthropic.claude-3-5-sonnet-20241022-v2:0",
		Region:     "us-east-1",
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, err
	}
	bedrockProvider := wrap(bedrockClient)
	openaiProvider := wrap(openai.New(provider.OpenAIConfig{
		Model:      "gpt-4o",
		HTTPClient: httpClient,
	}))
	googleProvider := wrap(google.New(provider.GoogleConfig{
		Model:      "gemini-2.0-flash",
		HTTPClient: httpClient,
	}))
	togetherProvider := wrap(compatible.New(togetherCfg))

	cacheOpts := cache.Options{Enabled: cache.ModeOn}

	claudeModel, err := routing.New("claude", []string{"anthropic", "bedrock"}, map[string]routing.ModelProvider{
		"anthropic": {Name: "anthropic", Provider: anthropicProvider},
		"bedrock":   {Name: "bedrock", Provider: bedrockProvider},
	}, routing.WithCache(store, cacheOpts), routing.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	gptModel, err := routing.New("gpt-4o", []string{"openai", "together"}, map[string]routing.ModelProvider{
		"openai":   {Name: "openai", Provider: openaiProvider},
		"together": {Name: "together", Provider: togetherProvider},
	}, routing.WithCache(store, cacheOpts), routing.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	geminiModel, err := routing.New("gemini", []string{"google"}, map[string]routing.ModelProvider{
		"google": {Name: "google", Provider: googleProvider},
	}, routing.WithCache(store, cacheOpts), routing.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	models := map[string]*routing.Model{
		"claude": claudeModel,
		"gpt-4o": gptModel,
		"gemini": geminiModel,
	}

	functions := map[string]orchestrator.FunctionEntry{
		"chat": {
			Function: &function.ChatFunction{
				Schemas:     function.Schemas{},
				ToolChoice:  model.ToolChoice{Mode: model.ToolChoiceAuto},
				Description: "General-purpose chat completion with no static tools or output schema.",
			},
			Variants: map[string]orchestrator.VariantEntry{
				"claude-default": {Model: claudeModel, Weight: 0.8},
				"gpt-fallback":   {Model: gptModel, Weight: 0.2},
			},
		},
	}

	return orchestrator.New(functions, models, orchestrator.WithLogger(logger)), nil
}

// buildEmbedders wires the embedding routing targets backing
// /openai/v1/embeddings: OpenAI text-embedding-3-small with Google's
// text-embedding-004 as a fallback.
func buildEmbedders(httpClient *http.Client, logger *zap.Logger) (map[string]*embedding.Model, error) {
	openaiEmbed := openai.New(provider.OpenAIConfig{Model: "text-embedding-3-small", HTTPClient: httpClient})
	googleEmbed := google.New(provider.GoogleConfig{Model: "text-embedding-004", HTTPClient: httpClient})

	m, err := embedding.New("text-embedding-3-small", []string{"openai", "google"}, map[string]embedding.ModelProvider{
		"openai": {Name: "openai", Provider: openaiEmbed},
		"google": {Name: "google", Provider: googleEmbed},
	}, embedding.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	return map[string]*embedding.Model{
		"text-embedding-3-small": m,
	}, nil
}
