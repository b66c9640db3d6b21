package cmd

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"polycode/mcp-chat/config"
	"polycode/mcp-chat/core"
	"polycode/mcp-chat/gemini"
	"polycode/mcp-chat/groq"
)

// session bundles the registry and orchestrator built from one configuration.
type session struct {
	registry     *core.ToolRegistry
	orchestrator *core.Orchestrator
	metrics      *prometheus.Registry
}

func newLLM(ctx context.Context, cfg *config.Config) (core.LLM, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for provider %s", cfg.LLMProvider)
		}
		return gemini.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		apiKey := cfg.APIKey()
		if apiKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY or OPENAI_API_KEY is required for provider %s", cfg.LLMProvider)
		}
		return groq.NewGroq(apiKey, cfg.OpenAIBaseURL, cfg.GroqModel), nil
	}
}

// newSession connects every configured endpoint. Endpoints that fail are
// logged and skipped; the session still starts with whatever connected.
func newSession(ctx context.Context, cfg *config.Config, overrides []string) (*session, error) {
	endpoints, err := cfg.Endpoints(overrides)
	if err != nil {
		return nil, err
	}
	llm, err := newLLM(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	metrics := core.NewMetrics(reg)

	registry := core.NewToolRegistry(
		core.WithConnectTimeout(cfg.ConnectTimeout),
		core.WithCallTimeout(cfg.ToolTimeout),
		core.WithRegistryMetrics(metrics),
	)
	connectAll(ctx, registry, endpoints)

	orchestrator := core.NewOrchestrator(llm, registry,
		core.WithMaxRounds(cfg.MaxToolRounds),
		core.WithParallelDispatch(cfg.ParallelDispatch),
		core.WithSystemPrompt(cfg.SystemPrompt),
		core.WithModelTimeout(cfg.ModelTimeout),
		core.WithOrchestratorMetrics(metrics),
	)

	return &session{
		registry:     registry,
		orchestrator: orchestrator,
		metrics:      reg,
	}, nil
}

func connectAll(ctx context.Context, registry *core.ToolRegistry, endpoints []config.EndpointConfig) int {
	connected := 0
	for _, e := range endpoints {
		if err := registry.Connect(ctx, e.ID, e.Address); err != nil {
			log.Warn().Err(err).Str("endpoint", e.ID).Msg("Skipping MCP server")
			continue
		}
		connected++
	}
	log.Info().Int("connected", connected).Int("configured", len(endpoints)).Msg("MCP servers ready")
	return connected
}

func (s *session) close() {
	s.registry.DisconnectAll()
}
