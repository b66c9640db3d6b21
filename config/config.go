package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"polycode/mcp-chat/lib"
)

const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds everything the CLI needs, read from the environment (and a .env
// file when present).
type Config struct {
	LLMProvider string `env:"LLM_PROVIDER" envDefault:"groq" validate:"oneof=groq openai gemini"`

	// OpenAI-compatible backends: Groq, Ollama, OpenAI
	GroqAPIKey    string `env:"GROQ_API_KEY"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.groq.com/openai/v1" validate:"omitempty,url"`
	GroqModel     string `env:"GROQ_MODEL" envDefault:"llama-3.3-70b-versatile"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`

	MaxToolRounds    int           `env:"MAX_TOOL_ROUNDS" envDefault:"2" validate:"min=0,max=10"`
	ParallelDispatch bool          `env:"PARALLEL_DISPATCH" envDefault:"false"`
	ModelTimeout     time.Duration `env:"MODEL_TIMEOUT" envDefault:"60s"`
	ToolTimeout      time.Duration `env:"TOOL_TIMEOUT" envDefault:"30s"`
	ConnectTimeout   time.Duration `env:"CONNECT_TIMEOUT" envDefault:"5s"`
	SystemPrompt     string        `env:"SYSTEM_PROMPT"`

	ServersFile string `env:"MCP_SERVERS_FILE"`

	HTTPPort  string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console" validate:"oneof=json console"`
}

// EndpointConfig names one tool server to connect to.
type EndpointConfig struct {
	ID      string `yaml:"id" validate:"required,endpoint_id"`
	Address string `yaml:"address" validate:"required,endpoint_address"`
	Enabled *bool  `yaml:"enabled,omitempty"`
}

func (e EndpointConfig) enabled() bool {
	return e.Enabled == nil || *e.Enabled
}

type serversFile struct {
	Servers []EndpointConfig `yaml:"servers"`
}

// DefaultEndpoints are tried when nothing overrides them.
func DefaultEndpoints() []EndpointConfig {
	return []EndpointConfig{
		{ID: "postgres", Address: "http://localhost:8001/sse"},
		{ID: "web_search", Address: "http://localhost:8002/sse"},
		{ID: "file_manager", Address: "http://localhost:8004/sse"},
	}
}

// LoadConfig loads .env (if any) and parses the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := lib.NewValidator().ValidateStruct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// APIKey returns the key for the configured OpenAI-compatible backend.
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case ProviderGemini:
		return c.GeminiAPIKey
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	}
	if c.GroqAPIKey != "" {
		return c.GroqAPIKey
	}
	return c.OpenAIAPIKey
}

// Endpoints merges the default endpoints, the YAML servers file and the
// id=address overrides, in that order. A later entry with an existing id
// replaces the earlier address in place.
func (c *Config) Endpoints(overrides []string) ([]EndpointConfig, error) {
	endpoints := DefaultEndpoints()

	if c.ServersFile != "" {
		fromFile, err := LoadServersFile(c.ServersFile)
		if err != nil {
			return nil, err
		}
		for _, e := range fromFile {
			endpoints = upsert(endpoints, e)
		}
	}

	for _, arg := range overrides {
		e, err := ParseOverride(arg)
		if err != nil {
			return nil, err
		}
		endpoints = upsert(endpoints, e)
	}

	enabled := endpoints[:0]
	for _, e := range endpoints {
		if e.enabled() {
			enabled = append(enabled, e)
		}
	}
	return enabled, nil
}

// LoadServersFile reads a YAML document of the form
//
//	servers:
//	  - id: web_search
//	    address: http://localhost:8002/sse
//	    enabled: true
//
// Environment variables in the file are expanded.
func LoadServersFile(path string) ([]EndpointConfig, error) {
	data, err := os.ReadFile(os.ExpandEnv(path))
	if err != nil {
		return nil, fmt.Errorf("read servers file: %w", err)
	}
	var file serversFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &file); err != nil {
		return nil, fmt.Errorf("parse servers file: %w", err)
	}
	v := lib.NewValidator()
	for i, e := range file.Servers {
		if err := v.ValidateStruct(e); err != nil {
			return nil, fmt.Errorf("servers[%d]: %w", i, err)
		}
	}
	return file.Servers, nil
}

// ParseOverride parses an "id=address" command-line argument.
func ParseOverride(arg string) (EndpointConfig, error) {
	id, address, ok := strings.Cut(arg, "=")
	if !ok {
		return EndpointConfig{}, fmt.Errorf("invalid server override %q: want id=address", arg)
	}
	e := EndpointConfig{ID: strings.TrimSpace(id), Address: strings.TrimSpace(address)}
	if err := lib.NewValidator().ValidateStruct(e); err != nil {
		return EndpointConfig{}, fmt.Errorf("invalid server override %q: %w", arg, err)
	}
	return e, nil
}

func upsert(endpoints []EndpointConfig, e EndpointConfig) []EndpointConfig {
	for i := range endpoints {
		if endpoints[i].ID == e.ID {
			endpoints[i] = e
			return endpoints
		}
	}
	return append(endpoints, e)
}
