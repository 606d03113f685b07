package config

import (
	"bytes"
	"fmt"
	neturl "net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort            = 2334
	defaultEnv             = "development"
	defaultMongoDatabase   = "admitlens"
	defaultRateLimit       = 10
	defaultRateLimitWindow = 60 * time.Second
	defaultOllamaEndpoint  = "http://localhost:11434"

	minJWTSecretLen = 16
)

// ProviderKind is the closed set of feedback generation backends. The raw
// configuration string is resolved into one of these at load time so an
// invalid value fails the process at startup, not per request.
type ProviderKind string

const (
	ProviderOpenAI    ProviderKind = "openai"
	ProviderAnthropic ProviderKind = "anthropic"
	ProviderOllama    ProviderKind = "ollama"
	ProviderFallback  ProviderKind = "fallback"
)

// ParseProviderKind normalizes and validates a provider name. Empty means
// fallback: deployments without a model still produce deterministic feedback.
func ParseProviderKind(raw string) (ProviderKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "fallback":
		return ProviderFallback, nil
	case "openai":
		return ProviderOpenAI, nil
	case "anthropic":
		return ProviderAnthropic, nil
	case "ollama":
		return ProviderOllama, nil
	default:
		return "", fmt.Errorf("unknown llm provider %q (expected openai, anthropic, ollama or fallback)", raw)
	}
}

// AppConfig holds runtime startup configuration, loaded from YAML with
// environment overrides.
type AppConfig struct {
	Port           int
	Env            string // "development" | "production"
	AllowedOrigins []string
	JWTSecret      string
	Mongo          MongoConfig
	LLM            LLMConfig
	RateLimit      RateLimitConfig
}

type MongoConfig struct {
	URI      string
	Database string
}

type LLMConfig struct {
	Provider ProviderKind
	APIKey   string
	Endpoint string
	Model    string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

func (c *AppConfig) IsDev() bool { return c.Env != "production" }

type rawConfig struct {
	Port           int      `yaml:"port"`
	Env            string   `yaml:"env"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	JWTSecret      string   `yaml:"jwt_secret"`
	Mongo          struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	LLM struct {
		Provider string `yaml:"provider"`
		APIKey   string `yaml:"api_key"`
		Endpoint string `yaml:"endpoint"`
		Model    string `yaml:"model"`
	} `yaml:"llm"`
	RateLimit struct {
		Requests int `yaml:"requests"`
		WindowMs int `yaml:"window_ms"`
	} `yaml:"rate_limit"`
}

// Load reads the YAML config file (if present), applies environment
// overrides, and validates the result. Any missing or malformed required
// value is a startup failure.
func Load(path string) (*AppConfig, error) {
	cfg := AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Mongo: MongoConfig{
			Database: defaultMongoDatabase,
		},
		LLM: LLMConfig{
			Provider: ProviderFallback,
		},
		RateLimit: RateLimitConfig{
			Requests: defaultRateLimit,
			Window:   defaultRateLimitWindow,
		},
	}

	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		raw := rawConfig{}
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
		applyRaw(&cfg, raw)
	case os.IsNotExist(err):
		// Config file is optional; environment alone can configure the process.
	default:
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyRaw(cfg *AppConfig, raw rawConfig) {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	if raw.AllowedOrigins != nil {
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	}
	if v := strings.TrimSpace(raw.JWTSecret); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(raw.Mongo.URI); v != "" {
		cfg.Mongo.URI = v
	}
	if v := strings.TrimSpace(raw.Mongo.Database); v != "" {
		cfg.Mongo.Database = v
	}
	if v := strings.TrimSpace(raw.LLM.Provider); v != "" {
		// Validated in validate(); stored raw until then.
		cfg.LLM.Provider = ProviderKind(strings.ToLower(v))
	}
	if v := strings.TrimSpace(raw.LLM.APIKey); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := strings.TrimSpace(raw.LLM.Endpoint); v != "" {
		cfg.LLM.Endpoint = v
	}
	if v := strings.TrimSpace(raw.LLM.Model); v != "" {
		cfg.LLM.Model = v
	}
	if raw.RateLimit.Requests != 0 {
		cfg.RateLimit.Requests = raw.RateLimit.Requests
	}
	if raw.RateLimit.WindowMs != 0 {
		cfg.RateLimit.Window = time.Duration(raw.RateLimit.WindowMs) * time.Millisecond
	}
}

func applyEnv(cfg *AppConfig) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Env = strings.TrimSpace(v)
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = normalizeOrigins(strings.Split(v, ","))
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		cfg.Mongo.URI = strings.TrimSpace(v)
	}
	if v := os.Getenv("MONGODB_DB"); v != "" {
		cfg.Mongo.Database = strings.TrimSpace(v)
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = ProviderKind(strings.ToLower(strings.TrimSpace(v)))
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_ENDPOINT"); v != "" {
		cfg.LLM.Endpoint = strings.TrimSpace(v)
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" && cfg.LLM.Endpoint == "" {
		cfg.LLM.Endpoint = strings.TrimSpace(v)
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = strings.TrimSpace(v)
	}
	if v := os.Getenv("RATE_LIMIT_REQUESTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_REQUESTS %q: %w", v, err)
		}
		cfg.RateLimit.Requests = n
	}
	if v := os.Getenv("RATE_LIMIT_WINDOW_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_WINDOW_MS %q: %w", v, err)
		}
		cfg.RateLimit.Window = time.Duration(ms) * time.Millisecond
	}
	return nil
}

func validate(cfg *AppConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", cfg.Port)
	}
	if cfg.Mongo.URI == "" {
		return fmt.Errorf("mongo uri is required (set MONGODB_URI or mongo.uri)")
	}
	parsed, err := neturl.Parse(cfg.Mongo.URI)
	if err != nil || (parsed.Scheme != "mongodb" && parsed.Scheme != "mongodb+srv") {
		return fmt.Errorf("invalid mongo uri %q, expected mongodb:// or mongodb+srv:// scheme", cfg.Mongo.URI)
	}
	if cfg.Mongo.Database == "" {
		return fmt.Errorf("mongo database name is required")
	}
	if len(cfg.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("jwt secret must be at least %d characters (set JWT_SECRET)", minJWTSecretLen)
	}

	kind, err := ParseProviderKind(string(cfg.LLM.Provider))
	if err != nil {
		return err
	}
	cfg.LLM.Provider = kind
	switch kind {
	case ProviderOpenAI, ProviderAnthropic:
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("llm api key is required for provider %q", kind)
		}
	case ProviderOllama:
		if cfg.LLM.Endpoint == "" {
			cfg.LLM.Endpoint = defaultOllamaEndpoint
		}
	}

	if cfg.RateLimit.Requests < 1 {
		return fmt.Errorf("rate limit requests must be positive, got %d", cfg.RateLimit.Requests)
	}
	if cfg.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive, got %s", cfg.RateLimit.Window)
	}
	return nil
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if v := strings.TrimSpace(o); v != "" {
			out = append(out, v)
		}
	}
	return out
}
