package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Web    WebConfig    `yaml:"web"`
	MCP    MCPConfig    `yaml:"mcp"`
	Store  StoreConfig  `yaml:"store"`
	LLM    LLMConfig    `yaml:"llm"`
	OCR    OCRConfig    `yaml:"ocr"`
	Solver SolverConfig `yaml:"solver"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type WebConfig struct {
	Addr string `yaml:"addr"`
}

// MCPConfig selects how the tool server is exposed: stdio or sse.
type MCPConfig struct {
	Transport string `yaml:"transport"`
	Addr      string `yaml:"addr"`
}

// StoreConfig selects the challenge store. TTL zero keeps challenges until solved.
type StoreConfig struct {
	Backend  string        `yaml:"backend"` // memory or redis
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

type LLMConfig struct {
	Provider      string  `yaml:"provider"` // gemini, openai or none
	Model         string  `yaml:"model"`
	APIKey        string  `yaml:"api_key"`
	RatePerSecond float64 `yaml:"rate_per_second"`
}

type OCRConfig struct {
	Command string `yaml:"command"`
}

type SolverConfig struct {
	MinAILength int `yaml:"min_ai_length"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info"},
		Web:    WebConfig{Addr: ":5000"},
		MCP:    MCPConfig{Transport: "stdio", Addr: ":8000"},
		Store:  StoreConfig{Backend: "memory"},
		LLM:    LLMConfig{Provider: "gemini", RatePerSecond: 5},
		OCR:    OCRConfig{Command: "tesseract"},
		Solver: SolverConfig{MinAILength: 4},
	}
}

// Load reads path (skipped when empty or missing), applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown choices and negative limits.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case "memory":
	case "redis":
		if c.Store.RedisURL == "" {
			return errors.New("store.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.LLM.Provider {
	case "gemini", "openai", "none":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	switch c.MCP.Transport {
	case "stdio", "sse":
	default:
		return fmt.Errorf("unknown mcp transport %q", c.MCP.Transport)
	}
	if c.Store.TTL < 0 {
		return errors.New("store.ttl must not be negative")
	}
	if c.LLM.RatePerSecond < 0 {
		return errors.New("llm.rate_per_second must not be negative")
	}
	if c.Solver.MinAILength < 0 {
		return errors.New("solver.min_ai_length must not be negative")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Log.Level, "CAPTCHA_LOG_LEVEL")
	setString(&cfg.Web.Addr, "CAPTCHA_WEB_ADDR")
	setString(&cfg.MCP.Transport, "CAPTCHA_MCP_TRANSPORT")
	setString(&cfg.MCP.Addr, "CAPTCHA_MCP_ADDR")
	setString(&cfg.Store.Backend, "CAPTCHA_STORE")
	setString(&cfg.Store.RedisURL, "CAPTCHA_REDIS_URL")
	setString(&cfg.LLM.Provider, "CAPTCHA_LLM_PROVIDER")
	setString(&cfg.LLM.Model, "CAPTCHA_LLM_MODEL")
	setString(&cfg.OCR.Command, "CAPTCHA_OCR_COMMAND")

	if v := os.Getenv("CAPTCHA_LOG_DEV"); v != "" {
		cfg.Log.Development = v == "true" || v == "1"
	}
	if v := os.Getenv("CAPTCHA_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CAPTCHA_TTL: %w", err)
		}
		cfg.Store.TTL = d
	}
	if v := os.Getenv("CAPTCHA_LLM_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CAPTCHA_LLM_RPS: %w", err)
		}
		cfg.LLM.RatePerSecond = f
	}
	if v := os.Getenv("CAPTCHA_MIN_AI_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CAPTCHA_MIN_AI_LENGTH: %w", err)
		}
		cfg.Solver.MinAILength = n
	}

	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "gemini":
			cfg.LLM.APIKey = os.Getenv("GOOGLE_API_KEY")
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
