// Package config centralizes process configuration for the proxy.
package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"interactive-openai-proxy/pkg/utils"
)

const (
	// DefaultUpstreamBaseURL is the upstream OpenAI-compatible endpoint
	// used when no base URL is configured.
	DefaultUpstreamBaseURL = "https://api.openai.com/v1"

	// DefaultDraftModel is the model used for draft calls and echoed into
	// resolved completions when the original request names no model.
	DefaultDraftModel = "gpt-3.5-turbo"

	// DefaultListenAddr is the address the proxy listens on.
	DefaultListenAddr = ":8000"
)

// Config contains the proxy configuration.
type Config struct {
	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string
	// UpstreamBaseURL is the base URL of the upstream OpenAI-compatible
	// service, including its version prefix (e.g. "https://api.openai.com/v1").
	UpstreamBaseURL string
	// UpstreamAPIKey is the bearer credential for outbound upstream
	// requests made by the proxy itself (draft calls). Passthrough
	// traffic carries the client's own credentials instead.
	UpstreamAPIKey string
	// DraftModel is the model used for the review draft call.
	DraftModel string
	// ResolveTimeout bounds how long an intercepted caller waits for
	// human resolution. Zero means wait indefinitely, which is the
	// default and matches the documented behavior.
	ResolveTimeout time.Duration
	// DisableDraft skips the upstream draft call on the review page.
	DisableDraft bool
}

// fileValues mirrors Config for the optional YAML config file. Durations
// are strings in the file ("90s", "5m") and parsed during Load.
type fileValues struct {
	ListenAddr      string `yaml:"listen_addr"`
	UpstreamBaseURL string `yaml:"upstream_base_url"`
	UpstreamAPIKey  string `yaml:"upstream_api_key"`
	DraftModel      string `yaml:"draft_model"`
	ResolveTimeout  string `yaml:"resolve_timeout"`
	DisableDraft    bool   `yaml:"disable_draft"`
}

var (
	config     *Config
	configOnce sync.Once
)

// GetConfig returns the singleton proxy configuration. On first call it
// loads values from the optional YAML file named by CONFIG_FILE and from
// the environment, environment winning. Load errors are fatal only for a
// config file that was explicitly requested but cannot be read.
func GetConfig() *Config {
	configOnce.Do(func() {
		cfg, err := Load(os.Getenv("CONFIG_FILE"))
		if err != nil {
			// A broken config source should not take the proxy down;
			// surface it and continue with defaults.
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			cfg = &Config{
				ListenAddr:      DefaultListenAddr,
				UpstreamBaseURL: DefaultUpstreamBaseURL,
				DraftModel:      DefaultDraftModel,
			}
		}
		config = cfg
	})
	return config
}

// Load builds a Config from defaults, the YAML file at path (if path is
// non-empty), and environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	cfg := &Config{
		ListenAddr:      DefaultListenAddr,
		UpstreamBaseURL: DefaultUpstreamBaseURL,
		DraftModel:      DefaultDraftModel,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		var fv fileValues
		if err := yaml.Unmarshal(data, &fv); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		applyFileValues(cfg, fv)
	}

	cfg.ListenAddr = utils.GetEnvWithDefault("LISTEN_ADDR", cfg.ListenAddr)
	cfg.UpstreamBaseURL = utils.GetEnvWithDefault("OPENAI_API_BASE", cfg.UpstreamBaseURL)
	cfg.UpstreamAPIKey = utils.GetEnvWithDefault("OPENAI_API_KEY", cfg.UpstreamAPIKey)
	cfg.DraftModel = utils.GetEnvWithDefault("DRAFT_MODEL", cfg.DraftModel)

	if v := os.Getenv("RESOLVE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RESOLVE_TIMEOUT %q: %w", v, err)
		}
		cfg.ResolveTimeout = d
	}
	if v := os.Getenv("DISABLE_DRAFT"); v == "true" || v == "1" {
		cfg.DisableDraft = true
	}

	return cfg, nil
}

func applyFileValues(cfg *Config, fv fileValues) {
	if fv.ListenAddr != "" {
		cfg.ListenAddr = fv.ListenAddr
	}
	if fv.UpstreamBaseURL != "" {
		cfg.UpstreamBaseURL = fv.UpstreamBaseURL
	}
	if fv.UpstreamAPIKey != "" {
		cfg.UpstreamAPIKey = fv.UpstreamAPIKey
	}
	if fv.DraftModel != "" {
		cfg.DraftModel = fv.DraftModel
	}
	if fv.ResolveTimeout != "" {
		if d, err := time.ParseDuration(fv.ResolveTimeout); err == nil {
			cfg.ResolveTimeout = d
		}
	}
	if fv.DisableDraft {
		cfg.DisableDraft = true
	}
}
