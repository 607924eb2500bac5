package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultEnvironment = "test"

	configPathEnv      = "DISCOURSEKG_CONFIG"
	environmentEnv     = "ENVIRONMENT"
	dataRootEnv        = "DATA_ROOT"
	graphURLEnv        = "GRAPH_URL"
	graphUserEnv       = "GRAPH_USER"
	graphPasswordEnv   = "GRAPH_PASSWORD"
	llmAPIKeyEnv       = "LLM_API_KEY"
	llmModelEnv        = "LLM_MODEL"
	logLevelEnv        = "LOG_LEVEL"
	fanoutEnv          = "FANOUT"
	stageTimeoutEnv    = "STAGE_TIMEOUT_SECONDS"
	metricsAddrEnv     = "METRICS_ADDR"
)

// Config holds every setting the pipeline needs, merged from a YAML file
// (if DISCOURSEKG_CONFIG points at one) and environment-variable overrides.
type Config struct {
	Environment string        `yaml:"environment"`
	DataRoot    string        `yaml:"dataRoot"`
	Logging     LoggingConfig `yaml:"logging"`
	Runtime     RuntimeConfig `yaml:"runtime"`
	Graph       GraphConfig   `yaml:"graph"`
	LLM         LLMConfig     `yaml:"llm"`
	Speakers    SpeakersConfig `yaml:"speakers"`
	Metrics     MetricsConfig  `yaml:"metrics"`
	Discover    DiscoverConfig `yaml:"discover"`
}

// DiscoverConfig lists the per-speaker listing pages the discover processor
// scans for new communications.
type DiscoverConfig struct {
	Sources []SourceConfig `yaml:"sources"`
}

// SourceConfig binds one speaker to the listing page URL that publishes
// their communications.
type SourceConfig struct {
	Speaker     string            `yaml:"speaker"`
	ListURL     string            `yaml:"listUrl"`
	ContentType string            `yaml:"contentType"`
}

// LoggingConfig controls the slog handler level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// RuntimeConfig controls the pipeline scheduler's concurrency and timeouts.
type RuntimeConfig struct {
	Fanout               int `yaml:"fanout"`
	StageTimeoutSeconds  int `yaml:"stageTimeoutSeconds"`
}

// GraphConfig carries connection details for the Neo4j-backed graph store.
type GraphConfig struct {
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// LLMConfig carries connection details for the OpenAI-compatible client
// used by the summarize and categorize stage processors.
type LLMConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

// SpeakersConfig points at the speaker registry file watched by internal/speakers.
type SpeakersConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig controls the optional Prometheus HTTP endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(environmentEnv); v != "" {
		c.Environment = v
	}
	if v := os.Getenv(dataRootEnv); v != "" {
		c.DataRoot = v
	}
	if v := os.Getenv(graphURLEnv); v != "" {
		c.Graph.URL = v
	}
	if v := os.Getenv(graphUserEnv); v != "" {
		c.Graph.User = v
	}
	if v := os.Getenv(graphPasswordEnv); v != "" {
		c.Graph.Password = v
	}
	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(fanoutEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Runtime.Fanout = n
		}
	}
	if v := os.Getenv(stageTimeoutEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Runtime.StageTimeoutSeconds = n
		}
	}
	if v := os.Getenv(metricsAddrEnv); v != "" {
		c.Metrics.Addr = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Environment != "" {
		base.Environment = override.Environment
	}
	if override.DataRoot != "" {
		base.DataRoot = override.DataRoot
	}
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Runtime.Fanout != 0 {
		base.Runtime.Fanout = override.Runtime.Fanout
	}
	if override.Runtime.StageTimeoutSeconds != 0 {
		base.Runtime.StageTimeoutSeconds = override.Runtime.StageTimeoutSeconds
	}
	if override.Graph.URL != "" {
		base.Graph.URL = override.Graph.URL
	}
	if override.Graph.User != "" {
		base.Graph.User = override.Graph.User
	}
	if override.Graph.Password != "" {
		base.Graph.Password = override.Graph.Password
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.Speakers.Path != "" {
		base.Speakers.Path = override.Speakers.Path
	}
	if override.Metrics.Addr != "" {
		base.Metrics.Addr = override.Metrics.Addr
	}
	if len(override.Discover.Sources) > 0 {
		base.Discover.Sources = override.Discover.Sources
	}
	return base
}

func defaultConfig() Config {
	return Config{
		Environment: defaultEnvironment,
		DataRoot:    "./data",
		Logging:     LoggingConfig{Level: "info"},
		Runtime:     RuntimeConfig{Fanout: 4, StageTimeoutSeconds: 600},
		Graph:       GraphConfig{URL: "bolt://localhost:7687", User: "neo4j"},
		LLM:         LLMConfig{Model: "gpt-4o-mini"},
		Speakers:    SpeakersConfig{Path: "./data/speakers.json"},
		Metrics:     MetricsConfig{Addr: ":9090"},
	}
}

// StageTimeout returns the configured per-item processor timeout.
func (c Config) StageTimeout() time.Duration {
	return time.Duration(c.Runtime.StageTimeoutSeconds) * time.Second
}
