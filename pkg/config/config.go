// Package config loads the Praxis configuration from defaults, a YAML file,
// and PRAXIS_-prefixed environment variables, in that order of precedence.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Provider  ProviderConfig  `koanf:"provider"`
	Embedder  EmbedderConfig  `koanf:"embedder"`
	Library   LibraryConfig   `koanf:"library"`
	Skills    SkillsConfig    `koanf:"skills"`
	Agent     AgentConfig     `koanf:"agent"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

type ProviderConfig struct {
	Backend     string  `koanf:"backend"` // ollama
	Model       string  `koanf:"model"`
	BaseURL     string  `koanf:"base_url"`
	Temperature float64 `koanf:"temperature"`
}

type EmbedderConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
}

type LibraryConfig struct {
	Backend    string `koanf:"backend"` // sqlite, qdrant
	Path       string `koanf:"path"`    // sqlite file
	QdrantAddr string `koanf:"qdrant_addr"`
	Collection string `koanf:"collection"`
}

type SkillsConfig struct {
	Mode  string   `koanf:"mode"` // none, basic, full
	Allow []string `koanf:"allow"`
	Deny  []string `koanf:"deny"`
	Basic []string `koanf:"basic"` // names eligible under basic mode
	Dir   string   `koanf:"dir"`   // environment skill sources
}

type AgentConfig struct {
	Environment     string        `koanf:"environment"`
	RealTime        bool          `koanf:"real_time"`
	Strict          bool          `koanf:"strict"`
	PostActionDelay time.Duration `koanf:"post_action_delay"`
	HoldExpiry      int           `koanf:"hold_expiry"` // sweep checkpoints before force-release
	HistoryWindow   int           `koanf:"history_window"`
	FailureLimit    int           `koanf:"failure_limit"`
	StageTimeout    time.Duration `koanf:"stage_timeout"`
	StageRetries    int           `koanf:"stage_retries"`
	RetrieveK       int           `koanf:"retrieve_k"`
	MaxCycles       int           `koanf:"max_cycles"` // 0 = unbounded
	SnapshotPath    string        `koanf:"snapshot_path"`
	FramesDir       string        `koanf:"frames_dir"`
	RecordFrames    bool          `koanf:"record_frames"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("telemetry.exporter", "stdout")

	k.Set("provider.backend", "ollama")
	k.Set("provider.model", "qwen2.5-vl:7b")
	k.Set("provider.base_url", "http://localhost:11434")

	k.Set("embedder.base_url", "http://localhost:11434")
	k.Set("embedder.model", "nomic-embed-text")

	k.Set("library.backend", "sqlite")
	k.Set("library.path", "praxis.db")
	k.Set("library.qdrant_addr", "localhost:6334")
	k.Set("library.collection", "praxis_skills")

	k.Set("skills.mode", "full")

	k.Set("agent.environment", "desktop")
	k.Set("agent.post_action_delay", "500ms")
	k.Set("agent.hold_expiry", 5)
	k.Set("agent.history_window", 50)
	k.Set("agent.failure_limit", 3)
	k.Set("agent.stage_timeout", "120s")
	k.Set("agent.stage_retries", 2)
	k.Set("agent.retrieve_k", 10)
	k.Set("agent.snapshot_path", "praxis_memory.json")

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV (PRAXIS_AGENT_FAILURE_LIMIT -> agent.failure_limit)
	if err := k.Load(env.Provider("PRAXIS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "PRAXIS_")), "_", ".", 1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
