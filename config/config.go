package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the autonotes service
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Transcribe TranscribeConfig `mapstructure:"transcribe"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Export     ExportConfig     `mapstructure:"export"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Listen         string        `mapstructure:"listen"`
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DataDir        string        `mapstructure:"data_dir"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// LLMConfig contains text-generation provider configurations
type LLMConfig struct {
	Providers map[string]LLMProvider `mapstructure:"providers"`
	Routing   LLMRoutingConfig       `mapstructure:"routing"`
}

// LLMProvider represents a single text-generation provider configuration
type LLMProvider struct {
	Type    string              `mapstructure:"type"` // openai-compatible
	APIKey  string              `mapstructure:"api_key"`
	BaseURL string              `mapstructure:"base_url"`
	Models  map[string]LLMModel `mapstructure:"models"`
	Timeout time.Duration       `mapstructure:"timeout"`
}

// LLMModel represents a specific model configuration
type LLMModel struct {
	Name            string  `mapstructure:"name"`
	APIName         string  `mapstructure:"api_name"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	CostPer1K       float64 `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64 `mapstructure:"cost_per_1k_output"`
}

// APIModel is the name sent over the wire: the deployment alias when one
// is configured, the model name otherwise.
func (m LLMModel) APIModel() string {
	if m.APIName != "" {
		return m.APIName
	}
	return m.Name
}

// LLMRoutingConfig defines which model each pipeline stage uses.
// Longform is the higher-capacity tier the note and structuring stages
// escalate to when a generation stops on the output-length limit.
type LLMRoutingConfig struct {
	Note        string `mapstructure:"note"`        // free-form note synthesis
	Structuring string `mapstructure:"structuring"` // note -> JSON structuring
	Network     string `mapstructure:"network"`     // cross-lecture graph synthesis
	Summary     string `mapstructure:"summary"`     // topic/abstract derivation
	Longform    string `mapstructure:"longform"`    // overflow escalation tier

	// StructuringThreshold is the note length (in characters) above which
	// the structuring stage starts on the longform tier directly.
	StructuringThreshold int `mapstructure:"structuring_threshold"`
}

// TranscribeConfig contains speech-to-text collaborator settings
type TranscribeConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	MetricsPort  int  `mapstructure:"metrics_port"`
	CostTracking bool `mapstructure:"cost_tracking"`
}

func (t TelemetryConfig) Validate() error {
	if t.Enabled && t.MetricsPort < 0 {
		return fmt.Errorf("telemetry.metrics_port cannot be negative")
	}
	return nil
}

// ExportConfig contains note export settings
type ExportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

func (l LLMConfig) Validate() error {
	if len(l.Providers) == 0 {
		return fmt.Errorf("at least one llm provider must be configured")
	}
	routed := []string{
		l.Routing.Note,
		l.Routing.Structuring,
		l.Routing.Network,
		l.Routing.Summary,
		l.Routing.Longform,
	}
	for _, model := range routed {
		if model == "" {
			continue
		}
		found := false
		for _, p := range l.Providers {
			if _, ok := p.Models[model]; ok {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("routing model %q not found in any provider", model)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables.
// An empty path searches the usual locations; a missing file falls back
// to defaults so the service can run from env vars alone.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("AUTONOTES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.LLM.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := cfg.Telemetry.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.listen", ":8000")
	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.data_dir", "./data")
	v.SetDefault("general.default_timeout", "120s")

	// Default provider mirrors the zhipu GLM deployment the service was
	// written against; any openai-compatible endpoint works.
	v.SetDefault("llm.providers.zhipu.type", "openai-compatible")
	v.SetDefault("llm.providers.zhipu.base_url", "https://open.bigmodel.cn/api/paas/v4")
	v.SetDefault("llm.providers.zhipu.timeout", "120s")
	v.SetDefault("llm.providers.zhipu.models.glm-4-air.name", "glm-4-air")
	v.SetDefault("llm.providers.zhipu.models.glm-4-air.api_name", "glm-4-air-0111")
	v.SetDefault("llm.providers.zhipu.models.glm-4-air.max_tokens", 4095)
	v.SetDefault("llm.providers.zhipu.models.glm-4.name", "glm-4")
	v.SetDefault("llm.providers.zhipu.models.glm-4.max_tokens", 4095)
	v.SetDefault("llm.providers.zhipu.models.glm-4-long.name", "glm-4-long")
	v.SetDefault("llm.providers.zhipu.models.glm-4-long.max_tokens", 4095)

	v.SetDefault("llm.routing.note", "glm-4-air")
	v.SetDefault("llm.routing.structuring", "glm-4-air")
	v.SetDefault("llm.routing.network", "glm-4")
	v.SetDefault("llm.routing.summary", "glm-4")
	v.SetDefault("llm.routing.longform", "glm-4-long")
	v.SetDefault("llm.routing.structuring_threshold", 4000)

	v.SetDefault("transcribe.base_url", "http://localhost:9000/v1")
	v.SetDefault("transcribe.model", "whisper-1")
	v.SetDefault("transcribe.timeout", "10m")

	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.metrics_port", 9090)
	v.SetDefault("telemetry.cost_tracking", true)

	v.SetDefault("export.output_dir", "./exports")
}

// overrideFromEnv overrides sensitive values with environment variables
func overrideFromEnv(v *viper.Viper) {
	if apiKey := os.Getenv("ZHIPU_API_KEY"); apiKey != "" {
		v.Set("llm.providers.zhipu.api_key", apiKey)
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		for name := range v.GetStringMap("llm.providers") {
			if v.GetString("llm.providers."+name+".api_key") == "" {
				v.Set("llm.providers."+name+".api_key", apiKey)
			}
		}
	}
	if apiKey := os.Getenv("TRANSCRIBE_API_KEY"); apiKey != "" {
		v.Set("transcribe.api_key", apiKey)
	}
}

// StageProvider resolves the provider and model config for a routed model
// name, e.g. cfg.LLM.Routing.Note.
func (c *Config) StageProvider(model string) (LLMProvider, LLMModel, error) {
	for _, p := range c.LLM.Providers {
		if m, ok := p.Models[model]; ok {
			return p, m, nil
		}
	}
	return LLMProvider{}, LLMModel{}, fmt.Errorf("model %q not configured", model)
}
