// Package config loads furrow.yaml, FURROW_* environment overrides and
// built-in defaults, and turns the result into supervisor options.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FURROW_LOG_LEVEL.
const EnvPrefix = "FURROW"

// Worker kinds.
const (
	KindStatic  = "static"
	KindHTTP    = "http"
	KindProcess = "process"
)

// Oracle providers.
const (
	ProviderNone      = "none"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

// Config holds all configuration for furrow.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Supervisor SupervisorConfig `mapstructure:"supervisor"`
	Oracle     OracleConfig     `mapstructure:"oracle"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Workers    []WorkerConfig   `mapstructure:"workers"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	MCPAddr string `mapstructure:"mcp_addr"`
	Metrics bool   `mapstructure:"metrics"`
	Events  bool   `mapstructure:"events"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SupervisorConfig holds the turn engine settings.
type SupervisorConfig struct {
	Window            int           `mapstructure:"window"`
	MaxCycles         int           `mapstructure:"max_cycles"`
	WorkerTimeout     time.Duration `mapstructure:"worker_timeout"`
	MaxInputSize      int           `mapstructure:"max_input_size"`
	InactivityTimeout time.Duration `mapstructure:"inactivity_timeout"`
	HealthInterval    time.Duration `mapstructure:"health_interval"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
	Apology           string        `mapstructure:"apology"`
	// RulesFile replaces the built-in keyword table.
	RulesFile string `mapstructure:"rules_file"`
}

// OracleConfig selects the classification oracle.
type OracleConfig struct {
	Provider  string        `mapstructure:"provider"`
	Model     string        `mapstructure:"model"`
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheSize int           `mapstructure:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// RedisConfig enables conversation persistence and cross-replica locking.
// Both are off while Addr is empty.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
	Lock     bool          `mapstructure:"lock"`

	// EncryptionKey is a base64 AES-256 key. When set, snapshots are sealed
	// before they reach Redis. FallbackKeys are still accepted for reads so
	// keys can be rotated.
	EncryptionKey string   `mapstructure:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys"`
	// MaskFacts lists regular expressions; matching user fact keys are
	// stored as "***".
	MaskFacts []string `mapstructure:"mask_facts"`
}

// WorkerConfig declares one worker. Settings depend on Kind and are decoded
// into StaticSettings, HTTPSettings or ProcessSettings.
type WorkerConfig struct {
	Name     string         `mapstructure:"name"`
	Kind     string         `mapstructure:"kind"`
	Summary  string         `mapstructure:"summary"`
	Tags     []string       `mapstructure:"tags"`
	Timeout  time.Duration  `mapstructure:"timeout"`
	Settings map[string]any `mapstructure:"settings"`
}

// StaticSettings configure a canned-answer worker.
type StaticSettings struct {
	Text     string        `mapstructure:"text"`
	Redirect string        `mapstructure:"redirect"`
	Delay    time.Duration `mapstructure:"delay"`
}

// HTTPSettings configure a remote worker.
type HTTPSettings struct {
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// ProcessSettings configure a local command worker.
type ProcessSettings struct {
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Env     map[string]string `mapstructure:"env"`
	Dir     string            `mapstructure:"dir"`
}

// Load reads configuration. An empty path searches for furrow.yaml in the
// working directory and the user config directory; a missing file is not an
// error. Precedence, highest first: FURROW_* env, file, defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("furrow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "furrow"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Oracle.APIKey = expandEnv(cfg.Oracle.APIKey)
	cfg.Redis.Password = expandEnv(cfg.Redis.Password)
	cfg.Redis.EncryptionKey = expandEnv(cfg.Redis.EncryptionKey)
	if cfg.Oracle.APIKey == "" {
		cfg.Oracle.APIKey = providerKey(cfg.Oracle.Provider)
	}
	if len(cfg.Workers) == 0 {
		cfg.Workers = DemoWorkers()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mcp_addr", ":8081")
	v.SetDefault("server.metrics", true)
	v.SetDefault("server.events", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("supervisor.window", 8)
	v.SetDefault("supervisor.max_cycles", 0)
	v.SetDefault("supervisor.worker_timeout", 30*time.Second)
	v.SetDefault("supervisor.max_input_size", 0)
	v.SetDefault("supervisor.inactivity_timeout", 24*time.Hour)
	v.SetDefault("supervisor.health_interval", 30*time.Second)
	v.SetDefault("supervisor.cleanup_interval", time.Hour)
	v.SetDefault("supervisor.apology", "")
	v.SetDefault("supervisor.rules_file", "")

	v.SetDefault("oracle.provider", ProviderNone)
	v.SetDefault("oracle.model", "")
	v.SetDefault("oracle.api_key", "")
	v.SetDefault("oracle.base_url", "")
	v.SetDefault("oracle.timeout", 10*time.Second)
	v.SetDefault("oracle.cache_size", 512)
	v.SetDefault("oracle.cache_ttl", 10*time.Minute)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "")
	v.SetDefault("redis.ttl", 24*time.Hour)
	v.SetDefault("redis.lock", true)
}

// Validate checks the fields Load cannot fix up on its own.
func (c *Config) Validate() error {
	switch c.Oracle.Provider {
	case ProviderNone, "":
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini:
		if c.Oracle.APIKey == "" {
			return fmt.Errorf("oracle %q needs an api key", c.Oracle.Provider)
		}
	default:
		return fmt.Errorf("unknown oracle provider %q", c.Oracle.Provider)
	}

	seen := make(map[string]bool, len(c.Workers))
	for i, w := range c.Workers {
		if w.Name == "" {
			return fmt.Errorf("worker %d: name is required", i)
		}
		if seen[w.Name] {
			return fmt.Errorf("worker %q: declared twice", w.Name)
		}
		seen[w.Name] = true
		switch w.Kind {
		case KindStatic, KindHTTP, KindProcess:
		default:
			return fmt.Errorf("worker %q: unknown kind %q", w.Name, w.Kind)
		}
	}
	return nil
}

func providerKey(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case ProviderGemini:
		if k := os.Getenv("GEMINI_API_KEY"); k != "" {
			return k
		}
		return os.Getenv("GOOGLE_API_KEY")
	}
	return ""
}

// expandEnv expands ${VAR} and $VAR references.
func expandEnv(s string) string {
	if strings.Contains(s, "$") {
		return os.ExpandEnv(s)
	}
	return s
}

// DemoWorkers is the worker set used when the config declares none: one
// canned-answer worker per built-in domain.
func DemoWorkers() []WorkerConfig {
	return []WorkerConfig{
		{Name: "weather", Kind: KindStatic, Summary: "Weather forecasts, rainfall and temperature for a location",
			Settings: map[string]any{"text": "Expect light showers this week with highs around 31°C."}},
		{Name: "market", Kind: KindStatic, Summary: "Current crop and commodity market prices",
			Settings: map[string]any{"text": "Maize trades at about 2,100 per quintal at the nearest mandi."}},
		{Name: "knowledge", Kind: KindStatic, Summary: "General farming practices, crop care and pest management",
			Settings: map[string]any{"text": "Rotate cereals with legumes to keep soil nitrogen up."}},
		{Name: "image", Kind: KindStatic, Summary: "Diagnosis of crop diseases from uploaded photos", Tags: []string{"media"},
			Settings: map[string]any{"text": "Upload a clear photo of the affected leaf to get a diagnosis."}},
		{Name: "fertilizer", Kind: KindStatic, Summary: "Fertilizer and soil nutrient recommendations",
			Settings: map[string]any{"text": "Apply 120 kg/ha of nitrogen split across three doses."}},
		{Name: "video", Kind: KindStatic, Summary: "Tutorial videos on farming techniques",
			Settings: map[string]any{"text": "Search the extension service channel for drip irrigation tutorials."}},
	}
}
