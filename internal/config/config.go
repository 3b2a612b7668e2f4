package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	OpenRouter OpenRouterConfig `yaml:"openrouter" mapstructure:"openrouter"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Targets    TargetsConfig    `yaml:"targets" mapstructure:"targets"`
	Analysis   AnalysisConfig   `yaml:"analysis" mapstructure:"analysis"`
	Preference PreferenceConfig `yaml:"preference" mapstructure:"preference"`
	Translate  TranslateConfig  `yaml:"translate" mapstructure:"translate"`
	Session    SessionConfig    `yaml:"session" mapstructure:"session"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OpenRouterConfig holds OpenRouter API settings (primary backend).
type OpenRouterConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	Model          string  `yaml:"model" mapstructure:"model"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnthropicConfig holds Anthropic API settings (fallback backend).
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// TargetsConfig configures the prioritized backend target list.
type TargetsConfig struct {
	// Path to an optional targets.yaml overriding the built-in order.
	Path string `yaml:"path" mapstructure:"path"`
}

// AnalysisConfig configures the analysis agents.
type AnalysisConfig struct {
	MaxTokens    int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxAttempts  int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffSecs  int     `yaml:"backoff_secs" mapstructure:"backoff_secs"`
	Temperature  float64 `yaml:"temperature" mapstructure:"temperature"`
	OutputDir    string  `yaml:"output_dir" mapstructure:"output_dir"`
	SaveAnalyses bool    `yaml:"save_analyses" mapstructure:"save_analyses"`
	DefaultLang  string  `yaml:"default_lang" mapstructure:"default_lang"`
}

// PreferenceConfig configures topic-preference weighting. The growth/decay
// constants and the covering threshold are empirical values carried over
// from production tuning; they are configuration, not invariants.
type PreferenceConfig struct {
	Increment        float64       `yaml:"increment" mapstructure:"increment"`
	Decrement        float64       `yaml:"decrement" mapstructure:"decrement"`
	MinWeight        float64       `yaml:"min_weight" mapstructure:"min_weight"`
	MaxWeight        float64       `yaml:"max_weight" mapstructure:"max_weight"`
	CoverThreshold   float64       `yaml:"cover_threshold" mapstructure:"cover_threshold"`
	MaxFocusAreas    int           `yaml:"max_focus_areas" mapstructure:"max_focus_areas"`
	MaxRelevant      int           `yaml:"max_relevant" mapstructure:"max_relevant"`
	QuestionCacheTTL time.Duration `yaml:"question_cache_ttl" mapstructure:"question_cache_ttl"`
}

// TranslateConfig configures the batch translator.
type TranslateConfig struct {
	MaxBatchTokens int      `yaml:"max_batch_tokens" mapstructure:"max_batch_tokens"`
	MaxConcurrent  int      `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	ExcludedKeys   []string `yaml:"excluded_keys" mapstructure:"excluded_keys"`
	Temperature    float64  `yaml:"temperature" mapstructure:"temperature"`
}

// SessionConfig configures chat session expiry.
type SessionConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CONTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "contract-cli.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "google/gemini-2.0-flash-001")
	v.SetDefault("openrouter.requests_per_sec", 2.0)
	v.SetDefault("openrouter.timeout_secs", 60)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("analysis.max_tokens", 2000)
	v.SetDefault("analysis.max_attempts", 3)
	v.SetDefault("analysis.backoff_secs", 2)
	v.SetDefault("analysis.temperature", 0.2)
	v.SetDefault("analysis.output_dir", "contract_analyses")
	v.SetDefault("analysis.save_analyses", true)
	v.SetDefault("analysis.default_lang", "en")
	v.SetDefault("preference.increment", 0.2)
	v.SetDefault("preference.decrement", 0.05)
	v.SetDefault("preference.min_weight", 0.5)
	v.SetDefault("preference.max_weight", 5.0)
	v.SetDefault("preference.cover_threshold", 0.6)
	v.SetDefault("preference.max_focus_areas", 5)
	v.SetDefault("preference.max_relevant", 3)
	v.SetDefault("preference.question_cache_ttl", time.Hour)
	v.SetDefault("translate.max_batch_tokens", 1000)
	v.SetDefault("translate.max_concurrent", 4)
	v.SetDefault("translate.excluded_keys", []string{"status", "error"})
	v.SetDefault("translate.temperature", 0.3)
	v.SetDefault("session.ttl_minutes", 120)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
