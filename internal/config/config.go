package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Privacy  PrivacyConfig  `yaml:"privacy"`
	Cache    CacheConfig    `yaml:"cache"`
	Queue    QueueConfig    `yaml:"queue"`
	Warmup   WarmupConfig   `yaml:"warmup"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path        string        `yaml:"path"         env:"FLOWGATE_DB_PATH"         env-default:"data/flowgate.db"`
	BusyTimeout time.Duration `yaml:"busy_timeout" env:"FLOWGATE_DB_BUSY_TIMEOUT" env-default:"30s"`
}

// LLMConfig holds the external model client settings.
type LLMConfig struct {
	APIKey            string        `yaml:"api_key"             env:"GEMINI_API_KEY"`
	ModelFast         string        `yaml:"model_fast"          env:"FLOWGATE_MODEL_FAST"  env-default:"models/gemini-3-flash-preview"`
	ModelSmart        string        `yaml:"model_smart"         env:"FLOWGATE_MODEL_SMART" env-default:"models/gemini-3-flash-preview"`
	DeepThreshold     int           `yaml:"deep_threshold"      env:"FLOWGATE_DEEP_THRESHOLD"      env-default:"90"`
	LongTextThreshold int           `yaml:"long_text_threshold" env:"FLOWGATE_LONG_TEXT_THRESHOLD" env-default:"1000"`
	Timeout           time.Duration `yaml:"timeout"             env:"FLOWGATE_LLM_TIMEOUT" env-default:"120s"`
	UserSystemPrompt  string        `yaml:"user_system_prompt"  env:"FLOWGATE_USER_SYSTEM_PROMPT"`
}

// PrivacyConfig controls masking behavior.
type PrivacyConfig struct {
	Enabled bool `yaml:"enabled" env:"FLOWGATE_PRIVACY_MODE" env-default:"true"`
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	TTL           time.Duration `yaml:"ttl"            env:"FLOWGATE_CACHE_TTL"            env-default:"168h"`
	MaxEntries    int           `yaml:"max_entries"    env:"FLOWGATE_CACHE_MAX_ENTRIES"    env-default:"100"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"FLOWGATE_CACHE_SWEEP_INTERVAL" env-default:"1h"`
}

// QueueConfig controls the deferred job queue.
type QueueConfig struct {
	MaxRetries int `yaml:"max_retries" env:"FLOWGATE_QUEUE_MAX_RETRIES" env-default:"3"`
	DrainLimit int `yaml:"drain_limit" env:"FLOWGATE_QUEUE_DRAIN_LIMIT" env-default:"10"`
}

// WarmupConfig controls bulk cache precomputation.
type WarmupConfig struct {
	Delay     time.Duration `yaml:"delay"      env:"FLOWGATE_WARMUP_DELAY"      env-default:"2s"`
	BatchSize int           `yaml:"batch_size" env:"FLOWGATE_WARMUP_BATCH_SIZE" env-default:"5"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"FLOWGATE_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"FLOWGATE_LOG_FORMAT" env-default:"text"`
}

// Load reads configuration from the given YAML file (if it exists) merged
// with environment variables. An empty or missing path loads from the
// environment alone.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("reading config %s: %w", path, err)
			}
			return cfg, cfg.validate()
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("reading config from env: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive, got %d", c.Cache.MaxEntries)
	}
	if c.Queue.MaxRetries < 1 {
		return fmt.Errorf("queue.max_retries must be at least 1, got %d", c.Queue.MaxRetries)
	}
	if c.LLM.DeepThreshold < 0 || c.LLM.DeepThreshold > 100 {
		return fmt.Errorf("llm.deep_threshold must be in [0,100], got %d", c.LLM.DeepThreshold)
	}
	return nil
}
