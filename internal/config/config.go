package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	apperrors "github.com/whattherepo/whattherepo/internal/errors"
)

// Config holds all settings for the ingest jobs and the query server.
type Config struct {
	Forge       ForgeConfig       `yaml:"forge" mapstructure:"forge"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	VectorStore VectorStoreConfig `yaml:"vectorstore" mapstructure:"vectorstore"`
	Mart        MartConfig        `yaml:"mart" mapstructure:"mart"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Ingest      IngestConfig      `yaml:"ingest" mapstructure:"ingest"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
}

type ForgeConfig struct {
	Token     string `yaml:"token" mapstructure:"token"`
	RateLimit int    `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
}

type LLMConfig struct {
	OpenAIKey      string        `yaml:"openai_key" mapstructure:"openai_key"`
	ChatModel      string        `yaml:"chat_model" mapstructure:"chat_model"`
	EmbedModel     string        `yaml:"embed_model" mapstructure:"embed_model"`
	QueryEmbed     string        `yaml:"query_embed_model" mapstructure:"query_embed_model"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

type VectorStoreConfig struct {
	DSN           string `yaml:"dsn" mapstructure:"dsn"`
	PRCollection  string `yaml:"pr_collection" mapstructure:"pr_collection"`
	FileColl      string `yaml:"file_collection" mapstructure:"file_collection"`
	Dimension     int    `yaml:"dimension" mapstructure:"dimension"`
	BatchSize     int    `yaml:"batch_size" mapstructure:"batch_size"`
	SearchProbes  int    `yaml:"search_probes" mapstructure:"search_probes"`
	IndexLists    int    `yaml:"index_lists" mapstructure:"index_lists"`
	QueryRowLimit int    `yaml:"query_row_limit" mapstructure:"query_row_limit"`
}

type MartConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // "postgres" or "sqlite3"
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string        `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int           `yaml:"redis_db" mapstructure:"redis_db"`
	TTL           time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

type IngestConfig struct {
	FileWorkers    int    `yaml:"file_workers" mapstructure:"file_workers"`
	CheckpointPath string `yaml:"checkpoint_path" mapstructure:"checkpoint_path"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"`
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Forge: ForgeConfig{
			RateLimit: 10,
		},
		LLM: LLMConfig{
			ChatModel:      "gpt-4o-mini",
			EmbedModel:     "text-embedding-ada-002",
			QueryEmbed:     "text-embedding-3-small",
			RequestTimeout: 30 * time.Second,
		},
		VectorStore: VectorStoreConfig{
			PRCollection:  "pr_index",
			FileColl:      "file_changes",
			Dimension:     1536,
			BatchSize:     50,
			SearchProbes:  10,
			IndexLists:    1024,
			QueryRowLimit: 1000,
		},
		Mart: MartConfig{
			Driver: "postgres",
		},
		Cache: CacheConfig{
			TTL: 15 * time.Minute,
		},
		Ingest: IngestConfig{
			FileWorkers:    4,
			CheckpointPath: filepath.Join(homeDir, ".whattherepo", "checkpoint.db"),
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from .env files, an optional YAML file, and the
// environment, in increasing order of precedence.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("forge", cfg.Forge)
	v.SetDefault("llm", cfg.LLM)
	v.SetDefault("vectorstore", cfg.VectorStore)
	v.SetDefault("mart", cfg.Mart)
	v.SetDefault("cache", cfg.Cache)
	v.SetDefault("ingest", cfg.Ingest)
	v.SetDefault("server", cfg.Server)
	v.SetDefault("logging", cfg.Logging)

	v.SetEnvPrefix("WTR")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".whattherepo")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".whattherepo"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, apperrors.Wrap(err, apperrors.KindConfig, apperrors.SeverityFatal, "failed to read config")
		}
		// No config file is fine, defaults apply.
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindConfig, apperrors.SeverityFatal, "failed to unmarshal config")
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence.
func loadEnvFiles() {
	envFiles := []string{
		".env.local",
		".env",
		".env.example",
	}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}
	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".whattherepo", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies flat environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.Forge.Token = token
	} else if cfg.Forge.Token == "" {
		km := NewKeyringManager()
		if km.IsAvailable() {
			if keychainToken, err := km.GetForgeToken(); err == nil && keychainToken != "" {
				cfg.Forge.Token = keychainToken
			}
		}
	}
	if rateLimit := os.Getenv("GITHUB_RATE_LIMIT"); rateLimit != "" {
		if rate, err := strconv.Atoi(rateLimit); err == nil {
			cfg.Forge.RateLimit = rate
		}
	}

	// Precedence: env var (highest), then keyring, then config file.
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	} else if cfg.LLM.OpenAIKey == "" {
		km := NewKeyringManager()
		if km.IsAvailable() {
			if keychainKey, err := km.GetAPIKey(); err == nil && keychainKey != "" {
				cfg.LLM.OpenAIKey = keychainKey
			}
		}
	}
	if model := os.Getenv("OPENAI_CHAT_MODEL"); model != "" {
		cfg.LLM.ChatModel = model
	}
	if model := os.Getenv("OPENAI_EMBED_MODEL"); model != "" {
		cfg.LLM.EmbedModel = model
	}
	if model := os.Getenv("OPENAI_QUERY_EMBED_MODEL"); model != "" {
		cfg.LLM.QueryEmbed = model
	}

	if dsn := os.Getenv("VECTORSTORE_DSN"); dsn != "" {
		cfg.VectorStore.DSN = dsn
	}
	if driver := os.Getenv("MART_DRIVER"); driver != "" {
		cfg.Mart.Driver = driver
	}
	if dsn := os.Getenv("MART_DSN"); dsn != "" {
		cfg.Mart.DSN = dsn
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Cache.RedisAddr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Cache.RedisPassword = password
	}

	if addr := os.Getenv("WTR_SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if workers := os.Getenv("INGEST_FILE_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			cfg.Ingest.FileWorkers = n
		}
	}
	if path := os.Getenv("INGEST_CHECKPOINT_PATH"); path != "" {
		cfg.Ingest.CheckpointPath = expandPath(path)
	}
	if level := os.Getenv("WTR_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// ValidateIngest checks the credentials required by ingest jobs.
func (c *Config) ValidateIngest() error {
	if c.Forge.Token == "" {
		return apperrors.ConfigError("GITHUB_TOKEN is required for ingest")
	}
	if c.LLM.OpenAIKey == "" {
		return apperrors.ConfigError("OPENAI_API_KEY is required for ingest")
	}
	return nil
}

// ValidateQuery checks the backends required by the query path.
func (c *Config) ValidateQuery() error {
	if c.VectorStore.DSN == "" {
		return apperrors.ConfigError("VECTORSTORE_DSN is required for queries")
	}
	if c.LLM.OpenAIKey == "" {
		return apperrors.ConfigError("OPENAI_API_KEY is required for queries")
	}
	return nil
}

// Dump renders the active configuration as YAML with secrets masked.
func (c *Config) Dump() (string, error) {
	masked := *c
	masked.LLM.OpenAIKey = MaskAPIKey(c.LLM.OpenAIKey)
	masked.Forge.Token = MaskAPIKey(c.Forge.Token)
	out, err := yaml.Marshal(&masked)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.KindInternal, apperrors.SeverityHigh, "failed to render config")
	}
	return string(out), nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.Wrap(err, apperrors.KindConfig, apperrors.SeverityHigh, "failed to create config directory")
	}
	out, err := yaml.Marshal(c)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindInternal, apperrors.SeverityHigh, "failed to marshal config")
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		return apperrors.Wrap(err, apperrors.KindConfig, apperrors.SeverityHigh, "failed to write config")
	}
	return nil
}

// expandPath expands ~ to the home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
