// Package config provides application configuration with multi-source
// priority.
//
// Sources, highest priority first:
//  1. Environment variables (RAGLINE_* and DATABASE_URL)
//  2. Config file (~/.ragline/config.yaml, or ./config.yaml)
//  3. Defaults
//
// Sensitive values (the Postgres password) are masked in MarshalJSON and
// String so a Config can be logged safely.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel errors returned by Validate.
var (
	ErrInvalidProvider    = errors.New("invalid provider")
	ErrInvalidModelName   = errors.New("invalid model name")
	ErrInvalidEmbedder    = errors.New("invalid embedder model")
	ErrInvalidDimension   = errors.New("invalid embedding dimension")
	ErrInvalidTopK        = errors.New("invalid top-k")
	ErrInvalidQuestionLen = errors.New("invalid max question length")
	ErrInvalidThreadStore = errors.New("invalid thread store")
	ErrInvalidPostgres    = errors.New("invalid postgres configuration")
	ErrInvalidTimeout     = errors.New("invalid timeout")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Thread store backends.
const (
	ThreadStoreMemory   = "memory"
	ThreadStorePostgres = "postgres"
)

const (
	// DefaultEmbedderModel is the Gemini embedder used unless overridden.
	// Its output is truncated to DefaultEmbeddingDimension to match the
	// pgvector schema.
	DefaultEmbedderModel = "text-embedding-004"

	// DefaultEmbeddingDimension is the vector width of the documents table.
	DefaultEmbeddingDimension = 768

	// DefaultTopK is the number of chunks retrieved per question.
	DefaultTopK = 4

	// DefaultMaxQuestionLen bounds a single question, in runes.
	DefaultMaxQuestionLen = 1000

	// DefaultMaxHistoryMessages is the sliding window of history sent to
	// the model. Persisted history is never truncated.
	DefaultMaxHistoryMessages = 100
)

// Config stores the full application configuration.
type Config struct {
	// AI provider and model selection
	Provider      string `mapstructure:"provider" json:"provider"`           // "gemini" (default), "ollama", "openai"
	ModelName     string `mapstructure:"model_name" json:"model_name"`       // e.g. "gemini-2.5-flash", "llama3.3"
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	EmbeddingDim  int    `mapstructure:"embedding_dim" json:"embedding_dim"`
	OllamaHost    string `mapstructure:"ollama_host" json:"ollama_host"`

	// Pipeline tuning
	TopK                 int           `mapstructure:"top_k" json:"top_k"`
	MaxQuestionLen       int           `mapstructure:"max_question_len" json:"max_question_len"`
	MaxHistoryMessages   int           `mapstructure:"max_history_messages" json:"max_history_messages"`
	ContextualizeTimeout time.Duration `mapstructure:"contextualize_timeout" json:"contextualize_timeout"`
	RetrieveTimeout      time.Duration `mapstructure:"retrieve_timeout" json:"retrieve_timeout"`
	SynthesizeTimeout    time.Duration `mapstructure:"synthesize_timeout" json:"synthesize_timeout"`

	// Thread state backend: "memory" (default) or "postgres"
	ThreadStore string `mapstructure:"thread_store" json:"thread_store"`

	// Storage (pgvector corpus, optional durable thread store)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Ingestion
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// HTTP shell (serve mode)
	HTTPAddr    string   `mapstructure:"http_addr" json:"http_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"`
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`
}

// Load reads configuration from all sources and validates it.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".ragline")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine; everything has a default.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("config file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("embedding_dim", DefaultEmbeddingDimension)
	viper.SetDefault("ollama_host", "http://localhost:11434")

	viper.SetDefault("top_k", DefaultTopK)
	viper.SetDefault("max_question_len", DefaultMaxQuestionLen)
	viper.SetDefault("max_history_messages", DefaultMaxHistoryMessages)
	viper.SetDefault("contextualize_timeout", 15*time.Second)
	viper.SetDefault("retrieve_timeout", 10*time.Second)
	viper.SetDefault("synthesize_timeout", 30*time.Second)

	viper.SetDefault("thread_store", ThreadStoreMemory)

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "ragline")
	viper.SetDefault("postgres_password", "ragline_dev_password")
	viper.SetDefault("postgres_db_name", "ragline")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("chunk_size", 300)
	viper.SetDefault("chunk_overlap", 100)

	viper.SetDefault("http_addr", ":8057")
	viper.SetDefault("cors_origins", []string{"http://localhost:4200"})
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_burst", 60)
}

// bindEnvVariables binds runtime overrides explicitly. API keys
// (GEMINI_API_KEY, OPENAI_API_KEY) are read by the Genkit provider plugins
// directly, not through viper.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: binding %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "RAGLINE_PROVIDER")
	mustBind("model_name", "RAGLINE_MODEL_NAME")
	mustBind("embedder_model", "RAGLINE_EMBEDDER_MODEL")
	mustBind("ollama_host", "RAGLINE_OLLAMA_HOST")
	mustBind("thread_store", "RAGLINE_THREAD_STORE")
	mustBind("http_addr", "RAGLINE_HTTP_ADDR")
	mustBind("cors_origins", "RAGLINE_CORS_ORIGINS")
	mustBind("trust_proxy", "RAGLINE_TRUST_PROXY")
}

// parseDatabaseURL overrides the postgres_* fields from DATABASE_URL when
// set. The URL form wins over individual fields.
func (c *Config) parseDatabaseURL() error {
	raw := os.Getenv("DATABASE_URL")
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	c.PostgresHost = u.Hostname()
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", p, err)
		}
		c.PostgresPort = port
	}
	if u.User != nil {
		c.PostgresUser = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			c.PostgresPassword = pw
		}
	}
	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		c.PostgresDBName = db
	}
	if mode := u.Query().Get("sslmode"); mode != "" {
		c.PostgresSSLMode = mode
	}

	return nil
}

// Validate checks the configuration, failing fast on values the rest of the
// application assumes are sane.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: %q (expected gemini, ollama, or openai)", ErrInvalidProvider, c.Provider)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidEmbedder)
	}
	if c.EmbeddingDim < 1 || c.EmbeddingDim > 8192 {
		return fmt.Errorf("%w: %d", ErrInvalidDimension, c.EmbeddingDim)
	}

	if c.TopK < 1 || c.TopK > 50 {
		return fmt.Errorf("%w: %d (expected 1-50)", ErrInvalidTopK, c.TopK)
	}
	if c.MaxQuestionLen < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidQuestionLen, c.MaxQuestionLen)
	}
	if c.MaxHistoryMessages < 2 {
		return fmt.Errorf("max_history_messages must be at least 2, got %d", c.MaxHistoryMessages)
	}

	for name, d := range map[string]time.Duration{
		"contextualize_timeout": c.ContextualizeTimeout,
		"retrieve_timeout":      c.RetrieveTimeout,
		"synthesize_timeout":    c.SynthesizeTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s = %v", ErrInvalidTimeout, name, d)
		}
	}

	switch c.ThreadStore {
	case ThreadStoreMemory, ThreadStorePostgres:
	default:
		return fmt.Errorf("%w: %q (expected memory or postgres)", ErrInvalidThreadStore, c.ThreadStore)
	}

	if c.PostgresHost == "" || c.PostgresDBName == "" {
		return fmt.Errorf("%w: host and db name are required", ErrInvalidPostgres)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port %d", ErrInvalidPostgres, c.PostgresPort)
	}

	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", c.ChunkOverlap)
	}

	return nil
}

// PostgresURL returns the postgres:// connection URL, used by migrations.
func (c *Config) PostgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:     c.PostgresDBName,
		RawQuery: "sslmode=" + c.PostgresSSLMode,
	}
	return u.String()
}

// PostgresConnectionString returns the keyword/value form used by pgxpool.
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword,
		c.PostgresDBName, c.PostgresSSLMode)
}

// FullModelName returns the provider-qualified model name for Genkit, e.g.
// "googleai/gemini-2.5-flash" or "ollama/llama3.3".
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOllama:
		return "ollama/" + c.ModelName
	case ProviderOpenAI:
		return "openai/" + c.ModelName
	default:
		return "googleai/" + c.ModelName
	}
}

// maskedValue replaces secrets in serialized output. Full-width blocks avoid
// accidental substring matches against real secret content.
const maskedValue = "████████"

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON masks sensitive fields.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer so a printed Config never leaks secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
