package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port" validate:"min=1,max=65535"`
	APIPrefix string `yaml:"apiPrefix"`
}

type DatabaseConfig struct {
	// URL overrides the discrete fields when set.
	URL                    string `yaml:"url"`
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port" validate:"min=1,max=65535"`
	User                   string `yaml:"user"`
	Password               string `yaml:"password"`
	Name                   string `yaml:"name"`
	SSLMode                string `yaml:"sslMode" validate:"oneof=disable require verify-ca verify-full prefer allow"`
	MaxOpenConns           int    `yaml:"maxOpenConns" validate:"min=1"`
	MaxIdleConns           int    `yaml:"maxIdleConns" validate:"min=0"`
	ConnMaxLifetimeMinutes int    `yaml:"connMaxLifetimeMinutes" validate:"min=1"`
}

// DSN renders the pgx connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type CrawlerConfig struct {
	DefaultMaxConcurrent int    `yaml:"defaultMaxConcurrent" validate:"min=1"`
	MaxConcurrentLimit   int    `yaml:"maxConcurrentLimit" validate:"min=1"`
	MaxDepthLimit        int    `yaml:"maxDepthLimit" validate:"min=0"`
	FetchTimeoutMs       int    `yaml:"fetchTimeoutMs" validate:"min=100"`
	QueueCapacity        int    `yaml:"queueCapacity" validate:"min=1"`
	UserAgent            string `yaml:"userAgent"`
	RespectRobots        bool   `yaml:"respectRobots"`
}

type RendererConfig struct {
	Engine    string `yaml:"engine" validate:"oneof=http browser"`
	TimeoutMs int    `yaml:"timeoutMs" validate:"min=100"`
	// BrowserAddr is a remote devtools websocket URL; empty launches a
	// local browser when the browser engine is selected.
	BrowserAddr string `yaml:"browserAddr"`
}

type WorkerConfig struct {
	MaxConcurrentJobs   int `yaml:"maxConcurrentJobs" validate:"min=1"`
	PollIntervalMs      int `yaml:"pollIntervalMs" validate:"min=100"`
	HeartbeatIntervalMs int `yaml:"heartbeatIntervalMs" validate:"min=100"`
	StallThresholdMs    int `yaml:"stallThresholdMs" validate:"min=1000"`
	MaxRetries          int `yaml:"maxRetries" validate:"min=0"`
}

type LLMConfig struct {
	BaseURL            string         `yaml:"baseURL"`
	Model              string         `yaml:"model"`
	APIKey             string         `yaml:"apiKey"`
	MaxConcurrent      int            `yaml:"maxConcurrent" validate:"min=1"`
	RequestTimeoutMs   int            `yaml:"requestTimeoutMs" validate:"min=100"`
	MaxAttempts        int            `yaml:"maxAttempts" validate:"min=1"`
	RateLimitPerSecond float64        `yaml:"rateLimitPerSecond" validate:"min=0"`
	// ExtraParams are forwarded verbatim in every chat-completion request
	// body for provider-specific flags.
	ExtraParams map[string]any `yaml:"extraParams"`
}

// Enabled reports whether enrichment can run at all. No key, no calls.
func (l LLMConfig) Enabled() bool {
	return l.APIKey != "" && l.Model != ""
}

type ParserConfig struct {
	MinSnippetChars int `yaml:"minSnippetChars" validate:"min=0"`
	ContextLines    int `yaml:"contextLines" validate:"min=0"`
}

type SearchConfig struct {
	FallbackThreshold int `yaml:"fallbackThreshold" validate:"min=1"`
	FallbackDocLimit  int `yaml:"fallbackDocLimit" validate:"min=1"`
	DefaultLimit      int `yaml:"defaultLimit" validate:"min=1"`
	MaxLimit          int `yaml:"maxLimit" validate:"min=1"`
}

type UploadConfig struct {
	MaxFileSizeBytes     int64  `yaml:"maxFileSizeBytes" validate:"min=1"`
	MaxFiles             int    `yaml:"maxFiles" validate:"min=1"`
	DefaultMaxConcurrent int    `yaml:"defaultMaxConcurrent" validate:"min=1"`
	CloneDir             string `yaml:"cloneDir"`
	GitToken             string `yaml:"gitToken"`
	KeepCloneDir         bool   `yaml:"keepCloneDir"`
}

type MCPConfig struct {
	Enabled   bool   `yaml:"enabled"`
	AuthToken string `yaml:"authToken"`
}

type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

type RateLimitConfig struct {
	Enabled   bool `yaml:"enabled"`
	PerMinute int  `yaml:"perMinute" validate:"min=1"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// SlogLevel maps the configured level onto slog.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Crawler   CrawlerConfig   `yaml:"crawler"`
	Renderer  RendererConfig  `yaml:"renderer"`
	Worker    WorkerConfig    `yaml:"worker"`
	LLM       LLMConfig       `yaml:"llm"`
	Parser    ParserConfig    `yaml:"parser"`
	Search    SearchConfig    `yaml:"search"`
	Upload    UploadConfig    `yaml:"upload"`
	MCP       MCPConfig       `yaml:"mcp"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8420,
			APIPrefix: "/api",
		},
		Database: DatabaseConfig{
			Host:                   "localhost",
			Port:                   5432,
			User:                   "docdex",
			Password:               "docdex",
			Name:                   "docdex",
			SSLMode:                "disable",
			MaxOpenConns:           20,
			MaxIdleConns:           10,
			ConnMaxLifetimeMinutes: 30,
		},
		Crawler: CrawlerConfig{
			DefaultMaxConcurrent: 5,
			MaxConcurrentLimit:   20,
			MaxDepthLimit:        10,
			FetchTimeoutMs:       30000,
			QueueCapacity:        1000,
			UserAgent:            "docdex/1.0 (+https://github.com/docdex/docdex)",
			RespectRobots:        true,
		},
		Renderer: RendererConfig{
			Engine:    "http",
			TimeoutMs: 30000,
		},
		Worker: WorkerConfig{
			MaxConcurrentJobs:   4,
			PollIntervalMs:      2000,
			HeartbeatIntervalMs: 5000,
			StallThresholdMs:    120000,
			MaxRetries:          3,
		},
		LLM: LLMConfig{
			BaseURL:          "https://api.openai.com/v1",
			Model:            "",
			MaxConcurrent:    4,
			RequestTimeoutMs: 60000,
			MaxAttempts:      3,
		},
		Parser: ParserConfig{
			MinSnippetChars: 10,
			ContextLines:    3,
		},
		Search: SearchConfig{
			FallbackThreshold: 5,
			FallbackDocLimit:  10,
			DefaultLimit:      20,
			MaxLimit:          100,
		},
		Upload: UploadConfig{
			MaxFileSizeBytes:     10 << 20,
			MaxFiles:             500,
			DefaultMaxConcurrent: 5,
			CloneDir:             os.TempDir(),
		},
		MCP: MCPConfig{
			Enabled: true,
		},
		RateLimit: RateLimitConfig{
			PerMinute: 120,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path (optional), layers environment
// overrides on top of the defaults, and validates the result. Callers
// treat an error here as exit code 2.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("DOCDEX_CONFIG")
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config file: %w", err)
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate runs the struct tags plus the cross-field checks.
func Validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Crawler.DefaultMaxConcurrent > cfg.Crawler.MaxConcurrentLimit {
		return fmt.Errorf("invalid configuration: crawler.defaultMaxConcurrent %d exceeds maxConcurrentLimit %d",
			cfg.Crawler.DefaultMaxConcurrent, cfg.Crawler.MaxConcurrentLimit)
	}
	if cfg.Search.DefaultLimit > cfg.Search.MaxLimit {
		return fmt.Errorf("invalid configuration: search.defaultLimit %d exceeds maxLimit %d",
			cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	}
	if cfg.RateLimit.Enabled && !cfg.Redis.Enabled {
		return fmt.Errorf("invalid configuration: ratelimit requires redis to be enabled")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setStr := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setStr(&cfg.Database.URL, "DOCDEX_DATABASE_URL")
	setStr(&cfg.Database.Host, "DOCDEX_DB_HOST")
	setStr(&cfg.Database.User, "DOCDEX_DB_USER")
	setStr(&cfg.Database.Password, "DOCDEX_DB_PASSWORD")
	setStr(&cfg.Database.Name, "DOCDEX_DB_NAME")
	setStr(&cfg.Database.SSLMode, "DOCDEX_DB_SSLMODE")
	if v := os.Getenv("DOCDEX_DB_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DOCDEX_DB_PORT %q: %w", v, err)
		}
		cfg.Database.Port = p
	}

	setStr(&cfg.LLM.BaseURL, "DOCDEX_LLM_BASE_URL")
	setStr(&cfg.LLM.Model, "DOCDEX_LLM_MODEL")
	setStr(&cfg.LLM.APIKey, "DOCDEX_LLM_API_KEY")
	if v := os.Getenv("DOCDEX_LLM_EXTRA_PARAMS"); v != "" {
		var extra map[string]any
		if err := json.Unmarshal([]byte(v), &extra); err != nil {
			return fmt.Errorf("invalid DOCDEX_LLM_EXTRA_PARAMS: %w", err)
		}
		cfg.LLM.ExtraParams = extra
	}

	setStr(&cfg.Upload.GitToken, "DOCDEX_GIT_TOKEN")
	setStr(&cfg.MCP.AuthToken, "DOCDEX_MCP_AUTH_TOKEN")
	setStr(&cfg.Logging.Level, "DOCDEX_LOG_LEVEL")
	setStr(&cfg.Redis.URL, "DOCDEX_REDIS_URL")

	if v := os.Getenv("DOCDEX_UPLOAD_MAX_FILE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid DOCDEX_UPLOAD_MAX_FILE_SIZE %q: %w", v, err)
		}
		cfg.Upload.MaxFileSizeBytes = n
	}
	if v := os.Getenv("DOCDEX_MAX_CONCURRENT_REQUESTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DOCDEX_MAX_CONCURRENT_REQUESTS %q: %w", v, err)
		}
		cfg.Crawler.MaxConcurrentLimit = n
	}
	return nil
}
