package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultJWTSecret is the placeholder secret shipped in example configs.
const DefaultJWTSecret = "your-secret-key-change-this-in-production"

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Email     EmailConfig     `mapstructure:"email"`
	Calendar  CalendarConfig  `mapstructure:"calendar"`
	Messaging MessagingConfig `mapstructure:"messaging"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	MiddlewareTimeout time.Duration `mapstructure:"middleware_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Driver        string `mapstructure:"driver"`
	URL           string `mapstructure:"url"`
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	SSLMode       string `mapstructure:"ssl_mode"`
	MaxConns      int32  `mapstructure:"max_conns"`
	MinConns      int32  `mapstructure:"min_conns"`
	AutoMigrate   bool   `mapstructure:"auto_migrate"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	MigrationsURL string `mapstructure:"migrations_url"`
}

// DSN returns the Postgres connection string. An explicit URL wins over the
// individual fields.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	Issuer         string        `mapstructure:"issuer"`
}

type LLMConfig struct {
	DefaultProvider string          `mapstructure:"default_provider"`
	Gemini          GeminiConfig    `mapstructure:"gemini"`
	OpenAI          OpenAIConfig    `mapstructure:"openai"`
	DeepSeek        DeepSeekConfig  `mapstructure:"deepseek"`
	Ollama          OllamaConfig    `mapstructure:"ollama"`
	Anthropic       AnthropicConfig `mapstructure:"anthropic"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type DeepSeekConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type AnthropicConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	Host         string `mapstructure:"host"`
	DefaultModel string `mapstructure:"default_model"`
}

// AgentConfig tunes the conversation runner.
type AgentConfig struct {
	MaxSteps     int    `mapstructure:"max_steps"`
	HistoryLimit int    `mapstructure:"history_limit"`
	Timezone     string `mapstructure:"timezone"`
	Model        string `mapstructure:"model"`
}

type EmailConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Sender returns the From address, defaulting to the SMTP login.
func (c EmailConfig) Sender() string {
	if c.From != "" {
		return c.From
	}
	return c.Username
}

type CalendarConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	ProductID string `mapstructure:"product_id"`
}

type MessagingConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type DispatchConfig struct {
	ContinueOnEmailFailure bool `mapstructure:"continue_on_email_failure"`
}

type SecurityConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level        string        `mapstructure:"level"`
	Format       string        `mapstructure:"format"`
	File         string        `mapstructure:"file"`
	MaxAge       time.Duration `mapstructure:"max_age"`
	RotationTime time.Duration `mapstructure:"rotation_time"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set config file path
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks settings the server cannot start without. Warnings are
// returned separately so the caller can log them.
func (c *Config) Validate() (warnings []string, err error) {
	var problems []string

	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN() == "" {
			problems = append(problems, "database url is not set")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			problems = append(problems, "database.sqlite_path is not set")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown database driver %q", c.Database.Driver))
	}

	if c.Auth.JWTSecret == "" {
		problems = append(problems, "SECRET_KEY is not set")
	} else if c.Auth.JWTSecret == DefaultJWTSecret {
		warnings = append(warnings, "SECRET_KEY is using the default value, set a secure secret in production")
	}

	if c.Email.Enabled {
		if c.Email.Username == "" {
			problems = append(problems, "EMAIL_HOST_USER is not set")
		}
		if c.Email.Password == "" {
			problems = append(problems, "EMAIL_HOST_PASSWORD is not set")
		}
	}

	if c.Messaging.Enabled && c.Messaging.Endpoint == "" {
		problems = append(problems, "messaging.endpoint is not set")
	}

	if len(problems) > 0 {
		return warnings, fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
	}
	return warnings, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.middleware_timeout", "110s")
	v.SetDefault("server.shutdown_timeout", "15s")

	// App
	v.SetDefault("app.name", "Invitation Assistant")
	v.SetDefault("app.environment", "development")

	// Database
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "invitation")
	v.SetDefault("database.database", "invitation_agent")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.sqlite_path", "invitation_agent.db")

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Auth
	v.SetDefault("auth.access_token_ttl", "30m")
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.issuer", "invitation-agent")

	// LLM
	v.SetDefault("llm.default_provider", "gemini")
	v.SetDefault("llm.gemini.model", "gemini-2.5-flash")
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.deepseek.model", "deepseek-chat")
	v.SetDefault("llm.deepseek.base_url", "https://api.deepseek.com/v1")
	v.SetDefault("llm.ollama.default_model", "llama3.1")
	v.SetDefault("llm.anthropic.model", "claude-3-5-haiku-latest")
	v.SetDefault("llm.anthropic.base_url", "https://api.anthropic.com/v1")

	// Agent
	v.SetDefault("agent.max_steps", 8)
	v.SetDefault("agent.history_limit", 40)
	v.SetDefault("agent.timezone", "Local")

	// Email
	v.SetDefault("email.enabled", true)
	v.SetDefault("email.host", "smtp.gmail.com")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.timeout", "30s")

	// Calendar
	v.SetDefault("calendar.output_dir", "./invitations")
	v.SetDefault("calendar.product_id", "-//Invitation Assistant//EN")

	// Messaging
	v.SetDefault("messaging.enabled", false)
	v.SetDefault("messaging.endpoint", "http://localhost:8081/sse")
	v.SetDefault("messaging.timeout", "30s")

	// Dispatch
	v.SetDefault("dispatch.continue_on_email_failure", false)

	// Security
	v.SetDefault("security.rate_limit.requests_per_minute", 30)
	v.SetDefault("security.rate_limit.burst", 10)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.max_age", "168h")
	v.SetDefault("logging.rotation_time", "24h")
}

func bindEnvVars(v *viper.Viper) {
	// Database
	v.BindEnv("database.url", "DB_URL")
	v.BindEnv("database.password", "POSTGRES_PASSWORD")

	// Redis
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Auth
	v.BindEnv("auth.jwt_secret", "SECRET_KEY", "JWT_SECRET")

	// App
	v.BindEnv("app.name", "APP_NAME")
	v.BindEnv("app.environment", "ENV")
	v.BindEnv("server.host", "BACKEND_HOST")
	v.BindEnv("server.port", "BACKEND_PORT")

	// Email
	v.BindEnv("email.username", "EMAIL_HOST_USER")
	v.BindEnv("email.password", "EMAIL_HOST_PASSWORD")
	v.BindEnv("email.host", "SMTP_SERVER")
	v.BindEnv("email.port", "SMTP_PORT")

	// LLM API Keys
	v.BindEnv("llm.gemini.api_key", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	v.BindEnv("llm.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("llm.deepseek.api_key", "DEEPSEEK_API_KEY")
	v.BindEnv("llm.ollama.host", "OLLAMA_HOST")
	v.BindEnv("llm.anthropic.api_key", "ANTHROPIC_API_KEY")

	// Messaging
	v.BindEnv("messaging.endpoint", "MESSAGING_MCP_URL")
}
