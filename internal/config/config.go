package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv      = "NEWS_SUMMARIZER_CONFIG"
	databaseDriverEnv  = "DATABASE_DRIVER"
	databaseDSNEnv     = "DATABASE_DSN"
	httpAddrEnv        = "HTTP_ADDR"
	logLevelEnv        = "LOG_LEVEL"
	logFormatEnv       = "LOG_FORMAT"
	providerEnv        = "AI_PROVIDER"
	ollamaModelEnv     = "OLLAMA_MODEL"
	ollamaHostEnv      = "OLLAMA_HOST"
	googleAPIKeyEnv    = "GOOGLE_API_KEY"
	googleModelEnv     = "GOOGLE_MODEL"
	openAIAPIKeyEnv    = "OPENAI_API_KEY"
	openAIModelEnv     = "OPENAI_MODEL"
	summarizerURLEnv   = "SUMMARIZER_BASE_URL"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	defaultOllamaModel = "gemma3n"
	defaultGoogleModel = "gemini-1.5-flash"
	defaultOpenAIModel = "gpt-4o-mini"
)

// Supported summarizer providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
	ProviderHTTP   = "http"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Server        ServerConfig       `yaml:"server"`
	News          NewsConfig         `yaml:"news"`
	Worker        WorkerConfig       `yaml:"worker"`
	Summarizer    SummarizerConfig   `yaml:"summarizer"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// DatabaseConfig selects the cache store backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// ServerConfig describes the HTTP read endpoint.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	PageSize        int           `yaml:"pageSize"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// NewsConfig controls how topics are fetched and cached.
type NewsConfig struct {
	TTL                 time.Duration     `yaml:"ttl"`
	FetchCount          int               `yaml:"fetchCount"`
	FetchTimeout        time.Duration     `yaml:"fetchTimeout"`
	Scanner             string            `yaml:"scanner"`
	Options             map[string]string `yaml:"options"`
	Topics              []string          `yaml:"topics"`
	MaxArticlesPerTopic int               `yaml:"maxArticlesPerTopic"`
	Retention           time.Duration     `yaml:"retention"`
}

// WorkerConfig tunes the background summarizer loop.
type WorkerConfig struct {
	IdleInterval     time.Duration `yaml:"idleInterval"`
	Pace             time.Duration `yaml:"pace"`
	SummarizeTimeout time.Duration `yaml:"summarizeTimeout"`
	QueueCapacity    int           `yaml:"queueCapacity"`
	UnhealthyAfter   int           `yaml:"unhealthyAfter"`
}

// SummarizerConfig picks the LLM backend used for summaries.
type SummarizerConfig struct {
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	BaseURL      string `yaml:"baseUrl"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// SchedulerConfig defines the optional maintenance job.
type SchedulerConfig struct {
	RefreshInterval time.Duration `yaml:"refreshInterval"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// LoggingConfig selects log verbosity and encoding.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ModelLabel is the human readable backend name shown on the index page.
func (s SummarizerConfig) ModelLabel() string {
	switch s.Provider {
	case ProviderGoogle:
		return "Google " + s.Model
	case ProviderOpenAI:
		return "OpenAI " + s.Model
	case ProviderOllama:
		return "Ollama " + titleCase(s.Model)
	default:
		return s.Model
	}
}

// Load reads an optional .env file, an optional YAML file and applies environment overrides.
// An empty path falls back to NEWS_SUMMARIZER_CONFIG.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.applyProviderDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Database.Driver, databaseDriverEnv)
	setString(&c.Database.DSN, databaseDSNEnv)
	setString(&c.Server.Addr, httpAddrEnv)
	setString(&c.Logging.Level, logLevelEnv)
	setString(&c.Logging.Format, logFormatEnv)
	setString(&c.Summarizer.Provider, providerEnv)
	setString(&c.Summarizer.BaseURL, summarizerURLEnv)
	setString(&c.Notifications.Telegram.BotToken, telegramTokenEnv)
	setString(&c.Notifications.Telegram.ChatID, telegramChatIDEnv)

	switch c.Summarizer.Provider {
	case ProviderOllama:
		setString(&c.Summarizer.Model, ollamaModelEnv)
		setString(&c.Summarizer.BaseURL, ollamaHostEnv)
	case ProviderGoogle:
		setString(&c.Summarizer.APIKey, googleAPIKeyEnv)
		setString(&c.Summarizer.Model, googleModelEnv)
	case ProviderOpenAI:
		setString(&c.Summarizer.APIKey, openAIAPIKeyEnv)
		setString(&c.Summarizer.Model, openAIModelEnv)
	}
}

func (c *Config) applyProviderDefaults() {
	if c.Summarizer.Model != "" {
		return
	}
	switch c.Summarizer.Provider {
	case ProviderOllama:
		c.Summarizer.Model = defaultOllamaModel
	case ProviderGoogle:
		c.Summarizer.Model = defaultGoogleModel
	case ProviderOpenAI:
		c.Summarizer.Model = defaultOpenAIModel
	}
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q must be sqlite or postgres", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}

	switch c.Summarizer.Provider {
	case ProviderOllama, ProviderOpenAI, ProviderGoogle:
	case ProviderHTTP:
		if c.Summarizer.BaseURL == "" {
			errs = append(errs, errors.New("summarizer.baseUrl is required for the http provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("summarizer.provider %q is not supported", c.Summarizer.Provider))
	}

	if c.News.TTL <= 0 {
		errs = append(errs, errors.New("news.ttl must be positive"))
	}
	if c.News.FetchCount <= 0 {
		errs = append(errs, errors.New("news.fetchCount must be positive"))
	}
	if c.Server.PageSize <= 0 {
		errs = append(errs, errors.New("server.pageSize must be positive"))
	}
	if c.Worker.IdleInterval <= 0 {
		errs = append(errs, errors.New("worker.idleInterval must be positive"))
	}
	if c.Worker.SummarizeTimeout <= 0 {
		errs = append(errs, errors.New("worker.summarizeTimeout must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func defaultConfig() Config {
	return Config{
		Database: DatabaseConfig{Driver: "sqlite", DSN: "news.db"},
		Server: ServerConfig{
			Addr:            ":5000",
			PageSize:        6,
			ShutdownTimeout: 10 * time.Second,
		},
		News: NewsConfig{
			TTL:          15 * time.Minute,
			FetchCount:   30,
			FetchTimeout: 20 * time.Second,
			Scanner:      "googlenews",
			Options: map[string]string{
				"hl":   "en-IN",
				"gl":   "IN",
				"ceid": "IN:en",
			},
			Topics:              []string{"Technology", "Cricket", "Business", "Bollywood", "Politics", "Stock Market"},
			MaxArticlesPerTopic: 90,
			Retention:           30 * 24 * time.Hour,
		},
		Worker: WorkerConfig{
			IdleInterval:     2 * time.Second,
			Pace:             2 * time.Second,
			SummarizeTimeout: 2 * time.Minute,
			QueueCapacity:    256,
			UnhealthyAfter:   5,
		},
		Summarizer: SummarizerConfig{
			Provider: ProviderOllama,
			SystemPrompt: "You are an expert news analyst. Summarize the following news article " +
				"in 2-3 concise, insightful sentences.",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}
