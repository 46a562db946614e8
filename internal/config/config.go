package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "BULLETIN_CONFIG"
	logLevelEnv       = "LOG_LEVEL"
	databaseDSNEnv    = "DATABASE_DSN"
	siteBaseURLEnv    = "SITE_BASE_URL"
	chatGPTAPIKeyEnv  = "CHATGPT_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	gscTokenEnv       = "GSC_ACCESS_TOKEN"
	redisAddrEnv      = "REDIS_ADDR"
	redisPasswordEnv  = "REDIS_PASSWORD"
	apiAddrEnv        = "API_ADDR"
	apiJWTSecretEnv   = "API_JWT_SECRET"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig       `yaml:"logging"`
	Database      DatabaseConfig      `yaml:"database"`
	Site          SiteConfig          `yaml:"site"`
	Scan          ScanConfig          `yaml:"scan"`
	Verification  VerificationConfig  `yaml:"verification"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	ChatGPT       ChatGPTConfig       `yaml:"chatgpt"`
	SearchConsole SearchConsoleConfig `yaml:"searchConsole"`
	Redis         RedisConfig         `yaml:"redis"`
	API           APIConfig           `yaml:"api"`
	Notifications NotificationConfig  `yaml:"notifications"`
}

// LoggingConfig selects slog level and handler format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
}

// SiteConfig describes how article permalinks are built and fetched.
type SiteConfig struct {
	BaseURL           string        `yaml:"baseUrl"`
	ArticlePathPrefix string        `yaml:"articlePathPrefix"`
	UserAgent         string        `yaml:"userAgent"`
	FetchTimeout      time.Duration `yaml:"fetchTimeout"`
}

// ScanConfig tunes the health scanner.
type ScanConfig struct {
	IssueRetention     time.Duration `yaml:"issueRetention"`
	StaleAfter         time.Duration `yaml:"staleAfter"`
	FreshWindow        time.Duration `yaml:"freshWindow"`
	DedupeContentFixes bool          `yaml:"dedupeContentFixes"`
	Reindex            RetryConfig   `yaml:"reindex"`
}

// RetryConfig is the backoff policy of async side-effect tasks.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"maxAttempts"`
	InitialBackoff time.Duration `yaml:"initialBackoff"`
	MaxBackoff     time.Duration `yaml:"maxBackoff"`
}

// VerificationConfig controls the delayed verification pass.
type VerificationConfig struct {
	Delay        time.Duration `yaml:"delay"`
	PollInterval time.Duration `yaml:"pollInterval"`
	BatchSize    int           `yaml:"batchSize"`
	QueueKey     string        `yaml:"queueKey"`
}

// SchedulerConfig defines when periodic scans run.
type SchedulerConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ChatGPTConfig defines how to contact the OpenAI-compatible API.
type ChatGPTConfig struct {
	BaseURL      string `yaml:"baseUrl"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
	MaxTokens    int    `yaml:"maxTokens"`
}

// SearchConsoleConfig wires the indexing and URL inspection endpoints.
type SearchConsoleConfig struct {
	IndexingURL   string `yaml:"indexingUrl"`
	InspectionURL string `yaml:"inspectionUrl"`
	SiteURL       string `yaml:"siteUrl"`
	AccessToken   string `yaml:"accessToken"`
}

// RedisConfig points at the delayed-job queue. An empty Addr selects the
// in-process queue.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// APIConfig configures the admin HTTP API.
type APIConfig struct {
	Addr      string `yaml:"addr"`
	JWTSecret string `yaml:"jwtSecret"`
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

// Load reads .env files, the YAML configuration (if present) and applies
// environment overrides.
func Load() Config {
	LoadDotEnv()
	return LoadFile(os.Getenv(configPathEnv))
}

// LoadFile is Load without the dotenv step; an empty path means defaults.
func LoadFile(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// LoadDotEnv loads .env.local and .env; variables already set win.
func LoadDotEnv() []string {
	var loaded []string
	for _, f := range []string{".env.local", ".env"} {
		if _, err := os.Stat(f); err == nil {
			loaded = append(loaded, f)
		}
	}
	if len(loaded) > 0 {
		_ = godotenv.Load(loaded...)
	}
	return loaded
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env string
		dst *string
	}{
		{logLevelEnv, &c.Logging.Level},
		{databaseDSNEnv, &c.Database.DSN},
		{siteBaseURLEnv, &c.Site.BaseURL},
		{chatGPTAPIKeyEnv, &c.ChatGPT.APIKey},
		{chatGPTModelEnv, &c.ChatGPT.Model},
		{gscTokenEnv, &c.SearchConsole.AccessToken},
		{redisAddrEnv, &c.Redis.Addr},
		{redisPasswordEnv, &c.Redis.Password},
		{apiAddrEnv, &c.API.Addr},
		{apiJWTSecretEnv, &c.API.JWTSecret},
		{telegramTokenEnv, &c.Notifications.Telegram.BotToken},
		{telegramChatIDEnv, &c.Notifications.Telegram.ChatID},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	setString(&base.Logging.Level, override.Logging.Level)
	setString(&base.Logging.Format, override.Logging.Format)

	setString(&base.Database.DSN, override.Database.DSN)
	setInt(&base.Database.MaxOpenConns, override.Database.MaxOpenConns)

	setString(&base.Site.BaseURL, override.Site.BaseURL)
	setString(&base.Site.ArticlePathPrefix, override.Site.ArticlePathPrefix)
	setString(&base.Site.UserAgent, override.Site.UserAgent)
	setDuration(&base.Site.FetchTimeout, override.Site.FetchTimeout)

	setDuration(&base.Scan.IssueRetention, override.Scan.IssueRetention)
	setDuration(&base.Scan.StaleAfter, override.Scan.StaleAfter)
	setDuration(&base.Scan.FreshWindow, override.Scan.FreshWindow)
	if override.Scan.DedupeContentFixes {
		base.Scan.DedupeContentFixes = true
	}
	setInt(&base.Scan.Reindex.MaxAttempts, override.Scan.Reindex.MaxAttempts)
	setDuration(&base.Scan.Reindex.InitialBackoff, override.Scan.Reindex.InitialBackoff)
	setDuration(&base.Scan.Reindex.MaxBackoff, override.Scan.Reindex.MaxBackoff)

	setDuration(&base.Verification.Delay, override.Verification.Delay)
	setDuration(&base.Verification.PollInterval, override.Verification.PollInterval)
	setInt(&base.Verification.BatchSize, override.Verification.BatchSize)
	setString(&base.Verification.QueueKey, override.Verification.QueueKey)

	if override.Scheduler.Enabled {
		base.Scheduler.Enabled = true
	}
	setDuration(&base.Scheduler.Interval, override.Scheduler.Interval)
	setString(&base.Scheduler.Timezone, override.Scheduler.Timezone)

	setString(&base.ChatGPT.BaseURL, override.ChatGPT.BaseURL)
	setString(&base.ChatGPT.Model, override.ChatGPT.Model)
	setString(&base.ChatGPT.APIKey, override.ChatGPT.APIKey)
	setString(&base.ChatGPT.SystemPrompt, override.ChatGPT.SystemPrompt)
	setInt(&base.ChatGPT.MaxTokens, override.ChatGPT.MaxTokens)

	setString(&base.SearchConsole.IndexingURL, override.SearchConsole.IndexingURL)
	setString(&base.SearchConsole.InspectionURL, override.SearchConsole.InspectionURL)
	setString(&base.SearchConsole.SiteURL, override.SearchConsole.SiteURL)
	setString(&base.SearchConsole.AccessToken, override.SearchConsole.AccessToken)

	setString(&base.Redis.Addr, override.Redis.Addr)
	setString(&base.Redis.Password, override.Redis.Password)
	setInt(&base.Redis.DB, override.Redis.DB)

	setString(&base.API.Addr, override.API.Addr)
	setString(&base.API.JWTSecret, override.API.JWTSecret)

	setString(&base.Notifications.Telegram.BotToken, override.Notifications.Telegram.BotToken)
	setString(&base.Notifications.Telegram.ChatID, override.Notifications.Telegram.ChatID)

	return base
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{MaxOpenConns: 5},
		Site: SiteConfig{
			BaseURL:           "https://www.thebulletinbriefs.in",
			ArticlePathPrefix: "/article/",
			UserAgent:         "BulletinBriefsSEOBot/1.0",
			FetchTimeout:      15 * time.Second,
		},
		Scan: ScanConfig{
			IssueRetention: 24 * time.Hour,
			StaleAfter:     7 * 24 * time.Hour,
			FreshWindow:    24 * time.Hour,
			Reindex: RetryConfig{
				MaxAttempts:    3,
				InitialBackoff: 2 * time.Second,
				MaxBackoff:     30 * time.Second,
			},
		},
		Verification: VerificationConfig{
			Delay:        15 * time.Minute,
			PollInterval: 30 * time.Second,
			BatchSize:    200,
			QueueKey:     "seo:verification:jobs",
		},
		Scheduler: SchedulerConfig{Interval: 24 * time.Hour, Timezone: defaultTimezone, location: tz},
		ChatGPT: ChatGPTConfig{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-4o-mini",
			MaxTokens: 2048,
		},
		SearchConsole: SearchConsoleConfig{
			IndexingURL:   "https://indexing.googleapis.com/v3",
			InspectionURL: "https://searchconsole.googleapis.com/v1",
			SiteURL:       "https://www.thebulletinbriefs.in/",
		},
		API: APIConfig{Addr: ":8080"},
	}
}
