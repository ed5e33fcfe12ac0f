// internal/config/config.go

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultTokenSecret = "your-secret-key"

// Config holds all application configuration
type Config struct {
	Environment string         `mapstructure:"environment"`
	Debug       bool           `mapstructure:"debug"`
	SentryDSN   string         `mapstructure:"sentry_dsn"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	NATS        NATSConfig     `mapstructure:"nats"`
	Trend       TrendConfig    `mapstructure:"trend"`
	Auth        AuthConfig     `mapstructure:"auth"`
	Mail        MailConfig     `mapstructure:"mail"`
	Alerts      AlertsConfig   `mapstructure:"alerts"`
	Content     ContentConfig  `mapstructure:"content"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CorsOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	Database     string        `mapstructure:"dbname"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
	SSLMode      string        `mapstructure:"sslmode"`
}

// NATSConfig holds NATS configuration. An empty URL disables the event bus.
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// TrendConfig holds trend ingestion configuration
type TrendConfig struct {
	CreativeCenterURL string        `mapstructure:"creative_center_url"`
	UserAgent         string        `mapstructure:"user_agent"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	Regions           []string      `mapstructure:"regions"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	RotationOffset    int           `mapstructure:"rotation_offset"`
	RotationSize      int           `mapstructure:"rotation_size"`
	RequestDelay      time.Duration `mapstructure:"request_delay"`
	RefreshDelay      time.Duration `mapstructure:"refresh_delay"`
	RefreshInterval   time.Duration `mapstructure:"refresh_interval"`
	TopLimit          int           `mapstructure:"top_limit"`
	SnapshotRetention int           `mapstructure:"snapshot_retention"`
	CronSecret        string        `mapstructure:"cron_secret"`
	EventsTopic       string        `mapstructure:"events_topic"`
	ScrapeBudget      time.Duration `mapstructure:"scrape_budget"`
	FailureCooldown   time.Duration `mapstructure:"failure_cooldown"`
}

// AuthConfig holds magic-link configuration
type AuthConfig struct {
	TokenSecret string        `mapstructure:"token_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	AppURL      string        `mapstructure:"app_url"`
}

// MailConfig holds SMTP configuration. An empty host disables outgoing mail.
type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// AlertsConfig holds alert delivery configuration
type AlertsConfig struct {
	Workers          int           `mapstructure:"workers"`
	DigestInterval   time.Duration `mapstructure:"digest_interval"`
	TelegramBotToken string        `mapstructure:"telegram_bot_token"`
	HTTPTimeout      time.Duration `mapstructure:"http_timeout"`
}

// ContentConfig holds transcription and generation configuration
type ContentConfig struct {
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	OpenAIURL       string        `mapstructure:"openai_url"`
	GeminiAPIKey    string        `mapstructure:"gemini_api_key"`
	GeminiModel     string        `mapstructure:"gemini_model"`
	GeminiURL       string        `mapstructure:"gemini_url"`
	YtDlpPath       string        `mapstructure:"ytdlp_path"`
	YtDlpProxy      string        `mapstructure:"ytdlp_proxy"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	MaxAudioBytes   int64         `mapstructure:"max_audio_bytes"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
}

// Load loads configuration from an optional YAML file, .env files and
// environment variables prefixed with TRENDCATCH_
func Load(configFile string, envPath string) (*Config, error) {
	v := configureViper(configFile, envPath)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, validate(cfg)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 180*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "trendcatch")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_lifetime", 5*time.Minute)
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", time.Second)
	v.SetDefault("nats.connect_timeout", 2*time.Second)

	v.SetDefault("trend.creative_center_url", "https://ads.tiktok.com/business/creativecenter/inspiration/popular/music/pc/en")
	v.SetDefault("trend.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("trend.http_timeout", 20*time.Second)
	v.SetDefault("trend.regions", []string{"US", "GB", "BR", "MX", "DE", "FR", "JP", "KR", "ID", "PH"})
	v.SetDefault("trend.cache_ttl", 6*time.Hour)
	v.SetDefault("trend.rotation_offset", 0)
	v.SetDefault("trend.rotation_size", 3)
	v.SetDefault("trend.request_delay", time.Second)
	v.SetDefault("trend.refresh_delay", 2*time.Second)
	v.SetDefault("trend.refresh_interval", 6*time.Hour)
	v.SetDefault("trend.top_limit", 50)
	v.SetDefault("trend.snapshot_retention", 500)
	v.SetDefault("trend.events_topic", "sounds")
	v.SetDefault("trend.scrape_budget", 45*time.Second)
	v.SetDefault("trend.failure_cooldown", 15*time.Minute)

	v.SetDefault("auth.token_secret", defaultTokenSecret)
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("auth.app_url", "http://localhost:3000")

	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from", "TrendCatch <alerts@trendcatch.app>")

	v.SetDefault("alerts.workers", 4)
	v.SetDefault("alerts.digest_interval", 24*time.Hour)
	v.SetDefault("alerts.http_timeout", 10*time.Second)

	v.SetDefault("content.openai_url", "https://api.openai.com/v1")
	v.SetDefault("content.gemini_model", "gemini-2.0-flash")
	v.SetDefault("content.gemini_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("content.ytdlp_path", "yt-dlp")
	v.SetDefault("content.download_timeout", 90*time.Second)
	v.SetDefault("content.max_audio_bytes", 25*1024*1024)
	v.SetDefault("content.http_timeout", 120*time.Second)
	v.SetDefault("content.rate_limit", 0.2)
	v.SetDefault("content.rate_burst", 3)
}

func configureViper(configFile string, envPath string) *viper.Viper {
	v := viper.New()

	loadEnv(envPath)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("TRENDCATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars binds keys that have no default so viper maps them from the
// environment when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		"nats.url",
		"trend.cron_secret",
		"mail.host",
		"mail.username",
		"mail.password",
		"alerts.telegram_bot_token",
		"content.openai_api_key",
		"content.gemini_api_key",
		"content.ytdlp_proxy",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads .env files from envPath; later files override earlier ones
func loadEnv(envPath string) {
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Overload(filepath.Join(envPath, envFile))
	}
}

// validate checks if config is valid
func validate(cfg Config) error {
	if cfg.Auth.TokenSecret == defaultTokenSecret && cfg.Environment != "development" {
		return fmt.Errorf("token secret must be set in non-development environments")
	}

	if len(cfg.Trend.Regions) == 0 {
		return fmt.Errorf("at least one trend region is required")
	}

	if cfg.Trend.CacheTTL <= 0 {
		return fmt.Errorf("trend cache ttl must be positive")
	}

	return nil
}

// DSN returns the database connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}
