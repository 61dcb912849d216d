// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Regions   RegionsConfig   `mapstructure:"regions"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ReadTimeoutSec  int `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSec int `mapstructure:"write_timeout_seconds"`
	ShutdownSec     int `mapstructure:"shutdown_seconds"`
}

// HTTPConfig configures the outbound HTTP client.
type HTTPConfig struct {
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	MaxRetries       int    `mapstructure:"max_retries"`
	BackoffInitialMs int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
	MaxInFlight      int    `mapstructure:"max_in_flight"`
	UserAgent        string `mapstructure:"user_agent"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int    `mapstructure:"max_conns"`
}

// RedisConfig points at the optional Redis instance used for region caching.
type RedisConfig struct {
	URL        string `mapstructure:"url"`
	TTLMinutes int    `mapstructure:"ttl_minutes"`
}

// RegionsConfig selects the region cache backend and its location.
type RegionsConfig struct {
	CacheBackend string `mapstructure:"cache_backend"`
	CacheDir     string `mapstructure:"cache_dir"`
}

// SourcesConfig groups per-upstream settings.
type SourcesConfig struct {
	HeadHunter HeadHunterConfig `mapstructure:"headhunter"`
	SuperJob   SuperJobConfig   `mapstructure:"superjob"`
}

// HeadHunterConfig configures the first job board upstream.
type HeadHunterConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	AreasURL  string `mapstructure:"areas_url"`
	UserAgent string `mapstructure:"user_agent"`
	Query     string `mapstructure:"query"`
	Area      string `mapstructure:"area"`
	PerPage   int    `mapstructure:"per_page"`
}

// SuperJobConfig configures the second job board upstream.
type SuperJobConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	RegionsURL string `mapstructure:"regions_url"`
	APIKey     string `mapstructure:"api_key"`
	Keyword    string `mapstructure:"keyword"`
	Town       string `mapstructure:"town"`
	Count      int    `mapstructure:"count"`
}

// SchedulerConfig controls periodic ingestion runs.
type SchedulerConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	HeadHunterSpec string `mapstructure:"headhunter_spec"`
	SuperJobSpec   string `mapstructure:"superjob_spec"`
	RunOnStart     bool   `mapstructure:"run_on_start"`
}

// PubSubConfig holds metadata for report notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VACANCY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 30)
	v.SetDefault("server.shutdown_seconds", 10)
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 5000)
	v.SetDefault("http.max_in_flight", 10)
	v.SetDefault("http.user_agent", "vacancy-ingest/0.1")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("redis.ttl_minutes", 1440)
	v.SetDefault("regions.cache_backend", "file")
	v.SetDefault("regions.cache_dir", ".cache")
	v.SetDefault("sources.headhunter.base_url", "https://api.hh.ru/vacancies")
	v.SetDefault("sources.headhunter.areas_url", "https://api.hh.ru/areas")
	v.SetDefault("sources.headhunter.user_agent", "HH-User-Agent")
	v.SetDefault("sources.headhunter.query", "Python")
	v.SetDefault("sources.headhunter.area", "3")
	v.SetDefault("sources.headhunter.per_page", 4)
	v.SetDefault("sources.superjob.base_url", "https://api.superjob.ru/2.0/vacancies")
	v.SetDefault("sources.superjob.regions_url", "https://api.superjob.ru/2.0/regions/combined")
	v.SetDefault("sources.superjob.keyword", "Java")
	v.SetDefault("sources.superjob.town", "Екатеринбург")
	v.SetDefault("sources.superjob.count", 4)
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.headhunter_spec", "0 */6 * * *")
	v.SetDefault("scheduler.superjob_spec", "30 */6 * * *")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxInFlight <= 0 {
		return fmt.Errorf("http.max_in_flight must be > 0")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set")
	}
	switch c.Regions.CacheBackend {
	case "file", "memory", "redis":
	default:
		return fmt.Errorf("regions.cache_backend must be one of file, memory, redis")
	}
	if c.Regions.CacheBackend == "redis" && c.Redis.URL == "" {
		return fmt.Errorf("redis.url must be set when regions.cache_backend is redis")
	}
	return nil
}

// HTTPTimeout converts the configured client timeout to a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
