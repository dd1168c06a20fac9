package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Database      DatabaseConfig     `yaml:"database"`
	Dedup         DedupConfig        `yaml:"dedup"`
	Sources       []SourceConfig     `yaml:"sources"`
	Filters       FilterConfig       `yaml:"filters"`
	Gemini        GeminiConfig       `yaml:"gemini"`
	Notifications NotificationConfig `yaml:"notifications"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Quotes        QuoteConfig        `yaml:"quotes"`
	Debug         DebugConfig        `yaml:"debug"`
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// DedupConfig selects the deduplication store backend
type DedupConfig struct {
	Backend       string `yaml:"backend"` // sqlite, redis
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisKey      string `yaml:"redis_key"`
}

// SourceConfig represents one configured ingestion source
type SourceConfig struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"` // webhook, websocket, kafka
	Path    string   `yaml:"path,omitempty"`
	URL     string   `yaml:"url,omitempty"`
	Brokers []string `yaml:"brokers,omitempty"`
	Topic   string   `yaml:"topic,omitempty"`
	GroupID string   `yaml:"group_id,omitempty"`
}

// FilterConfig represents keyword and instrument filtering
type FilterConfig struct {
	RequiredKeywords     []string `yaml:"required_keywords"`
	ExcludedKeywords     []string `yaml:"excluded_keywords"`
	MonitoredInstruments []string `yaml:"monitored_instruments"`
	MatchInstruments     bool     `yaml:"match_instruments"`
}

// GeminiConfig represents the inference service configuration
type GeminiConfig struct {
	APIKey        string  `yaml:"api_key"`
	Endpoint      string  `yaml:"endpoint"`
	Model         string  `yaml:"model"`
	VisionModel   string  `yaml:"vision_model"`
	MaxTokens     int     `yaml:"max_tokens"`
	Temperature   float64 `yaml:"temperature"`
	ChartAnalysis bool    `yaml:"chart_analysis"`
	AnalysisMax   int     `yaml:"analysis_max_length"`
}

// NotificationConfig represents the notification channel configuration
type NotificationConfig struct {
	Method     string           `yaml:"method"` // fcm, pushbullet, webhook, console
	FCM        FCMConfig        `yaml:"fcm"`
	Pushbullet PushbulletConfig `yaml:"pushbullet"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Priority   string           `yaml:"priority"`
	Sound      bool             `yaml:"sound"`
	Duration   int              `yaml:"duration"`
	Template   string           `yaml:"template"`
	MaxLength  int              `yaml:"max_length"`
}

// FCMConfig represents Firebase Cloud Messaging push configuration
type FCMConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ProjectID   string `yaml:"project_id"`
	AccessToken string `yaml:"access_token"`
	DeviceToken string `yaml:"device_token"`
}

// PushbulletConfig represents Pushbullet push configuration
type PushbulletConfig struct {
	AccessToken string `yaml:"access_token"`
}

// WebhookConfig represents a generic webhook sink
type WebhookConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token,omitempty"`
}

// PipelineConfig represents orchestrator retry, rate limit and queue settings
type PipelineConfig struct {
	MaxExtractionRetries int           `yaml:"max_extraction_retries"`
	ExtractionRetryDelay time.Duration `yaml:"extraction_retry_delay"`
	RateLimitDelay       time.Duration `yaml:"rate_limit_delay"`
	DispatchMaxRetries   int           `yaml:"dispatch_max_retries"`
	BackoffBase          time.Duration `yaml:"backoff_base"`
	BackoffMax           time.Duration `yaml:"backoff_max"`
	QueueSize            int           `yaml:"queue_size"`
	ShutdownGrace        time.Duration `yaml:"shutdown_grace"`
	StatsInterval        time.Duration `yaml:"stats_interval"`
}

// QuoteConfig represents market price enrichment configuration
type QuoteConfig struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

// DebugConfig represents debug and test-mode switches
type DebugConfig struct {
	Enabled  bool `yaml:"enabled"`
	TestMode bool `yaml:"test_mode"`
}

// LoadConfig loads configuration from a YAML file, expanding ${VAR}
// environment references before parsing.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "signal-scout.db"
	}
	if c.Dedup.Backend == "" {
		c.Dedup.Backend = "sqlite"
	}
	if c.Dedup.RedisAddr == "" {
		c.Dedup.RedisAddr = "localhost:6379"
	}
	if c.Dedup.RedisKey == "" {
		c.Dedup.RedisKey = "signal-scout:fingerprints"
	}
	if c.Gemini.Endpoint == "" {
		c.Gemini.Endpoint = "https://generativelanguage.googleapis.com/v1beta"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-1.5-flash"
	}
	if c.Gemini.VisionModel == "" {
		c.Gemini.VisionModel = c.Gemini.Model
	}
	if c.Gemini.MaxTokens == 0 {
		c.Gemini.MaxTokens = 400
	}
	if c.Gemini.Temperature == 0 {
		c.Gemini.Temperature = 0.3
	}
	if c.Gemini.AnalysisMax == 0 {
		c.Gemini.AnalysisMax = 280
	}
	if c.Notifications.Method == "" {
		c.Notifications.Method = "console"
	}
	if c.Notifications.FCM.Endpoint == "" {
		c.Notifications.FCM.Endpoint = "https://fcm.googleapis.com/v1"
	}
	if c.Notifications.Priority == "" {
		c.Notifications.Priority = "high"
	}
	if c.Notifications.Duration == 0 {
		c.Notifications.Duration = 30
	}
	if c.Notifications.MaxLength == 0 {
		c.Notifications.MaxLength = 1000
	}
	if c.Pipeline.MaxExtractionRetries == 0 {
		c.Pipeline.MaxExtractionRetries = 2
	}
	if c.Pipeline.ExtractionRetryDelay == 0 {
		c.Pipeline.ExtractionRetryDelay = 3 * time.Second
	}
	if c.Pipeline.RateLimitDelay == 0 {
		c.Pipeline.RateLimitDelay = 5 * time.Second
	}
	if c.Pipeline.DispatchMaxRetries == 0 {
		c.Pipeline.DispatchMaxRetries = 3
	}
	if c.Pipeline.BackoffBase == 0 {
		c.Pipeline.BackoffBase = time.Second
	}
	if c.Pipeline.BackoffMax == 0 {
		c.Pipeline.BackoffMax = 30 * time.Second
	}
	if c.Pipeline.QueueSize == 0 {
		c.Pipeline.QueueSize = 64
	}
	if c.Pipeline.ShutdownGrace == 0 {
		c.Pipeline.ShutdownGrace = 10 * time.Second
	}
	if c.Pipeline.StatsInterval == 0 {
		c.Pipeline.StatsInterval = 5 * time.Minute
	}
	if c.Quotes.Timeout == 0 {
		c.Quotes.Timeout = 5 * time.Second
	}
}

// Validate checks the configuration and returns a list of problems found.
func (c *Config) Validate() []string {
	var errs []string

	if len(c.Sources) == 0 {
		errs = append(errs, "at least one ingestion source must be configured")
	}
	for i, src := range c.Sources {
		switch src.Type {
		case "webhook":
			if src.Path == "" {
				errs = append(errs, fmt.Sprintf("source %d: webhook path is required", i))
			}
		case "websocket":
			if src.URL == "" {
				errs = append(errs, fmt.Sprintf("source %d: websocket url is required", i))
			}
		case "kafka":
			if len(src.Brokers) == 0 || src.Topic == "" {
				errs = append(errs, fmt.Sprintf("source %d: kafka brokers and topic are required", i))
			}
		default:
			errs = append(errs, fmt.Sprintf("source %d: unknown type %q", i, src.Type))
		}
	}

	if len(c.Filters.RequiredKeywords) == 0 {
		errs = append(errs, "at least one required keyword must be configured")
	}

	if c.Gemini.APIKey == "" && !c.Debug.TestMode {
		errs = append(errs, "gemini api key is required unless test mode is enabled")
	}

	switch c.Notifications.Method {
	case "fcm":
		if c.Notifications.FCM.ProjectID == "" || c.Notifications.FCM.DeviceToken == "" {
			errs = append(errs, "fcm project_id and device_token are required")
		}
	case "pushbullet":
		if c.Notifications.Pushbullet.AccessToken == "" {
			errs = append(errs, "pushbullet access_token is required")
		}
	case "webhook":
		if c.Notifications.Webhook.URL == "" {
			errs = append(errs, "notification webhook url is required")
		}
	case "console":
		// always available
	default:
		errs = append(errs, fmt.Sprintf("unknown notification method %q", c.Notifications.Method))
	}

	switch c.Dedup.Backend {
	case "sqlite", "redis":
	default:
		errs = append(errs, fmt.Sprintf("unknown dedup backend %q", c.Dedup.Backend))
	}

	return errs
}
