package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix shared by every environment variable the tool reads
const EnvPrefix = "IMGHARVEST_"

// Config holds all configuration options for the image harvester
type Config struct {
	// Image search provider
	Search SearchConfig `yaml:"search" json:"search"`

	// Label source and query construction
	Pipeline PipelineConfig `yaml:"pipeline" json:"pipeline"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Pause between saved images
	Throttle ThrottleConfig `yaml:"throttle" json:"throttle"`

	// Retry policy for network fetches
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SearchConfig holds image-search provider configuration
type SearchConfig struct {
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	SizeHint          string        `yaml:"size_hint" json:"size_hint"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	Cookie            string        `yaml:"cookie" json:"cookie"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	MaxPages          int           `yaml:"max_pages" json:"max_pages"`
}

// PipelineConfig holds label ingestion and query settings
type PipelineConfig struct {
	LabelsFile     string `yaml:"labels_file" json:"labels_file"`
	SkipHeader     bool   `yaml:"skip_header" json:"skip_header"`
	ShowDict       bool   `yaml:"show_dict" json:"show_dict"`
	QueryPrefix    string `yaml:"query_prefix" json:"query_prefix"`
	ImagesPerLabel int    `yaml:"images_per_label" json:"images_per_label"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	SaveMetadata  bool   `yaml:"save_metadata" json:"save_metadata"`
}

// ThrottleConfig holds the randomized pause applied after every image
type ThrottleConfig struct {
	MaxDelay time.Duration `yaml:"max_delay" json:"max_delay"`
}

// RetryConfig holds retry configuration for page and image fetches
type RetryConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay    time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
	JitterFactor float64       `yaml:"jitter_factor" json:"jitter_factor"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	DownloadTimeout time.Duration `yaml:"download_timeout" json:"download_timeout"`
	MaxFileSize     int64         `yaml:"max_file_size" json:"max_file_size"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	OnComplete       bool   `yaml:"on_complete" json:"on_complete"`
	NotificationType string `yaml:"notification_type" json:"notification_type"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			BaseURL:           "https://yandex.ru",
			SizeHint:          "small",
			UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			Timeout:           30 * time.Second,
			RequestsPerMinute: 20,
			MaxPages:          10,
		},
		Pipeline: PipelineConfig{
			LabelsFile:     "colors_list.csv",
			SkipHeader:     false,
			ShowDict:       true,
			QueryPrefix:    "интерьер в цвете ",
			ImagesPerLabel: 50,
		},
		Output: OutputConfig{
			BaseDirectory: "downloaded_images",
			SaveMetadata:  false,
		},
		Throttle: ThrottleConfig{
			MaxDelay: 2 * time.Second,
		},
		Retry: RetryConfig{
			Enabled:      true,
			MaxAttempts:  3,
			BaseDelay:    time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		Download: DownloadConfig{
			DownloadTimeout: 30 * time.Second,
			MaxFileSize:     0, // 0 means no limit
		},
		Notifications: NotificationConfig{
			Enabled:          true,
			OnComplete:       true,
			NotificationType: "terminal",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv(EnvPrefix + "BASE_URL"); v != "" {
		c.Search.BaseURL = v
	}
	if v := os.Getenv(EnvPrefix + "SIZE_HINT"); v != "" {
		c.Search.SizeHint = v
	}
	if v := os.Getenv(EnvPrefix + "USER_AGENT"); v != "" {
		c.Search.UserAgent = v
	}
	if v := os.Getenv(EnvPrefix + "COOKIE"); v != "" {
		c.Search.Cookie = v
	}
	if v := os.Getenv(EnvPrefix + "REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sREQUESTS_PER_MINUTE: %w", EnvPrefix, err))
		} else if n > 0 {
			c.Search.RequestsPerMinute = n
		}
	}

	if v := os.Getenv(EnvPrefix + "LABELS_FILE"); v != "" {
		c.Pipeline.LabelsFile = v
	}
	if v := os.Getenv(EnvPrefix + "QUERY_PREFIX"); v != "" {
		c.Pipeline.QueryPrefix = v
	}
	if v := os.Getenv(EnvPrefix + "IMAGES_PER_LABEL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sIMAGES_PER_LABEL: %w", EnvPrefix, err))
		} else {
			c.Pipeline.ImagesPerLabel = n
		}
	}

	if v := os.Getenv(EnvPrefix + "OUTPUT_DIR"); v != "" {
		c.Output.BaseDirectory = v
	}
	if v := os.Getenv(EnvPrefix + "MAX_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_DELAY: %w", EnvPrefix, err))
		} else {
			c.Throttle.MaxDelay = d
		}
	}

	if v := os.Getenv(EnvPrefix + "NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".imgharvest.yaml",
		".imgharvest.yml",
		"imgharvest.yaml",
		filepath.Join(home, ".config", "imgharvest", "config.yaml"),
		filepath.Join(home, ".config", "imgharvest", "config.yml"),
		filepath.Join(home, ".imgharvest.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Search.BaseURL == "" {
		errs = append(errs, errors.New("search base URL is required"))
	}
	validSizes := map[string]bool{
		"small": true, "medium": true, "large": true, "wallpaper": true,
	}
	if !validSizes[strings.ToLower(c.Search.SizeHint)] {
		errs = append(errs, fmt.Errorf("invalid size hint %q", c.Search.SizeHint))
	}
	if c.Search.Timeout <= 0 {
		errs = append(errs, errors.New("search timeout must be positive"))
	}
	if c.Search.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.Search.MaxPages <= 0 {
		errs = append(errs, errors.New("max pages must be positive"))
	}

	if c.Pipeline.LabelsFile == "" {
		errs = append(errs, errors.New("labels file is required"))
	}
	if c.Pipeline.ImagesPerLabel <= 0 {
		errs = append(errs, errors.New("images per label must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if c.Throttle.MaxDelay < 0 {
		errs = append(errs, errors.New("throttle max delay cannot be negative"))
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max retry attempts cannot be negative"))
	}
	if c.Retry.Enabled && c.Retry.MaxAttempts == 0 {
		errs = append(errs, errors.New("retry enabled but max attempts is zero"))
	}
	if c.Retry.JitterFactor < 0 || c.Retry.JitterFactor > 1 {
		errs = append(errs, errors.New("retry jitter factor must be between 0 and 1"))
	}

	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.MaxFileSize < 0 {
		errs = append(errs, errors.New("max file size cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	validNotifTypes := map[string]bool{
		"terminal": true, "desktop": true, "none": true,
	}
	if !validNotifTypes[strings.ToLower(c.Notifications.NotificationType)] {
		errs = append(errs, errors.New("invalid notification type"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["labels"].(string); ok && v != "" {
		c.Pipeline.LabelsFile = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["count"].(int); ok && v > 0 {
		c.Pipeline.ImagesPerLabel = v
	}
	if v, ok := flags["prefix"].(string); ok {
		c.Pipeline.QueryPrefix = v
	}
	if v, ok := flags["size"].(string); ok && v != "" {
		c.Search.SizeHint = v
	}
	if v, ok := flags["max-delay"].(time.Duration); ok && v >= 0 {
		c.Throttle.MaxDelay = v
	}
	if v, ok := flags["skip-header"].(bool); ok {
		c.Pipeline.SkipHeader = v
	}
	if v, ok := flags["show-dict"].(bool); ok {
		c.Pipeline.ShowDict = v
	}
	if v, ok := flags["save-metadata"].(bool); ok {
		c.Output.SaveMetadata = v
	}
	if v, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".imgharvest.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
