package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. DASH_SERVER_PORT
const EnvPrefix = "DASH"

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server" envconfig:"SERVER"`
	Security      SecurityConfig      `yaml:"security" envconfig:"SECURITY"`
	Logging       LoggingConfig       `yaml:"logging" envconfig:"LOGGING"`
	Paths         PathsConfig         `yaml:"paths" envconfig:"PATHS"`
	Session       SessionConfig       `yaml:"session" envconfig:"SESSION"`
	Upload        UploadConfig        `yaml:"upload" envconfig:"UPLOAD"`
	Visualization VisualizationConfig `yaml:"visualization" envconfig:"VISUALIZATION"`
	Telemetry     TelemetryConfig     `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	SessionSecret  string          `yaml:"session_secret" envconfig:"SESSION_SECRET"`
	CookieName     string          `yaml:"cookie_name" envconfig:"COOKIE_NAME"`
	CookieSecure   bool            `yaml:"cookie_secure" envconfig:"COOKIE_SECURE"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system locations. Relative paths are resolved
// against BaseDir, which defaults to the executable directory.
type PathsConfig struct {
	BaseDir        string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir        string `yaml:"data_dir" envconfig:"DATA_DIR"`
	UsersFile      string `yaml:"users_file" envconfig:"USERS_FILE"`
	ExportsDir     string `yaml:"exports_dir" envconfig:"EXPORTS_DIR"`
	DefaultDataset string `yaml:"default_dataset" envconfig:"DEFAULT_DATASET"`
	WebDir         string `yaml:"web_dir" envconfig:"WEB_DIR"`
	LogsDir        string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// SessionConfig controls server-side session state
type SessionConfig struct {
	Timeout        time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	MaxDatasetRows int           `yaml:"max_dataset_rows" envconfig:"MAX_DATASET_ROWS"`
	MaxSessions    uint64        `yaml:"max_sessions" envconfig:"MAX_SESSIONS"`
}

// UploadConfig limits dataset uploads
type UploadConfig struct {
	MaxFileSize       int64    `yaml:"max_file_size" envconfig:"MAX_FILE_SIZE"`
	AllowedExtensions []string `yaml:"allowed_extensions" envconfig:"ALLOWED_EXTENSIONS"`
}

// VisualizationConfig holds chart and grid defaults
type VisualizationConfig struct {
	Template    string `yaml:"template" envconfig:"TEMPLATE"`
	HoverMode   string `yaml:"hover_mode" envconfig:"HOVER_MODE"`
	ChartWidth  int    `yaml:"chart_width" envconfig:"CHART_WIDTH"`
	ChartHeight int    `yaml:"chart_height" envconfig:"CHART_HEIGHT"`
	TopNDefault int    `yaml:"top_n_default" envconfig:"TOP_N_DEFAULT"`
	TopNMax     int    `yaml:"top_n_max" envconfig:"TOP_N_MAX"`
	RowLimit    int    `yaml:"row_limit" envconfig:"ROW_LIMIT"`
}

// TelemetryConfig controls tracing and metrics
type TelemetryConfig struct {
	ServiceName   string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	EnableMetrics bool   `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	EnableTracing bool   `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	TraceToStdout bool   `yaml:"trace_to_stdout" envconfig:"TRACE_TO_STDOUT"`
}

// Load builds the configuration from defaults, then the YAML config file if
// one exists, then DASH_* environment variables. Later sources win.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys absent from the file
// keep their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// ResolvePaths returns the absolute application paths for this configuration
func (c *Config) ResolvePaths() (*Paths, error) {
	return NewPaths(c.Paths)
}

// Address returns the listen address of the HTTP server
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Security.SessionSecret != "" && len(c.Security.SessionSecret) < 32 {
		return fmt.Errorf("session secret must be at least 32 characters")
	}

	if c.Session.Timeout <= 0 {
		return fmt.Errorf("session timeout must be positive")
	}

	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("upload max file size must be positive")
	}

	if len(c.Upload.AllowedExtensions) == 0 {
		return fmt.Errorf("at least one upload extension must be allowed")
	}
	for i, ext := range c.Upload.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Upload.AllowedExtensions[i] = ext
	}

	if c.Visualization.ChartWidth <= 0 || c.Visualization.ChartHeight <= 0 {
		return fmt.Errorf("chart dimensions must be positive")
	}

	if c.Visualization.TopNDefault <= 0 || c.Visualization.TopNDefault > c.Visualization.TopNMax {
		return fmt.Errorf("top-n default must be between 1 and %d", c.Visualization.TopNMax)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}

	return nil
}

// getConfigFilePath returns the config file named by DASH_CONFIG_FILE or
// the first one found in the usual locations
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			CookieName:     DefaultCookieName,
			CookieSecure:   false,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:       DefaultLogLevel,
			Format:      DefaultLogFormat,
			Output:      "console",
			FilePath:    "logs/app.log",
			Development: false,
		},
		Paths: PathsConfig{
			DataDir:        DefaultDataDir,
			UsersFile:      DefaultUsersFile,
			ExportsDir:     DefaultExportsDir,
			DefaultDataset: "",
			WebDir:         DefaultWebDir,
			LogsDir:        DefaultLogsDir,
		},
		Session: SessionConfig{
			Timeout:        SessionTimeout,
			MaxDatasetRows: 1_000_000,
			MaxSessions:    10_000,
		},
		Upload: UploadConfig{
			MaxFileSize:       MaxUploadSize,
			AllowedExtensions: []string{".csv", ".xlsx"},
		},
		Visualization: VisualizationConfig{
			Template:    "plotly_white",
			HoverMode:   "x unified",
			ChartWidth:  800,
			ChartHeight: 500,
			TopNDefault: 10,
			TopNMax:     50,
			RowLimit:    0,
		},
		Telemetry: TelemetryConfig{
			ServiceName:   AppName,
			EnableMetrics: true,
			EnableTracing: true,
			TraceToStdout: false,
		},
	}
}
