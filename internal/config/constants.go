package config

import "time"

// Application constants
const (
	AppName    = "kuberdash"
	AppVersion = "1.0.0"

	// Security
	DefaultCookieName = "kuberdash_session"
	SessionTimeout    = time.Hour
	MinPasswordLength = 6

	// Rate limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Uploads
	MaxUploadSize = 10 << 20 // 10MB

	// File paths (relative to the base directory)
	DefaultDataDir    = "data"
	DefaultUsersFile  = "data/users/users.json"
	DefaultExportsDir = "data/exports"
	DefaultLogsDir    = "logs"
	DefaultWebDir     = "web"

	// Logging
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Endpoints
	APIBasePath     = "/api"
	HealthEndpoint  = "/health"
	MetricsEndpoint = "/metrics"
)
