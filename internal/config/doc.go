// Package config loads the dashboard configuration and resolves its file
// system paths.
//
// # Configuration Sources
//
// Configuration is built from the following sources, later ones winning:
//
//	1. Default()
//	2. A YAML file: $DASH_CONFIG_FILE, config.yaml or configs/config.yaml
//	3. Environment variables
//
// # Environment Variables
//
// Variables are prefixed with DASH and follow the struct nesting:
//
//	DASH_SERVER_PORT=8080
//	DASH_SECURITY_SESSION_SECRET=...
//	DASH_SESSION_TIMEOUT=1h
//	DASH_UPLOAD_MAX_FILE_SIZE=10485760
//	DASH_PATHS_USERS_FILE=data/users/users.json
//
// # Paths
//
// Paths resolves every configured location against a base directory, the
// executable directory unless DASH_PATHS_BASE_DIR is set:
//
//	paths, err := cfg.ResolvePaths()
//	exportPath := paths.GetExportPath("sales.csv")
package config
