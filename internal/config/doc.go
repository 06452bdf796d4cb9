// Package config handles configuration loading for relay-console.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	keys:
//	  admin: "${RELAY_CONSOLE_ADMIN_KEY}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  shutdown_timeout: "10s"
//
// Database:
//
//	database:
//	  path: "/var/lib/relay-console/console.db"
//
// API keys:
//
//	keys:
//	  read: "${RELAY_CONSOLE_READ_KEY}"
//	  admin: "${RELAY_CONSOLE_ADMIN_KEY}"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// Metrics:
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
// # Validation
//
// Load() validates:
//
//   - Server address presence
//   - Database path presence
//   - Admin key presence and minimum length (16 characters)
//   - Duration format validity
package config
