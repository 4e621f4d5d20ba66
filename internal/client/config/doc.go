// Package config loads runtime configuration for the civicsync CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. Files ending in
//     .yaml or .yml are read as YAML, anything else as JSON.
//  3. Environment variables prefixed CIVIC_ (a .env file in the working
//     directory is loaded first and never overrides the real environment).
//     VITE_API_BASE_URL is accepted as an alias of CIVIC_API_BASE_URL.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   backend API base URL
//	-d string   data directory for the local SQLite database
//	-m string   dispatch mode: mock-first, network-only or mock-only
//	-t duration per-request timeout, e.g. 15s
//	-l string   log level: debug, info, warn or error
//	-mock-lifecycle  enable assign/resolve/patch routes in the mock backend
//
// # File schema
//
// Durations use timex.Duration, so they can be strings like "300ms" or
// integer nanoseconds:
//
//	{
//	  "api_base_url": "http://localhost:5000/api",
//	  "store_backend": "sqlite",
//	  "mock_latency": "300ms",
//	  "request_timeout": "15s",
//	  "upload_backend": "http"
//	}
package config
