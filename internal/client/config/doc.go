// Package config loads runtime configuration for the console.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// The merged Config is validated with go-playground/validator before use.
//
// Supported flags
//
//	-a string   API base URL
//	-t int      request timeout (seconds)
//	-s int      default page size
//	-b string   session backend: sqlite | file
//	-p string   session database file (sqlite) or directory (file)
//	-l string   log level: debug | info | warn | error
//	-f string   log format: text | json | zerolog
//
// # JSON schema
//
// Durations accept strings like "10s" or integer nanoseconds:
//
//	{
//	  "api_base_url": "http://localhost:8080/api",
//	  "request_timeout": "10s",
//	  "page_size": 20,
//	  "session_backend": "file",
//	  "session_path": ".console-session",
//	  "log_level": "debug",
//	  "log_format": "zerolog"
//	}
package config
