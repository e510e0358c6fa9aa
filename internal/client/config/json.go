package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/creditconsole/internal/flagx"
	"github.com/dmitrijs2005/creditconsole/internal/timex"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling. Absent
// fields leave the corresponding Config value untouched.
type jsonConfig struct {
	APIBaseURL     *string         `json:"api_base_url"`
	RequestTimeout *timex.Duration `json:"request_timeout"`
	PageSize       *int            `json:"page_size"`
	SessionBackend *string         `json:"session_backend"`
	SessionPath    *string         `json:"session_path"`
	LogLevel       *string         `json:"log_level"`
	LogFormat      *string         `json:"log_format"`
}

// parseJSON overlays cfg with the JSON file named by -c/-config in args.
// Without such a flag it does nothing.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.APIBaseURL != nil {
		cfg.APIBaseURL = *jc.APIBaseURL
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.PageSize != nil {
		cfg.PageSize = *jc.PageSize
	}
	if jc.SessionBackend != nil {
		cfg.SessionBackend = *jc.SessionBackend
	}
	if jc.SessionPath != nil {
		cfg.SessionPath = *jc.SessionPath
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
	if jc.LogFormat != nil {
		cfg.LogFormat = *jc.LogFormat
	}
	return nil
}
