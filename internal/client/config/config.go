package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/creditconsole/internal/common"
)

// Session storage backends.
const (
	SessionBackendSQLite = "sqlite"
	SessionBackendFile   = "file"
)

// Config holds runtime settings for the console.
//
// Fields:
//   - APIBaseURL: base URL of the remote API, e.g. http://localhost:8080/api.
//   - RequestTimeout: per-request timeout of the HTTP client.
//   - PageSize: initial page size of list screens.
//   - SessionBackend: "sqlite" or "file"; where the session is persisted.
//   - SessionPath: sqlite database file or diskv base directory.
//   - LogLevel, LogFormat: see logging.New.
type Config struct {
	APIBaseURL     string        `validate:"required,url"`
	RequestTimeout time.Duration `validate:"gt=0"`
	PageSize       int           `validate:"gt=0,lte=500"`
	SessionBackend string        `validate:"oneof=sqlite file"`
	SessionPath    string        `validate:"required"`
	LogLevel       string        `validate:"oneof=debug info warn error"`
	LogFormat      string        `validate:"oneof=text json zerolog"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:8080/api"
	c.RequestTimeout = 10 * time.Second
	c.PageSize = 10
	c.SessionBackend = SessionBackendSQLite
	c.SessionPath = "session.db"
	c.LogLevel = "info"
	c.LogFormat = "text"
}

var validate = validator.New()

// Validate reports every field that violates its constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]error, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Errorf("%s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%w: %w", common.ErrInvalidConfig, errors.Join(msgs...))
		}
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return nil
}

// LoadConfig constructs a Config from os.Args. See Load.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load applies defaults, then overlays values from JSON (if -c/-config is
// present) and command-line flags. Later sources take precedence over
// earlier ones. The result is validated.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
