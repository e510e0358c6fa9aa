package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/creditconsole/internal/flagx"
)

var knownFlags = []string{"-a", "-t", "-s", "-b", "-p", "-l", "-f"}

// parseFlags populates Config fields from command-line flags.
//
//	-a string   API base URL
//	-t int      request timeout (seconds)
//	-s int      default page size
//	-b string   session backend (sqlite|file)
//	-p string   session path
//	-l string   log level
//	-f string   log format (text|json|zerolog)
//
// Unknown arguments are filtered out with flagx.FilterArgs first.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "API base URL")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.IntVar(&cfg.PageSize, "s", cfg.PageSize, "default page size")
	fs.StringVar(&cfg.SessionBackend, "b", cfg.SessionBackend, "session backend (sqlite|file)")
	fs.StringVar(&cfg.SessionPath, "p", cfg.SessionPath, "session database file or directory")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format (text|json|zerolog)")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	return nil
}
