// Package sysutil holds process-level helpers shared by the binary: global
// logger setup and small string utilities.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// defaultService tags log lines when no service name is configured.
const defaultService = "donor-search"

// SetLogLevel sets the global zerolog level from a case-insensitive name
// (debug, info, warn/warning, error, fatal, panic). Anything else, including
// "trace" and "disabled", falls back to info.
func SetLogLevel(lvl string) {
	name := strings.ToLower(strings.TrimSpace(lvl))
	if name == "warning" {
		name = "warn"
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil || name == "" || level < zerolog.DebugLevel || level > zerolog.PanicLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// SetupLogger points the global logger at w (stderr when nil), tagged with
// the service name and host. Pretty selects the human-readable console writer.
func SetupLogger(w io.Writer, level string, pretty bool, service string) {
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	SetLogLevel(level)

	host, _ := os.Hostname()
	log.Logger = zerolog.New(w).With().
		Timestamp().
		Str("service", FirstNonEmpty(service, defaultService)).
		Str("host", FirstNonEmpty(os.Getenv("POD_NAME"), host, "unknown")).
		Logger()
}

// FirstNonEmpty returns the first value that is not blank, unmodified, or ""
// when every value is blank.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
