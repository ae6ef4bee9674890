package log

import (
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/unipls/pkg/errors"
)

// SetupLogger installs a JSON zerolog provider on stdout as the process-wide
// provider. Field names follow the Cloud Logging format.
func SetupLogger(loglevel string) error {
	level, err := ToLogLevel(loglevel)
	if err != nil {
		return err
	}

	zerolog.LevelFieldName = "severity"
	zerolog.MessageFieldName = "message"
	zerolog.CallerFieldName = "logging.googleapis.com/sourceLocation"

	SetProvider(NewZerologProvider(os.Stdout, level))
	return nil
}

// ToLogLevel parses "debug", "info", "warn" or "error".
func ToLogLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewConfigError("log_level", "must be one of debug, info, warn, error", level)
	}
}
