package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog Logger writing to stderr so that stdout stays
// free for command output. APP_ENV=dev (or development) uses a console writer.
// LOG_LEVEL overrides the default info level.
func NewLogger(env string) zerolog.Logger {
	return newLogger(os.Stderr, env, os.Getenv("LOG_LEVEL"))
}

func newLogger(w io.Writer, env, level string) zerolog.Logger {
	out := w
	if env == "dev" || env == "development" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
