package logger

import (
	"os"

	"github.com/Stavily/06-Plugins/internal/config"
	"github.com/google/wire"
	"github.com/rs/zerolog"
)

var DefaultSet = wire.NewSet(
	NewLogger,
)

var LevelMap = map[string]zerolog.Level{
	"debug": zerolog.DebugLevel,
	"info":  zerolog.InfoLevel,
	"warn":  zerolog.WarnLevel,
	"error": zerolog.ErrorLevel,
}

// NewLogger writes to stderr: stdout stays free for protocol lines and
// machine-readable command output.
func NewLogger(config *config.Config) *zerolog.Logger {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if level, ok := LevelMap[config.Log.Level]; ok {
		logger = logger.Level(level)
	}

	return &logger
}
