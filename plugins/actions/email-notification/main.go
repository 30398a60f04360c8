package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/Stavily/06-Plugins/internal/actions/emailnotify"
	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

// Logs go to stderr; stdout carries the protocol.
func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("plugin", "email-notification").Logger()

	runtime, err := pluginapi.NewRuntime(emailnotify.New(), pluginapi.WithLogger(&logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build plugin runtime")
	}
	if err := runtime.Serve(context.Background(), os.Stdin, os.Stdout); err != nil {
		logger.Fatal().Err(err).Msg("serve loop failed")
	}
}
