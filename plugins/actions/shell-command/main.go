package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/Stavily/06-Plugins/internal/actions/shellcmd"
	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

// Logs go to stderr; stdout carries the protocol.
func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("plugin", "shell-command").Logger()

	runtime, err := pluginapi.NewRuntime(shellcmd.New(), pluginapi.WithLogger(&logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build plugin runtime")
	}
	if err := runtime.Serve(context.Background(), os.Stdin, os.Stdout); err != nil {
		logger.Fatal().Err(err).Msg("serve loop failed")
	}
}
