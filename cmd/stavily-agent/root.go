package main

import (
	"github.com/spf13/cobra"
)

// exitCode is what main exits with when command execution itself did not
// error. call and plugins health use it to encode outcomes.
var exitCode int

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "stavily-agent",
		Short: "Stavily automation agent and plugin host",
		Long: `stavily-agent hosts trigger and action plugins, polls triggers for
events, and routes matching events to actions. Plugins are either builtin
or external processes speaking line-delimited JSON over stdin/stdout.`,
		SilenceUsage: true,
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newCallCommand())
	root.AddCommand(newPluginsCommand())

	return root
}
