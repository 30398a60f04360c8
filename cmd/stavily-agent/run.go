package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	var oneshot bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the agent daemon",
		Long: `run loads the configured plugins, brings them up, and keeps polling
triggers and dispatching events until interrupted. With --oneshot it
performs a single poll and dispatch cycle, then exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			daemon, err := setup()
			if err != nil {
				return fmt.Errorf("failed to set up daemon: %w", err)
			}
			if oneshot {
				return daemon.RunOneshot(cmd.Context())
			}
			return daemon.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&oneshot, "oneshot", false, "run one poll and dispatch cycle, then exit")

	return cmd
}
