package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Stavily/06-Plugins/internal/plugin"
	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

func newPluginsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect configured plugins",
	}
	cmd.AddCommand(newPluginsListCommand())
	cmd.AddCommand(newPluginsHealthCommand())

	return cmd
}

func newPluginsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured plugins with their reported info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPluginsList(cmd.Context())
		},
	}
}

func runPluginsList(ctx context.Context) error {
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.shutdown()

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tTYPE\tVERSION\tDESCRIPTION")
	for _, client := range a.manager.List() {
		def := a.config.Plugins[client.Id()]

		infoCtx, cancel := context.WithTimeout(ctx, a.config.Timeouts.Lifecycle)
		info, err := client.GetInfo(infoCtx)
		cancel()
		if err != nil {
			fmt.Fprintf(w, "%s\t%s\t%s\t-\tunreachable: %v\n", client.Id(), client.Kind(), def.Type, err)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", client.Id(), client.Kind(), def.Type, info.Version, info.Description)
	}

	return w.Flush()
}

func newPluginsHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe plugin health",
		Long: `health brings every configured plugin up, probes it, and prints one
line per plugin. The exit code is the number of plugins that did not
report healthy, capped at 125.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPluginsHealth(cmd.Context())
		},
	}
}

func runPluginsHealth(ctx context.Context) error {
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.shutdown()

	unhealthy := 0
	for _, client := range a.manager.List() {
		status, detail := probeHealth(ctx, a, client)
		if status != pluginapi.HealthHealthy {
			unhealthy++
		}
		fmt.Printf("%-24s %-10s %s\n", client.Id(), status, detail)
	}

	if unhealthy > 125 {
		unhealthy = 125
	}
	exitCode = unhealthy
	return nil
}

func probeHealth(ctx context.Context, a *app, client *plugin.Client) (pluginapi.HealthStatus, string) {
	upCtx, cancel := context.WithTimeout(ctx, a.config.Timeouts.Lifecycle)
	defer cancel()

	if _, err := client.Initialize(upCtx, a.config.Plugins[client.Id()].Config); err != nil {
		return pluginapi.HealthUnhealthy, err.Error()
	}
	if _, err := client.Start(upCtx); err != nil {
		return pluginapi.HealthUnhealthy, err.Error()
	}

	health, err := client.GetHealth(upCtx)
	if err != nil {
		return pluginapi.HealthUnhealthy, err.Error()
	}
	return health.Status, health.Message
}
