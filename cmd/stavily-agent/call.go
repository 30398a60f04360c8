package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Stavily/06-Plugins/internal/config"
	"github.com/Stavily/06-Plugins/internal/plugin"
	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

func newCallCommand() *cobra.Command {
	var (
		paramsJSON string
		configJSON string
		requestID  string
	)

	cmd := &cobra.Command{
		Use:   "call <plugin> <action>",
		Short: "Send one protocol action to a plugin and print the response",
		Long: `call relays a single protocol action to the named plugin and prints
the raw response envelope on stdout. Actions that need a running plugin
(detect_triggers, execute_action) are preceded by initialize and start.
The exit code is zero only when the response reports success.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd.Context(), args[0], args[1], paramsJSON, configJSON, requestID)
		},
	}
	cmd.Flags().StringVar(&paramsJSON, "params", "", "JSON object with execute_action parameters")
	cmd.Flags().StringVar(&configJSON, "config", "", "JSON object merged over the plugin's configured settings")
	cmd.Flags().StringVar(&requestID, "id", "", "request id for execute_action (defaults to a random uuid)")

	return cmd
}

func runCall(ctx context.Context, name, action, paramsJSON, configJSON, requestID string) error {
	var params map[string]interface{}
	if paramsJSON != "" {
		if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
			return fmt.Errorf("invalid --params: %w", err)
		}
	}
	var overrides map[string]interface{}
	if configJSON != "" {
		if err := json.Unmarshal([]byte(configJSON), &overrides); err != nil {
			return fmt.Errorf("invalid --config: %w", err)
		}
	}

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.shutdown()

	client, err := a.manager.Get(name)
	if err != nil {
		return err
	}

	initConfig := pluginapi.Config{}
	for k, v := range a.config.Plugins[name].Config {
		initConfig[k] = v
	}
	for k, v := range overrides {
		initConfig[k] = v
	}

	// Running-state actions get an implicit bring-up first. Everything
	// else, including unknown actions, is relayed as-is so the plugin's
	// own dispatch answers.
	switch action {
	case pluginapi.ActionDetectTriggers, pluginapi.ActionExecuteAction:
		if err := bringUp(ctx, a.config, client, initConfig); err != nil {
			return err
		}
	}

	req := &pluginapi.RequestEnvelope{Action: action}
	switch action {
	case pluginapi.ActionInitialize:
		req.Config = initConfig
	case pluginapi.ActionExecuteAction:
		id := requestID
		if id == "" {
			id = uuid.NewString()
		}
		req.Request = &pluginapi.ActionRequest{ID: id, Parameters: params}
	}

	callCtx, cancel := context.WithTimeout(ctx, timeoutFor(a.config, action))
	defer cancel()

	resp, err := client.Call(callCtx, req)
	if err != nil {
		return fmt.Errorf("call %s %s: %w", name, action, err)
	}

	line, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	fmt.Println(string(line))

	if !resp.Success {
		exitCode = 1
	}
	return nil
}

func bringUp(ctx context.Context, cfg *config.Config, client *plugin.Client, initConfig pluginapi.Config) error {
	upCtx, cancel := context.WithTimeout(ctx, cfg.Timeouts.Lifecycle)
	defer cancel()

	if _, err := client.Initialize(upCtx, initConfig); err != nil {
		return fmt.Errorf("initialize %s: %w", client.Id(), err)
	}
	if _, err := client.Start(upCtx); err != nil {
		return fmt.Errorf("start %s: %w", client.Id(), err)
	}
	return nil
}

func timeoutFor(cfg *config.Config, action string) time.Duration {
	switch action {
	case pluginapi.ActionDetectTriggers:
		return cfg.Timeouts.Detect
	case pluginapi.ActionExecuteAction:
		return cfg.Timeouts.Execute
	}
	return cfg.Timeouts.Lifecycle
}
