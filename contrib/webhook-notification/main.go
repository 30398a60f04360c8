package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"

	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

const (
	pluginID      = "webhook-notification"
	pluginVersion = "1.0.0"

	maxResponseBytes = 4096
)

// Config holds the webhook delivery settings. In demo mode the URL is
// optional and delivery is simulated.
type Config struct {
	WebhookURL     string            `mapstructure:"webhook_url"`
	Method         string            `mapstructure:"method"`
	Headers        map[string]string `mapstructure:"headers"`
	TimeoutSeconds int               `mapstructure:"timeout_seconds"`
	MaxRetries     int               `mapstructure:"max_retries"`
	VerifyTLS      bool              `mapstructure:"verify_tls"`
}

func defaultConfig() Config {
	return Config{
		Method:         http.MethodPost,
		TimeoutSeconds: 30,
		MaxRetries:     2,
		VerifyTLS:      true,
	}
}

type delivery struct {
	url     string
	method  string
	headers map[string]string
	payload map[string]interface{}
}

// Plugin posts JSON payloads to an HTTP endpoint, or simulates the
// delivery when demo mode is enabled.
type Plugin struct {
	mu   sync.Mutex
	cfg  Config
	demo bool
	roll func() float64
	post func(ctx context.Context, cfg Config, d delivery) (int, int, error)
}

func NewPlugin() *Plugin {
	return &Plugin{
		cfg:  defaultConfig(),
		roll: rand.Float64,
		post: postWebhook,
	}
}

func (p *Plugin) Info() pluginapi.PluginInfo {
	now := time.Now()
	return pluginapi.PluginInfo{
		ID:          pluginID,
		Name:        "Webhook Notification",
		Description: "Delivers trigger events and automation updates to an HTTP webhook",
		Version:     pluginVersion,
		Author:      "Stavily Community",
		License:     "MIT",
		Type:        string(pluginapi.CapabilityAction),
		Tags:        []string{"notification", "webhook", "http", "integration"},
		Categories:  []string{"communication"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (p *Plugin) Initialize(ctx context.Context, config pluginapi.Config) error {
	cfg := defaultConfig()
	if err := mapstructure.Decode(config, &cfg); err != nil {
		return pluginapi.Errorf(pluginapi.ValidationError, "invalid configuration: %v", err)
	}

	switch cfg.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return pluginapi.NewError(pluginapi.ValidationError, "method must be POST, PUT, or PATCH")
	}
	if cfg.TimeoutSeconds < 1 {
		return pluginapi.NewError(pluginapi.ValidationError, "timeout_seconds must be at least 1")
	}
	if cfg.MaxRetries < 0 {
		return pluginapi.NewError(pluginapi.ValidationError, "max_retries must not be negative")
	}

	demo := pluginapi.DemoMode()
	if !demo && cfg.WebhookURL == "" {
		return pluginapi.NewError(pluginapi.ValidationError, "webhook_url is required outside demo mode")
	}

	p.mu.Lock()
	p.cfg = cfg
	p.demo = demo
	p.mu.Unlock()

	zerolog.Ctx(ctx).Info().
		Bool("demo_mode", demo).
		Str("webhook_url", cfg.WebhookURL).
		Msg("webhook notification initialized")
	return nil
}

func (p *Plugin) Start(ctx context.Context) error {
	zerolog.Ctx(ctx).Info().Msg("webhook notification started")
	return nil
}

func (p *Plugin) Stop(ctx context.Context) error {
	zerolog.Ctx(ctx).Info().Msg("webhook notification stopped")
	return nil
}

func (p *Plugin) ExecuteAction(ctx context.Context, req *pluginapi.ActionRequest) (*pluginapi.ActionResult, error) {
	p.mu.Lock()
	cfg, demo := p.cfg, p.demo
	p.mu.Unlock()

	d := delivery{
		url:     stringParam(req.Parameters, "url", cfg.WebhookURL),
		method:  cfg.Method,
		headers: headerParam(req.Parameters["headers"]),
		payload: payloadParam(req.Parameters["payload"]),
	}
	if d.url == "" && !demo {
		return failedResult("no webhook url configured and none given in the request", nil), nil
	}

	logger := zerolog.Ctx(ctx)
	var status, size int
	var err error
	if demo {
		status, size, err = p.simulatePost(logger, d)
	} else {
		status, size, err = p.post(ctx, cfg, d)
	}
	if err != nil {
		logger.Error().Err(err).Str("url", d.url).Msg("webhook delivery failed")
		return failedResult(err.Error(), map[string]interface{}{
			"url":    d.url,
			"method": d.method,
		}), nil
	}

	logger.Info().
		Str("url", d.url).
		Int("status_code", status).
		Msg("webhook delivered")
	return &pluginapi.ActionResult{
		Status: pluginapi.ResultCompleted,
		Data: map[string]interface{}{
			"url":           d.url,
			"method":        d.method,
			"status_code":   status,
			"response_size": size,
			"demo_mode":     demo,
		},
		Metadata: resultMetadata(),
	}, nil
}

// simulatePost fakes a delivery with a small failure rate so downstream
// error handling can be exercised without a listening endpoint.
func (p *Plugin) simulatePost(logger *zerolog.Logger, d delivery) (int, int, error) {
	if p.roll() < 0.05 {
		return 0, 0, errors.New("simulated webhook connection refused (demo mode)")
	}
	if d.url == "" {
		d.url = "https://hooks.stavily-demo.local/notify"
	}
	body, _ := json.Marshal(d.payload)
	logger.Info().
		Str("url", d.url).
		Int("payload_bytes", len(body)).
		Msg("demo mode, webhook delivery simulated")
	return http.StatusOK, len(body), nil
}

func (p *Plugin) ActionConfig() pluginapi.ConfigSchema {
	return pluginapi.ConfigSchema{
		Parameters: map[string]pluginapi.ParamSpec{
			"payload": {
				Type:        "object",
				Description: "JSON document to deliver",
				Required:    true,
				Examples: []interface{}{
					map[string]interface{}{"event": "disk.space.warning", "usage_percent": 88.5},
				},
			},
			"url": {
				Type:        "string",
				Description: "Destination URL, overrides the configured webhook_url",
			},
			"headers": {
				Type:        "object",
				Description: "Extra HTTP headers for this delivery",
			},
		},
		Required: []string{"payload"},
		Examples: []map[string]interface{}{
			{
				"payload": map[string]interface{}{"event": "memory.high", "host": "server-01"},
			},
		},
		Description: "Webhook delivery parameters",
		Timeout:     120,
	}
}

// HealthChecks reports whether the plugin has somewhere to deliver to.
func (p *Plugin) HealthChecks(ctx context.Context) map[string]pluginapi.CheckResult {
	p.mu.Lock()
	cfg, demo := p.cfg, p.demo
	p.mu.Unlock()

	check := pluginapi.CheckResult{Status: pluginapi.HealthHealthy, ObservedAt: time.Now()}
	switch {
	case demo:
		check.Message = "demo mode, delivery is simulated"
	case cfg.WebhookURL == "":
		check.Status = pluginapi.HealthDegraded
		check.Message = "no default webhook url configured"
	default:
		check.Message = fmt.Sprintf("delivering to %s", cfg.WebhookURL)
	}
	return map[string]pluginapi.CheckResult{"webhook_config": check}
}

func stringParam(params map[string]interface{}, key, fallback string) string {
	if s, ok := params[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func headerParam(v interface{}) map[string]string {
	raw, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	headers := make(map[string]string, len(raw))
	for k, item := range raw {
		if s, ok := item.(string); ok {
			headers[k] = s
		}
	}
	return headers
}

func payloadParam(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func failedResult(errMsg string, data map[string]interface{}) *pluginapi.ActionResult {
	return &pluginapi.ActionResult{
		Status:   pluginapi.ResultFailed,
		Error:    errMsg,
		Data:     data,
		Metadata: resultMetadata(),
	}
}

func resultMetadata() map[string]interface{} {
	hostname, _ := os.Hostname()
	return map[string]interface{}{
		"plugin_id":      pluginID,
		"plugin_version": pluginVersion,
		"execution_host": hostname,
	}
}

// postWebhook delivers the payload, retrying transport failures and 5xx
// responses with a linear backoff. 4xx responses are not retried.
func postWebhook(ctx context.Context, cfg Config, d delivery) (int, int, error) {
	body, err := json.Marshal(d.payload)
	if err != nil {
		return 0, 0, fmt.Errorf("encode payload: %w", err)
	}

	transport := &http.Transport{}
	if !cfg.VerifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	client := &http.Client{
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		Transport: transport,
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return 0, 0, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, d.method, d.url, bytes.NewReader(body))
		if err != nil {
			return 0, 0, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "stavily-webhook/"+pluginVersion)
		for k, v := range cfg.Headers {
			req.Header.Set(k, v)
		}
		for k, v := range d.headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		n, _ := io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("webhook returned status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return resp.StatusCode, int(n), fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return resp.StatusCode, int(n), nil
	}
	return 0, 0, fmt.Errorf("webhook delivery failed after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}

// Logs go to stderr; stdout carries the protocol.
func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("plugin", pluginID).Logger()

	runtime, err := pluginapi.NewRuntime(NewPlugin(), pluginapi.WithLogger(&logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build plugin runtime")
	}
	if err := runtime.Serve(context.Background(), os.Stdin, os.Stdout); err != nil {
		logger.Fatal().Err(err).Msg("serve loop failed")
	}
}
