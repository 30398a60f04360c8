package emailnotify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"math/rand"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"

	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

const (
	pluginID      = "email-notification"
	pluginVersion = "1.0.0"
)

// Config holds the SMTP relay settings. In demo mode none of them are
// required and delivery is simulated.
type Config struct {
	SMTPServer string `mapstructure:"smtp_server"`
	SMTPPort   int    `mapstructure:"smtp_port"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	FromEmail  string `mapstructure:"from_email"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

func defaultConfig() Config {
	return Config{
		SMTPPort: 587,
		UseTLS:   true,
	}
}

type message struct {
	to          []string
	cc          []string
	bcc         []string
	subject     string
	body        string
	htmlBody    string
	attachments []string
}

// Plugin sends email notifications through an SMTP relay, or simulates
// delivery when demo mode is enabled.
type Plugin struct {
	mu   sync.Mutex
	cfg  Config
	demo bool
	roll func() float64
	send func(cfg Config, m message) (string, error)
}

func New() *Plugin {
	return &Plugin{
		cfg:  defaultConfig(),
		roll: rand.Float64,
		send: sendSMTP,
	}
}

func (p *Plugin) Info() pluginapi.PluginInfo {
	now := time.Now()
	return pluginapi.PluginInfo{
		ID:          pluginID,
		Name:        "Email Notification",
		Description: "Sends email notifications for alerts, reports, and automation updates",
		Version:     pluginVersion,
		Author:      "Stavily Team",
		License:     "MIT",
		Type:        string(pluginapi.CapabilityAction),
		Tags:        []string{"notification", "email", "alert", "communication"},
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
	if cfg.FromEmail == "" {
		cfg.FromEmail = cfg.Username
	}

	demo := pluginapi.DemoMode()
	if !demo && (cfg.SMTPServer == "" || cfg.Username == "" || cfg.Password == "" || cfg.FromEmail == "") {
		return pluginapi.NewError(pluginapi.ValidationError,
			"smtp_server, username, password, and from_email are required outside demo mode")
	}

	p.mu.Lock()
	p.cfg = cfg
	p.demo = demo
	p.mu.Unlock()

	zerolog.Ctx(ctx).Info().
		Bool("demo_mode", demo).
		Str("smtp_server", cfg.SMTPServer).
		Msg("email notification initialized")
	return nil
}

func (p *Plugin) Start(ctx context.Context) error {
	zerolog.Ctx(ctx).Info().Msg("email notification started")
	return nil
}

func (p *Plugin) Stop(ctx context.Context) error {
	zerolog.Ctx(ctx).Info().Msg("email notification stopped")
	return nil
}

func (p *Plugin) ExecuteAction(ctx context.Context, req *pluginapi.ActionRequest) (*pluginapi.ActionResult, error) {
	p.mu.Lock()
	cfg, demo := p.cfg, p.demo
	p.mu.Unlock()

	params := req.Parameters
	m := message{
		to:          addressList(params["to"]),
		cc:          addressList(params["cc"]),
		bcc:         addressList(params["bcc"]),
		subject:     stringParam(params, "subject", "Stavily Notification"),
		body:        stringParam(params, "body", ""),
		htmlBody:    stringParam(params, "html_body", ""),
		attachments: addressList(params["attachments"]),
	}
	if len(m.to) == 0 {
		return failedResult("at least one recipient email is required", nil), nil
	}

	logger := zerolog.Ctx(ctx)
	var messageID string
	var err error
	if demo {
		messageID, err = p.simulateSend(logger, m)
	} else {
		messageID, err = p.send(cfg, m)
	}
	if err != nil {
		logger.Error().Err(err).Strs("to", m.to).Msg("email delivery failed")
		return failedResult(err.Error(), map[string]interface{}{
			"recipients": m.to,
			"subject":    m.subject,
		}), nil
	}

	logger.Info().
		Int("recipients", len(m.to)).
		Str("message_id", messageID).
		Msg("email sent")
	return &pluginapi.ActionResult{
		Status: pluginapi.ResultCompleted,
		Data: map[string]interface{}{
			"recipients":        m.to,
			"cc":                m.cc,
			"bcc":               m.bcc,
			"subject":           m.subject,
			"message_id":        messageID,
			"attachments_count": len(m.attachments),
			"demo_mode":         demo,
		},
		Metadata: resultMetadata(),
	}, nil
}

// simulateSend fakes a delivery with a small failure rate so downstream
// error handling can be exercised without a mail server.
func (p *Plugin) simulateSend(logger *zerolog.Logger, m message) (string, error) {
	if p.roll() < 0.05 {
		return "", errors.New("simulated SMTP connection timeout (demo mode)")
	}
	messageID := fmt.Sprintf("<demo-%d-%04d@stavily-demo>", time.Now().Unix(), rand.Intn(9000)+1000)
	logger.Info().
		Strs("to", m.to).
		Str("subject", m.subject).
		Int("attachments", len(m.attachments)).
		Msg("demo mode, email delivery simulated")
	return messageID, nil
}

func (p *Plugin) ActionConfig() pluginapi.ConfigSchema {
	return pluginapi.ConfigSchema{
		Parameters: map[string]pluginapi.ParamSpec{
			"to": {
				Description: "Recipient email address or list of addresses",
				Required:    true,
				Examples:    []interface{}{"user@example.com", []string{"a@example.com", "b@example.com"}},
			},
			"cc": {
				Description: "CC email address or list of addresses",
			},
			"bcc": {
				Description: "BCC email address or list of addresses",
			},
			"subject": {
				Type:        "string",
				Description: "Email subject line",
				Required:    true,
				Examples:    []interface{}{"Alert: High CPU Usage"},
			},
			"body": {
				Type:        "string",
				Description: "Plain text email body",
			},
			"html_body": {
				Type:        "string",
				Description: "HTML email body",
			},
			"attachments": {
				Type:        "array",
				Description: "List of file paths to attach",
			},
		},
		Required: []string{"to", "subject"},
		Examples: []map[string]interface{}{
			{
				"to":      "admin@example.com",
				"subject": "High Memory Usage Alert",
				"body":    "Memory usage on server-01 has exceeded 85%",
			},
		},
		Description: "Email notification parameters",
		Timeout:     60,
	}
}

// HealthChecks reports whether the plugin is able to deliver mail with
// its current configuration.
func (p *Plugin) HealthChecks(ctx context.Context) map[string]pluginapi.CheckResult {
	p.mu.Lock()
	cfg, demo := p.cfg, p.demo
	p.mu.Unlock()

	check := pluginapi.CheckResult{Status: pluginapi.HealthHealthy, ObservedAt: time.Now()}
	switch {
	case demo:
		check.Message = "demo mode, delivery is simulated"
	case cfg.SMTPServer == "":
		check.Status = pluginapi.HealthUnhealthy
		check.Message = "no smtp server configured"
	default:
		check.Message = fmt.Sprintf("smtp relay %s:%d", cfg.SMTPServer, cfg.SMTPPort)
	}
	return map[string]pluginapi.CheckResult{"smtp_config": check}
}

// addressList accepts a single address or a list, the two shapes
// recipient parameters arrive in.
func addressList(v interface{}) []string {
	switch value := v.(type) {
	case string:
		if value == "" {
			return nil
		}
		return []string{value}
	case []string:
		return value
	case []interface{}:
		var out []string
		for _, item := range value {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func stringParam(params map[string]interface{}, key, fallback string) string {
	if s, ok := params[key].(string); ok && s != "" {
		return s
	}
	return fallback
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

// sendSMTP delivers the message through the configured relay, applying
// STARTTLS and authentication when configured.
func sendSMTP(cfg Config, m message) (string, error) {
	hostname, _ := os.Hostname()
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), hostname)
	body, err := buildMessage(cfg, m, messageID)
	if err != nil {
		return "", fmt.Errorf("build message: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", cfg.SMTPServer, cfg.SMTPPort)
	client, err := smtp.Dial(addr)
	if err != nil {
		return "", fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer client.Close()

	if cfg.UseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: cfg.SMTPServer}); err != nil {
			return "", fmt.Errorf("starttls: %w", err)
		}
	}
	if cfg.Username != "" {
		auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPServer)
		if err := client.Auth(auth); err != nil {
			return "", fmt.Errorf("authenticate: %w", err)
		}
	}

	if err := client.Mail(cfg.FromEmail); err != nil {
		return "", fmt.Errorf("mail from: %w", err)
	}
	recipients := make([]string, 0, len(m.to)+len(m.cc)+len(m.bcc))
	recipients = append(recipients, m.to...)
	recipients = append(recipients, m.cc...)
	recipients = append(recipients, m.bcc...)
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return "", fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}

	wc, err := client.Data()
	if err != nil {
		return "", fmt.Errorf("data: %w", err)
	}
	if _, err := wc.Write(body); err != nil {
		wc.Close()
		return "", fmt.Errorf("write message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("finish message: %w", err)
	}
	return messageID, client.Quit()
}

// buildMessage renders the RFC 822 message as multipart/mixed with an
// optional HTML part and base64-encoded attachments. Attachment paths
// that cannot be read are skipped.
func buildMessage(cfg Config, m message, messageID string) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", cfg.FromEmail)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(m.to, ", "))
	if len(m.cc) > 0 {
		fmt.Fprintf(&buf, "Cc: %s\r\n", strings.Join(m.cc, ", "))
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", m.subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "Message-ID: %s\r\n", messageID)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())

	if m.body != "" || m.htmlBody == "" {
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type": {"text/plain; charset=utf-8"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := part.Write([]byte(m.body)); err != nil {
			return nil, err
		}
	}
	if m.htmlBody != "" {
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type": {"text/html; charset=utf-8"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := part.Write([]byte(m.htmlBody)); err != nil {
			return nil, err
		}
	}
	for _, path := range m.attachments {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {"application/octet-stream"},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", filepath.Base(path))},
		})
		if err != nil {
			return nil, err
		}
		if _, err := part.Write([]byte(base64.StdEncoding.EncodeToString(data))); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
