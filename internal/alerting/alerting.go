package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bher20/tariffcompare/internal/config"
	"github.com/bher20/tariffcompare/internal/logging"
)

// Config holds alerting configuration.
type Config struct {
	// WebhookURL is a Slack, Discord or generic webhook endpoint.
	WebhookURL string
	// WebhookType selects the payload format: "slack", "discord" or "generic".
	WebhookType string
	Enabled     bool
	// MinFailures is the number of failed retailers needed before alerting.
	MinFailures int
	Timeout     time.Duration
}

// FromConfig builds alerting settings from the process config, detecting
// the webhook type from the URL when it is not set.
func FromConfig(c config.AlertConfig) Config {
	cfg := Config{
		WebhookURL:  c.WebhookURL,
		WebhookType: c.WebhookType,
		Enabled:     c.WebhookURL != "",
		MinFailures: c.MinFailures,
		Timeout:     10 * time.Second,
	}
	if cfg.MinFailures < 1 {
		cfg.MinFailures = 1
	}
	if cfg.WebhookType == "" {
		switch {
		case strings.Contains(cfg.WebhookURL, "slack.com"):
			cfg.WebhookType = "slack"
		case strings.Contains(cfg.WebhookURL, "discord.com"):
			cfg.WebhookType = "discord"
		default:
			cfg.WebhookType = "generic"
		}
	}
	return cfg
}

// Alerter sends alerts to the configured webhook.
type Alerter struct {
	cfg    Config
	client *http.Client
}

func NewAlerter(cfg Config) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// RefreshAlert describes a rate refresh run with failed retailers.
type RefreshAlert struct {
	JobName      string
	TotalCount   int
	SuccessCount int
	FailedCount  int
	Duration     time.Duration
	Failures     []RetailerFailure
	Timestamp    time.Time
}

// RetailerFailure is one retailer whose source could not be refreshed.
type RetailerFailure struct {
	Retailer string `json:"retailer"`
	Error    string `json:"error"`
}

// SendRefreshAlert posts alert when enough retailers failed. It is a no-op
// when alerting is disabled or below the threshold.
func (a *Alerter) SendRefreshAlert(ctx context.Context, alert RefreshAlert) error {
	if a == nil || !a.cfg.Enabled {
		logging.Debug("alerting disabled, skipping")
		return nil
	}
	if alert.FailedCount < a.cfg.MinFailures {
		logging.Debug("failures below alert threshold",
			zap.Int("failed", alert.FailedCount),
			zap.Int("threshold", a.cfg.MinFailures),
		)
		return nil
	}

	var payload []byte
	var err error
	switch a.cfg.WebhookType {
	case "slack":
		payload, err = buildSlackPayload(alert)
	case "discord":
		payload, err = buildDiscordPayload(alert)
	default:
		payload, err = buildGenericPayload(alert)
	}
	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	logging.Info("refresh alert sent", zap.Int("failed", alert.FailedCount), zap.String("type", a.cfg.WebhookType))
	return nil
}

func failureList(alert RefreshAlert, bold string) string {
	var b strings.Builder
	for _, f := range alert.Failures {
		fmt.Fprintf(&b, "• %s%s%s: %s\n", bold, f.Retailer, bold, f.Error)
	}
	return b.String()
}

func buildSlackPayload(alert RefreshAlert) ([]byte, error) {
	emoji := ":warning:"
	if alert.FailedCount == alert.TotalCount {
		emoji = ":x:"
	}

	payload := map[string]any{
		"blocks": []map[string]any{
			{
				"type": "header",
				"text": map[string]string{
					"type": "plain_text",
					"text": fmt.Sprintf("%s Rate Refresh Alert: %s", emoji, alert.JobName),
				},
			},
			{
				"type": "section",
				"fields": []map[string]string{
					{"type": "mrkdwn", "text": fmt.Sprintf("*Status:*\n%d/%d failed", alert.FailedCount, alert.TotalCount)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Duration:*\n%s", alert.Duration.Round(time.Millisecond))},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Success:*\n%d", alert.SuccessCount)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Timestamp:*\n%s", alert.Timestamp.Format(time.RFC3339))},
				},
			},
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": "*Failed Retailers:*\n" + failureList(alert, "*"),
				},
			},
		},
	}
	return json.Marshal(payload)
}

func buildDiscordPayload(alert RefreshAlert) ([]byte, error) {
	color := 16776960 // yellow
	if alert.FailedCount == alert.TotalCount {
		color = 16711680 // red
	}

	payload := map[string]any{
		"embeds": []map[string]any{
			{
				"title":       fmt.Sprintf("Rate Refresh Alert: %s", alert.JobName),
				"description": fmt.Sprintf("%d/%d retailers failed", alert.FailedCount, alert.TotalCount),
				"color":       color,
				"fields": []map[string]any{
					{"name": "Success", "value": fmt.Sprintf("%d", alert.SuccessCount), "inline": true},
					{"name": "Failed", "value": fmt.Sprintf("%d", alert.FailedCount), "inline": true},
					{"name": "Duration", "value": alert.Duration.Round(time.Millisecond).String(), "inline": true},
					{"name": "Failed Retailers", "value": failureList(alert, "**"), "inline": false},
				},
				"timestamp": alert.Timestamp.Format(time.RFC3339),
			},
		},
	}
	return json.Marshal(payload)
}

func buildGenericPayload(alert RefreshAlert) ([]byte, error) {
	payload := map[string]any{
		"alert_type":    "rate_refresh_failure",
		"job_name":      alert.JobName,
		"total_count":   alert.TotalCount,
		"success_count": alert.SuccessCount,
		"failed_count":  alert.FailedCount,
		"duration_ms":   alert.Duration.Milliseconds(),
		"timestamp":     alert.Timestamp.Format(time.RFC3339),
		"failures":      alert.Failures,
	}
	return json.Marshal(payload)
}
