package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"craftinstall/internal/config"
	"craftinstall/internal/domain"
	"craftinstall/internal/task"
)

const (
	colorGreen = 0x00FF00
	colorRed   = 0xFF0000

	// Discord embed limits
	maxDescription = 2000
	maxFieldValue  = 1024
)

// Notification posts install outcomes to a Discord webhook
type Notification struct {
	cfg    *config.Config
	logger *zap.Logger
	client *http.Client
}

var _ Notifier = (*Notification)(nil)

// NewNotification initializes a new notification service
func NewNotification(cfg *config.Config, logger *zap.Logger) *Notification {
	return &Notification{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// alert is one webhook message
type alert struct {
	title   string
	message string
	color   int
	fields  []discordField
}

// InstallFinished reports the outcome of an install task. A cancelled
// install is not an error worth alerting on.
func (n *Notification) InstallFinished(ctx context.Context, report InstallReport) error {
	snap := report.Task.Snapshot()
	switch {
	case snap.Outcome == task.Finished:
		if !n.cfg.Notifications.SuccessNotifications {
			return nil
		}
		return n.post(ctx, alert{
			title:   "Install finished",
			message: fmt.Sprintf("Installed %s %s", report.Family, report.Task.Version),
			color:   colorGreen,
			fields:  installFields(report, snap),
		})
	case errors.Is(snap.Err, domain.ErrCancelled):
		n.logger.Debug("Skipping notification for cancelled install", zap.String("task", report.Task.ID.String()))
		return nil
	default:
		if !n.cfg.Notifications.ErrorNotifications {
			return nil
		}
		return n.post(ctx, alert{
			title:   "Install failed",
			message: fmt.Sprintf("Install of %s %s failed: %v", report.Family, report.Task.Version, snap.Err),
			color:   colorRed,
			fields:  installFields(report, snap),
		})
	}
}

// installFields lists what identifies an install. Failed installs also name
// the stage they stopped in.
func installFields(report InstallReport, snap task.Update) []discordField {
	fields := []discordField{
		{Name: "Family", Value: string(report.Family), Inline: true},
		{Name: "Version", Value: report.Task.Version, Inline: true},
	}
	if report.Build != "" {
		fields = append(fields, discordField{Name: "Build", Value: report.Build, Inline: true})
	}
	if report.LoaderVersion != "" {
		fields = append(fields, discordField{Name: "Loader", Value: report.LoaderVersion, Inline: true})
	}
	fields = append(fields, discordField{Name: "Server", Value: "`" + report.Dir + "`"})
	if snap.Outcome == task.Failed {
		if stage := snap.Status.String(); stage != "" {
			fields = append(fields, discordField{Name: "Stage", Value: stage})
		}
		fields = append(fields, discordField{Name: "Progress", Value: fmt.Sprintf("%.0f%%", snap.Percentage), Inline: true})
	}
	return append(fields, discordField{Name: "Task", Value: report.Task.ID.String()})
}

// SendSuccess dispatches a success-level alert if enabled in config
func (n *Notification) SendSuccess(ctx context.Context, message string) error {
	if !n.cfg.Notifications.SuccessNotifications {
		return nil
	}
	return n.post(ctx, alert{title: "Success", message: message, color: colorGreen})
}

// SendError dispatches an error-level alert if enabled in config
func (n *Notification) SendError(ctx context.Context, message string) error {
	if !n.cfg.Notifications.ErrorNotifications {
		return nil
	}
	return n.post(ctx, alert{title: "Error", message: message, color: colorRed})
}

// HealthCheck verifies webhook configuration and alert settings
func (n *Notification) HealthCheck(_ context.Context) []domain.HealthCheck {
	return []domain.HealthCheck{
		n.checkWebhook(),
		n.checkSettings(),
	}
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbed struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Color       int               `json:"color"`
	Fields      []discordField    `json:"fields,omitempty"`
	Timestamp   string            `json:"timestamp"`
	Footer      map[string]string `json:"footer"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}

// post sends a to the Discord webhook
func (n *Notification) post(ctx context.Context, a alert) error {
	webhook := n.cfg.Notifications.DiscordWebhook
	if webhook == "" {
		n.logger.Debug("Discord webhook not configured, skipping")
		return nil
	}

	fields := make([]discordField, len(a.fields))
	for i, f := range a.fields {
		f.Value = truncate(f.Value, maxFieldValue)
		fields[i] = f
	}
	payload := discordPayload{
		Embeds: []discordEmbed{{
			Title:       a.title,
			Description: truncate(a.message, maxDescription),
			Color:       a.color,
			Fields:      fields,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
			Footer:      map[string]string{"text": "craftinstall"},
		}},
	}

	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(payload); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // webhook URL is user-configured, not attacker-controlled
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &domain.APIError{
			URL:        webhook,
			StatusCode: resp.StatusCode,
			Message:    "Discord API error",
		}
	}

	n.logger.Debug("Discord notification sent", zap.String("title", a.title))
	return nil
}

var webhookPrefixes = []string{
	"https://discord.com/api/webhooks/",
	"https://discordapp.com/api/webhooks/",
}

func (n *Notification) checkWebhook() domain.HealthCheck {
	webhook := n.cfg.Notifications.DiscordWebhook
	if webhook == "" {
		return domain.HealthCheck{Name: "Discord webhook", Status: domain.StatusWarn, Message: "Not configured, install alerts are off"}
	}
	for _, prefix := range webhookPrefixes {
		if strings.HasPrefix(webhook, prefix) {
			return domain.HealthCheck{Name: "Discord webhook", Status: domain.StatusOK, Message: "Configured"}
		}
	}
	return domain.HealthCheck{Name: "Discord webhook", Status: domain.StatusError, Message: "Invalid URL format"}
}

func (n *Notification) checkSettings() domain.HealthCheck {
	var on []string
	if n.cfg.Notifications.SuccessNotifications {
		on = append(on, "finished")
	}
	if n.cfg.Notifications.ErrorNotifications {
		on = append(on, "failed")
	}
	if len(on) == 0 {
		return domain.HealthCheck{Name: "Install alerts", Status: domain.StatusWarn, Message: "All disabled"}
	}
	return domain.HealthCheck{Name: "Install alerts", Status: domain.StatusOK, Message: "On " + strings.Join(on, " and ") + " installs"}
}
