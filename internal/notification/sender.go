package notification

import (
	"context"

	"github.com/tphakala/ppewatch/internal/conf"
	"github.com/tphakala/ppewatch/internal/logger"
)

// LogSender writes messages to the log instead of delivering them. It is
// used when no delivery backend is configured.
type LogSender struct {
	log logger.Logger
}

// NewLogSender returns a sender that only logs.
func NewLogSender() *LogSender {
	return &LogSender{log: GetLogger().Module("logsender")}
}

func (l *LogSender) Name() string { return "log" }

func (l *LogSender) Send(_ context.Context, recipient, text string) error {
	l.log.Info("notification", logger.String("recipient", recipient), logger.String("text", text))
	return nil
}

// NewSender builds the configured sender. Shoutrrr wins over webhook when
// both are enabled.
func NewSender(settings *conf.NotificationSettings) (Sender, error) {
	switch {
	case settings.Shoutrrr.Enabled:
		return NewShoutrrrSender(settings.Shoutrrr.URLTemplate, settings.Shoutrrr.Timeout)
	case settings.Webhook.Enabled:
		return NewWebhookSender(settings.Webhook.URL, settings.Webhook.Headers, settings.Webhook.Timeout, nil)
	default:
		GetLogger().Warn("no delivery backend enabled, notifications are only logged")
		return NewLogSender(), nil
	}
}
