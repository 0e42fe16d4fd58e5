package notify

import (
	"context"

	"github.com/andresuchdata/stockalert/internal/config"
	"github.com/rs/zerolog"
)

// LogChannel writes notifications to the service log. It is the fallback
// when no webhook is configured.
type LogChannel struct {
	log zerolog.Logger
}

func NewLogChannel(log zerolog.Logger) *LogChannel {
	return &LogChannel{log: log}
}

func (l *LogChannel) Name() string { return "log" }

func (l *LogChannel) Send(_ context.Context, n Notification) error {
	recipients := make([]string, 0, len(n.Recipients))
	for _, r := range n.Recipients {
		recipients = append(recipients, string(r))
	}

	l.log.Info().
		Str("notification_id", n.ID).
		Str("kind", string(n.Kind)).
		Str("item_id", n.ItemID).
		Str("item_name", n.ItemName).
		Str("quantity", n.Quantity).
		Strs("recipients", recipients).
		Msg(n.Title + ": " + n.Message)
	return nil
}

// ChannelsFromConfig returns the webhook channel when a URL is configured and
// the log channel otherwise.
func ChannelsFromConfig(cfg config.DeliveryConfig, log zerolog.Logger) []Channel {
	if cfg.WebhookURL != "" {
		return []Channel{NewWebhookChannel(cfg)}
	}
	return []Channel{NewLogChannel(log)}
}
