package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/CodingTam/requesthtml/internal/core/events"
	"github.com/CodingTam/requesthtml/internal/notifier"
	"github.com/CodingTam/requesthtml/pkg/logger"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Webhook notification commands",
}

var notifyURL string

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a sample status-change notification",
	Long:  `Publish a sample request.status_changed event through the event bus to the configured webhook (or --url) and report the result.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cfg, err := setup()
		if err != nil {
			return err
		}
		url := notifyURL
		if url == "" {
			url = cfg.Notifications.WebhookURL
		}
		if url == "" {
			return errors.New("no webhook url: set notifications.webhook_url or pass --url")
		}

		lg := logger.LoggerWrapper()
		eventID, err := sendTestNotification(ctx, notifier.Config{
			WebhookURL: url,
			Timeout:    cfg.Notifications.Timeout,
			MaxWorkers: 1,
			QueueSize:  1,
		}, lg)
		if err != nil {
			return err
		}
		lg.Info("test notification delivered", "url", url, "event_id", eventID)
		return nil
	},
}

// sendTestNotification publishes a sample status change through a bus whose
// only subscriber delivers to the webhook, and returns the event id.
func sendTestNotification(ctx context.Context, cfg notifier.Config, lg *slog.Logger) (string, error) {
	client := notifier.NewClient(cfg, lg)
	defer client.Shutdown()

	bus := events.NewEventBus(lg)
	bus.Subscribe(events.EventTypeRequestStatusChanged, client.Send)

	comments := "Sample notification"
	event := events.NewRequestStatusChangedEvent("REQ-TEST", "Notification test", "submitted", "processing", "cli", &comments)
	if err := bus.PublishSync(ctx, event); err != nil {
		return "", fmt.Errorf("send test notification: %w", err)
	}
	return event.EventID(), nil
}

func init() {
	notifyTestCmd.Flags().StringVar(&notifyURL, "url", "", "webhook url overriding notifications.webhook_url")
	notifyCmd.AddCommand(notifyTestCmd)
}
