package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/ppewatch/internal/conf"
	"github.com/tphakala/ppewatch/internal/notification"
)

// Command returns a cobra command that sends a test message through the
// configured delivery backend
func Command() *cobra.Command {
	var (
		to      string
		message string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a test message through the configured delivery backend",
		Long: `Send a test message to one recipient through the configured backend
(shoutrrr, webhook or log).

Examples:
  ppewatch notify --to 123456789
  ppewatch notify --to 123456789 --message "Delivery check"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" {
				return fmt.Errorf("--to is required")
			}
			sender, err := notification.NewSender(&conf.GetSettings().Notification)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := sender.Send(ctx, to, message); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "test message sent via %s\n", sender.Name())
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Recipient id, e.g. a chat id")
	cmd.Flags().StringVar(&message, "message", "ppewatch test message", "Message text")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Give up after this long")
	return cmd
}
