package broadcast

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tphakala/ppewatch/internal/analysis"
	"github.com/tphakala/ppewatch/internal/conf"
	"github.com/tphakala/ppewatch/internal/notification"
)

// Command creates the broadcast command.
func Command() *cobra.Command {
	var (
		kind       string
		text       string
		department string
		admin      string
	)

	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Send a safety message to every active recipient",
		Long: `Send a predefined safety message (helmet, vest, goggles, gloves, general)
or free text to every active recipient, optionally limited to one department.

Examples:
  ppewatch broadcast --kind helmet
  ppewatch broadcast --kind text --text "Drill at 14:00" --department welding`,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := notification.ParseBroadcastKind(kind)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := analysis.NewServices(conf.GetSettings())
			if err != nil {
				return err
			}
			defer svc.Close()

			result, err := svc.NewBroadcaster().Broadcast(ctx, notification.BroadcastRequest{
				Kind:       k,
				Text:       text,
				Department: department,
				Admin:      admin,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "broadcast %s: sent %d, delivered %d, failed %d (%.0f%%)\n",
				result.BatchID, result.Sent, result.Succeeded, result.Failed, result.SuccessRate()*100)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "general", "Message kind: helmet, vest, goggles, gloves, general or text")
	cmd.Flags().StringVar(&text, "text", "", "Message body when --kind=text")
	cmd.Flags().StringVar(&department, "department", "", "Only send to this department")
	cmd.Flags().StringVar(&admin, "admin", "cli", "Name recorded as the sender of the broadcast")
	return cmd
}
