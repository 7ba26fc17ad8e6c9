package dispatch

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tphakala/ppewatch/internal/analysis"
	"github.com/tphakala/ppewatch/internal/buildinfo"
	"github.com/tphakala/ppewatch/internal/conf"
)

// Command creates the dispatch command, which runs the notification
// dispatcher without a detection stream.
func Command(build *buildinfo.Context) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Deliver notifications for stored violations",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := conf.GetSettings()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := analysis.NewServices(settings)
			if err != nil {
				return err
			}
			defer svc.Close()

			if !once {
				return analysis.Dispatch(ctx, svc, build)
			}

			result, err := svc.NewDispatcher().DispatchOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "batch %s: %d records, %d delivered, %d failed\n",
				result.BatchID, result.Records, result.Succeeded(), result.Failed())
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Run a single dispatch cycle and exit")
	return cmd
}
