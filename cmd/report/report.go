package report

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tphakala/ppewatch/internal/analysis"
	"github.com/tphakala/ppewatch/internal/conf"
	reportpkg "github.com/tphakala/ppewatch/internal/report"
)

// Command creates the report command.
func Command() *cobra.Command {
	var (
		days       int
		asJSON     bool
		deliveries bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print violations grouped by type and location",
		Long: `Print violations from the trailing window grouped by violation type and
location, with count, average confidence and first and last occurrence.

Examples:
  ppewatch report --days 30
  ppewatch report --json
  ppewatch report --deliveries`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := conf.GetSettings()
			if !cmd.Flags().Changed("days") && settings.Report.WindowDays > 0 {
				days = settings.Report.WindowDays
			}

			store, err := analysis.OpenStore(settings, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := context.Background()
			gen := reportpkg.NewGenerator(store)
			out := cmd.OutOrStdout()

			if deliveries {
				stats, err := gen.DeliveryStats(ctx, days)
				if err != nil {
					return err
				}
				return stats.WriteText(out)
			}

			r, err := gen.Report(ctx, days)
			if err != nil {
				return err
			}
			if asJSON {
				return r.WriteJSON(out)
			}
			return r.WriteText(out)
		},
	}

	cmd.Flags().IntVar(&days, "days", reportpkg.DefaultWindowDays, "Trailing window in days")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&deliveries, "deliveries", false, "Print delivery totals and recipient counts instead")
	return cmd
}
