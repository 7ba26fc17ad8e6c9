package recipients

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tphakala/ppewatch/internal/analysis"
	"github.com/tphakala/ppewatch/internal/conf"
	"github.com/tphakala/ppewatch/internal/datastore"
)

// Command creates the recipients command with add and list subcommands.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipients",
		Short: "Manage the notification recipient directory",
	}
	cmd.AddCommand(addCommand(), listCommand())
	return cmd
}

func addCommand() *cobra.Command {
	var (
		r        datastore.Recipient
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "add CHAT_ID",
		Short: "Add or update a recipient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := analysis.OpenStore(conf.GetSettings(), nil)
			if err != nil {
				return err
			}
			defer store.Close()

			r.ChatID = args[0]
			r.Active = !inactive
			if err := store.UpsertRecipient(context.Background(), &r); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recipient %s saved\n", r.ChatID)
			return nil
		},
	}

	cmd.Flags().StringVar(&r.Name, "name", "", "Display name used in worker messages")
	cmd.Flags().StringVar(&r.Email, "email", "", "E-mail address")
	cmd.Flags().StringVar(&r.Department, "department", "", "Department used to scope broadcasts")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Store the recipient as inactive")
	return cmd
}

func listCommand() *cobra.Command {
	var department string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active recipients",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := analysis.OpenStore(conf.GetSettings(), nil)
			if err != nil {
				return err
			}
			defer store.Close()

			rows, err := store.ListRecipients(context.Background(), department)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CHAT ID\tNAME\tDEPARTMENT\tEMAIL")
			for i := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rows[i].ChatID, rows[i].Name, rows[i].Department, rows[i].Email)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&department, "department", "", "Only list this department")
	return cmd
}
