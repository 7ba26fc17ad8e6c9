package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/ppewatch/internal/conf"
)

const redacted = "[REDACTED]"

// Command creates the config command with show and save subcommands.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write the effective configuration",
	}
	cmd.AddCommand(showCommand(), saveCommand())
	return cmd
}

func showCommand() *cobra.Command {
	var reveal bool

	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML, secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := *conf.GetSettings()
			if !reveal {
				redactSecrets(&settings)
			}
			data, err := yaml.Marshal(&settings)
			if err != nil {
				return fmt.Errorf("error marshaling settings: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func saveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "save PATH",
		Short: "Write the effective configuration to PATH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conf.SaveYAMLConfig(args[0], conf.GetSettings()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", args[0])
			return nil
		},
	}
}

// redactSecrets blanks passwords and tokens on a copy of the settings.
func redactSecrets(s *conf.Settings) {
	for _, p := range []*string{
		&s.Output.MySQL.Password,
		&s.Output.Postgres.Password,
		&s.MQTT.Password,
		&s.API.Token,
		&s.Sentry.DSN,
		&s.Notification.Shoutrrr.URLTemplate,
	} {
		if *p != "" {
			*p = redacted
		}
	}
	if len(s.Notification.Webhook.Headers) > 0 {
		headers := make(map[string]string, len(s.Notification.Webhook.Headers))
		for k := range s.Notification.Webhook.Headers {
			headers[k] = redacted
		}
		s.Notification.Webhook.Headers = headers
	}
}
