package conf

import (
	"fmt"

	"github.com/tphakala/ppewatch/internal/secrets"
)

// resolveSecrets replaces credential fields with their resolved values.
// A *File field takes precedence over the inline value; inline values may
// reference environment variables as ${VAR}.
func resolveSecrets(s *Settings) error {
	fields := []struct {
		name   string
		file   string
		target *string
	}{
		{"output.mysql.password", s.Output.MySQL.PasswordFile, &s.Output.MySQL.Password},
		{"output.postgres.password", s.Output.Postgres.PasswordFile, &s.Output.Postgres.Password},
		{"mqtt.password", s.MQTT.PasswordFile, &s.MQTT.Password},
		{"api.token", s.API.TokenFile, &s.API.Token},
		{"sentry.dsn", "", &s.Sentry.DSN},
		{"notification.shoutrrr.urltemplate", "", &s.Notification.Shoutrrr.URLTemplate},
		{"notification.webhook.url", "", &s.Notification.Webhook.URL},
	}

	for _, f := range fields {
		v, err := secrets.Resolve(f.file, *f.target)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.target = v
	}

	for k, v := range s.Notification.Webhook.Headers {
		expanded, err := secrets.Expand(v)
		if err != nil {
			return fmt.Errorf("notification.webhook.headers.%s: %w", k, err)
		}
		s.Notification.Webhook.Headers[k] = expanded
	}
	return nil
}
