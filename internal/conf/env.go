// env.go - environment variable configuration and validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "PPEWATCH_DEBUG", validateEnvBool},
		{"detection.threshold", "PPEWATCH_DETECTION_THRESHOLD", validateEnvConfidence},
		{"detection.assignment", "PPEWATCH_DETECTION_ASSIGNMENT", validateEnvAssignment},

		{"pipeline.source", "PPEWATCH_SOURCE", nil},
		{"pipeline.location", "PPEWATCH_LOCATION", nil},

		{"output.sqlite.path", "PPEWATCH_SQLITE_PATH", nil},
		{"output.mysql.password", "PPEWATCH_MYSQL_PASSWORD", nil},
		{"output.postgres.password", "PPEWATCH_POSTGRES_PASSWORD", nil},

		{"notification.pollinterval", "PPEWATCH_POLL_INTERVAL", validateEnvDuration},
		{"notification.shoutrrr.urltemplate", "PPEWATCH_SHOUTRRR_URL", nil},
		{"notification.webhook.url", "PPEWATCH_WEBHOOK_URL", validateEnvURL},

		{"mqtt.broker", "PPEWATCH_MQTT_BROKER", validateEnvURL},
		{"mqtt.password", "PPEWATCH_MQTT_PASSWORD", nil},

		{"api.token", "PPEWATCH_API_TOKEN", nil},
		{"sentry.dsn", "PPEWATCH_SENTRY_DSN", validateEnvURL},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value: %v", binding.EnvVar, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvConfidence(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if f < 0 || f > 1 {
		return fmt.Errorf("must be between 0 and 1, got %v", f)
	}
	return nil
}

func validateEnvAssignment(value string) error {
	switch value {
	case AssignmentPermissive, AssignmentStrict:
		return nil
	}
	return fmt.Errorf("must be %q or %q", AssignmentPermissive, AssignmentStrict)
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("must be a duration such as 10s")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" {
		return fmt.Errorf("must be an absolute URL")
	}
	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvPrefix("PPEWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	return bindEnvVars()
}
