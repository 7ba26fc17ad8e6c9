// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateDetectionSettings,
		validatePipelineSettings,
		validateOutputSettings,
		validateNotificationSettings,
		validateMQTTSettings,
		validateReportSettings,
		validateListenSettings,
	}
	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateDetectionSettings(s *Settings) error {
	var errs []string
	d := &s.Detection

	if d.Threshold < 0 || d.Threshold > 1 {
		errs = append(errs, "detection threshold must be between 0 and 1")
	}
	switch d.Assignment {
	case AssignmentPermissive, AssignmentStrict:
	default:
		errs = append(errs, fmt.Sprintf("detection assignment must be %q or %q", AssignmentPermissive, AssignmentStrict))
	}
	if len(d.Synonyms.Person) == 0 {
		errs = append(errs, "at least one person label is required")
	}

	return joinErrs("detection", errs)
}

func validatePipelineSettings(s *Settings) error {
	var errs []string
	p := &s.Pipeline

	if p.Workers < 1 {
		errs = append(errs, "workers must be at least 1")
	}
	if p.FrameStride < 1 {
		errs = append(errs, "framestride must be at least 1")
	}
	if p.StatusEvery < 0 {
		errs = append(errs, "statusevery must not be negative")
	}

	return joinErrs("pipeline", errs)
}

func validateOutputSettings(s *Settings) error {
	var errs []string
	o := &s.Output

	enabled := 0
	for _, on := range []bool{o.SQLite.Enabled, o.MySQL.Enabled, o.Postgres.Enabled} {
		if on {
			enabled++
		}
	}
	if enabled != 1 {
		errs = append(errs, fmt.Sprintf("exactly one database backend must be enabled, found %d", enabled))
	}
	if o.SQLite.Enabled && o.SQLite.Path == "" {
		errs = append(errs, "sqlite path is required")
	}
	if o.MySQL.Enabled && (o.MySQL.Host == "" || o.MySQL.Database == "") {
		errs = append(errs, "mysql host and database are required")
	}
	if o.Postgres.Enabled && (o.Postgres.Host == "" || o.Postgres.Database == "") {
		errs = append(errs, "postgres host and database are required")
	}

	return joinErrs("output", errs)
}

func validateNotificationSettings(s *Settings) error {
	var errs []string
	n := &s.Notification

	if !n.Enabled {
		return nil
	}
	if len(n.AdminRecipients) == 0 {
		errs = append(errs, "at least one adminrecipient is required when notifications are enabled")
	}
	if n.PollInterval <= 0 {
		errs = append(errs, "pollinterval must be positive")
	}
	if n.BatchLimit < 0 {
		errs = append(errs, "batchlimit must not be negative")
	}
	if n.BroadcastDelay < 0 {
		errs = append(errs, "broadcastdelay must not be negative")
	}
	if n.Shoutrrr.Enabled && !strings.Contains(n.Shoutrrr.URLTemplate, "{{") {
		errs = append(errs, "shoutrrr urltemplate must reference {{.Recipient}}")
	}
	if n.Webhook.Enabled && n.Webhook.URL == "" {
		errs = append(errs, "webhook url is required when webhook is enabled")
	}

	return joinErrs("notification", errs)
}

func validateMQTTSettings(s *Settings) error {
	if !s.MQTT.Enabled {
		return nil
	}
	var errs []string
	if s.MQTT.Broker == "" {
		errs = append(errs, "broker is required")
	}
	if s.MQTT.Topic == "" {
		errs = append(errs, "topic is required")
	}
	return joinErrs("mqtt", errs)
}

func validateReportSettings(s *Settings) error {
	var errs []string
	if s.Report.WindowDays < 1 {
		errs = append(errs, "windowdays must be at least 1")
	}
	if s.Report.Schedule != "" {
		if _, err := cron.ParseStandard(s.Report.Schedule); err != nil {
			errs = append(errs, fmt.Sprintf("invalid schedule %q: %v", s.Report.Schedule, err))
		}
	}
	return joinErrs("report", errs)
}

func validateListenSettings(s *Settings) error {
	var errs []string
	if s.API.Enabled {
		if _, _, err := net.SplitHostPort(s.API.Listen); err != nil {
			errs = append(errs, fmt.Sprintf("api listen address %q: %v", s.API.Listen, err))
		}
	}
	if s.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(s.Metrics.Listen); err != nil {
			errs = append(errs, fmt.Sprintf("metrics listen address %q: %v", s.Metrics.Listen, err))
		}
	}
	return joinErrs("listen", errs)
}

func joinErrs(section string, errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s settings: %s", section, strings.Join(errs, "; "))
}
