// Package telemetry wires opt-in error reporting to Sentry.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/ppewatch/internal/buildinfo"
	"github.com/tphakala/ppewatch/internal/conf"
	"github.com/tphakala/ppewatch/internal/errors"
	"github.com/tphakala/ppewatch/internal/logger"
)

const flushTimeout = 2 * time.Second

// InitSentry initializes the Sentry SDK and installs the error reporter.
// It does nothing unless telemetry is explicitly enabled.
func InitSentry(settings *conf.Settings, build *buildinfo.Context) error {
	log := GetLogger()
	if !settings.Sentry.Enabled {
		log.Debug("sentry telemetry is disabled")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      settings.Sentry.Environment,
		ServerName:       "",
		Release:          build.Release(),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	log.Info("sentry telemetry initialized",
		logger.String("environment", settings.Sentry.Environment),
		logger.String("release", build.Release()))
	return nil
}

// Flush waits for buffered events to be sent and detaches the reporter.
func Flush() {
	if errors.GetTelemetryReporter() == nil {
		return
	}
	if !sentry.Flush(flushTimeout) {
		GetLogger().Warn("sentry flush timed out", logger.Duration("timeout", flushTimeout))
	}
	errors.SetTelemetryReporter(nil)
}

// applyPrivacyFilters strips host and user identifying data. Worker ids and
// recipient chat ids never leave the host.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" && k != "category" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	event.Message = errors.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = errors.ScrubMessage(event.Exception[i].Value)
	}
	return event
}
