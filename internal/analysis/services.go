// Package analysis wires the store, delivery backend, pipeline and
// background services into the long running commands.
package analysis

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/tphakala/ppewatch/internal/conf"
	"github.com/tphakala/ppewatch/internal/datastore"
	"github.com/tphakala/ppewatch/internal/detection"
	"github.com/tphakala/ppewatch/internal/errors"
	"github.com/tphakala/ppewatch/internal/logger"
	"github.com/tphakala/ppewatch/internal/notification"
	"github.com/tphakala/ppewatch/internal/observability"
	"github.com/tphakala/ppewatch/internal/observability/metrics"
)

// Services holds the shared components of one process.
type Services struct {
	Settings  *conf.Settings
	Store     datastore.Interface
	Metrics   *observability.Metrics // nil when metrics are disabled
	Sender    notification.Sender
	Directory *notification.Directory
	log       logger.Logger
}

// NewServices opens the configured store and builds the delivery backend.
// Metrics are created only when enabled in settings.
func NewServices(settings *conf.Settings) (*Services, error) {
	s := &Services{Settings: settings, log: GetLogger()}

	if settings.Metrics.Enabled {
		m, err := observability.NewMetrics()
		if err != nil {
			return nil, errors.New(err).Component("analysis").Category(errors.CategoryConfiguration).Build()
		}
		s.Metrics = m
	}

	store, err := OpenStore(settings, s.datastoreMetrics())
	if err != nil {
		return nil, err
	}
	s.Store = store

	sender, err := notification.NewSender(&settings.Notification)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	s.Sender = sender
	s.Directory = notification.NewDirectory(store, settings.Notification.RecipientTTL, s.NotificationMetrics())
	return s, nil
}

// OpenStore creates and opens the configured store.
func OpenStore(settings *conf.Settings, m *metrics.DatastoreMetrics) (datastore.Interface, error) {
	store, err := datastore.New(settings)
	if err != nil {
		return nil, err
	}
	if err := store.Open(); err != nil {
		return nil, err
	}
	if ms, ok := store.(interface{ SetMetrics(*datastore.Metrics) }); ok && m != nil {
		ms.SetMetrics(m)
	}
	return store, nil
}

func (s *Services) datastoreMetrics() *metrics.DatastoreMetrics {
	if s.Metrics == nil {
		return nil
	}
	return s.Metrics.Datastore
}

// NotificationMetrics returns the notification collector or nil.
func (s *Services) NotificationMetrics() *metrics.NotificationMetrics {
	if s.Metrics == nil {
		return nil
	}
	return s.Metrics.Notification
}

// PipelineMetrics returns the pipeline collector or nil.
func (s *Services) PipelineMetrics() *metrics.PipelineMetrics {
	if s.Metrics == nil {
		return nil
	}
	return s.Metrics.Pipeline
}

// MQTTMetrics returns the MQTT collector or nil.
func (s *Services) MQTTMetrics() *metrics.MQTTMetrics {
	if s.Metrics == nil {
		return nil
	}
	return s.Metrics.MQTT
}

// NewDispatcher builds the violation dispatcher from notification settings.
func (s *Services) NewDispatcher() *notification.Dispatcher {
	n := &s.Settings.Notification
	return notification.NewDispatcher(s.Store, s.Sender,
		notification.WithAdmins(n.AdminRecipients...),
		notification.WithPollInterval(n.PollInterval),
		notification.WithBatchLimit(n.BatchLimit),
		notification.WithSendDelay(n.BroadcastDelay),
		notification.WithDirectory(s.Directory),
		notification.WithMetrics(s.NotificationMetrics()),
	)
}

// NewBroadcaster builds the admin broadcaster.
func (s *Services) NewBroadcaster() *notification.Broadcaster {
	return notification.NewBroadcaster(s.Store, s.Sender, s.Directory,
		s.Settings.Notification.BroadcastDelay, s.NotificationMetrics())
}

// SendToAdmins delivers text to every configured admin recipient. Failures
// are logged.
func (s *Services) SendToAdmins(ctx context.Context, text string) {
	for _, admin := range s.Settings.Notification.AdminRecipients {
		sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := s.Sender.Send(sendCtx, admin, text); err != nil {
			s.log.Warn("failed to deliver report to admin", logger.Error(err))
		}
		cancel()
	}
}

// Close releases the store.
func (s *Services) Close() error {
	if s.Store == nil {
		return nil
	}
	return s.Store.Close()
}

// OpenSource opens a JSON lines detection stream; "-" or "" reads stdin.
func OpenSource(path string) (detection.Source, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		return detection.NewJSONLSource(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("analysis").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return detection.NewJSONLSource(f), nil
}
