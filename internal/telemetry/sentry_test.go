package telemetry

import (
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"

	"github.com/tphakala/ppewatch/internal/buildinfo"
	"github.com/tphakala/ppewatch/internal/conf"
	"github.com/tphakala/ppewatch/internal/errors"
)

func TestApplyPrivacyFilters(t *testing.T) {
	t.Parallel()

	event := sentry.NewEvent()
	event.User = sentry.User{ID: "operator", IPAddress: "10.0.0.5"}
	event.ServerName = "gate-host"
	event.Contexts = map[string]sentry.Context{"os": {"name": "linux"}, "violation": {"value": 7}}
	event.Extra = map[string]any{"component": "notification", "chat_id": "12345"}
	event.Tags = map[string]string{"hostname": "gate-host", "category": "delivery"}
	event.Message = "send failed: https://api.example.com/send?token=abc chat_id=987654"

	out := applyPrivacyFilters(event)

	assert.Empty(t, out.User.ID)
	assert.Empty(t, out.ServerName)
	assert.NotContains(t, out.Contexts, "os")
	assert.Contains(t, out.Contexts, "violation")
	assert.Equal(t, map[string]any{"component": "notification"}, out.Extra)
	assert.NotContains(t, out.Tags, "hostname")
	assert.NotContains(t, out.Message, "abc")
	assert.NotContains(t, out.Message, "987654")
}

func TestInitSentry_DisabledIsNoop(t *testing.T) {
	settings := &conf.Settings{}
	assert.NoError(t, InitSentry(settings, buildinfo.NewContext("1.0.0", "")))
	assert.Nil(t, errors.GetTelemetryReporter())
	Flush()
}
