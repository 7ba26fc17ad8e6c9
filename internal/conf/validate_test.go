package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_AreValid(t *testing.T) {
	s := defaultSettings(t)

	require.NoError(t, ValidateSettings(s))
	assert.InDelta(t, 0.3, s.Detection.Threshold, 1e-9)
	assert.Equal(t, AssignmentPermissive, s.Detection.Assignment)
	assert.Equal(t, 10*time.Second, s.Notification.PollInterval)
	assert.Equal(t, 100*time.Millisecond, s.Notification.BroadcastDelay)
	assert.Equal(t, DefaultHelmetLabels, s.Detection.Synonyms.Helmet)
	assert.Equal(t, "info", s.Logging.DefaultLevel)
	assert.True(t, s.Output.SQLite.Enabled)
	assert.False(t, s.Notification.Enabled, "notifications need admin recipients before they can be enabled")
}

func TestValidateSettings_CollectsAllErrors(t *testing.T) {
	s := defaultSettings(t)
	s.Detection.Threshold = 1.5
	s.Detection.Assignment = "greedy"
	s.Pipeline.Workers = 0
	s.Output.MySQL.Enabled = true
	s.Report.Schedule = "every tuesday"

	err := ValidateSettings(s)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 4)
	assert.Contains(t, err.Error(), "threshold")
	assert.Contains(t, err.Error(), "exactly one database backend")
	assert.Contains(t, err.Error(), "invalid schedule")
}

func TestValidateNotificationSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*NotificationSettings)
		wantErr string
	}{
		{"valid", func(*NotificationSettings) {}, ""},
		{"enabled without admins", func(n *NotificationSettings) { n.AdminRecipients = nil }, "adminrecipient"},
		{"zero poll interval", func(n *NotificationSettings) { n.PollInterval = 0 }, "pollinterval"},
		{"shoutrrr without template", func(n *NotificationSettings) {
			n.Shoutrrr.Enabled = true
			n.Shoutrrr.URLTemplate = "telegram://token@telegram"
		}, "urltemplate"},
		{"webhook without url", func(n *NotificationSettings) { n.Webhook.Enabled = true }, "webhook url"},
		{"disabled skips checks", func(n *NotificationSettings) {
			n.Enabled = false
			n.PollInterval = 0
			n.AdminRecipients = nil
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := defaultSettings(t)
			s.Notification.Enabled = true
			s.Notification.AdminRecipients = []string{"admin-1"}
			tt.mutate(&s.Notification)
			err := validateNotificationSettings(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvValidators(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateEnvConfidence("0.45"))
	assert.Error(t, validateEnvConfidence("1.2"))
	assert.Error(t, validateEnvConfidence("high"))
	assert.NoError(t, validateEnvAssignment(AssignmentStrict))
	assert.Error(t, validateEnvAssignment("loose"))
	assert.NoError(t, validateEnvDuration("15s"))
	assert.Error(t, validateEnvDuration("-1s"))
	assert.NoError(t, validateEnvURL("tcp://broker:1883"))
	assert.Error(t, validateEnvURL("broker"))
	assert.Error(t, validateEnvBool("maybe"))
}

func TestSaveYAMLConfig_RoundTrip(t *testing.T) {
	s := defaultSettings(t)
	s.Pipeline.Location = "Gate-7"
	path := t.TempDir() + "/config.yaml"

	require.NoError(t, SaveYAMLConfig(path, s))
	assert.FileExists(t, path)
}
