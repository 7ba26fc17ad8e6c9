package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSecrets(t *testing.T) {
	t.Setenv("PPE_TEST_MQTT_PASS", "mqtt-pass")
	t.Setenv("PPE_TEST_HOOK_KEY", "hook-key")

	tokenPath := filepath.Join(t.TempDir(), "api-token")
	require.NoError(t, os.WriteFile(tokenPath, []byte("file-token\n"), 0o600))

	s := defaultSettings(t)
	s.MQTT.Password = "${PPE_TEST_MQTT_PASS}"
	s.API.Token = "inline-ignored"
	s.API.TokenFile = tokenPath
	s.Output.MySQL.Password = "pa$word"
	s.Notification.Webhook.Headers = map[string]string{"X-Key": "${PPE_TEST_HOOK_KEY}"}

	require.NoError(t, resolveSecrets(s))
	assert.Equal(t, "mqtt-pass", s.MQTT.Password)
	assert.Equal(t, "file-token", s.API.Token)
	assert.Equal(t, "pa$word", s.Output.MySQL.Password)
	assert.Equal(t, "hook-key", s.Notification.Webhook.Headers["X-Key"])
}

func TestResolveSecrets_MissingVariable(t *testing.T) {
	s := defaultSettings(t)
	s.Output.Postgres.Password = "${PPE_TEST_DEFINITELY_UNSET}"

	err := resolveSecrets(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output.postgres.password")
}
