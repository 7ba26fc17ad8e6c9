package conf

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

// defaultSettings returns Settings populated from the viper defaults only
func defaultSettings(t *testing.T) *Settings {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	setDefaultConfig()
	s := &Settings{}
	require.NoError(t, viper.Unmarshal(s))
	return s
}
