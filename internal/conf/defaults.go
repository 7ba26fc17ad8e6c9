// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default synonym lists for raw detector labels
var (
	DefaultHelmetLabels    = []string{"helmet", "hardhat", "safety helmet", "safety_helmet", "hard hat", "hat"}
	DefaultPersonLabels    = []string{"person", "worker", "human"}
	DefaultNoHelmetLabels  = []string{"no-helmet", "no_helmet", "without_helmet", "head"}
	DefaultVestLabels      = []string{"vest", "safety vest", "safety_vest", "hi-vis", "high-vis", "reflective vest", "hi_vis"}
	DefaultNoVestLabels    = []string{"no-vest", "no_vest", "without_vest"}
	DefaultGogglesLabels   = []string{"goggles", "safety goggles", "safety_goggles", "glasses", "eye protection", "eye_protection"}
	DefaultNoGogglesLabels = []string{"no-goggles", "no_goggles", "without_goggles"}
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)
	viper.SetDefault("main.name", "ppewatch")

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/ppewatch.log")
	viper.SetDefault("logging.file_output.level", "info")

	viper.SetDefault("detection.threshold", 0.3)
	viper.SetDefault("detection.assignment", AssignmentPermissive)
	viper.SetDefault("detection.synonyms.helmet", DefaultHelmetLabels)
	viper.SetDefault("detection.synonyms.person", DefaultPersonLabels)
	viper.SetDefault("detection.synonyms.nohelmet", DefaultNoHelmetLabels)
	viper.SetDefault("detection.synonyms.vest", DefaultVestLabels)
	viper.SetDefault("detection.synonyms.novest", DefaultNoVestLabels)
	viper.SetDefault("detection.synonyms.goggles", DefaultGogglesLabels)
	viper.SetDefault("detection.synonyms.nogoggles", DefaultNoGogglesLabels)

	viper.SetDefault("pipeline.source", "-")
	viper.SetDefault("pipeline.workers", 4)
	viper.SetDefault("pipeline.framestride", 1)
	viper.SetDefault("pipeline.statusevery", 30)
	viper.SetDefault("pipeline.location", "Main Entrance")
	viper.SetDefault("pipeline.cameraid", "camera-1")

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "ppewatch.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
	viper.SetDefault("output.postgres.enabled", false)
	viper.SetDefault("output.postgres.host", "localhost")
	viper.SetDefault("output.postgres.port", "5432")
	viper.SetDefault("output.postgres.sslmode", "disable")

	viper.SetDefault("notification.enabled", false)
	viper.SetDefault("notification.pollinterval", 10*time.Second)
	viper.SetDefault("notification.batchlimit", 0)
	viper.SetDefault("notification.adminrecipients", []string{})
	viper.SetDefault("notification.broadcastdelay", 100*time.Millisecond)
	viper.SetDefault("notification.recipientttl", 5*time.Minute)
	viper.SetDefault("notification.shoutrrr.enabled", false)
	viper.SetDefault("notification.shoutrrr.timeout", 10*time.Second)
	viper.SetDefault("notification.webhook.enabled", false)
	viper.SetDefault("notification.webhook.timeout", 10*time.Second)

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "ppewatch/violations")
	viper.SetDefault("mqtt.clientid", "ppewatch")
	viper.SetDefault("mqtt.retain", false)

	viper.SetDefault("report.schedule", "")
	viper.SetDefault("report.windowdays", 7)

	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.listen", "127.0.0.1:8080")

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen", "127.0.0.1:9090")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.environment", "production")
}
