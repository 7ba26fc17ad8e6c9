// config.go: settings struct for ppewatch and functions to load and save it.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/ppewatch/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Assignment modes for matching equipment to persons
const (
	AssignmentPermissive = "permissive" // one item may satisfy several persons
	AssignmentStrict     = "strict"     // each item satisfies at most one person
)

// SynonymSettings holds the raw label patterns for each detection category.
// Matching is case-insensitive substring containment.
type SynonymSettings struct {
	Helmet    []string `yaml:"helmet"`
	Person    []string `yaml:"person"`
	NoHelmet  []string `yaml:"nohelmet"`
	Vest      []string `yaml:"vest"`
	NoVest    []string `yaml:"novest"`
	Goggles   []string `yaml:"goggles"`
	NoGoggles []string `yaml:"nogoggles"`
}

// DetectionSettings controls how raw detector output is interpreted
type DetectionSettings struct {
	Threshold  float64         `yaml:"threshold"`  // minimum detection confidence
	Assignment string          `yaml:"assignment"` // permissive or strict
	Synonyms   SynonymSettings `yaml:"synonyms"`
}

// PipelineSettings controls the frame processing loop
type PipelineSettings struct {
	Source      string `yaml:"source"`      // JSON lines file, "-" for stdin
	Workers     int    `yaml:"workers"`     // concurrent frame evaluators
	FrameStride int    `yaml:"framestride"` // evaluate every Nth frame
	StatusEvery int    `yaml:"statusevery"` // log session status every N evaluated frames
	Location    string `yaml:"location"`    // default location when a frame has none
	CameraID    string `yaml:"cameraid"`    // default camera id when a frame has none
}

// SQLiteSettings contains settings for the SQLite database
type SQLiteSettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MySQLSettings contains settings for the MySQL database
type MySQLSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Database string `yaml:"database"`

	PasswordFile string `yaml:"passwordfile,omitempty"` // overrides Password when set
}

// PostgresSettings contains settings for the PostgreSQL database
type PostgresSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`

	PasswordFile string `yaml:"passwordfile,omitempty"`
}

// OutputSettings selects the violation store backend. Exactly one must be enabled.
type OutputSettings struct {
	SQLite   SQLiteSettings   `yaml:"sqlite"`
	MySQL    MySQLSettings    `yaml:"mysql"`
	Postgres PostgresSettings `yaml:"postgres"`
}

// ShoutrrrSettings configures push delivery. URLTemplate is a text/template
// rendered with {{.Recipient}}, e.g. telegram://token@telegram?chats={{.Recipient}}
type ShoutrrrSettings struct {
	Enabled     bool          `yaml:"enabled"`
	URLTemplate string        `yaml:"urltemplate"`
	Timeout     time.Duration `yaml:"timeout"`
}

// WebhookSettings configures JSON webhook delivery
type WebhookSettings struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// NotificationSettings controls the dispatcher and admin broadcasts
type NotificationSettings struct {
	Enabled         bool             `yaml:"enabled"`
	PollInterval    time.Duration    `yaml:"pollinterval"`    // dispatcher tick
	BatchLimit      int              `yaml:"batchlimit"`      // max records per dispatch cycle, 0 = unlimited
	AdminRecipients []string         `yaml:"adminrecipients"` // always notified of every violation
	BroadcastDelay  time.Duration    `yaml:"broadcastdelay"`  // pause between broadcast sends
	RecipientTTL    time.Duration    `yaml:"recipientttl"`    // recipient directory cache lifetime
	Shoutrrr        ShoutrrrSettings `yaml:"shoutrrr"`
	Webhook         WebhookSettings  `yaml:"webhook"`
}

// MQTTSettings contains settings for publishing violation events
type MQTTSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"clientid"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Retain   bool   `yaml:"retain"`

	PasswordFile string `yaml:"passwordfile,omitempty"`
}

// ReportSettings controls the scheduled violation report
type ReportSettings struct {
	Schedule   string `yaml:"schedule"`   // cron expression, empty disables
	WindowDays int    `yaml:"windowdays"` // trailing window for scheduled reports
}

// APISettings controls the admin HTTP API
type APISettings struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Token   string `yaml:"token"` // bearer token for write endpoints

	TokenFile string `yaml:"tokenfile,omitempty"`
}

// MetricsSettings controls the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// SentrySettings contains error telemetry settings
type SentrySettings struct {
	Enabled     bool   `yaml:"enabled"`
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

// Settings is the root configuration
type Settings struct {
	Debug bool `yaml:"debug"`

	Main struct {
		Name string `yaml:"name"`
	} `yaml:"main"`

	Logging      logger.LoggingConfig `yaml:"logging"`
	Detection    DetectionSettings    `yaml:"detection"`
	Pipeline     PipelineSettings     `yaml:"pipeline"`
	Output       OutputSettings       `yaml:"output"`
	Notification NotificationSettings `yaml:"notification"`
	MQTT         MQTTSettings         `yaml:"mqtt"`
	Report       ReportSettings       `yaml:"report"`
	API          APISettings          `yaml:"api"`
	Metrics      MetricsSettings      `yaml:"metrics"`
	Sentry       SentrySettings       `yaml:"sentry"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file, environment and defaults into Settings
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	// .env is optional; a missing file is not an error
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		GetLogger().Warn("failed to load .env file", logger.Error(err))
	}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, fmt.Errorf("error resolving credentials: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return fmt.Errorf("error getting default config paths: %w", err)
		}
		for _, path := range configPaths {
			viper.AddConfigPath(path)
		}
	}

	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		GetLogger().Warn("environment configuration issues", logger.Error(err))
	}

	err := viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config to the first config path
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath atomically.
// Comments and ordering of the existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}
