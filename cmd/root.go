package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/ppewatch/cmd/broadcast"
	configcmd "github.com/tphakala/ppewatch/cmd/config"
	"github.com/tphakala/ppewatch/cmd/dispatch"
	"github.com/tphakala/ppewatch/cmd/monitor"
	"github.com/tphakala/ppewatch/cmd/notify"
	"github.com/tphakala/ppewatch/cmd/recipients"
	"github.com/tphakala/ppewatch/cmd/report"
	"github.com/tphakala/ppewatch/internal/buildinfo"
	"github.com/tphakala/ppewatch/internal/conf"
	"github.com/tphakala/ppewatch/internal/logger"
	"github.com/tphakala/ppewatch/internal/telemetry"
)

// RootCommand creates and returns the root command
func RootCommand(build *buildinfo.Context) *cobra.Command {
	var (
		configFile string
		debug      bool
	)

	rootCmd := &cobra.Command{
		Use:           "ppewatch",
		Short:         "PPE compliance monitor",
		Long:          "ppewatch checks detector output for missing helmets, vests and goggles, stores violations and notifies workers and admins.",
		Version:       build.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config.yaml (default: search standard locations)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output")

	rootCmd.AddCommand(
		monitor.Command(build),
		dispatch.Command(build),
		report.Command(),
		broadcast.Command(),
		recipients.Command(),
		notify.Command(),
		configcmd.Command(),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			viper.Set("config", configFile)
		}
		settings, err := conf.Load()
		if err != nil {
			return err
		}
		if debug {
			settings.Debug = true
		}
		if err := initLogging(settings); err != nil {
			return err
		}
		return telemetry.InitSentry(settings, build)
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		telemetry.Flush()
		_ = logger.Global().Flush()
	}

	return rootCmd
}

// initLogging installs the central logger configured in settings.
func initLogging(settings *conf.Settings) error {
	cfg := settings.Logging
	if settings.Debug {
		cfg.DefaultLevel = "debug"
		if cfg.Console != nil {
			console := *cfg.Console
			console.Level = "debug"
			cfg.Console = &console
		}
	}
	cl, err := logger.NewCentralLogger(&cfg)
	if err != nil {
		return fmt.Errorf("error initializing logging: %w", err)
	}
	logger.SetGlobal(cl)
	return nil
}
