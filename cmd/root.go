// Package cmd holds the fern command line: the HTTP server and the one-shot
// intake, mailbox, migration and maintenance commands.
package cmd

import (
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ramsey-B/fern/config"
)

// set with -ldflags "-X github.com/Ramsey-B/fern/cmd.version=..."
var version = "dev"

var (
	configPath string
	envFile    string

	cfg       *config.Config
	zapLogger *zap.Logger
	logger    ectologger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fern",
	Short: "Scheduled maintenance notification intake",
	Long: `fern reads carrier maintenance notifications, records them as scheduled tasks
linked to the affected services, and writes the customer notice for each task.

Notifications arrive through the HTTP API (serve), as files (ingest) or from an
IMAP mailbox (fetch-mail).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath, envFile)
		if err != nil {
			return err
		}

		zapLogger, err = newZapLogger(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = zapadapter.NewZapEctoLogger(zapLogger, nil)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if zapLogger != nil {
			_ = zapLogger.Sync()
		}
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		rootCmd.PrintErrln("Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	rootCmd.AddCommand(
		serveCmd,
		ingestCmd,
		fetchMailCmd,
		migrateCmd,
		overrideCarrierCmd,
		carrierCmd,
		serviceCmd,
		versionCmd,
	)
}

func newZapLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	zapConfig := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	return zapConfig.Build(zap.Fields(zap.String("app", cfg.AppName)))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the fern version",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version)
	},
}
