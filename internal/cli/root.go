// Package cli implements the discharge-care commands.
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/rcliao/discharge-care/internal/config"
)

var (
	cfgPath  string
	logLevel string

	cfg    *config.Config
	logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "discharge-care",
	Short: "Post-discharge care assistant for nephrology patients",
	Long: "A receptionist and a clinical agent that follow up with patients after discharge.\n" +
		"Answers are grounded in a nephrology knowledge index built offline with ingest.",
	PersistentPreRunE: setup,
	SilenceUsage:      true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Config file (default: "+config.DefaultFile+" when present)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides log.level)")
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	level, err := log.ParseLevel(loaded.Log.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)
	logger.SetReportCaller(level == log.DebugLevel)
	log.SetDefault(logger)
	cfg = loaded
	return nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
