package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"uncertaintymap/internal/logger"
	"uncertaintymap/internal/metrics"
	"uncertaintymap/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "uncertaintymap",
	Short: "uncertaintymap samples uncertainty volumes onto surfaces",
	Long: `uncertaintymap loads a 3D uncertainty volume, finds scan planes covering
its most uncertain voxels, and maps the uncertainty onto a probe surface and a
spherical texture.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "config.yaml", "YAML configuration file (defaults are used when missing)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides the config")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Write JSON logs instead of console output")
	rootCmd.PersistentFlags().String("metrics-file", "", "Write prometheus metrics to this file when the command ends")
}

// loadConfig reads the configuration named by --config
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("json-logs") {
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		cfg.Logging.Console = !jsonLogs
	}
	return cfg, nil
}

// newLogger builds the logger described by the configuration
func newLogger(cfg *config.Config) (logger.Logger, error) {
	return logger.New(cfg.Logging.Level, cfg.Logging.Console)
}

// writeMetrics dumps m to --metrics-file when set
func writeMetrics(cmd *cobra.Command, m *metrics.Metrics, log logger.Logger) {
	path, _ := cmd.Flags().GetString("metrics-file")
	if path == "" {
		return
	}
	if err := m.WriteTextfile(path); err != nil {
		log.Error("metrics", err, map[string]interface{}{"path": path})
		return
	}
	log.Debug("metrics", "Wrote metrics", map[string]interface{}{"path": path})
}
