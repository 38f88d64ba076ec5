package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sanonone/kektorgraph/internal/config"
)

var (
	configPath string
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "kektorgraph",
	Short:         "Distributed edge storage and traversal cursor",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		return setupLogging(cfg.Log)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML configuration file.")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level (debug, info, warn, error).")
}

// setupLogging installs the default slog logger. Logs go to stderr so that
// stdout stays free for command output and the MCP stdio transport.
func setupLogging(lc config.LogConfig) error {
	level, err := lc.SlogLevel()
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch lc.Format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "", "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unknown log format %q", lc.Format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
