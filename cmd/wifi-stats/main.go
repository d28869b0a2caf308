package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/networmix/ee500-wifi/internal/config"
	"github.com/networmix/ee500-wifi/internal/logger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string

	restoreLog func()
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "wifi-stats",
		Short:         "Aggregate and export the statistics of Wi-Fi experiment runs.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := o.logLevel
			if level == "" {
				level = "info"
			}
			return o.initLogging(config.LogConfig{Level: level})
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if o.restoreLog != nil {
				o.restoreLog()
				o.restoreLog = nil
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", defaultConfigPath,
		"Path to the YAML configuration file.")
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "",
		"Log level (debug, info, warn, error). Overrides log.level from the config.")

	cmd.AddCommand(newAnalyzeCmd(o), newReportCmd(o), newServeCmd(o))
	return cmd
}

// loadConfig reads the config file and switches logging to its settings.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config %s", o.configPath)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := o.initLogging(cfg.Log); err != nil {
		return nil, err
	}
	zap.L().Info("Configuration loaded", zap.String("path", o.configPath), zap.String("run", cfg.Run.RunID))
	return cfg, nil
}

func (o *rootOptions) initLogging(lc config.LogConfig) error {
	if o.restoreLog != nil {
		o.restoreLog()
	}
	restore, err := logger.Init(lc)
	if err != nil {
		return err
	}
	o.restoreLog = restore
	return nil
}
