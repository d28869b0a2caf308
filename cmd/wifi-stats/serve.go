package main

import (
	"context"
	"time"

	"github.com/networmix/ee500-wifi/internal/api"
	"github.com/networmix/ee500-wifi/internal/export"
	"github.com/networmix/ee500-wifi/internal/probe"
	"github.com/networmix/ee500-wifi/internal/query"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

var (
	serveShort = "Serve run results over HTTP."
	serveLong  = `
		Start the HTTP API. It serves the latest result, which is preloaded from a
		file (--from) and replaced by every export received on the NATS subject
		(--subscribe). Stored runs are listed and loaded from ClickHouse when a
		clickhouse writer is enabled. Prometheus metrics are served on /metrics.`
)

type serveFlags struct {
	From      string
	Subscribe bool
}

func newServeCmd(root *rootOptions) *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShort,
		Long:  serveLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.run(cmd.Context(), root)
		},
	}

	cmd.Flags().StringVar(&flags.From, "from", "", "Export file to serve until another result arrives.")
	cmd.Flags().BoolVar(&flags.Subscribe, "subscribe", false, "Receive exports published on the NATS subject.")
	return cmd
}

func (f *serveFlags) run(ctx context.Context, root *rootOptions) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	var loader query.Loader
	if ch, ok := cfg.ClickHouse(); ok {
		loader, err = query.NewClickHouseLoader(*ch)
		if err != nil {
			zap.L().Warn("ClickHouse unavailable, stored runs are disabled", zap.Error(err))
			loader = nil
		} else {
			defer loader.Close()
		}
	}

	srv := api.NewServer(cfg.API.ListenAddr, loader)

	if f.From != "" {
		fe, err := export.Load(f.From)
		if err != nil {
			return err
		}
		srv.SetExport(fe)
	}

	if f.Subscribe {
		if cfg.NATS.URL == "" {
			return errors.New("--subscribe needs nats.url in the config")
		}
		sub, err := probe.NewSubscriber(cfg.NATS)
		if err != nil {
			return err
		}
		defer sub.Close()
		if err := sub.Start(srv.SetExport); err != nil {
			return err
		}
	}

	srv.Start()
	<-ctx.Done()
	zap.L().Info("API server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}
	zap.L().Info("API server exited")
	return nil
}
