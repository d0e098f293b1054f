package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/uhyunpark/hyperdex/params"
	"github.com/uhyunpark/hyperdex/pkg/api"
	"github.com/uhyunpark/hyperdex/pkg/app/dex"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Restore engine state and serve the REST API",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Priority: ENV > .env file > defaults
		cfg := params.LoadFromEnv(envPath)

		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()
		sugar := logger.Sugar()
		sugar.Infow("logger_initialized", "log_file", cfg.Log.File, "level", cfg.Log.Level)

		n, err := openNode(cfg, logger, true)
		if err != nil {
			sugar.Errorw("node_open_failed", "err", err)
			return err
		}
		defer n.Close()

		metrics := dex.NewMetrics()
		app := dex.NewApp(n.engine, metrics, logger)
		stats := app.Stats()
		sugar.Infow("node_starting",
			"open_orders", stats.OpenOrders,
			"tokens", len(stats.Tokens),
			"state_hash", stats.StateHash,
			"compaction", n.engine.Book.Compaction())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		server := api.NewServer(app, metrics, api.Options{
			CORSOrigins:  cfg.API.CORSOrigins,
			ReadTimeout:  cfg.API.ReadTimeout,
			WriteTimeout: cfg.API.WriteTimeout,
		}, logger)
		if err := server.Start(ctx, cfg.API.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Errorw("api_server_failed", "err", err)
			return err
		}
		sugar.Infow("node_stopped", "state_hash", app.StateHash().Hex())
		return nil
	},
}
