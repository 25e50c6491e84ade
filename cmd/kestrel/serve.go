// Copyright 2026 Kestrel Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/api"
	"github.com/kestrelhq/kestrel/chain"
	"github.com/kestrelhq/kestrel/database"
	"github.com/kestrelhq/kestrel/event"
	"github.com/kestrelhq/kestrel/internal/config"
	"github.com/kestrelhq/kestrel/transfer"
)

func serveRun(_ *cobra.Command, _ []string, cfg *config.Config) {
	logger := commonRun()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(
			collectors.ProcessCollectorOpts{},
		),
	)

	db, err := database.New(cfg.DatabasePath, logger)
	if err != nil {
		slog.Error(fmt.Sprintf("failed to open database: %s", err))
		os.Exit(1)
	}
	defer db.Close()

	chainClient := chain.NewClient(
		chain.ClientConfig{
			URL: cfg.NodeURL,
			ExpireIn: time.Duration(
				cfg.ExpireInSeconds,
			) * time.Second,
			MaxAttempts: cfg.RetryAttempts,
		},
		chain.NewConfigCache(),
		logger,
		promRegistry,
	)

	eventBus := event.NewEventBus(promRegistry)
	defer eventBus.Stop()
	eventBus.SubscribeFunc(
		event.OperationCompletedEventType,
		func(evt event.Event) {
			if data, ok := evt.Data.(event.OperationEvent); ok {
				logger.Info(
					"operation completed",
					"operationId", data.OperationID,
					"txId", data.TxID,
					"assetId", data.AssetID,
				)
			}
		},
	)

	transfers := transfer.New(db, chainClient, eventBus, logger)

	apiServer := api.New(
		api.Config{
			ListenAddress: fmt.Sprintf(
				"%s:%d",
				cfg.BindAddr,
				cfg.Port,
			),
		},
		db,
		transfers,
		chainClient,
		logger,
		promRegistry,
	)
	if err := apiServer.Start(ctx); err != nil {
		slog.Error(fmt.Sprintf("failed to start REST API: %s", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort),
		Handler: promhttp.HandlerFor(
			promRegistry,
			promhttp.HandlerOpts{},
		),
		ReadHeaderTimeout: 60 * time.Second,
	}
	go func() {
		logger.Info(
			"metrics listener started on " + metricsServer.Addr,
		)
		if err := metricsServer.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			slog.Error(
				fmt.Sprintf("metrics listener failed: %s", err),
			)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownTimeout, err := time.ParseDuration(cfg.ShutdownTimeout)
	if err != nil {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		shutdownTimeout,
	)
	defer cancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error(
			"failed to stop REST API server",
			"error", err,
		)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(
			"failed to stop metrics listener",
			"error", err,
		)
	}
	logger.Info("shutdown complete")
}

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the wallet integration service",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			serveRun(cmd, args, cfg)
		},
	}
	return cmd
}
