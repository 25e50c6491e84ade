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

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kestrelhq/kestrel/database"
	"github.com/kestrelhq/kestrel/transfer"
)

// Config holds the REST API listener configuration.
type Config struct {
	ListenAddress string
}

// Api is the wallet integration REST API server.
type Api struct {
	config       Config
	logger       *slog.Logger
	store        *database.Store
	transfers    *transfer.Orchestrator
	chain        transfer.ChainClient
	httpServer   *http.Server
	requestCount *prometheus.CounterVec
	mu           sync.Mutex
}

// New creates a new REST API server instance.
func New(
	cfg Config,
	store *database.Store,
	transfers *transfer.Orchestrator,
	chainClient transfer.ChainClient,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) *Api {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":5000"
	}
	a := &Api{
		config:    cfg,
		logger:    logger,
		store:     store,
		transfers: transfers,
		chain:     chainClient,
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kestrel_api_requests_total",
				Help: "Total REST API requests by method and status",
			},
			[]string{"method", "status"},
		),
	}
	if promRegistry != nil {
		promRegistry.MustRegister(a.requestCount)
	}
	return a
}

// Start starts the HTTP server in a background goroutine.
func (a *Api) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.httpServer != nil {
		a.mu.Unlock()
		return errors.New("server already started")
	}

	mux := http.NewServeMux()
	mux.HandleFunc(
		"POST /api/transactions/single",
		a.handleBuildSingle,
	)
	mux.HandleFunc(
		"POST /api/transactions/many-inputs",
		a.handleBuildManyInputs,
	)
	mux.HandleFunc(
		"POST /api/transactions/many-outputs",
		a.handleBuildManyOutputs,
	)
	mux.HandleFunc(
		"PUT /api/transactions",
		a.handleRebuild,
	)
	mux.HandleFunc(
		"POST /api/transactions/broadcast",
		a.handleBroadcast,
	)
	mux.HandleFunc(
		"GET /api/transactions/broadcast/single/{operationId}",
		a.handleGetSingle,
	)
	mux.HandleFunc(
		"GET /api/transactions/broadcast/many-inputs/{operationId}",
		a.handleGetManyInputs,
	)
	mux.HandleFunc(
		"GET /api/transactions/broadcast/many-outputs/{operationId}",
		a.handleGetManyOutputs,
	)
	mux.HandleFunc(
		"DELETE /api/transactions/broadcast/{operationId}",
		a.handleDeleteOperation,
	)
	mux.HandleFunc(
		"GET /api/transactions/history/{category}/{address}",
		a.handleHistory,
	)
	mux.HandleFunc(
		"POST /api/transactions/history/{category}/{address}/observation",
		a.handleHistoryObservation,
	)
	mux.HandleFunc(
		"DELETE /api/transactions/history/{category}/{address}/observation",
		a.handleHistoryObservation,
	)
	mux.HandleFunc(
		"GET /api/balances",
		a.handleBalances,
	)
	mux.HandleFunc(
		"GET /api/balances/{address}/{assetId}",
		a.handleBalance,
	)
	mux.HandleFunc(
		"POST /api/balances/{address}/observation",
		a.handleObserveAddress,
	)
	mux.HandleFunc(
		"DELETE /api/balances/{address}/observation",
		a.handleRemoveAddress,
	)
	mux.HandleFunc(
		"GET /api/assets",
		a.handleAssets,
	)
	mux.HandleFunc(
		"POST /api/assets",
		a.handleCreateAsset,
	)
	mux.HandleFunc(
		"GET /api/assets/{assetId}",
		a.handleAsset,
	)
	mux.HandleFunc(
		"GET /api/addresses/{address}/validity",
		a.handleAddressValidity,
	)
	mux.HandleFunc(
		"GET /api/addresses/{address}/explorer-url",
		a.handleExplorerURL,
	)
	mux.HandleFunc(
		"GET /api/capabilities",
		a.handleCapabilities,
	)
	mux.HandleFunc(
		"GET /api/constants",
		a.handleConstants,
	)
	mux.HandleFunc(
		"GET /api/isalive",
		a.handleIsAlive,
	)

	server := &http.Server{
		Addr:              a.config.ListenAddress,
		Handler:           a.countRequests(mux),
		ReadHeaderTimeout: 60 * time.Second,
	}
	a.httpServer = server
	a.mu.Unlock()

	if err := a.startServer(server); err != nil {
		a.mu.Lock()
		a.httpServer = nil
		a.mu.Unlock()
		return err
	}

	a.logger.Info(
		"REST API listener started on " + a.config.ListenAddress,
	)

	// Monitor context for cancellation
	go func() {
		<-ctx.Done()
		a.mu.Lock()
		srv := a.httpServer
		a.httpServer = nil
		a.mu.Unlock()

		if srv != nil {
			a.logger.Debug(
				"context cancelled, shutting down REST API server",
			)
			//nolint:contextcheck
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				30*time.Second,
			)
			defer cancel()
			//nolint:contextcheck
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error(
					"failed to shutdown REST API server on "+
						"context cancellation",
					"error", err,
				)
			}
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (a *Api) Stop(ctx context.Context) error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.mu.Unlock()

	if srv != nil {
		a.logger.Debug("shutting down REST API server")
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf(
				"failed to shutdown REST API server: %w",
				err,
			)
		}
	}
	return nil
}

// startServer binds the listening socket first so port conflicts are
// detected immediately, then serves in a background goroutine.
func (a *Api) startServer(server *http.Server) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf(
			"failed to listen for REST API server: %w",
			err,
		)
	}
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(
				"REST API server error",
				"error", err,
			)
		}
	}()
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (a *Api) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{
				ResponseWriter: w,
				status:         http.StatusOK,
			}
			next.ServeHTTP(rec, r)
			a.requestCount.WithLabelValues(
				r.Method,
				strconv.Itoa(rec.status),
			).Inc()
		},
	)
}
