// Copyright 2023 OpenIDSR Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// This binary runs all three surveillance components in one process, with
// alerts flowing from the fusion engine and the audit agent to the
// distributor over the in-process topic.
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/openidsr/surveillance-server/internal/audit"
	"github.com/openidsr/surveillance-server/internal/dispatch"
	"github.com/openidsr/surveillance-server/internal/fusion"
	"github.com/openidsr/surveillance-server/internal/interrupt"
	"github.com/openidsr/surveillance-server/internal/model"
	"github.com/openidsr/surveillance-server/internal/monolith"
	"github.com/openidsr/surveillance-server/internal/server"
	"github.com/openidsr/surveillance-server/internal/setup"
	"github.com/openidsr/surveillance-server/pkg/errkinds"
	"github.com/openidsr/surveillance-server/pkg/logging"
	"golang.org/x/sync/errgroup"
)

const (
	exitOK           = 0
	exitValidation   = 2
	exitIO           = 3
	exitCancellation = 4
)

func main() {
	ctx, done := interrupt.Context()

	logger := logging.NewLoggerFromEnv()
	ctx = logging.WithLogger(ctx, logger)

	code := realMain(ctx)
	done()
	os.Exit(code)
}

func realMain(ctx context.Context) int {
	logger := logging.FromContext(ctx)

	var config monolith.Config
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		logger.Errorw("setup failed", "error", err)
		return exitValidation
	}
	defer env.Close(ctx)

	alertTopic := env.AlertTopic()

	engine, err := fusion.New(config.FusionConfig(), fusion.WithAlertPublisher(alertTopic))
	if err != nil {
		logger.Errorw("failed to create engine", "error", err)
		return exitValidation
	}

	catalog := audit.SeedCatalog(config.AuditConfig(), engine)
	agent, err := audit.NewAgent(config.AuditConfig(), catalog, audit.WithAlertPublisher(alertTopic))
	if err != nil {
		logger.Errorw("failed to create agent", "error", err)
		return exitValidation
	}

	var channels []dispatch.Channel
	if config.Dispatch.ChatWebhookURL != "" {
		channels = append(channels, dispatch.NewChatChannel(config.Dispatch.ChatWebhookURL, config.Dispatch.DedupWindow()))
	}
	distributor, err := dispatch.NewDistributor(config.DispatchConfig(), channels...)
	if err != nil {
		logger.Errorw("failed to create distributor", "error", err)
		return exitValidation
	}

	srv, err := server.New(config.Port)
	if err != nil {
		logger.Errorw("server.New failed", "error", err)
		return exitIO
	}
	logger.Infow("monolith listening", "port", config.Port)

	alerts, unsubscribe := alertTopic.Subscribe()
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return audit.NewScheduler(agent).Run(gctx)
	})
	g.Go(func() error {
		drainAlerts(gctx, distributor, alerts)
		return nil
	})
	g.Go(func() error {
		return srv.ServeHTTPHandler(gctx, routes(engine, agent, distributor))
	})

	if err := g.Wait(); err != nil {
		if errkinds.IsCancelled(err) {
			return exitCancellation
		}
		logger.Errorw("monolith failed", "error", err)
		return exitIO
	}
	return exitOK
}

// routes mounts each component's router under its own prefix.
func routes(engine *fusion.Engine, agent *audit.Agent, distributor *dispatch.Distributor) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	r.PathPrefix("/fusion/").Handler(http.StripPrefix("/fusion", fusion.NewServer(engine).Routes()))
	r.PathPrefix("/audit/").Handler(http.StripPrefix("/audit", audit.NewServer(agent).Routes()))
	r.PathPrefix("/dispatch/").Handler(http.StripPrefix("/dispatch", dispatch.NewServer(distributor).Routes()))
	return r
}

// drainAlerts dispatches topic alerts until the context ends or the topic
// closes. Rejected alerts are logged and dropped; the pipeline keeps
// running.
func drainAlerts(ctx context.Context, distributor *dispatch.Distributor, alerts <-chan *model.Alert) {
	logger := logging.FromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case alert, ok := <-alerts:
			if !ok {
				return
			}
			results, err := distributor.Dispatch(ctx, alert)
			if err != nil {
				logger.Warnw("alert rejected", "alert_id", alert.AlertID, "error", err)
				continue
			}
			logger.Debugw("alert dispatched", "alert_id", alert.AlertID, "results", results)
		}
	}
}
