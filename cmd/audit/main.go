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

// This binary runs the audit agent: a one-shot scoped run by default, or
// the scheduler daemon with --daemon.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"strings"

	"github.com/openidsr/surveillance-server/internal/audit"
	"github.com/openidsr/surveillance-server/internal/interrupt"
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

	var scopeFlag string
	var daemon bool
	flag.StringVar(&scopeFlag, "scope", "", "comma-separated check ids (empty runs the full catalog)")
	flag.BoolVar(&daemon, "daemon", false, "run the scheduler and HTTP server")
	flag.Parse()

	var config audit.Config
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		logger.Errorw("setup failed", "error", err)
		return exitValidation
	}
	defer env.Close(ctx)

	catalog := audit.SeedCatalog(&config, nil)
	agent, err := audit.NewAgent(&config, catalog)
	if err != nil {
		logger.Errorw("failed to create agent", "error", err)
		return exitValidation
	}

	if daemon {
		return runDaemon(ctx, &config, agent)
	}

	var scope []string
	if s := strings.TrimSpace(scopeFlag); s != "" {
		scope = strings.Split(s, ",")
	}

	report, err := agent.RunAudit(ctx, scope)
	if err != nil {
		if errkinds.IsCancelled(err) {
			return exitCancellation
		}
		logger.Errorw("audit run failed", "error", err)
		return exitIO
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logger.Errorw("failed to write report", "error", err)
		return exitIO
	}
	return exitOK
}

func runDaemon(ctx context.Context, config *audit.Config, agent *audit.Agent) int {
	logger := logging.FromContext(ctx)

	srv, err := server.New(config.Port)
	if err != nil {
		logger.Errorw("server.New failed", "error", err)
		return exitIO
	}
	logger.Infow("audit server listening", "port", config.Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return audit.NewScheduler(agent).Run(gctx)
	})
	g.Go(func() error {
		return srv.ServeHTTPHandler(gctx, audit.NewServer(agent).Routes())
	})

	if err := g.Wait(); err != nil {
		if errkinds.IsCancelled(err) {
			return exitCancellation
		}
		logger.Errorw("daemon failed", "error", err)
		return exitIO
	}
	return exitOK
}
