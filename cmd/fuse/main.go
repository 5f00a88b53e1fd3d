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

// This binary runs the fusion engine: as a batch tool over CBS and EMR
// files, or as an HTTP server with --serve.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/openidsr/surveillance-server/internal/fusion"
	"github.com/openidsr/surveillance-server/internal/interrupt"
	"github.com/openidsr/surveillance-server/internal/model"
	"github.com/openidsr/surveillance-server/internal/server"
	"github.com/openidsr/surveillance-server/internal/setup"
	"github.com/openidsr/surveillance-server/pkg/errkinds"
	"github.com/openidsr/surveillance-server/pkg/logging"
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

	var cbsPath, emrPath string
	var serve bool
	flag.StringVar(&cbsPath, "cbs", "", "path to a JSON array of CBS signals")
	flag.StringVar(&emrPath, "emr", "", "path to a JSON array of EMR events")
	flag.BoolVar(&serve, "serve", false, "run the fusion HTTP server")
	flag.Parse()

	var config fusion.Config
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		logger.Errorw("setup failed", "error", err)
		return exitValidation
	}
	defer env.Close(ctx)

	engine, err := fusion.New(&config)
	if err != nil {
		logger.Errorw("failed to create engine", "error", err)
		return exitValidation
	}

	if serve {
		return serveHTTP(ctx, &config, engine)
	}
	return runBatch(ctx, engine, cbsPath, emrPath)
}

func serveHTTP(ctx context.Context, config *fusion.Config, engine *fusion.Engine) int {
	logger := logging.FromContext(ctx)

	srv, err := server.New(config.Port)
	if err != nil {
		logger.Errorw("server.New failed", "error", err)
		return exitIO
	}
	logger.Infow("fusion server listening", "port", config.Port)

	if err := srv.ServeHTTPHandler(ctx, fusion.NewServer(engine).Routes()); err != nil {
		if errkinds.IsCancelled(err) {
			return exitCancellation
		}
		logger.Errorw("serve failed", "error", err)
		return exitIO
	}
	return exitOK
}

func runBatch(ctx context.Context, engine *fusion.Engine, cbsPath, emrPath string) int {
	logger := logging.FromContext(ctx)

	if cbsPath == "" && emrPath == "" {
		fmt.Fprintln(os.Stderr, "at least one of --cbs or --emr is required")
		return exitValidation
	}

	var cbsBatch []*model.CBSSignal
	if cbsPath != "" {
		if err := readJSON(cbsPath, &cbsBatch); err != nil {
			logger.Errorw("failed to read cbs batch", "path", cbsPath, "error", err)
			return exitIO
		}
	}
	var emrBatch []*model.EMREvent
	if emrPath != "" {
		if err := readJSON(emrPath, &emrBatch); err != nil {
			logger.Errorw("failed to read emr batch", "path", emrPath, "error", err)
			return exitIO
		}
	}

	matches, err := engine.FuseStreams(cbsBatch, emrBatch)
	if err != nil {
		logger.Errorw("stream scoring failed", "error", err)
		return exitValidation
	}

	records := make([]*model.FusedRecord, 0, len(matches))
	for _, match := range matches {
		if errors.Is(ctx.Err(), context.Canceled) {
			return exitCancellation
		}

		req := &fusion.FuseRequest{CBS: match.CBS, EMR: match.BestMatch}
		record, err := engine.Fuse(ctx, req)
		if err != nil {
			logger.Errorw("fuse failed", "error", err)
			if errkinds.IsValidation(err) {
				return exitValidation
			}
			return exitIO
		}
		records = append(records, record)
	}

	// Unmatched EMR events still become single-source records.
	if len(cbsBatch) == 0 {
		for _, emr := range emrBatch {
			record, err := engine.Fuse(ctx, &fusion.FuseRequest{EMR: emr})
			if err != nil {
				logger.Errorw("fuse failed", "error", err)
				if errkinds.IsValidation(err) {
					return exitValidation
				}
				return exitIO
			}
			records = append(records, record)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		logger.Errorw("failed to write output", "error", err)
		return exitIO
	}
	return exitOK
}

func readJSON(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
