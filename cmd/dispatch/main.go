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

// This binary runs the alert distributor: draining a file topic with
// --from, or serving the broker webhook with --serve.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/openidsr/surveillance-server/internal/dispatch"
	"github.com/openidsr/surveillance-server/internal/interrupt"
	"github.com/openidsr/surveillance-server/internal/model"
	"github.com/openidsr/surveillance-server/internal/server"
	"github.com/openidsr/surveillance-server/internal/setup"
	"github.com/openidsr/surveillance-server/internal/topic"
	"github.com/openidsr/surveillance-server/pkg/errkinds"
	"github.com/openidsr/surveillance-server/pkg/logging"
	"github.com/sethvargo/go-retry"
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

	var from string
	var serve bool
	flag.StringVar(&from, "from", "", "path to an NDJSON alert topic file to drain")
	flag.BoolVar(&serve, "serve", false, "run the broker webhook server")
	flag.Parse()

	var config dispatch.Config
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		logger.Errorw("setup failed", "error", err)
		return exitValidation
	}
	defer env.Close(ctx)

	var channels []dispatch.Channel
	if config.ChatWebhookURL != "" {
		channels = append(channels, dispatch.NewChatChannel(config.ChatWebhookURL, config.DedupWindow()))
	}

	distributor, err := dispatch.NewDistributor(&config, channels...)
	if err != nil {
		logger.Errorw("failed to create distributor", "error", err)
		return exitValidation
	}

	if serve {
		srv, err := server.New(config.Port)
		if err != nil {
			logger.Errorw("server.New failed", "error", err)
			return exitIO
		}
		logger.Infow("dispatch server listening", "port", config.Port)

		if err := srv.ServeHTTPHandler(ctx, dispatch.NewServer(distributor).Routes()); err != nil {
			if errkinds.IsCancelled(err) {
				return exitCancellation
			}
			logger.Errorw("serve failed", "error", err)
			return exitIO
		}
		return exitOK
	}

	if from == "" {
		fmt.Fprintln(os.Stderr, "one of --from or --serve is required")
		return exitValidation
	}
	return drainTopic(ctx, distributor, from)
}

// drainTopic reads the file topic, waiting briefly with backoff for it to
// appear, and dispatches every alert it holds.
func drainTopic(ctx context.Context, distributor *dispatch.Distributor, path string) int {
	logger := logging.FromContext(ctx)
	fileTopic := topic.NewFileTopic(path)

	var alerts []*model.Alert
	backoff := retry.WithMaxRetries(4, retry.NewFibonacci(250*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		read, err := fileTopic.ReadAll()
		if err != nil {
			return err
		}
		if len(read) == 0 {
			return retry.RetryableError(fmt.Errorf("topic %s is empty", path))
		}
		alerts = read
		return nil
	})
	if err != nil {
		if errkinds.IsCancelled(err) {
			return exitCancellation
		}
		logger.Errorw("failed to read topic", "path", path, "error", err)
		return exitIO
	}

	outcomes := make([]map[string]bool, 0, len(alerts))
	sawValidationErr := false
	for _, alert := range alerts {
		results, err := distributor.Dispatch(ctx, alert)
		if err != nil {
			if errkinds.IsCancelled(err) {
				return exitCancellation
			}
			logger.Warnw("alert rejected", "alert_id", alert.AlertID, "error", err)
			sawValidationErr = true
			continue
		}
		outcomes = append(outcomes, results)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcomes); err != nil {
		logger.Errorw("failed to write outcomes", "error", err)
		return exitIO
	}
	if sawValidationErr {
		return exitValidation
	}
	return exitOK
}
