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

// Package setup runs common initialization code for all binaries: config
// processing from the environment, metric view registration, and server
// environment construction.
package setup

import (
	"context"
	"fmt"

	"github.com/openidsr/surveillance-server/internal/observability"
	"github.com/openidsr/surveillance-server/internal/serverenv"
	"github.com/openidsr/surveillance-server/internal/topic"
	"github.com/openidsr/surveillance-server/pkg/logging"
	"github.com/sethvargo/go-envconfig"
)

// AlertTopicConsumer is a marker interface indicating the binary wants the
// in-process alert topic installed.
type AlertTopicConsumer interface {
	AlertTopic() bool
}

// Setup processes the provided config from the environment and builds the
// server environment.
func Setup(ctx context.Context, config interface{}) (*serverenv.ServerEnv, error) {
	logger := logging.FromContext(ctx)

	if err := envconfig.Process(ctx, config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}
	logger.Debugw("provided", "config", config)

	if err := observability.RegisterViews(); err != nil {
		return nil, fmt.Errorf("error registering metric views: %w", err)
	}

	opts := []serverenv.Option{}
	if _, ok := config.(AlertTopicConsumer); ok {
		opts = append(opts, serverenv.WithAlertTopic(topic.New(0)))
	}

	return serverenv.New(ctx, opts...), nil
}
