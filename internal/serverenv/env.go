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

// Package serverenv defines the shared environment for the surveillance
// binaries: the alert topic and any resources with process lifetime. The
// environment is an explicit handle owned by the composition root; nothing
// here is bound at import time.
package serverenv

import (
	"context"

	"github.com/openidsr/surveillance-server/internal/topic"
)

// ServerEnv represents the latent environment for servers in this
// application.
type ServerEnv struct {
	alertTopic *topic.Topic
}

// Option defines function types to modify the ServerEnv on creation.
type Option func(*ServerEnv) *ServerEnv

// New creates a new ServerEnv with the requested options.
func New(ctx context.Context, opts ...Option) *ServerEnv {
	env := &ServerEnv{}
	for _, f := range opts {
		env = f(env)
	}
	return env
}

// WithAlertTopic installs the in-process alert topic.
func WithAlertTopic(t *topic.Topic) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.alertTopic = t
		return s
	}
}

// AlertTopic returns the alert topic, or nil if none was installed.
func (s *ServerEnv) AlertTopic() *topic.Topic {
	return s.alertTopic
}

// Close releases the environment's resources.
func (s *ServerEnv) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if s.alertTopic != nil {
		s.alertTopic.Close()
	}
	return nil
}
