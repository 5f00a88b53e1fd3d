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

// Package monolith composes the fusion engine, audit agent, and alert
// distributor into a single process wired through the in-process alert
// topic.
package monolith

import (
	"github.com/openidsr/surveillance-server/internal/audit"
	"github.com/openidsr/surveillance-server/internal/dispatch"
	"github.com/openidsr/surveillance-server/internal/fusion"
	"github.com/openidsr/surveillance-server/internal/setup"
)

var _ setup.AlertTopicConsumer = (*Config)(nil)

// Config composes the component configurations. Each component keeps its
// own environment variable namespace.
type Config struct {
	Fusion   fusion.Config
	Audit    audit.Config
	Dispatch dispatch.Config

	Port string `env:"PORT,default=8080"`
}

// AlertTopic marks the monolith as a consumer of the in-process alert
// topic.
func (c *Config) AlertTopic() bool {
	return true
}

// FusionConfig returns the fusion component configuration.
func (c *Config) FusionConfig() *fusion.Config {
	return &c.Fusion
}

// AuditConfig returns the audit component configuration.
func (c *Config) AuditConfig() *audit.Config {
	return &c.Audit
}

// DispatchConfig returns the dispatch component configuration.
func (c *Config) DispatchConfig() *dispatch.Config {
	return &c.Dispatch
}
