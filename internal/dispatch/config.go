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

package dispatch

import (
	"fmt"
	"time"
)

// Config represents the configuration and associated environment variables
// for the alert distributor.
type Config struct {
	Port string `env:"DISPATCH_PORT,default=8082"`

	// ChannelTimeoutSeconds bounds each channel send.
	ChannelTimeoutSeconds int `env:"DISPATCH_CHANNEL_TIMEOUT_SECONDS,default=60"`

	// DedupWindowSeconds is the alert-id deduplication window for the chat
	// channel.
	DedupWindowSeconds int `env:"DISPATCH_DEDUP_WINDOW_SECONDS,default=600"`

	// ChatWebhookURL enables the shipped chat channel when set.
	ChatWebhookURL string `env:"DISPATCH_CHAT_WEBHOOK_URL"`
}

// ChannelTimeout returns the per-channel send timeout.
func (c *Config) ChannelTimeout() time.Duration {
	return time.Duration(c.ChannelTimeoutSeconds) * time.Second
}

// DedupWindow returns the chat channel deduplication window.
func (c *Config) DedupWindow() time.Duration {
	return time.Duration(c.DedupWindowSeconds) * time.Second
}

// Validate rejects nonsensical dispatch parameters.
func (c *Config) Validate() error {
	if c.ChannelTimeoutSeconds <= 0 {
		return fmt.Errorf("DISPATCH_CHANNEL_TIMEOUT_SECONDS must be positive, got %d", c.ChannelTimeoutSeconds)
	}
	if c.DedupWindowSeconds < 0 {
		return fmt.Errorf("DISPATCH_DEDUP_WINDOW_SECONDS must be non-negative, got %d", c.DedupWindowSeconds)
	}
	return nil
}
