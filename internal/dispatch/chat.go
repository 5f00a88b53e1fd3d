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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/openidsr/surveillance-server/internal/model"
)

// ChatChannel posts severity-colored block messages to a chat webhook. It is
// idempotent at the alert-id level within the configured dedup window: an
// alert id that was already delivered is acknowledged without a second post.
// Failed posts are not recorded, so the broker's retry posts again.
type ChatChannel struct {
	webhookURL string
	client     *http.Client
	dedup      *deliveryLog
}

// NewChatChannel creates the chat adapter.
func NewChatChannel(webhookURL string, dedupWindow time.Duration) *ChatChannel {
	return &ChatChannel{
		webhookURL: webhookURL,
		client:     &http.Client{},
		dedup:      newDeliveryLog(dedupWindow),
	}
}

// ID implements Channel.
func (c *ChatChannel) ID() string {
	return "chat"
}

// chatPayload is the webhook body.
type chatPayload struct {
	Color       string `json:"color"`
	Header      string `json:"header"`
	Body        string `json:"text"`
	Context     string `json:"context"`
	Metadata    string `json:"metadata,omitempty"`
	ExternalRef string `json:"external_ref"`
}

// Send implements Channel.
func (c *ChatChannel) Send(ctx context.Context, alert *model.Alert, msg *BlockMessage) error {
	if c.dedup.seen(alert.AlertID) {
		return nil
	}

	b, err := json.Marshal(&chatPayload{
		Color:       msg.Color,
		Header:      msg.Header,
		Body:        msg.Body,
		Context:     msg.Context,
		Metadata:    msg.Metadata,
		ExternalRef: alert.AlertID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("chat post failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("chat webhook returned %d", resp.StatusCode)
	}

	// Record only after the post succeeds so a retried alert id is not
	// swallowed by the dedup log when the first attempt failed.
	c.dedup.record(alert.AlertID)
	return nil
}
