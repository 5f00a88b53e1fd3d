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
	"sort"
	"strings"
	"time"

	"github.com/openidsr/surveillance-server/internal/model"
)

// Severity color encoding. Unrecognized severities fall back to amber.
const (
	colorRed    = "#d32f2f"
	colorOrange = "#f57c00"
	colorAmber  = "#ffb300"
	colorGreen  = "#388e3c"
)

// severityColor returns the stable color for the severity.
func severityColor(s model.AlertSeverity) string {
	switch s {
	case model.AlertCritical:
		return colorRed
	case model.AlertHigh:
		return colorOrange
	case model.AlertMedium:
		return colorAmber
	case model.AlertLow:
		return colorGreen
	}
	return colorAmber
}

// typeEmoji keys a header emoji off the alert type category.
func typeEmoji(alertType string) string {
	switch {
	case strings.Contains(alertType, "outbreak"):
		return "🦠"
	case strings.Contains(alertType, "disease"):
		return "🏥"
	case strings.Contains(alertType, "conflict"):
		return "⚠️"
	case strings.Contains(alertType, "compliance"):
		return "📋"
	}
	return "🔔"
}

// BlockMessage is the severity-formatted message handed to channels: a
// header, the body, a location/timestamp row, and an optional metadata row.
type BlockMessage struct {
	Color    string `json:"color"`
	Header   string `json:"header"`
	Body     string `json:"body"`
	Context  string `json:"context"`
	Metadata string `json:"metadata,omitempty"`
}

// formatAlert renders the alert into its block message.
func formatAlert(alert *model.Alert) *BlockMessage {
	title := alert.Title
	if title == "" {
		title = alert.Type
	}

	location := alert.Location
	if location == "" {
		location = "unspecified"
	}

	msg := &BlockMessage{
		Color:   severityColor(alert.Severity),
		Header:  fmt.Sprintf("%s %s [%s]", typeEmoji(alert.Type), title, alert.Severity),
		Body:    alert.Message,
		Context: fmt.Sprintf("%s | %s", location, alert.Timestamp.UTC().Format(time.RFC3339)),
	}

	if len(alert.Metadata) > 0 {
		keys := make([]string, 0, len(alert.Metadata))
		for k := range alert.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, alert.Metadata[k]))
		}
		msg.Metadata = strings.Join(parts, " ")
	}

	return msg
}
