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
	"testing"
	"time"

	"github.com/openidsr/surveillance-server/internal/model"
)

func TestSeverityColor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		severity model.AlertSeverity
		want     string
	}{
		{model.AlertCritical, "#d32f2f"},
		{model.AlertHigh, "#f57c00"},
		{model.AlertMedium, "#ffb300"},
		{model.AlertLow, "#388e3c"},
		{"Bogus", "#ffb300"},
		{"", "#ffb300"},
	}

	for _, tc := range cases {
		if got := severityColor(tc.severity); got != tc.want {
			t.Errorf("severityColor(%q) = %q, want %q", tc.severity, got, tc.want)
		}
	}
}

func TestTypeEmoji(t *testing.T) {
	t.Parallel()

	cases := []struct {
		alertType string
		want      string
	}{
		{"outbreak_alert", "🦠"},
		{"disease_detection", "🏥"},
		{"fusion_conflict", "⚠️"},
		{"compliance_violation", "📋"},
		{"something_else", "🔔"},
	}

	for _, tc := range cases {
		if got := typeEmoji(tc.alertType); got != tc.want {
			t.Errorf("typeEmoji(%q) = %q, want %q", tc.alertType, got, tc.want)
		}
	}
}

func TestFormatAlert(t *testing.T) {
	t.Parallel()

	alert := &model.Alert{
		AlertID:   "alert-1",
		Type:      "outbreak_alert",
		Severity:  model.AlertCritical,
		Title:     "Outbreak signal reported",
		Message:   "Community outbreak signal fused in Turkana",
		Location:  "Turkana",
		Timestamp: model.NewUTCTime(time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)),
		Metadata: map[string]string{
			"record_id":    "r1",
			"disease_code": "CHOL001",
		},
	}

	msg := formatAlert(alert)
	if msg.Color != "#d32f2f" {
		t.Errorf("Color = %q, want critical red", msg.Color)
	}
	if want := "🦠 Outbreak signal reported [Critical]"; msg.Header != want {
		t.Errorf("Header = %q, want %q", msg.Header, want)
	}
	if msg.Body != alert.Message {
		t.Errorf("Body = %q, want the alert message", msg.Body)
	}
	if want := "Turkana | 2025-01-10T10:00:00Z"; msg.Context != want {
		t.Errorf("Context = %q, want %q", msg.Context, want)
	}
	// Metadata keys render in sorted order.
	if want := "disease_code=CHOL001 record_id=r1"; msg.Metadata != want {
		t.Errorf("Metadata = %q, want %q", msg.Metadata, want)
	}
}

func TestFormatAlertFallbacks(t *testing.T) {
	t.Parallel()

	alert := &model.Alert{
		AlertID:   "alert-2",
		Type:      "disease_detection",
		Severity:  model.AlertHigh,
		Message:   "verified case",
		Timestamp: model.NewUTCTime(time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)),
	}

	msg := formatAlert(alert)
	// No title: the type stands in. No location: "unspecified".
	if want := "🏥 disease_detection [High]"; msg.Header != want {
		t.Errorf("Header = %q, want %q", msg.Header, want)
	}
	if want := "unspecified | 2025-01-10T10:00:00Z"; msg.Context != want {
		t.Errorf("Context = %q, want %q", msg.Context, want)
	}
	if msg.Metadata != "" {
		t.Errorf("Metadata = %q, want empty", msg.Metadata)
	}
}
