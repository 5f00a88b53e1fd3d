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

package model

// AlertSeverity grades a dispatchable alert.
type AlertSeverity string

const (
	AlertCritical AlertSeverity = "Critical"
	AlertHigh     AlertSeverity = "High"
	AlertMedium   AlertSeverity = "Medium"
	AlertLow      AlertSeverity = "Low"
)

// Alert is a dispatchable event as carried on the alert topic. Metadata must
// not contain direct subject identifiers; the distributor enforces the
// reserved-key screen before any channel is attempted.
type Alert struct {
	AlertID   string            `json:"alert_id"`
	Type      string            `json:"alert_type"`
	Severity  AlertSeverity     `json:"severity"`
	Title     string            `json:"title,omitempty"`
	Message   string            `json:"message"`
	Location  string            `json:"location,omitempty"`
	Timestamp UTCTime           `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
