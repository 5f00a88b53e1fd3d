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

import (
	"time"
)

// FindingSeverity grades an audit non-conformity.
type FindingSeverity string

const (
	SeverityCritical FindingSeverity = "Critical"
	SeverityHigh     FindingSeverity = "High"
	SeverityMedium   FindingSeverity = "Medium"
	SeverityLow      FindingSeverity = "Low"
	SeverityInfo     FindingSeverity = "Info"
)

// Weight returns the compliance-score weight of the severity.
func (s FindingSeverity) Weight() float64 {
	switch s {
	case SeverityCritical:
		return 10
	case SeverityHigh:
		return 5
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	case SeverityInfo:
		return 0.5
	}
	return 0
}

// DefaultDeadline returns the remediation window for the severity. The
// second return is false when the severity carries no deadline (Info).
func (s FindingSeverity) DefaultDeadline() (time.Duration, bool) {
	switch s {
	case SeverityCritical:
		return 4 * time.Hour, true
	case SeverityHigh:
		return 24 * time.Hour, true
	case SeverityMedium:
		return 7 * 24 * time.Hour, true
	case SeverityLow:
		return 30 * 24 * time.Hour, true
	}
	return 0, false
}

// RemediationStatus is the lifecycle state of a finding.
type RemediationStatus string

const (
	RemediationNotStarted RemediationStatus = "NotStarted"
	RemediationInProgress RemediationStatus = "InProgress"
	RemediationCompleted  RemediationStatus = "Completed"
	RemediationFailed     RemediationStatus = "Failed"
	RemediationDeferred   RemediationStatus = "Deferred"
)

// RemediationAction is one step taken against a finding.
type RemediationAction struct {
	Note string  `json:"note"`
	At   UTCTime `json:"at"`
}

// Finding is a single audit non-conformity with a remediation lifecycle.
type Finding struct {
	FindingID        string              `json:"finding_id"`
	Severity         FindingSeverity     `json:"severity"`
	Category         string              `json:"category"`
	Standard         string              `json:"standard,omitempty"`
	Title            string              `json:"title"`
	EvidenceLocation string              `json:"evidence_location,omitempty"`
	DetectedAt       UTCTime             `json:"detected_at"`
	Deadline         *UTCTime            `json:"deadline,omitempty"`
	Status           RemediationStatus   `json:"status"`
	Actions          []RemediationAction `json:"actions,omitempty"`
}

// AuditStatus is the lifecycle state of an audit run.
type AuditStatus string

const (
	AuditPending    AuditStatus = "Pending"
	AuditInProgress AuditStatus = "InProgress"
	AuditCompleted  AuditStatus = "Completed"
	AuditFailed     AuditStatus = "Failed"
)

// AuditReport bundles the findings of one audit run.
type AuditReport struct {
	AuditID         string              `json:"audit_id"`
	Scope           []string            `json:"scope"`
	StartedAt       UTCTime             `json:"started_at"`
	EndedAt         UTCTime             `json:"ended_at"`
	ComplianceScore float64             `json:"compliance_score"`
	Findings        []*Finding          `json:"findings"`
	Recommendations map[string][]string `json:"recommendations,omitempty"`
	Status          AuditStatus         `json:"status"`
}
