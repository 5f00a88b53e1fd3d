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
	"encoding/json"
)

// EventType classifies a fused record.
type EventType string

const (
	EventSymptomReport   EventType = "symptom_report"
	EventDiagnosis       EventType = "diagnosis"
	EventLabResult       EventType = "lab_result"
	EventHospitalization EventType = "hospitalization"
	EventOutbreakAlert   EventType = "outbreak_alert"
	EventUnknown         EventType = "unknown"
)

// VerificationTier is the cross-source verification level of a fused record.
type VerificationTier string

const (
	VerificationConfirmed  VerificationTier = "Confirmed"
	VerificationEntangled  VerificationTier = "Entangled"
	VerificationProbable   VerificationTier = "Probable"
	VerificationPossible   VerificationTier = "Possible"
	VerificationUnverified VerificationTier = "Unverified"
	VerificationConflict   VerificationTier = "Conflict"
)

// Score returns the numeric weight of the tier.
func (v VerificationTier) Score() float64 {
	switch v {
	case VerificationConfirmed:
		return 1.0
	case VerificationEntangled:
		return 0.9
	case VerificationProbable:
		return 0.7
	case VerificationPossible:
		return 0.4
	case VerificationUnverified:
		return 0.3
	case VerificationConflict:
		return 0.0
	}
	return 0.0
}

// Rank orders tiers for tie-breaking; a higher rank wins.
func (v VerificationTier) Rank() int {
	switch v {
	case VerificationConfirmed:
		return 5
	case VerificationEntangled:
		return 4
	case VerificationProbable:
		return 3
	case VerificationPossible:
		return 2
	case VerificationUnverified:
		return 1
	}
	return 0
}

// RetentionTier is the storage tier of a fused record.
type RetentionTier string

const (
	RetentionHot  RetentionTier = "Hot"
	RetentionCold RetentionTier = "Cold"
)

// ConfidenceStep is one entry in a record's ordered audit trail. Steps are
// strictly monotonic in Step.
type ConfidenceStep struct {
	Step   int     `json:"step"`
	Stage  string  `json:"stage"`
	Detail string  `json:"detail,omitempty"`
	Score  float64 `json:"score"`
	At     UTCTime `json:"at"`
}

// IDSRReport is the regulatory-shaped view of a fused record. It is fully
// derived: re-deriving it from an unchanged record yields identical output.
type IDSRReport struct {
	DiseaseCode          string            `json:"disease_code"`
	ClinicalSummary      string            `json:"clinical_summary"`
	VerificationMetadata map[string]string `json:"verification_metadata"`
	SubmissionStatus     string            `json:"submission_status"`
}

// SubmissionPendingReview is the initial submission status of every derived
// IDSR report.
const SubmissionPendingReview = "PENDING_REVIEW"

// FusedRecord is the canonical merged truth for one fusion event. Records
// are immutable once stored; a retention transition produces a new version
// of the retention field under the store lock, never an in-place caller-
// visible mutation.
type FusedRecord struct {
	RecordID           string                     `json:"record_id"`
	SubjectID          string                     `json:"subject_id"`
	EventType          EventType                  `json:"event_type"`
	Location           string                     `json:"location"`
	CanonicalTimestamp UTCTime                    `json:"canonical_timestamp"`
	Sources            map[string]json.RawMessage `json:"sources"`
	Verification       VerificationTier           `json:"verification"`
	CanonicalPayload   map[string]string          `json:"canonical_payload"`
	ConfidenceChain    []ConfidenceStep           `json:"confidence_chain"`
	Retention          RetentionTier              `json:"retention"`
	IDSRReport         *IDSRReport                `json:"idsr_report,omitempty"`
}

// Clone returns a deep copy so store internals never escape to callers.
func (r *FusedRecord) Clone() *FusedRecord {
	out := *r

	if r.Sources != nil {
		out.Sources = make(map[string]json.RawMessage, len(r.Sources))
		for k, v := range r.Sources {
			raw := make(json.RawMessage, len(v))
			copy(raw, v)
			out.Sources[k] = raw
		}
	}
	if r.CanonicalPayload != nil {
		out.CanonicalPayload = make(map[string]string, len(r.CanonicalPayload))
		for k, v := range r.CanonicalPayload {
			out.CanonicalPayload[k] = v
		}
	}
	if r.ConfidenceChain != nil {
		out.ConfidenceChain = append([]ConfidenceStep(nil), r.ConfidenceChain...)
	}
	if r.IDSRReport != nil {
		report := *r.IDSRReport
		if r.IDSRReport.VerificationMetadata != nil {
			report.VerificationMetadata = make(map[string]string, len(r.IDSRReport.VerificationMetadata))
			for k, v := range r.IDSRReport.VerificationMetadata {
				report.VerificationMetadata[k] = v
			}
		}
		out.IDSRReport = &report
	}

	return &out
}
