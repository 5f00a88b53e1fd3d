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

// Package model defines the canonical entities of the surveillance core and
// their explicit wire schemas. Serialization is schema-per-entity with
// hand-written JSON tags; there is no reflection-driven field discovery.
package model

// Source names used as keys in FusedRecord.Sources.
const (
	SourceCBS  = "cbs"
	SourceEMR  = "emr"
	SourceIDSR = "idsr"
)

// DefaultLocation substitutes for a missing location on any source.
const DefaultLocation = "UNKNOWN"

// DefaultSymptom is the documented fallback for a CBS signal whose symptom is
// outside the configured vocabulary or absent.
const DefaultSymptom = "unknown"

// CBSSignal is a community-reported health event.
type CBSSignal struct {
	Location  string    `json:"location"`
	Symptom   string    `json:"symptom"`
	Timestamp Timestamp `json:"timestamp"`
	SubjectID string    `json:"subject_id,omitempty"`
}

// EMREvent is a structured clinical record.
type EMREvent struct {
	Location   string            `json:"location"`
	Diagnosis  string            `json:"diagnosis"`
	Timestamp  Timestamp         `json:"timestamp"`
	SubjectID  string            `json:"subject_id,omitempty"`
	LabResults map[string]string `json:"lab_results,omitempty"`

	// Hospitalized marks an inpatient admission and promotes the fused
	// event type accordingly.
	Hospitalized bool `json:"hospitalized,omitempty"`
}

// IDSRInput is an inbound regulatory report fragment. It only contributes to
// the generated idsr_report field and the canonical timestamp floor; it never
// overrides clinical content.
type IDSRInput struct {
	Location        string    `json:"location,omitempty"`
	DiseaseCode     string    `json:"disease_code,omitempty"`
	ClinicalSummary string    `json:"clinical_summary,omitempty"`
	Timestamp       Timestamp `json:"timestamp"`
	SubjectID       string    `json:"subject_id,omitempty"`
}
