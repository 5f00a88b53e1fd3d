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

package fusion

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/openidsr/surveillance-server/internal/model"
)

// UnknownDiseaseCode is used when no dictionary keyword matches.
const UnknownDiseaseCode = "UNKNOWN"

// diseaseCodes is the fixed keyword dictionary for IDSR disease coding. The
// lowercased diagnosis is scanned for each keyword; keywords are checked in
// a stable order so derivation is deterministic.
var diseaseCodes = []struct {
	keyword string
	code    string
}{
	{"malaria", "MAL001"},
	{"cholera", "CHOL001"},
	{"measles", "MEAS001"},
	{"dengue", "DENG001"},
	{"typhoid", "TYPH001"},
	{"meningitis", "MEN001"},
	{"polio", "POL001"},
	{"yellow fever", "YF001"},
	{"hemorrhagic", "VHF001"},
	{"tuberculosis", "TB001"},
}

// diseaseCodeFor maps a clinical diagnosis to an IDSR disease code by
// keyword match.
func diseaseCodeFor(diagnosis string) string {
	lowered := strings.ToLower(diagnosis)
	for _, entry := range diseaseCodes {
		if strings.Contains(lowered, entry.keyword) {
			return entry.code
		}
	}
	return UnknownDiseaseCode
}

// deriveIDSR builds the regulatory-shaped view of a fused record. The
// derivation is a pure function of the record fields and the optional IDSR
// input, so re-deriving from an unchanged record yields byte-identical
// output.
func deriveIDSR(r *model.FusedRecord, idsr *model.IDSRInput) *model.IDSRReport {
	code := UnknownDiseaseCode
	if diagnosis := r.CanonicalPayload["diagnosis"]; diagnosis != "" {
		code = diseaseCodeFor(diagnosis)
	}
	if idsr != nil && idsr.DiseaseCode != "" {
		code = idsr.DiseaseCode
	}

	summary := clinicalSummary(r)
	if idsr != nil && idsr.ClinicalSummary != "" {
		summary = idsr.ClinicalSummary
	}

	return &model.IDSRReport{
		DiseaseCode:     code,
		ClinicalSummary: summary,
		VerificationMetadata: map[string]string{
			"tier":    string(r.Verification),
			"score":   strconv.FormatFloat(r.Verification.Score(), 'f', 2, 64),
			"sources": sourceList(r),
		},
		SubmissionStatus: model.SubmissionPendingReview,
	}
}

// clinicalSummary renders the canonical payload as a stable, human-readable
// line. Keys are emitted in sorted order to keep derivation deterministic.
func clinicalSummary(r *model.FusedRecord) string {
	keys := make([]string, 0, len(r.CanonicalPayload))
	for k := range r.CanonicalPayload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, fmt.Sprintf("event_type=%s", r.EventType))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, r.CanonicalPayload[k]))
	}
	return strings.Join(parts, "; ")
}

func sourceList(r *model.FusedRecord) string {
	names := make([]string, 0, len(r.Sources))
	for name := range r.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
