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
	"math"
	"strings"
	"time"

	"github.com/openidsr/surveillance-server/internal/model"
)

// confirmedWindow is the maximum time delta for a same-location pair to be
// Confirmed without scoring.
const confirmedWindow = 24 * time.Hour

// misalignedContent is the content alignment weight when the CBS symptom
// does not corroborate the EMR diagnosis.
const misalignedContent = 0.1

// scorer computes entanglement scores and verification tiers for CBS/EMR
// pairs. It is immutable after construction and safe for concurrent use.
type scorer struct {
	decay           float64
	temporalWeight  float64
	contentWeight   float64
	thresholdHigh   float64
	thresholdMedium float64
	symptomMap      map[string][]string
}

func newScorer(cfg *Config) (*scorer, error) {
	symptomMap, err := cfg.SymptomDiagnosisMap()
	if err != nil {
		return nil, err
	}
	return &scorer{
		decay:           cfg.TemporalDecay,
		temporalWeight:  cfg.TemporalWeight,
		contentWeight:   cfg.ContentWeight,
		thresholdHigh:   cfg.ThresholdHigh,
		thresholdMedium: cfg.ThresholdMedium,
		symptomMap:      symptomMap,
	}, nil
}

// aligns reports whether the symptom corroborates the diagnosis under the
// configured table. Matching is case-insensitive.
func (s *scorer) aligns(symptom, diagnosis string) bool {
	diagnosis = strings.ToLower(strings.TrimSpace(diagnosis))
	if diagnosis == "" {
		return false
	}
	for _, candidate := range s.symptomMap[strings.ToLower(strings.TrimSpace(symptom))] {
		if candidate == diagnosis {
			return true
		}
	}
	return false
}

// Score computes the entanglement score for a CBS/EMR pair:
//
//	score = W_T * exp(lambda * dh) + W_C * c
//
// where dh is the absolute time delta in hours and c the content alignment
// weight. The result is clamped to [0, 1].
func (s *scorer) Score(cbs *model.CBSSignal, emr *model.EMREvent, cbsTS, emrTS time.Time) float64 {
	dh := math.Abs(cbsTS.Sub(emrTS).Hours())

	c := misalignedContent
	if s.aligns(cbs.Symptom, emr.Diagnosis) {
		c = 1.0
	}

	score := s.temporalWeight*math.Exp(s.decay*dh) + s.contentWeight*c
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Classify derives the verification tier for a CBS/EMR pair from the tier
// table and returns it with the underlying score.
func (s *scorer) Classify(cbs *model.CBSSignal, emr *model.EMREvent, cbsTS, emrTS time.Time) (model.VerificationTier, float64) {
	score := s.Score(cbs, emr, cbsTS, emrTS)

	sameLocation := locationsEqual(cbs.Location, emr.Location)
	delta := cbsTS.Sub(emrTS)
	if delta < 0 {
		delta = -delta
	}
	// Equal covers both "ids match" and "both absent"; a pair where only one
	// side carries an id is not Confirmed.
	subjectsAgree := cbs.SubjectID == emr.SubjectID

	switch {
	case sameLocation && delta < confirmedWindow && subjectsAgree:
		return model.VerificationConfirmed, score
	case score > s.thresholdHigh:
		return model.VerificationEntangled, score
	case score > s.thresholdMedium:
		return model.VerificationProbable, score
	case locationsConflict(cbs.Location, emr.Location) && score < s.thresholdMedium:
		return model.VerificationConflict, score
	default:
		return model.VerificationPossible, score
	}
}

// locationsEqual treats locations as equal only when both are present and
// identical after normalization.
func locationsEqual(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	return a != "" && a == b
}

// locationsConflict reports a genuine mismatch: both locations present and
// different. A missing location is absence of evidence, not a conflict.
func locationsConflict(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	return a != "" && b != "" && a != b
}
