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
	"time"

	"github.com/openidsr/surveillance-server/internal/model"
)

// StreamMatch is the outcome of scoring one CBS signal against a batch of
// EMR candidates.
type StreamMatch struct {
	CBS                *model.CBSSignal       `json:"cbs"`
	BestMatch          *model.EMREvent        `json:"best_match_emr,omitempty"`
	Score              float64                `json:"score"`
	Status             model.VerificationTier `json:"status"`
	PredictedDiagnosis string                 `json:"predicted_diagnosis"`
}

// FuseStreams scores each CBS signal against every EMR candidate and
// returns the best match per signal. It is pure with respect to the store
// and deterministic: given identical inputs it yields identical outputs.
//
// The best candidate is the one with the highest verification tier; on tier
// ties the higher score wins, and on exact score ties the pair with the
// smaller time delta wins. An empty candidate set yields Unverified entries
// with a predicted diagnosis of "Unknown"; this is not an error.
func (e *Engine) FuseStreams(cbsBatch []*model.CBSSignal, emrBatch []*model.EMREvent) ([]*StreamMatch, error) {
	emrTimes := make([]time.Time, len(emrBatch))
	for i, emr := range emrBatch {
		ts, err := emr.Timestamp.Parse()
		if err != nil {
			return nil, fmt.Errorf("emr[%d]: %w", i, err)
		}
		emrTimes[i] = ts
	}

	out := make([]*StreamMatch, 0, len(cbsBatch))
	for i, cbs := range cbsBatch {
		cbsTS, err := cbs.Timestamp.Parse()
		if err != nil {
			return nil, fmt.Errorf("cbs[%d]: %w", i, err)
		}

		match := &StreamMatch{
			CBS:                cbs,
			Status:             model.VerificationUnverified,
			PredictedDiagnosis: "Unknown",
		}

		var bestDelta time.Duration
		for j, emr := range emrBatch {
			tier, score := e.scorer.Classify(cbs, emr, cbsTS, emrTimes[j])
			delta := cbsTS.Sub(emrTimes[j]).Abs()

			if match.BestMatch == nil || better(tier, score, delta, match.Status, match.Score, bestDelta) {
				match.BestMatch = emr
				match.Score = score
				match.Status = tier
				match.PredictedDiagnosis = predictedDiagnosis(emr)
				bestDelta = delta
			}
		}

		out = append(out, match)
	}
	return out, nil
}

// better implements the tie-break ordering: tier rank, then score, then the
// smaller time delta.
func better(tier model.VerificationTier, score float64, delta time.Duration,
	curTier model.VerificationTier, curScore float64, curDelta time.Duration) bool {
	if tier.Rank() != curTier.Rank() {
		return tier.Rank() > curTier.Rank()
	}
	if score != curScore {
		return score > curScore
	}
	return delta < curDelta
}

func predictedDiagnosis(emr *model.EMREvent) string {
	if emr.Diagnosis == "" {
		return "Unknown"
	}
	return emr.Diagnosis
}
