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

package audit

import (
	"github.com/openidsr/surveillance-server/internal/model"
)

// categoryRecommendations is the fixed recommendation set per finding
// category, maintained alongside the check catalog.
var categoryRecommendations = map[string][]string{
	"Evidence Integrity": {
		"Regenerate the evidence manifest from the current artifact set",
		"Restore missing evidence files from the archival store",
	},
	"Access Control": {
		"Publish the access control policy to the evidence root",
		"Review role assignments against the published policy",
	},
	"Regulatory Artifacts": {
		"Re-export regulatory artifacts from the fusion engine",
		"Validate artifact templates against the IDSR report schema",
	},
	"Retention": {
		"Run a retention sweep and re-check the aggregates",
		"Reconcile the hot/cold index against the fusion log",
	},
	"System Error": {
		"Inspect agent logs for the failing check",
		"Re-run the check in isolation with an extended deadline",
	},
}

// recommendationsFor groups the fixed recommendation sets by the categories
// present in the findings.
func recommendationsFor(findings []*model.Finding) map[string][]string {
	if len(findings) == 0 {
		return nil
	}

	out := make(map[string][]string)
	for _, f := range findings {
		if _, seen := out[f.Category]; seen {
			continue
		}
		if recs, ok := categoryRecommendations[f.Category]; ok {
			out[f.Category] = recs
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
