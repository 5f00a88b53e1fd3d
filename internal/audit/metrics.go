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
	"github.com/openidsr/surveillance-server/internal/metrics"
	"github.com/openidsr/surveillance-server/internal/observability"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
)

var (
	auditMetricsPrefix = metrics.MetricRoot + "audit/"

	mAuditRuns = stats.Int64(auditMetricsPrefix+"runs",
		"Completed audit runs", stats.UnitDimensionless)
	mFindings = stats.Int64(auditMetricsPrefix+"findings",
		"Findings emitted", stats.UnitDimensionless)
	mCheckFailures = stats.Int64(auditMetricsPrefix+"check_failures",
		"Checks converted to synthetic findings", stats.UnitDimensionless)
)

func init() {
	observability.CollectViews(
		&view.View{
			Name:        auditMetricsPrefix + "runs_count",
			Description: "Total count of completed audit runs",
			Measure:     mAuditRuns,
			Aggregation: view.Sum(),
		},
		&view.View{
			Name:        auditMetricsPrefix + "findings_count",
			Description: "Total count of findings emitted",
			Measure:     mFindings,
			Aggregation: view.Sum(),
		},
		&view.View{
			Name:        auditMetricsPrefix + "check_failures_count",
			Description: "Total count of failed checks",
			Measure:     mCheckFailures,
			Aggregation: view.Sum(),
		},
	)
}
