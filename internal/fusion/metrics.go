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
	"github.com/openidsr/surveillance-server/internal/metrics"
	"github.com/openidsr/surveillance-server/internal/observability"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
)

var (
	fusionMetricsPrefix = metrics.MetricRoot + "fusion/"

	mRecordsFused = stats.Int64(fusionMetricsPrefix+"records_fused",
		"Fused records created", stats.UnitDimensionless)
	mFuseRejected = stats.Int64(fusionMetricsPrefix+"fuse_rejected",
		"Fusion requests rejected", stats.UnitDimensionless)
	mRetentionTransitions = stats.Int64(fusionMetricsPrefix+"retention_transitions",
		"Hot to Cold retention transitions", stats.UnitDimensionless)
	mAlertsPublished = stats.Int64(fusionMetricsPrefix+"alerts_published",
		"Alerts published by the fusion engine", stats.UnitDimensionless)
)

func init() {
	observability.CollectViews(
		&view.View{
			Name:        fusionMetricsPrefix + "records_fused_count",
			Description: "Total count of fused records created",
			Measure:     mRecordsFused,
			Aggregation: view.Sum(),
		},
		&view.View{
			Name:        fusionMetricsPrefix + "fuse_rejected_count",
			Description: "Total count of rejected fusion requests",
			Measure:     mFuseRejected,
			Aggregation: view.Sum(),
		},
		&view.View{
			Name:        fusionMetricsPrefix + "retention_transitions_count",
			Description: "Total count of Hot to Cold transitions",
			Measure:     mRetentionTransitions,
			Aggregation: view.Sum(),
		},
		&view.View{
			Name:        fusionMetricsPrefix + "alerts_published_count",
			Description: "Total count of alerts published by fusion",
			Measure:     mAlertsPublished,
			Aggregation: view.Sum(),
		},
	)
}
