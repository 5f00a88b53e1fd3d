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

package dispatch

import (
	"github.com/openidsr/surveillance-server/internal/metrics"
	"github.com/openidsr/surveillance-server/internal/observability"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
)

var (
	dispatchMetricsPrefix = metrics.MetricRoot + "dispatch/"

	mSends = stats.Int64(dispatchMetricsPrefix+"sends",
		"Successful channel sends", stats.UnitDimensionless)
	mSendFailures = stats.Int64(dispatchMetricsPrefix+"send_failures",
		"Failed channel sends", stats.UnitDimensionless)
	mRejected = stats.Int64(dispatchMetricsPrefix+"rejected",
		"Alerts rejected by validation", stats.UnitDimensionless)
)

func init() {
	observability.CollectViews(
		&view.View{
			Name:        dispatchMetricsPrefix + "sends_count",
			Description: "Total count of successful channel sends",
			Measure:     mSends,
			Aggregation: view.Sum(),
		},
		&view.View{
			Name:        dispatchMetricsPrefix + "send_failures_count",
			Description: "Total count of failed channel sends",
			Measure:     mSendFailures,
			Aggregation: view.Sum(),
		},
		&view.View{
			Name:        dispatchMetricsPrefix + "rejected_count",
			Description: "Total count of alerts rejected by validation",
			Measure:     mRejected,
			Aggregation: view.Sum(),
		},
	)
}
