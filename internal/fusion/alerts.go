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
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openidsr/surveillance-server/internal/model"
	"github.com/openidsr/surveillance-server/pkg/logging"
	"go.opencensus.io/stats"
)

// riskAlertFloor is the minimum verification score for a coded diagnosis to
// raise a risk alert.
const riskAlertFloor = 0.7

// maybePublishAlert raises an alert when a fused record crosses the risk
// threshold: an outbreak alert event, a cross-source conflict, or a
// verified record carrying a coded notifiable disease. Alert metadata never
// carries subject identifiers.
func (e *Engine) maybePublishAlert(ctx context.Context, r *model.FusedRecord) {
	if e.alerts == nil {
		return
	}

	alert := riskAlertFor(r, e.now())
	if alert == nil {
		return
	}

	if err := e.alerts.Publish(ctx, alert); err != nil {
		// Alerting is best-effort from the engine's perspective; the record
		// is already durable.
		logging.FromContext(ctx).Warnw("failed to publish alert",
			"alert_id", alert.AlertID, "error", err)
		return
	}
	stats.Record(ctx, mAlertsPublished.M(1))
}

// riskAlertFor maps a fused record to an alert, or nil when the record does
// not cross the risk threshold.
func riskAlertFor(r *model.FusedRecord, now time.Time) *model.Alert {
	diseaseCode := ""
	if r.IDSRReport != nil {
		diseaseCode = r.IDSRReport.DiseaseCode
	}

	var alertType string
	var severity model.AlertSeverity
	var title, message string

	switch {
	case r.EventType == model.EventOutbreakAlert:
		alertType = "outbreak_alert"
		severity = model.AlertCritical
		title = "Outbreak signal reported"
		message = fmt.Sprintf("Community outbreak signal fused in %s", r.Location)
	case r.Verification == model.VerificationConflict:
		alertType = "fusion_conflict"
		severity = model.AlertMedium
		title = "Cross-source conflict"
		message = fmt.Sprintf("CBS and EMR sources disagree for record %s", r.RecordID)
	case diseaseCode != "" && diseaseCode != UnknownDiseaseCode && r.Verification.Score() >= riskAlertFloor:
		alertType = "disease_detection"
		severity = model.AlertHigh
		title = "Notifiable disease detected"
		message = fmt.Sprintf("Verified %s case (%s) in %s", diseaseCode, r.Verification, r.Location)
	default:
		return nil
	}

	return &model.Alert{
		AlertID:   uuid.NewString(),
		Type:      alertType,
		Severity:  severity,
		Title:     title,
		Message:   message,
		Location:  r.Location,
		Timestamp: model.NewUTCTime(now),
		Metadata: map[string]string{
			"record_id":    r.RecordID,
			"disease_code": diseaseCode,
			"verification": string(r.Verification),
		},
	}
}
