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

// Package audit runs scheduled compliance checks against the artifact
// surface, accumulates findings with a remediation lifecycle, and emits an
// audit report per run.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openidsr/surveillance-server/internal/model"
	"github.com/openidsr/surveillance-server/pkg/logging"
	"github.com/sethvargo/go-retry"
	"go.opencensus.io/stats"
)

// AlertPublisher receives alerts raised for Critical findings.
type AlertPublisher interface {
	Publish(ctx context.Context, alert *model.Alert) error
}

// Agent is the audit agent handle. It exclusively owns the finding store and
// the audit report archive.
type Agent struct {
	config  *Config
	catalog *Catalog
	alerts  AlertPublisher

	now func() time.Time

	// findings is append-only with the agent as single writer.
	findingsMu sync.RWMutex
	findings   []*model.Finding
}

// AgentOption modifies the Agent on creation.
type AgentOption func(*Agent)

// WithClock overrides the agent clock, primarily for tests.
func WithClock(now func() time.Time) AgentOption {
	return func(a *Agent) {
		a.now = now
	}
}

// WithAlertPublisher installs the alert topic for Critical findings.
func WithAlertPublisher(p AlertPublisher) AgentOption {
	return func(a *Agent) {
		a.alerts = p
	}
}

// NewAgent creates an audit agent over the given catalog.
func NewAgent(cfg *Config, catalog *Catalog, opts ...AgentOption) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid audit config: %w", err)
	}
	if err := os.MkdirAll(cfg.ReportDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report dir: %w", err)
	}

	a := &Agent{
		config:  cfg,
		catalog: catalog,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// RunAudit executes the scoped checks in catalog order and persists the
// resulting report atomically. Check failures never abort the run; they are
// converted to synthetic findings.
func (a *Agent) RunAudit(ctx context.Context, scope []string) (*model.AuditReport, error) {
	logger := logging.FromContext(ctx)

	checks := a.catalog.Checks(scope)
	scopeIDs := make([]string, 0, len(checks))
	for _, c := range checks {
		scopeIDs = append(scopeIDs, c.ID)
	}

	report := &model.AuditReport{
		AuditID:   uuid.NewString(),
		Scope:     scopeIDs,
		StartedAt: model.NewUTCTime(a.now()),
		Status:    model.AuditInProgress,
	}

	for _, check := range checks {
		if err := ctx.Err(); err != nil {
			report.Status = model.AuditFailed
			return report, fmt.Errorf("audit run interrupted: %w", err)
		}

		results := a.runCheck(ctx, check)
		for _, result := range results {
			finding := a.newFinding(result)
			report.Findings = append(report.Findings, finding)
			a.appendFinding(finding)
			a.triggerRemediation(ctx, finding)
		}
	}

	report.EndedAt = model.NewUTCTime(a.now())
	report.ComplianceScore = ComplianceScore(report.Findings)
	report.Recommendations = recommendationsFor(report.Findings)
	report.Status = model.AuditCompleted
	if report.Findings == nil {
		report.Findings = []*model.Finding{}
	}

	if err := a.persistReport(ctx, report); err != nil {
		report.Status = model.AuditFailed
		return report, fmt.Errorf("failed to persist report: %w", err)
	}

	stats.Record(ctx, mAuditRuns.M(1), mFindings.M(int64(len(report.Findings))))
	logger.Infow("audit run complete",
		"audit_id", report.AuditID,
		"checks", len(checks),
		"findings", len(report.Findings),
		"score", report.ComplianceScore)

	return report, nil
}

// runCheck executes one check under the soft deadline with panic recovery.
// A panic, error, or deadline overrun yields a synthetic High finding naming
// the check.
func (a *Agent) runCheck(ctx context.Context, check *Check) []CheckResult {
	logger := logging.FromContext(ctx)

	checkCtx, done := context.WithTimeout(ctx, a.config.CheckDeadline())
	defer done()

	type outcome struct {
		results []CheckResult
		err     error
	}
	outcomeCh := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				outcomeCh <- outcome{err: fmt.Errorf("check panicked: %v", r)}
			}
		}()
		results, err := check.Func(checkCtx)
		outcomeCh <- outcome{results: results, err: err}
	}()

	select {
	case o := <-outcomeCh:
		if o.err != nil {
			logger.Warnw("check failed", "check_id", check.ID, "error", o.err)
			stats.Record(ctx, mCheckFailures.M(1))
			return []CheckResult{syntheticResult(check, o.err.Error())}
		}
		return o.results
	case <-checkCtx.Done():
		// The check goroutine is abandoned; it observes checkCtx and is
		// expected to unwind on its own.
		logger.Warnw("check exceeded deadline", "check_id", check.ID)
		stats.Record(ctx, mCheckFailures.M(1))
		return []CheckResult{syntheticResult(check, "exceeded soft deadline")}
	}
}

// syntheticResult is the High "System Error" finding for a failed check.
func syntheticResult(check *Check, reason string) CheckResult {
	return CheckResult{
		Severity: model.SeverityHigh,
		Category: "System Error",
		Title:    fmt.Sprintf("check %s failed: %s", check.ID, reason),
	}
}

// newFinding assigns identity, detection time, deadline, and the initial
// lifecycle state to a check result.
func (a *Agent) newFinding(result CheckResult) *model.Finding {
	detected := a.now()

	finding := &model.Finding{
		FindingID:        uuid.NewString(),
		Severity:         result.Severity,
		Category:         result.Category,
		Standard:         result.Standard,
		Title:            result.Title,
		EvidenceLocation: result.EvidenceLocation,
		DetectedAt:       model.NewUTCTime(detected),
		Status:           model.RemediationNotStarted,
	}

	if window, ok := result.Severity.DefaultDeadline(); ok {
		deadline := model.NewUTCTime(detected.Add(window))
		finding.Deadline = &deadline
	}
	return finding
}

// triggerRemediation applies the severity-dependent remediation trigger:
// Critical publishes an alert immediately, High and Medium are queued, Low
// and Info are logged only.
func (a *Agent) triggerRemediation(ctx context.Context, finding *model.Finding) {
	logger := logging.FromContext(ctx)

	switch finding.Severity {
	case model.SeverityCritical:
		finding.Actions = append(finding.Actions, model.RemediationAction{
			Note: "critical finding escalated to alert topic",
			At:   model.NewUTCTime(a.now()),
		})
		a.publishCriticalAlert(ctx, finding)
	case model.SeverityHigh, model.SeverityMedium:
		finding.Actions = append(finding.Actions, model.RemediationAction{
			Note: "queued for remediation",
			At:   model.NewUTCTime(a.now()),
		})
	default:
		logger.Infow("finding logged", "finding_id", finding.FindingID, "severity", finding.Severity)
	}
}

func (a *Agent) publishCriticalAlert(ctx context.Context, finding *model.Finding) {
	if a.alerts == nil {
		return
	}

	alert := &model.Alert{
		AlertID:   uuid.NewString(),
		Type:      "compliance_violation",
		Severity:  model.AlertCritical,
		Title:     "Critical compliance finding",
		Message:   finding.Title,
		Timestamp: model.NewUTCTime(a.now()),
		Metadata: map[string]string{
			"finding_id": finding.FindingID,
			"category":   finding.Category,
			"standard":   finding.Standard,
		},
	}

	if err := a.alerts.Publish(ctx, alert); err != nil {
		logging.FromContext(ctx).Warnw("failed to publish critical finding alert",
			"finding_id", finding.FindingID, "error", err)
	}
}

func (a *Agent) appendFinding(finding *model.Finding) {
	a.findingsMu.Lock()
	defer a.findingsMu.Unlock()
	a.findings = append(a.findings, finding)
}

// Findings returns a snapshot of the accumulated findings in detection
// order.
func (a *Agent) Findings() []*model.Finding {
	a.findingsMu.RLock()
	defer a.findingsMu.RUnlock()

	out := make([]*model.Finding, len(a.findings))
	copy(out, a.findings)
	return out
}

// persistReport writes audit_report_<audit_id>.json via write-then-rename so
// consumers never observe a half-written file. Transient write errors are
// retried briefly.
func (a *Agent) persistReport(ctx context.Context, report *model.AuditReport) error {
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	final := filepath.Join(a.config.ReportDir, fmt.Sprintf("audit_report_%s.json", report.AuditID))
	tmp := final + ".tmp"

	backoff := retry.WithMaxRetries(2, retry.NewConstant(100*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := os.WriteFile(tmp, b, 0o644); err != nil {
			return retry.RetryableError(fmt.Errorf("failed to write temp report: %w", err))
		}
		if err := os.Rename(tmp, final); err != nil {
			return retry.RetryableError(fmt.Errorf("failed to rename report: %w", err))
		}
		return nil
	})
}

// ComplianceScore computes the 0-100 score for a set of findings. An empty
// set scores 100.
func ComplianceScore(findings []*model.Finding) float64 {
	if len(findings) == 0 {
		return 100
	}

	var weight float64
	for _, f := range findings {
		weight += f.Severity.Weight()
	}

	score := 100 - (weight/(10*float64(len(findings))))*100
	if score < 0 {
		return 0
	}
	return score
}
