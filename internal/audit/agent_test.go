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
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openidsr/surveillance-server/internal/model"
)

// recordingPublisher captures published alerts for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	alerts []*model.Alert
}

func (p *recordingPublisher) Publish(_ context.Context, alert *model.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, alert)
	return nil
}

func (p *recordingPublisher) Alerts() []*model.Alert {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*model.Alert(nil), p.alerts...)
}

func testAuditConfig(t testing.TB) *Config {
	t.Helper()

	return &Config{
		Port:                 "8081",
		TickSeconds:          300,
		CheckDeadlineSeconds: 2,
		ReportDir:            t.TempDir(),
		EvidenceDir:          t.TempDir(),
	}
}

func staticCheck(id string, frequency Frequency, results []CheckResult) *Check {
	return &Check{
		ID:              id,
		Description:     "static test check",
		Frequency:       frequency,
		DefaultSeverity: model.SeverityMedium,
		Func: func(ctx context.Context) ([]CheckResult, error) {
			return results, nil
		},
	}
}

func TestRunAuditCleanRun(t *testing.T) {
	t.Parallel()

	config := testAuditConfig(t)
	catalog := NewCatalog()
	catalog.Register(staticCheck("passing", Continuous, nil))

	agent, err := NewAgent(config, catalog)
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}

	report, err := agent.RunAudit(context.Background(), nil)
	if err != nil {
		t.Fatalf("RunAudit: %v", err)
	}

	if report.Status != model.AuditCompleted {
		t.Errorf("Status = %s, want %s", report.Status, model.AuditCompleted)
	}
	if len(report.Findings) != 0 {
		t.Errorf("Findings = %d, want 0", len(report.Findings))
	}
	if report.ComplianceScore != 100 {
		t.Errorf("ComplianceScore = %v, want 100", report.ComplianceScore)
	}
	if report.EndedAt.Before(report.StartedAt.Time) {
		t.Error("EndedAt before StartedAt")
	}

	// The report is persisted under its audit id.
	path := filepath.Join(config.ReportDir, fmt.Sprintf("audit_report_%s.json", report.AuditID))
	if _, err := os.Stat(path); err != nil {
		t.Errorf("persisted report missing: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp report file left behind: %v", err)
	}
}

func TestRunAuditPanickingCheck(t *testing.T) {
	t.Parallel()

	config := testAuditConfig(t)
	catalog := NewCatalog()
	catalog.Register(&Check{
		ID:              "panicky",
		Frequency:       Continuous,
		DefaultSeverity: model.SeverityMedium,
		Func: func(ctx context.Context) ([]CheckResult, error) {
			panic("boom")
		},
	})
	catalog.Register(staticCheck("passing", Continuous, nil))

	agent, err := NewAgent(config, catalog)
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}

	report, err := agent.RunAudit(context.Background(), nil)
	if err != nil {
		t.Fatalf("RunAudit: %v", err)
	}

	// The panic converts to a synthetic finding and the run completes.
	if report.Status != model.AuditCompleted {
		t.Errorf("Status = %s, want %s", report.Status, model.AuditCompleted)
	}
	if len(report.Findings) != 1 {
		t.Fatalf("Findings = %d, want 1", len(report.Findings))
	}

	finding := report.Findings[0]
	if finding.Severity != model.SeverityHigh {
		t.Errorf("Severity = %s, want %s", finding.Severity, model.SeverityHigh)
	}
	if finding.Category != "System Error" {
		t.Errorf("Category = %q, want System Error", finding.Category)
	}
	if !strings.Contains(finding.Title, "panicky") {
		t.Errorf("Title = %q, want the check id named", finding.Title)
	}
}

func TestRunAuditCheckDeadline(t *testing.T) {
	t.Parallel()

	config := testAuditConfig(t)
	config.CheckDeadlineSeconds = 1

	catalog := NewCatalog()
	catalog.Register(&Check{
		ID:              "slow",
		Frequency:       Continuous,
		DefaultSeverity: model.SeverityMedium,
		Func: func(ctx context.Context) ([]CheckResult, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(30 * time.Second):
				return nil, nil
			}
		},
	})

	agent, err := NewAgent(config, catalog)
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}

	report, err := agent.RunAudit(context.Background(), nil)
	if err != nil {
		t.Fatalf("RunAudit: %v", err)
	}
	if len(report.Findings) != 1 {
		t.Fatalf("Findings = %d, want 1 synthetic finding", len(report.Findings))
	}
	if got := report.Findings[0].Category; got != "System Error" {
		t.Errorf("Category = %q, want System Error", got)
	}
}

func TestRunAuditCriticalFindingPublishesAlert(t *testing.T) {
	t.Parallel()

	config := testAuditConfig(t)
	catalog := NewCatalog()
	catalog.Register(staticCheck("critical", Continuous, []CheckResult{{
		Severity: model.SeverityCritical,
		Category: "Evidence Integrity",
		Standard: "IDSR-EV-01",
		Title:    "evidence store unreachable",
	}}))

	pub := &recordingPublisher{}
	agent, err := NewAgent(config, catalog, WithAlertPublisher(pub))
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}

	report, err := agent.RunAudit(context.Background(), nil)
	if err != nil {
		t.Fatalf("RunAudit: %v", err)
	}

	finding := report.Findings[0]
	if len(finding.Actions) != 1 {
		t.Fatalf("Actions = %d, want escalation note", len(finding.Actions))
	}

	alerts := pub.Alerts()
	if len(alerts) != 1 {
		t.Fatalf("published %d alerts, want 1", len(alerts))
	}
	if alerts[0].Type != "compliance_violation" || alerts[0].Severity != model.AlertCritical {
		t.Errorf("alert = %s/%s, want compliance_violation/Critical", alerts[0].Type, alerts[0].Severity)
	}
	if alerts[0].Metadata["finding_id"] != finding.FindingID {
		t.Errorf("alert finding_id = %q, want %q", alerts[0].Metadata["finding_id"], finding.FindingID)
	}
}

func TestRunAuditDeadlinesBySeverity(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)
	config := testAuditConfig(t)
	catalog := NewCatalog()
	catalog.Register(staticCheck("mixed", Continuous, []CheckResult{
		{Severity: model.SeverityCritical, Category: "Retention", Title: "critical"},
		{Severity: model.SeverityInfo, Category: "Retention", Title: "info"},
	}))

	agent, err := NewAgent(config, catalog, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}

	report, err := agent.RunAudit(context.Background(), nil)
	if err != nil {
		t.Fatalf("RunAudit: %v", err)
	}
	if len(report.Findings) != 2 {
		t.Fatalf("Findings = %d, want 2", len(report.Findings))
	}

	critical, info := report.Findings[0], report.Findings[1]
	if critical.Deadline == nil {
		t.Fatal("critical finding has no deadline")
	}
	if got, want := critical.Deadline.Time, now.Add(4*time.Hour); !got.Equal(want) {
		t.Errorf("critical deadline = %v, want %v", got, want)
	}
	if info.Deadline != nil {
		t.Errorf("info deadline = %v, want none", info.Deadline)
	}
}

func TestRunAuditScope(t *testing.T) {
	t.Parallel()

	config := testAuditConfig(t)
	catalog := NewCatalog()
	catalog.Register(staticCheck("a", Continuous, []CheckResult{{Severity: model.SeverityLow, Category: "Retention", Title: "a"}}))
	catalog.Register(staticCheck("b", Continuous, []CheckResult{{Severity: model.SeverityLow, Category: "Retention", Title: "b"}}))

	agent, err := NewAgent(config, catalog)
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}

	report, err := agent.RunAudit(context.Background(), []string{"b"})
	if err != nil {
		t.Fatalf("RunAudit: %v", err)
	}

	if len(report.Scope) != 1 || report.Scope[0] != "b" {
		t.Errorf("Scope = %v, want [b]", report.Scope)
	}
	if len(report.Findings) != 1 || report.Findings[0].Title != "b" {
		t.Errorf("Findings = %v, want only check b's finding", report.Findings)
	}
}

func TestRunAuditCancellation(t *testing.T) {
	t.Parallel()

	config := testAuditConfig(t)
	catalog := NewCatalog()
	catalog.Register(staticCheck("a", Continuous, nil))

	agent, err := NewAgent(config, catalog)
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := agent.RunAudit(ctx, nil)
	if err == nil {
		t.Fatal("RunAudit() = nil error under canceled context")
	}
	if report.Status != model.AuditFailed {
		t.Errorf("Status = %s, want %s", report.Status, model.AuditFailed)
	}
}

func TestComplianceScore(t *testing.T) {
	t.Parallel()

	f := func(s model.FindingSeverity) *model.Finding {
		return &model.Finding{Severity: s}
	}

	cases := []struct {
		name     string
		findings []*model.Finding
		want     float64
	}{
		{name: "empty_is_perfect", findings: nil, want: 100},
		{name: "single_critical_floors", findings: []*model.Finding{f(model.SeverityCritical)}, want: 0},
		{name: "single_low", findings: []*model.Finding{f(model.SeverityLow)}, want: 90},
		{name: "two_info", findings: []*model.Finding{f(model.SeverityInfo), f(model.SeverityInfo)}, want: 95},
		{name: "high_and_medium", findings: []*model.Finding{f(model.SeverityHigh), f(model.SeverityMedium)}, want: 65},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ComplianceScore(tc.findings)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("ComplianceScore() = %v, want %v", got, tc.want)
			}
			if got < 0 || got > 100 {
				t.Errorf("ComplianceScore() = %v, out of [0, 100]", got)
			}
		})
	}
}

func TestRecommendationsFor(t *testing.T) {
	t.Parallel()

	findings := []*model.Finding{
		{Category: "Retention"},
		{Category: "Retention"},
		{Category: "Access Control"},
		{Category: "Unmapped Category"},
	}

	recs := recommendationsFor(findings)
	if len(recs) != 2 {
		t.Fatalf("got %d categories, want 2", len(recs))
	}
	if _, ok := recs["Retention"]; !ok {
		t.Error("missing Retention recommendations")
	}
	if _, ok := recs["Access Control"]; !ok {
		t.Error("missing Access Control recommendations")
	}

	if got := recommendationsFor(nil); got != nil {
		t.Errorf("recommendationsFor(nil) = %v, want nil", got)
	}
}
