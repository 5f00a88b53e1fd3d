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
	"os"
	"path/filepath"
	"testing"

	"github.com/openidsr/surveillance-server/internal/fusion"
	"github.com/openidsr/surveillance-server/internal/model"
)

type fakeStats struct {
	stats fusion.Statistics
}

func (f *fakeStats) Statistics() fusion.Statistics {
	return f.stats
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestEvidenceManifestIntegrity(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	// Complete case: manifest lists a file that exists.
	writeFile(t, filepath.Join(root, "case-ok", "manifest.json"), `{"files":["report.pdf"]}`)
	writeFile(t, filepath.Join(root, "case-ok", "report.pdf"), "evidence")

	// Missing file and malformed manifest.
	writeFile(t, filepath.Join(root, "case-missing", "manifest.json"), `{"files":["gone.pdf"]}`)
	writeFile(t, filepath.Join(root, "case-bad", "manifest.json"), `{not json`)

	results, err := evidenceManifestIntegrity(root)(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(results), results)
	}
	for _, r := range results {
		if r.Severity != model.SeverityHigh {
			t.Errorf("Severity = %s, want %s", r.Severity, model.SeverityHigh)
		}
		if r.Standard != "IDSR-EV-01" {
			t.Errorf("Standard = %q, want IDSR-EV-01", r.Standard)
		}
	}
}

func TestEvidenceManifestIntegrityEmptyRoot(t *testing.T) {
	t.Parallel()

	results, err := evidenceManifestIntegrity(t.TempDir())(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results for empty root, want 0", len(results))
	}
}

func TestAccessControlDocPresent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	results, err := accessControlDocPresent(root)(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(results) != 1 || results[0].Severity != model.SeverityMedium {
		t.Fatalf("results = %+v, want one Medium finding", results)
	}

	writeFile(t, filepath.Join(root, "access_control.md"), "# policy")
	results, err = accessControlDocPresent(root)(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results with doc present, want 0", len(results))
	}
}

func TestRegulatoryArtifactShape(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	writeFile(t, filepath.Join(root, "regulatory", "good.json"),
		`{"disease_code":"MAL001","clinical_summary":"x","submission_status":"PENDING_REVIEW"}`)
	writeFile(t, filepath.Join(root, "regulatory", "incomplete.json"),
		`{"disease_code":"MAL001"}`)
	writeFile(t, filepath.Join(root, "regulatory", "broken.json"), `nope`)

	results, err := regulatoryArtifactShape(root)(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}

	// incomplete.json misses two fields, broken.json is one malformed
	// artifact.
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3: %+v", len(results), results)
	}
}

func TestRetentionIndexSanity(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		stats        StatsSource
		wantCount    int
		wantSeverity model.FindingSeverity
	}{
		{
			name:         "nil_source_is_informational",
			stats:        nil,
			wantCount:    1,
			wantSeverity: model.SeverityInfo,
		},
		{
			name:      "consistent_index",
			stats:     &fakeStats{stats: fusion.Statistics{Total: 5, Hot: 3, Cold: 2, AverageVerification: 0.7}},
			wantCount: 0,
		},
		{
			name:         "tiers_do_not_sum",
			stats:        &fakeStats{stats: fusion.Statistics{Total: 5, Hot: 3, Cold: 1}},
			wantCount:    1,
			wantSeverity: model.SeverityMedium,
		},
		{
			name:         "average_out_of_range",
			stats:        &fakeStats{stats: fusion.Statistics{Total: 2, Hot: 1, Cold: 1, AverageVerification: 1.7}},
			wantCount:    1,
			wantSeverity: model.SeverityMedium,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			results, err := retentionIndexSanity(tc.stats)(context.Background())
			if err != nil {
				t.Fatalf("check: %v", err)
			}
			if len(results) != tc.wantCount {
				t.Fatalf("got %d results, want %d: %+v", len(results), tc.wantCount, results)
			}
			if tc.wantCount > 0 && results[0].Severity != tc.wantSeverity {
				t.Errorf("Severity = %s, want %s", results[0].Severity, tc.wantSeverity)
			}
		})
	}
}

func TestSeedCatalogCheckSet(t *testing.T) {
	t.Parallel()

	catalog := SeedCatalog(testAuditConfig(t), nil)
	checks := catalog.Checks(nil)
	if len(checks) != 4 {
		t.Fatalf("seed catalog has %d checks, want 4", len(checks))
	}

	frequencies := map[string]Frequency{
		"evidence-manifest-integrity": Daily,
		"access-control-doc-present":  Weekly,
		"regulatory-artifact-shape":   Monthly,
		"retention-index-sanity":      Continuous,
	}
	for _, check := range checks {
		want, ok := frequencies[check.ID]
		if !ok {
			t.Errorf("unexpected check %q", check.ID)
			continue
		}
		if check.Frequency != want {
			t.Errorf("check %q frequency = %s, want %s", check.ID, check.Frequency, want)
		}
	}
}
