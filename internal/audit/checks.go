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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openidsr/surveillance-server/internal/fusion"
	"github.com/openidsr/surveillance-server/internal/model"
)

// StatsSource provides fusion store aggregates to checks that validate the
// retention index.
type StatsSource interface {
	Statistics() fusion.Statistics
}

// evidenceManifest is the expected shape of an evidence manifest file.
type evidenceManifest struct {
	Files []string `json:"files"`
}

// SeedCatalog builds the shipped check set: evidence integrity,
// access-control documentation presence, regulatory artifact shape, and
// retention index sanity.
func SeedCatalog(cfg *Config, stats StatsSource) *Catalog {
	catalog := NewCatalog()

	catalog.Register(&Check{
		ID:              "evidence-manifest-integrity",
		Description:     "Evidence manifests parse and every listed file exists",
		Frequency:       Daily,
		DefaultSeverity: model.SeverityHigh,
		Func:            evidenceManifestIntegrity(cfg.EvidenceDir),
	})
	catalog.Register(&Check{
		ID:              "access-control-doc-present",
		Description:     "Access control documentation exists in the evidence root",
		Frequency:       Weekly,
		DefaultSeverity: model.SeverityMedium,
		Func:            accessControlDocPresent(cfg.EvidenceDir),
	})
	catalog.Register(&Check{
		ID:              "regulatory-artifact-shape",
		Description:     "Regulatory artifacts are valid JSON with the required fields",
		Frequency:       Monthly,
		DefaultSeverity: model.SeverityHigh,
		Func:            regulatoryArtifactShape(cfg.EvidenceDir),
	})
	catalog.Register(&Check{
		ID:              "retention-index-sanity",
		Description:     "Fusion retention aggregates are internally consistent",
		Frequency:       Continuous,
		DefaultSeverity: model.SeverityMedium,
		Func:            retentionIndexSanity(stats),
	})

	return catalog
}

func evidenceManifestIntegrity(root string) CheckFunc {
	return func(ctx context.Context) ([]CheckResult, error) {
		manifests, err := filepath.Glob(filepath.Join(root, "*", "manifest.json"))
		if err != nil {
			return nil, fmt.Errorf("failed to scan evidence root: %w", err)
		}

		var results []CheckResult
		for _, path := range manifests {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			b, err := os.ReadFile(path)
			if err != nil {
				results = append(results, CheckResult{
					Severity:         model.SeverityHigh,
					Category:         "Evidence Integrity",
					Standard:         "IDSR-EV-01",
					Title:            fmt.Sprintf("unreadable evidence manifest %s", filepath.Base(filepath.Dir(path))),
					EvidenceLocation: path,
				})
				continue
			}

			var manifest evidenceManifest
			if err := json.Unmarshal(b, &manifest); err != nil {
				results = append(results, CheckResult{
					Severity:         model.SeverityHigh,
					Category:         "Evidence Integrity",
					Standard:         "IDSR-EV-01",
					Title:            fmt.Sprintf("malformed evidence manifest %s", filepath.Base(filepath.Dir(path))),
					EvidenceLocation: path,
				})
				continue
			}

			for _, name := range manifest.Files {
				target := filepath.Join(filepath.Dir(path), name)
				if _, err := os.Stat(target); err != nil {
					results = append(results, CheckResult{
						Severity:         model.SeverityHigh,
						Category:         "Evidence Integrity",
						Standard:         "IDSR-EV-01",
						Title:            fmt.Sprintf("evidence file %s listed but missing", name),
						EvidenceLocation: target,
					})
				}
			}
		}
		return results, nil
	}
}

func accessControlDocPresent(root string) CheckFunc {
	candidates := []string{"access_control.md", "access_control.json"}

	return func(ctx context.Context) ([]CheckResult, error) {
		for _, name := range candidates {
			if _, err := os.Stat(filepath.Join(root, name)); err == nil {
				return nil, nil
			}
		}
		return []CheckResult{{
			Severity:         model.SeverityMedium,
			Category:         "Access Control",
			Standard:         "IDSR-AC-02",
			Title:            "access control documentation not found",
			EvidenceLocation: root,
		}}, nil
	}
}

func regulatoryArtifactShape(root string) CheckFunc {
	required := []string{"disease_code", "clinical_summary", "submission_status"}

	return func(ctx context.Context) ([]CheckResult, error) {
		artifacts, err := filepath.Glob(filepath.Join(root, "regulatory", "*.json"))
		if err != nil {
			return nil, fmt.Errorf("failed to scan regulatory artifacts: %w", err)
		}

		var results []CheckResult
		for _, path := range artifacts {
			b, err := os.ReadFile(path)
			if err != nil {
				results = append(results, CheckResult{
					Severity:         model.SeverityHigh,
					Category:         "Regulatory Artifacts",
					Standard:         "IDSR-RA-03",
					Title:            fmt.Sprintf("unreadable regulatory artifact %s", filepath.Base(path)),
					EvidenceLocation: path,
				})
				continue
			}

			var doc map[string]json.RawMessage
			if err := json.Unmarshal(b, &doc); err != nil {
				results = append(results, CheckResult{
					Severity:         model.SeverityHigh,
					Category:         "Regulatory Artifacts",
					Standard:         "IDSR-RA-03",
					Title:            fmt.Sprintf("malformed regulatory artifact %s", filepath.Base(path)),
					EvidenceLocation: path,
				})
				continue
			}

			for _, field := range required {
				if _, ok := doc[field]; !ok {
					results = append(results, CheckResult{
						Severity:         model.SeverityMedium,
						Category:         "Regulatory Artifacts",
						Standard:         "IDSR-RA-03",
						Title:            fmt.Sprintf("artifact %s missing field %q", filepath.Base(path), field),
						EvidenceLocation: path,
					})
				}
			}
		}
		return results, nil
	}
}

func retentionIndexSanity(stats StatsSource) CheckFunc {
	return func(ctx context.Context) ([]CheckResult, error) {
		if stats == nil {
			return []CheckResult{{
				Severity: model.SeverityInfo,
				Category: "Retention",
				Standard: "IDSR-RT-04",
				Title:    "fusion statistics unavailable to the audit agent",
			}}, nil
		}

		s := stats.Statistics()
		var results []CheckResult
		if s.Hot+s.Cold != s.Total {
			results = append(results, CheckResult{
				Severity: model.SeverityMedium,
				Category: "Retention",
				Standard: "IDSR-RT-04",
				Title:    fmt.Sprintf("retention tiers do not sum: hot=%d cold=%d total=%d", s.Hot, s.Cold, s.Total),
			})
		}
		if s.AverageVerification < 0 || s.AverageVerification > 1 {
			results = append(results, CheckResult{
				Severity: model.SeverityMedium,
				Category: "Retention",
				Standard: "IDSR-RT-04",
				Title:    fmt.Sprintf("verification average out of range: %v", s.AverageVerification),
			})
		}
		return results, nil
	}
}
