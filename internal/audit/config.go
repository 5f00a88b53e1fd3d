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
	"fmt"
	"time"
)

// Config represents the configuration and associated environment variables
// for the audit agent.
type Config struct {
	Port string `env:"AUDIT_PORT,default=8081"`

	// TickSeconds is the scheduler granularity.
	TickSeconds int `env:"AUDIT_TICK_SECONDS,default=300"`

	// CheckDeadlineSeconds is the per-check soft deadline after which a check
	// is abandoned and recorded as a synthetic finding.
	CheckDeadlineSeconds int `env:"AUDIT_CHECK_DEADLINE_SECONDS,default=30"`

	// ReportDir is where audit report files are written.
	ReportDir string `env:"AUDIT_REPORT_DIR,default=audit-reports"`

	// EvidenceDir is the root of the evidence filesystem the seed checks
	// inspect.
	EvidenceDir string `env:"AUDIT_EVIDENCE_DIR,default=evidence"`
}

// Tick returns the scheduler granularity as a duration.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.TickSeconds) * time.Second
}

// CheckDeadline returns the per-check soft deadline as a duration.
func (c *Config) CheckDeadline() time.Duration {
	return time.Duration(c.CheckDeadlineSeconds) * time.Second
}

// Validate rejects nonsensical scheduling parameters.
func (c *Config) Validate() error {
	if c.TickSeconds <= 0 {
		return fmt.Errorf("AUDIT_TICK_SECONDS must be positive, got %d", c.TickSeconds)
	}
	if c.CheckDeadlineSeconds <= 0 {
		return fmt.Errorf("AUDIT_CHECK_DEADLINE_SECONDS must be positive, got %d", c.CheckDeadlineSeconds)
	}
	if c.ReportDir == "" {
		return fmt.Errorf("AUDIT_REPORT_DIR must be set")
	}
	return nil
}
