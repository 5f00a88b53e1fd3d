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
	"time"

	"github.com/openidsr/surveillance-server/internal/model"
	"github.com/openidsr/surveillance-server/pkg/timeutils"
)

// Frequency is a check's scheduling bucket.
type Frequency string

const (
	Daily      Frequency = "Daily"
	Weekly     Frequency = "Weekly"
	Monthly    Frequency = "Monthly"
	Quarterly  Frequency = "Quarterly"
	Continuous Frequency = "Continuous"
)

// bucketStart returns the start of the frequency's current window in UTC.
// Continuous has no window; every tick is its own bucket.
func (f Frequency) bucketStart(now time.Time) time.Time {
	switch f {
	case Daily:
		return timeutils.UTCMidnight(now)
	case Weekly:
		return timeutils.StartOfUTCWeek(now)
	case Monthly:
		return timeutils.StartOfUTCMonth(now)
	case Quarterly:
		return timeutils.StartOfUTCQuarter(now)
	}
	return now
}

// CheckResult is one non-conformity reported by a check function. The agent
// owns id assignment, deadlines, and lifecycle state.
type CheckResult struct {
	Severity         model.FindingSeverity
	Category         string
	Standard         string
	Title            string
	EvidenceLocation string
}

// CheckFunc evaluates one compliance check. No findings means the check
// passed. A returned error or panic is converted by the agent into a
// synthetic High finding; the run continues.
type CheckFunc func(ctx context.Context) ([]CheckResult, error)

// Check is a named audit function registered in the catalog.
type Check struct {
	ID              string
	Description     string
	Frequency       Frequency
	DefaultSeverity model.FindingSeverity
	Func            CheckFunc
}

// Catalog is an ordered set of checks. Execution order follows registration
// order, which keeps runs deterministic.
type Catalog struct {
	checks []*Check
	byID   map[string]*Check
}

// NewCatalog builds an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{byID: make(map[string]*Check)}
}

// Register appends a check. Re-registering an id replaces the original in
// place so order is preserved.
func (c *Catalog) Register(check *Check) {
	if existing, ok := c.byID[check.ID]; ok {
		*existing = *check
		return
	}
	c.checks = append(c.checks, check)
	c.byID[check.ID] = check
}

// Checks returns the ordered checks, optionally filtered by scope. An empty
// scope selects the whole catalog. Unknown ids are ignored.
func (c *Catalog) Checks(scope []string) []*Check {
	if len(scope) == 0 {
		return append([]*Check(nil), c.checks...)
	}

	wanted := make(map[string]bool, len(scope))
	for _, id := range scope {
		wanted[id] = true
	}

	var out []*Check
	for _, check := range c.checks {
		if wanted[check.ID] {
			out = append(out, check)
		}
	}
	return out
}
