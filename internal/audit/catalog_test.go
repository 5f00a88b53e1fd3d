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
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestCatalogOrderAndScope(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog()
	catalog.Register(staticCheck("c", Daily, nil))
	catalog.Register(staticCheck("a", Daily, nil))
	catalog.Register(staticCheck("b", Daily, nil))

	ids := func(checks []*Check) []string {
		out := make([]string, 0, len(checks))
		for _, c := range checks {
			out = append(out, c.ID)
		}
		return out
	}

	// Execution order follows registration order, not id order.
	if diff := cmp.Diff([]string{"c", "a", "b"}, ids(catalog.Checks(nil))); diff != "" {
		t.Errorf("Checks(nil) mismatch (-want, +got):\n%s", diff)
	}

	// Scope filters but keeps catalog order; unknown ids are ignored.
	if diff := cmp.Diff([]string{"c", "b"}, ids(catalog.Checks([]string{"b", "c", "nope"}))); diff != "" {
		t.Errorf("Checks(scope) mismatch (-want, +got):\n%s", diff)
	}
}

func TestCatalogReRegisterReplacesInPlace(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog()
	catalog.Register(staticCheck("a", Daily, nil))
	catalog.Register(staticCheck("b", Daily, nil))
	catalog.Register(staticCheck("a", Weekly, nil))

	checks := catalog.Checks(nil)
	if len(checks) != 2 {
		t.Fatalf("got %d checks, want 2", len(checks))
	}
	if checks[0].ID != "a" || checks[0].Frequency != Weekly {
		t.Errorf("checks[0] = %s/%s, want a replaced in place with Weekly", checks[0].ID, checks[0].Frequency)
	}
}

func TestFrequencyBucketStart(t *testing.T) {
	t.Parallel()

	// A Wednesday mid-February, mid-quarter.
	now := time.Date(2025, 2, 12, 15, 30, 45, 0, time.UTC)

	cases := []struct {
		frequency Frequency
		want      time.Time
	}{
		{Daily, time.Date(2025, 2, 12, 0, 0, 0, 0, time.UTC)},
		{Weekly, time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)},
		{Monthly, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		{Quarterly, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Continuous, now},
	}

	for _, tc := range cases {
		if got := tc.frequency.bucketStart(now); !got.Equal(tc.want) {
			t.Errorf("%s.bucketStart() = %v, want %v", tc.frequency, got, tc.want)
		}
	}
}
