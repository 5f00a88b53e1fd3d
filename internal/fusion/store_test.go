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
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/openidsr/surveillance-server/internal/model"
	"github.com/openidsr/surveillance-server/pkg/errkinds"
)

func testRecord(id, subject string, canonical time.Time) *model.FusedRecord {
	return &model.FusedRecord{
		RecordID:           id,
		SubjectID:          subject,
		EventType:          model.EventSymptomReport,
		Location:           "Nairobi",
		CanonicalTimestamp: model.NewUTCTime(canonical),
		Verification:       model.VerificationUnverified,
		Retention:          model.RetentionHot,
	}
}

func TestStoreInsertDuplicate(t *testing.T) {
	t.Parallel()

	s := newStore()
	ts := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)

	if err := s.insert(testRecord("r1", "case-001", ts)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	err := s.insert(testRecord("r1", "case-001", ts))
	if !errkinds.IsIntegrity(err) {
		t.Errorf("duplicate insert err = %v, want integrity error", err)
	}

	// Prior state is intact.
	if got := len(s.timeline("case-001")); got != 1 {
		t.Errorf("timeline has %d records after rejected insert, want 1", got)
	}
}

func TestStoreConcurrentInsert(t *testing.T) {
	t.Parallel()

	s := newStore()
	ts := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			subject := fmt.Sprintf("case-%03d", i%8)
			if err := s.insert(testRecord(fmt.Sprintf("r%d", i), subject, ts)); err != nil {
				t.Errorf("insert: %v", err)
			}
		}()
	}
	wg.Wait()

	stats := s.statistics()
	if stats.Total != 64 {
		t.Errorf("Total = %d, want 64", stats.Total)
	}
}

func TestStoreSweepRetention(t *testing.T) {
	t.Parallel()

	s := newStore()
	now := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)
	threshold := 180 * 24 * time.Hour

	old := testRecord("old", "case-001", now.Add(-threshold-time.Hour))
	fresh := testRecord("fresh", "case-002", now.Add(-time.Hour))
	boundary := testRecord("boundary", "case-003", now.Add(-threshold))

	for _, r := range []*model.FusedRecord{old, fresh, boundary} {
		if err := s.insert(r); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	transitioned := s.sweepRetention(now, threshold)
	// The boundary record is exactly at the threshold, not past it.
	if len(transitioned) != 1 || transitioned[0] != "old" {
		t.Errorf("sweepRetention() = %v, want [old]", transitioned)
	}

	if again := s.sweepRetention(now, threshold); len(again) != 0 {
		t.Errorf("second sweep = %v, want none", again)
	}

	stats := s.statistics()
	if stats.Hot != 2 || stats.Cold != 1 {
		t.Errorf("statistics = %+v, want 2 hot 1 cold", stats)
	}
}

func TestStoreStatisticsExcludesCold(t *testing.T) {
	t.Parallel()

	s := newStore()
	ts := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)

	hot := testRecord("hot", "case-001", ts)
	hot.Verification = model.VerificationConfirmed
	cold := testRecord("cold", "case-002", ts)
	cold.Verification = model.VerificationConfirmed
	cold.Retention = model.RetentionCold

	if err := s.insert(hot); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.insert(cold); err != nil {
		t.Fatalf("insert: %v", err)
	}

	stats := s.statistics()
	if stats.AverageVerification != 1.0 {
		t.Errorf("AverageVerification = %v, want 1.0 over hot records only", stats.AverageVerification)
	}
}
