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
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/openidsr/surveillance-server/internal/model"
	"github.com/openidsr/surveillance-server/pkg/errkinds"
)

// shardCount is the number of subject shards in the store. Writers within a
// shard are exclusive; readers proceed in parallel across shards.
const shardCount = 16

type shard struct {
	mu        sync.RWMutex
	byID      map[string]*model.FusedRecord
	bySubject map[string][]*model.FusedRecord
}

// store is the sharded in-memory FusedRecord store. Records are owned by the
// store once inserted; all reads return deep copies.
type store struct {
	shards [shardCount]*shard
}

func newStore() *store {
	s := &store{}
	for i := range s.shards {
		s.shards[i] = &shard{
			byID:      make(map[string]*model.FusedRecord),
			bySubject: make(map[string][]*model.FusedRecord),
		}
	}
	return s
}

func (s *store) shardFor(subjectID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(subjectID))
	return s.shards[h.Sum32()%shardCount]
}

// insert stores the record. A duplicate record id is an integrity violation
// and leaves prior state intact.
func (s *store) insert(r *model.FusedRecord) error {
	sh := s.shardFor(r.SubjectID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.byID[r.RecordID]; ok {
		return errkinds.Integrityf("duplicate record id %q", r.RecordID)
	}

	sh.byID[r.RecordID] = r
	sh.bySubject[r.SubjectID] = append(sh.bySubject[r.SubjectID], r)
	return nil
}

// timeline returns copies of the subject's records ordered by canonical
// timestamp ascending.
func (s *store) timeline(subjectID string) []*model.FusedRecord {
	sh := s.shardFor(subjectID)
	sh.mu.RLock()
	records := sh.bySubject[subjectID]
	out := make([]*model.FusedRecord, 0, len(records))
	for _, r := range records {
		out = append(out, r.Clone())
	}
	sh.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CanonicalTimestamp.Before(out[j].CanonicalTimestamp.Time)
	})
	return out
}

// sweepRetention transitions Hot records older than the threshold to Cold
// and returns the ids of every record transitioned. The transition is one
// way and idempotent within a clock tick.
func (s *store) sweepRetention(now time.Time, threshold time.Duration) []string {
	var transitioned []string
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, r := range sh.byID {
			if r.Retention == model.RetentionHot && now.Sub(r.CanonicalTimestamp.Time) > threshold {
				r.Retention = model.RetentionCold
				transitioned = append(transitioned, id)
			}
		}
		sh.mu.Unlock()
	}

	sort.Strings(transitioned)
	return transitioned
}

// Statistics is an aggregate view of the store. Cold records are excluded
// from the verification average, which is computed over Hot records only.
type Statistics struct {
	Total               int     `json:"total"`
	Hot                 int     `json:"hot"`
	Cold                int     `json:"cold"`
	AverageVerification float64 `json:"avg_verification"`
	FusionEvents        int64   `json:"fusion_events"`
}

func (s *store) statistics() Statistics {
	var stats Statistics
	var verificationSum float64

	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, r := range sh.byID {
			stats.Total++
			switch r.Retention {
			case model.RetentionCold:
				stats.Cold++
			default:
				stats.Hot++
				verificationSum += r.Verification.Score()
			}
		}
		sh.mu.RUnlock()
	}

	if stats.Hot > 0 {
		stats.AverageVerification = verificationSum / float64(stats.Hot)
	}
	return stats
}
