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

	"github.com/openidsr/surveillance-server/pkg/logging"
)

// Scheduler drives the agent on a cooperative, single-goroutine tick loop.
// At each tick it dispatches the checks whose frequency bucket has not yet
// run in the current window; Continuous checks fire every tick.
type Scheduler struct {
	agent *Agent

	// lastBucket records, per check id, the bucket window start the check
	// last ran in.
	lastBucket map[string]time.Time
}

// NewScheduler builds a scheduler over the agent's catalog.
func NewScheduler(agent *Agent) *Scheduler {
	return &Scheduler{
		agent:      agent,
		lastBucket: make(map[string]time.Time),
	}
}

// dueChecks returns the ids of checks due at the given instant. The bucket
// windows stay open until markRan, so a failed run leaves the checks due on
// the next tick.
func (s *Scheduler) dueChecks(now time.Time) []string {
	var due []string
	for _, check := range s.agent.catalog.Checks(nil) {
		if check.Frequency == Continuous {
			due = append(due, check.ID)
			continue
		}

		bucket := check.Frequency.bucketStart(now)
		if last, ok := s.lastBucket[check.ID]; ok && last.Equal(bucket) {
			continue
		}
		due = append(due, check.ID)
	}
	return due
}

// markRan consumes the bucket windows for the checks that completed a run.
func (s *Scheduler) markRan(ids []string, now time.Time) {
	for _, check := range s.agent.catalog.Checks(ids) {
		if check.Frequency == Continuous {
			continue
		}
		s.lastBucket[check.ID] = check.Frequency.bucketStart(now)
	}
}

// Run ticks until the context is canceled. Cancellation takes effect at the
// next tick boundary; an in-flight check finishes or hits its soft deadline.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	tick := s.agent.config.Tick()

	logger.Infow("audit scheduler started", "tick", tick)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	// The first pass runs immediately so a fresh deployment does not wait a
	// full tick for its Daily checks.
	if err := s.tickOnce(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			logger.Infow("audit scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := s.tickOnce(ctx); err != nil {
				return err
			}
		}
	}
}

func (s *Scheduler) tickOnce(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	now := s.agent.now().UTC()
	due := s.dueChecks(now)
	if len(due) == 0 {
		return nil
	}

	if _, err := s.agent.RunAudit(ctx, due); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// A failed run leaves the buckets open so the same checks come due
		// again on the next tick rather than killing the scheduler.
		logger.Errorw("audit run failed", "error", err)
		return nil
	}

	s.markRan(due, now)
	return nil
}
