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

// Package dispatch receives alert messages, validates them, formats per
// severity, and fans out to the enabled channel adapters. The distributor
// holds no persistent state beyond a short-lived delivery log; retries are
// the broker's responsibility.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/openidsr/surveillance-server/internal/model"
	"github.com/openidsr/surveillance-server/pkg/errkinds"
	"github.com/openidsr/surveillance-server/pkg/logging"
	"go.opencensus.io/stats"
	"golang.org/x/sync/errgroup"
)

// Channel is a delivery adapter. Send either delivers the formatted alert
// or returns an error; it must respect the context deadline.
type Channel interface {
	ID() string
	Send(ctx context.Context, alert *model.Alert, msg *BlockMessage) error
}

// Distributor fans alerts out to the enabled channels. It is stateless with
// respect to alerts and safe for concurrent use; each Dispatch call handles
// exactly one alert.
type Distributor struct {
	config   *Config
	channels []Channel
}

// NewDistributor creates a distributor over the given channel adapters.
func NewDistributor(cfg *Config, channels ...Channel) (*Distributor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dispatch config: %w", err)
	}
	return &Distributor{
		config:   cfg,
		channels: channels,
	}, nil
}

// Dispatch validates the alert and attempts each channel once. A channel
// failure never prevents the other channels from being attempted; the
// result map records the per-channel outcomes. The returned error is
// non-nil only for validation failures (no send attempted) and caller
// cancellation.
func (d *Distributor) Dispatch(ctx context.Context, alert *model.Alert) (map[string]bool, error) {
	logger := logging.FromContext(ctx)

	if err := validateAlert(alert); err != nil {
		stats.Record(ctx, mRejected.M(1))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dispatch aborted: %w", errkinds.ErrCancelled)
	}

	msg := formatAlert(alert)

	var mu sync.Mutex
	results := make(map[string]bool, len(d.channels))
	var channelErrs *multierror.Error

	g, gctx := errgroup.WithContext(ctx)
	for _, channel := range d.channels {
		channel := channel

		g.Go(func() error {
			sendCtx, done := context.WithTimeout(gctx, d.config.ChannelTimeout())
			defer done()

			err := channel.Send(sendCtx, alert, msg)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[channel.ID()] = false
				channelErrs = multierror.Append(channelErrs,
					fmt.Errorf("channel %s: %v: %w", channel.ID(), err, errkinds.ErrChannel))
				stats.Record(ctx, mSendFailures.M(1))
				return nil
			}
			results[channel.ID()] = true
			stats.Record(ctx, mSends.M(1))
			return nil
		})
	}
	// Channel errors are swallowed per-channel, so Wait never fails.
	_ = g.Wait()

	if err := channelErrs.ErrorOrNil(); err != nil {
		logger.Warnw("alert delivery incomplete",
			"alert_id", alert.AlertID, "results", results, "error", err)
	}

	return results, nil
}

// deliveryLog is the distributor's short-lived record of recently delivered
// alert ids, used by the chat channel for deduplication. Only successful
// deliveries are recorded; a failed send leaves no entry, so the broker's
// retry of the same alert id goes out again.
type deliveryLog struct {
	mu        sync.Mutex
	window    time.Duration
	delivered map[string]time.Time
	now       func() time.Time
}

func newDeliveryLog(window time.Duration) *deliveryLog {
	return &deliveryLog{
		window:    window,
		delivered: make(map[string]time.Time),
		now:       time.Now,
	}
}

// seen reports whether the alert id was delivered within the window. Stale
// entries are pruned lazily.
func (l *deliveryLog) seen(alertID string) bool {
	if l.window <= 0 || alertID == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, at := range l.delivered {
		if now.Sub(at) > l.window {
			delete(l.delivered, id)
		}
	}

	_, ok := l.delivered[alertID]
	return ok
}

// record marks the alert id as delivered at the current time.
func (l *deliveryLog) record(alertID string) {
	if l.window <= 0 || alertID == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.delivered[alertID] = l.now()
}
