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

// Package topic provides the alert topic connecting the fusion engine and
// the audit agent to the alert distributor. The in-process topic is a local
// stand-in for an external broker with at-least-once delivery; the file
// topic persists alerts as NDJSON for offline draining.
package topic

import (
	"context"
	"fmt"
	"sync"

	"github.com/openidsr/surveillance-server/internal/model"
)

// Topic is an in-process alert topic. Publishing blocks until every
// subscriber has capacity or the context is canceled.
type Topic struct {
	mu     sync.Mutex
	subs   []chan *model.Alert
	buffer int
	closed bool
}

// New creates a topic whose subscriber channels hold up to buffer alerts.
func New(buffer int) *Topic {
	if buffer <= 0 {
		buffer = 64
	}
	return &Topic{buffer: buffer}
}

// Publish delivers the alert to every subscriber.
func (t *Topic) Publish(ctx context.Context, alert *model.Alert) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("topic is closed")
	}
	subs := append([]chan *model.Alert(nil), t.subs...)
	t.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub <- alert:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers a new subscriber and returns its channel with an
// unsubscribe function. The channel is closed on unsubscribe or topic
// close.
func (t *Topic) Subscribe() (<-chan *model.Alert, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan *model.Alert, t.buffer)
	if t.closed {
		close(ch)
		return ch, func() {}
	}
	t.subs = append(t.subs, ch)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			for i, sub := range t.subs {
				if sub == ch {
					t.subs = append(t.subs[:i], t.subs[i+1:]...)
					close(ch)
					break
				}
			}
		})
	}
	return ch, unsubscribe
}

// Close closes the topic and all subscriber channels.
func (t *Topic) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	for _, sub := range t.subs {
		close(sub)
	}
	t.subs = nil
}
