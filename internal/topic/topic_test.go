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

package topic

import (
	"context"
	"testing"
	"time"

	"github.com/openidsr/surveillance-server/internal/model"
)

func testAlert(id string) *model.Alert {
	return &model.Alert{
		AlertID:   id,
		Type:      "outbreak_alert",
		Severity:  model.AlertCritical,
		Message:   "test",
		Timestamp: model.NewUTCTime(time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)),
	}
}

func TestTopicPublishSubscribe(t *testing.T) {
	t.Parallel()

	topic := New(4)
	defer topic.Close()

	first, unsubFirst := topic.Subscribe()
	defer unsubFirst()
	second, unsubSecond := topic.Subscribe()
	defer unsubSecond()

	if err := topic.Publish(context.Background(), testAlert("a1")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for name, ch := range map[string]<-chan *model.Alert{"first": first, "second": second} {
		select {
		case alert := <-ch:
			if alert.AlertID != "a1" {
				t.Errorf("%s subscriber got %q, want a1", name, alert.AlertID)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s subscriber never received the alert", name)
		}
	}
}

func TestTopicUnsubscribe(t *testing.T) {
	t.Parallel()

	topic := New(1)
	defer topic.Close()

	ch, unsubscribe := topic.Subscribe()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Error("channel still open after unsubscribe")
	}

	// Publishing to a topic with no subscribers succeeds.
	if err := topic.Publish(context.Background(), testAlert("a1")); err != nil {
		t.Errorf("Publish after unsubscribe: %v", err)
	}

	// Unsubscribing twice is harmless.
	unsubscribe()
}

func TestTopicPublishBlockedByFullSubscriber(t *testing.T) {
	t.Parallel()

	topic := New(1)
	defer topic.Close()

	_, unsubscribe := topic.Subscribe()
	defer unsubscribe()

	ctx := context.Background()
	if err := topic.Publish(ctx, testAlert("a1")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// The subscriber buffer is full and nobody is draining: a bounded
	// context unblocks the publisher.
	bounded, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := topic.Publish(bounded, testAlert("a2")); err == nil {
		t.Error("Publish() = nil error with a full subscriber and expired context")
	}
}

func TestTopicClose(t *testing.T) {
	t.Parallel()

	topic := New(1)
	ch, _ := topic.Subscribe()

	topic.Close()
	if _, ok := <-ch; ok {
		t.Error("subscriber channel still open after Close")
	}
	if err := topic.Publish(context.Background(), testAlert("a1")); err == nil {
		t.Error("Publish() = nil error on a closed topic")
	}

	// Closing twice is harmless; subscribing after close yields a closed
	// channel.
	topic.Close()
	late, _ := topic.Subscribe()
	if _, ok := <-late; ok {
		t.Error("late subscriber channel open on a closed topic")
	}
}

func TestFileTopicRoundTrip(t *testing.T) {
	t.Parallel()

	path := t.TempDir() + "/alerts.ndjson"
	fileTopic := NewFileTopic(path)
	ctx := context.Background()

	if err := fileTopic.Publish(ctx, testAlert("a1")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := fileTopic.Publish(ctx, testAlert("a2")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	alerts, err := fileTopic.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("ReadAll() = %d alerts, want 2", len(alerts))
	}
	if alerts[0].AlertID != "a1" || alerts[1].AlertID != "a2" {
		t.Errorf("alert order = [%s, %s], want publish order", alerts[0].AlertID, alerts[1].AlertID)
	}
}

func TestFileTopicMissingFile(t *testing.T) {
	t.Parallel()

	fileTopic := NewFileTopic(t.TempDir() + "/absent.ndjson")
	alerts, err := fileTopic.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("ReadAll() = %d alerts for a missing file, want 0", len(alerts))
	}
}
