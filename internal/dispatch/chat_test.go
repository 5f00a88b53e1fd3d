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

package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestChatChannelSend(t *testing.T) {
	t.Parallel()

	var posts int64
	var got chatPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&posts, 1)
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	channel := NewChatChannel(srv.URL, 600*time.Second)
	alert := testAlert()
	msg := formatAlert(alert)

	if err := channel.Send(context.Background(), alert, msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got.Color != msg.Color || got.Header != msg.Header || got.Body != msg.Body {
		t.Errorf("payload = %+v, want the formatted block message", got)
	}
	if got.ExternalRef != alert.AlertID {
		t.Errorf("ExternalRef = %q, want %q", got.ExternalRef, alert.AlertID)
	}

	// A repeated alert id inside the window is acknowledged without a second
	// post.
	if err := channel.Send(context.Background(), alert, msg); err != nil {
		t.Fatalf("deduplicated Send: %v", err)
	}
	if n := atomic.LoadInt64(&posts); n != 1 {
		t.Errorf("webhook saw %d posts, want 1", n)
	}
}

func TestChatChannelServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	channel := NewChatChannel(srv.URL, 0)
	alert := testAlert()

	if err := channel.Send(context.Background(), alert, formatAlert(alert)); err == nil {
		t.Error("Send() = nil error for a 502 response")
	}
}

func TestChatChannelRetryAfterFailure(t *testing.T) {
	t.Parallel()

	// First post fails, the broker retries the same alert id, the retry must
	// reach the webhook instead of being swallowed by the dedup log.
	var posts int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&posts, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	channel := NewChatChannel(srv.URL, 600*time.Second)
	alert := testAlert()
	msg := formatAlert(alert)

	if err := channel.Send(context.Background(), alert, msg); err == nil {
		t.Fatal("Send() = nil error for a 502 response")
	}
	if err := channel.Send(context.Background(), alert, msg); err != nil {
		t.Fatalf("retried Send: %v", err)
	}
	if n := atomic.LoadInt64(&posts); n != 2 {
		t.Errorf("webhook saw %d posts, want 2", n)
	}

	// The successful delivery is now in the window.
	if err := channel.Send(context.Background(), alert, msg); err != nil {
		t.Fatalf("deduplicated Send: %v", err)
	}
	if n := atomic.LoadInt64(&posts); n != 2 {
		t.Errorf("webhook saw %d posts after dedup, want 2", n)
	}
}

func TestChatChannelID(t *testing.T) {
	t.Parallel()

	if got := NewChatChannel("http://example.invalid", 0).ID(); got != "chat" {
		t.Errorf("ID() = %q, want chat", got)
	}
}
