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

// Package interrupt builds the root context for the surveillance binaries,
// canceled when the process is asked to stop.
package interrupt

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Context returns the root context for a binary, canceled on SIGINT or
// SIGTERM so in-flight fusion and audit work can drain. The returned func
// releases the signal watch.
func Context() (context.Context, func()) {
	return OnSignals(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// OnSignals derives a context from parent that is canceled when any of the
// given signals arrives.
func OnSignals(parent context.Context, signals ...os.Signal) (context.Context, func()) {
	return signal.NotifyContext(parent, signals...)
}
