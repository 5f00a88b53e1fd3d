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

// Package observability sets up and configures the OpenCensus metric views
// for the surveillance core.
package observability

import (
	"fmt"
	"sync"

	"go.opencensus.io/plugin/ochttp"
	"go.opencensus.io/stats/view"
)

func defaultViews() []*view.View {
	var ret []*view.View
	ret = append(ret, ochttp.DefaultClientViews...)
	ret = append(ret, ochttp.DefaultServerViews...)
	return ret
}

var collectedViews = struct {
	views []*view.View
	sync.Mutex
}{}

// CollectViews collects OpenCensus views for registration at a later time
// when the metric exporter is set up. This allows a package to "register" its
// views from init() while still handling registration errors correctly.
func CollectViews(views ...*view.View) {
	collectedViews.Lock()
	defer collectedViews.Unlock()
	collectedViews.views = append(collectedViews.views, views...)
}

// AllViews returns the collected OpenCensus views plus the defaults.
func AllViews() []*view.View {
	collectedViews.Lock()
	defer collectedViews.Unlock()
	return append(collectedViews.views, defaultViews()...)
}

// RegisterViews subscribes every collected view with the OpenCensus view
// worker. It is intended to be called once from the composition root.
func RegisterViews() error {
	if err := view.Register(AllViews()...); err != nil {
		return fmt.Errorf("failed to register views: %w", err)
	}
	return nil
}
