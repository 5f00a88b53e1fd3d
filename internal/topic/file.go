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
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/openidsr/surveillance-server/internal/model"
)

// FileTopic appends alerts to an NDJSON file, one alert per line. It is the
// durable form of the alert topic used by the dispatch CLI.
type FileTopic struct {
	mu   sync.Mutex
	path string
}

// NewFileTopic creates a file topic at the given path. The file is created
// on first publish.
func NewFileTopic(path string) *FileTopic {
	return &FileTopic{path: path}
}

// Publish appends the alert to the topic file.
func (t *FileTopic) Publish(_ context.Context, alert *model.Alert) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open topic file: %w", err)
	}

	if _, err := f.Write(append(b, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("failed to append alert: %w", err)
	}
	return f.Close()
}

// ReadAll returns every alert currently in the topic file. A missing file is
// an empty topic, not an error.
func (t *FileTopic) ReadAll() ([]*model.Alert, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open topic file: %w", err)
	}
	defer f.Close()

	var alerts []*model.Alert
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var alert model.Alert
		if err := json.Unmarshal([]byte(line), &alert); err != nil {
			return nil, fmt.Errorf("malformed alert line: %w", err)
		}
		alerts = append(alerts, &alert)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read topic file: %w", err)
	}
	return alerts, nil
}
