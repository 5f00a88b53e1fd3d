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

package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openidsr/surveillance-server/pkg/errkinds"
)

// InvalidTimestampError indicates a source timestamp could not be parsed. It
// wraps errkinds.ErrValidation so callers can branch on the category.
type InvalidTimestampError struct {
	Raw string
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("invalid timestamp %q", e.Raw)
}

func (e *InvalidTimestampError) Unwrap() error {
	return errkinds.ErrValidation
}

// Timestamp is a raw timestamp as received on the wire. Sources send either
// an ISO-8601 string or numeric epoch seconds; both decode into the raw
// string form and are resolved by Parse. Parsing is deferred so a bad value
// is reported as a tagged error by the consuming operation rather than as a
// JSON decoding failure.
type Timestamp string

// UnmarshalJSON accepts both string and numeric JSON values.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := string(b)
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("unquote timestamp: %w", err)
		}
		*t = Timestamp(unquoted)
		return nil
	}
	*t = Timestamp(s)
	return nil
}

// MarshalJSON emits the raw form unchanged.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

// IsZero reports whether no timestamp was provided.
func (t Timestamp) IsZero() bool {
	return strings.TrimSpace(string(t)) == ""
}

// Parse resolves the raw timestamp to a UTC instant. ISO-8601 is attempted
// first, then numeric epoch seconds. A missing or unparseable value returns
// an *InvalidTimestampError.
func (t Timestamp) Parse() (time.Time, error) {
	raw := strings.TrimSpace(string(t))
	if raw == "" {
		return time.Time{}, &InvalidTimestampError{Raw: raw}
	}

	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), nil
	}

	if epoch, err := strconv.ParseFloat(raw, 64); err == nil {
		sec := int64(epoch)
		nsec := int64((epoch - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC(), nil
	}

	return time.Time{}, &InvalidTimestampError{Raw: raw}
}

// UTCTime is a time.Time that marshals as ISO-8601 UTC with second
// precision, the canonical serialization for all persisted artifacts.
type UTCTime struct {
	time.Time
}

// NewUTCTime truncates the given instant to second precision in UTC.
func NewUTCTime(t time.Time) UTCTime {
	return UTCTime{t.UTC().Truncate(time.Second)}
}

// MarshalJSON emits RFC3339 with second precision.
func (t UTCTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.UTC().Format(time.RFC3339))), nil
}

// UnmarshalJSON parses RFC3339.
func (t *UTCTime) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("unquote time: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("parse time: %w", err)
	}
	t.Time = parsed.UTC()
	return nil
}
