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

// Package timeutils defines functions to close the gaps present in Golang's
// default implementation of Time.
package timeutils

import (
	"time"
)

// UTCMidnight returns the midnight (00:00) UTC time of the given date.
func UTCMidnight(t time.Time) time.Time {
	return Midnight(t.UTC())
}

// LocalMidnight returns the midnight (00:00) of the given date, in the time
// zone of the provided input.
func LocalMidnight(t time.Time) time.Time {
	return Midnight(t)
}

// Midnight returns the midnight (00:00) of the given date, preserving the
// location.
func Midnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// SameUTCDay reports whether both instants fall on the same UTC calendar day.
func SameUTCDay(a, b time.Time) bool {
	return UTCMidnight(a).Equal(UTCMidnight(b))
}

// SameUTCWeek reports whether both instants fall within the same UTC week,
// with weeks beginning on Monday.
func SameUTCWeek(a, b time.Time) bool {
	return StartOfUTCWeek(a).Equal(StartOfUTCWeek(b))
}

// StartOfUTCWeek returns midnight UTC of the Monday on or before the given
// instant.
func StartOfUTCWeek(t time.Time) time.Time {
	m := UTCMidnight(t)
	// time.Weekday numbers Sunday as 0; shift so Monday is the start.
	offset := (int(m.Weekday()) + 6) % 7
	return m.AddDate(0, 0, -offset)
}

// StartOfUTCMonth returns midnight UTC on the first day of the instant's
// month.
func StartOfUTCMonth(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// StartOfUTCQuarter returns midnight UTC on the first day of the instant's
// calendar quarter (Jan 1, Apr 1, Jul 1, Oct 1).
func StartOfUTCQuarter(t time.Time) time.Time {
	u := t.UTC()
	month := ((int(u.Month())-1)/3)*3 + 1
	return time.Date(u.Year(), time.Month(month), 1, 0, 0, 0, 0, time.UTC)
}
