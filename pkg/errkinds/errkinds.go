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

// Package errkinds defines the error categories shared across the
// surveillance core. Components wrap these sentinels so callers can branch on
// the category with errors.Is without depending on component internals.
package errkinds

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates malformed input: missing required fields,
	// unparseable timestamps, or personal identifiers in alert metadata. It is
	// non-fatal at the component level and is always surfaced to the caller.
	ErrValidation = errors.New("validation")

	// ErrIntegrity indicates a store invariant was violated, such as a
	// duplicate record id. The current operation fails; prior state is intact.
	ErrIntegrity = errors.New("integrity")

	// ErrCheck indicates an audit check panicked or exceeded its deadline. The
	// audit agent converts it into a synthetic finding and continues.
	ErrCheck = errors.New("check")

	// ErrChannel indicates a distributor adapter failed to deliver. It is
	// recorded per channel and never fails the dispatch as a whole.
	ErrChannel = errors.New("channel")

	// ErrCancelled indicates cooperative shutdown was requested.
	ErrCancelled = errors.New("cancelled")
)

// Validationf builds a validation error with a formatted message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

// Integrityf builds an integrity error with a formatted message.
func Integrityf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrIntegrity)...)
}

// IsValidation reports whether err is (or wraps) a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsIntegrity reports whether err is (or wraps) an integrity error.
func IsIntegrity(err error) bool {
	return errors.Is(err, ErrIntegrity)
}

// IsCancelled reports whether err is (or wraps) a cancellation error,
// including the context package's own sentinels.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
