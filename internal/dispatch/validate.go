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
	"strings"

	"github.com/openidsr/surveillance-server/internal/model"
	"github.com/openidsr/surveillance-server/pkg/errkinds"
)

// reservedMetadataKeys are metadata keys that carry direct personal
// identifiers. Payloads using them are rejected before any channel is
// attempted.
var reservedMetadataKeys = map[string]bool{
	"subject_id":    true,
	"subject_name":  true,
	"patient_id":    true,
	"patient_name":  true,
	"national_id":   true,
	"passport":      true,
	"phone":         true,
	"email":         true,
	"date_of_birth": true,
}

// validateAlert enforces the message contract: non-empty type and message,
// and no reserved identifier keys in metadata. Violations are validation
// errors with no side effects.
func validateAlert(alert *model.Alert) error {
	if alert == nil {
		return errkinds.Validationf("alert payload is empty")
	}
	if strings.TrimSpace(alert.Type) == "" {
		return errkinds.Validationf("alert type is required")
	}
	if strings.TrimSpace(alert.Message) == "" {
		return errkinds.Validationf("alert message is required")
	}

	for key := range alert.Metadata {
		if reservedMetadataKeys[strings.ToLower(strings.TrimSpace(key))] {
			return errkinds.Validationf("metadata key %q is a reserved personal identifier", key)
		}
	}
	return nil
}
