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

package fusion

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config represents the configuration and associated environment variables
// for the fusion engine.
type Config struct {
	Port string `env:"FUSION_PORT,default=8080"`

	// RetentionDays is the Hot to Cold transition threshold.
	RetentionDays int `env:"RETENTION_DAYS,default=180"`

	// TemporalDecay is the exponential decay rate applied to the time delta
	// between a CBS signal and an EMR event. It must be negative.
	TemporalDecay float64 `env:"ENTANGLEMENT_TEMPORAL_DECAY,default=-0.05"`

	// TemporalWeight and ContentWeight combine the temporal proximity and
	// content alignment terms of the entanglement score.
	TemporalWeight float64 `env:"ENTANGLEMENT_TEMPORAL_WEIGHT,default=0.7"`
	ContentWeight  float64 `env:"ENTANGLEMENT_CONTENT_WEIGHT,default=0.3"`

	// ThresholdHigh is the Entangled cutoff, ThresholdMedium the Probable
	// cutoff.
	ThresholdHigh   float64 `env:"ENTANGLEMENT_THRESHOLD_HIGH,default=0.85"`
	ThresholdMedium float64 `env:"ENTANGLEMENT_THRESHOLD_MEDIUM,default=0.5"`

	// SymptomDiagnosisMapFile optionally points at a JSON file of
	// symptom -> []diagnosis replacing the built-in seed table.
	SymptomDiagnosisMapFile string `env:"SYMPTOM_DIAGNOSIS_MAP_FILE"`
}

// RetentionThreshold returns the configured Hot to Cold age limit. The
// comparison is done with instant precision against this duration.
func (c *Config) RetentionThreshold() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Validate rejects configurations that would make the score formula
// meaningless.
func (c *Config) Validate() error {
	if c.RetentionDays <= 0 {
		return fmt.Errorf("RETENTION_DAYS must be positive, got %d", c.RetentionDays)
	}
	if c.TemporalDecay >= 0 {
		return fmt.Errorf("ENTANGLEMENT_TEMPORAL_DECAY must be negative, got %v", c.TemporalDecay)
	}
	if c.TemporalWeight < 0 || c.ContentWeight < 0 {
		return fmt.Errorf("entanglement weights must be non-negative, got (%v, %v)", c.TemporalWeight, c.ContentWeight)
	}
	if c.ThresholdHigh <= 0 || c.ThresholdHigh > 1 {
		return fmt.Errorf("ENTANGLEMENT_THRESHOLD_HIGH must be in (0, 1], got %v", c.ThresholdHigh)
	}
	if c.ThresholdMedium <= 0 || c.ThresholdMedium >= c.ThresholdHigh {
		return fmt.Errorf("ENTANGLEMENT_THRESHOLD_MEDIUM must be in (0, high), got %v", c.ThresholdMedium)
	}
	return nil
}

// seedSymptomDiagnosisMap is the built-in content matching table. Keys are
// CBS symptom codes, values the clinical diagnoses they corroborate.
var seedSymptomDiagnosisMap = map[string][]string{
	"fever":         {"Malaria", "Typhoid", "Dengue"},
	"watery_stool":  {"Cholera", "Acute Diarrhea"},
	"rash":          {"Measles", "Chickenpox"},
	"cough":         {"Tuberculosis", "Pneumonia", "Influenza"},
	"jaundice":      {"Hepatitis", "Yellow Fever"},
	"stiff_neck":    {"Meningitis"},
	"bleeding":      {"Viral Hemorrhagic Fever"},
	"paralysis":     {"Acute Flaccid Paralysis", "Polio"},
	"swollen_limbs": {"Lymphatic Filariasis"},
}

// SymptomDiagnosisMap returns the configured content matching table,
// normalized to lowercase diagnoses for case-insensitive lookup.
func (c *Config) SymptomDiagnosisMap() (map[string][]string, error) {
	raw := seedSymptomDiagnosisMap
	if c.SymptomDiagnosisMapFile != "" {
		b, err := os.ReadFile(c.SymptomDiagnosisMapFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read symptom map: %w", err)
		}
		override := make(map[string][]string)
		if err := json.Unmarshal(b, &override); err != nil {
			return nil, fmt.Errorf("failed to parse symptom map: %w", err)
		}
		raw = override
	}

	out := make(map[string][]string, len(raw))
	for symptom, diagnoses := range raw {
		normalized := make([]string, 0, len(diagnoses))
		for _, d := range diagnoses {
			normalized = append(normalized, strings.ToLower(strings.TrimSpace(d)))
		}
		out[strings.ToLower(strings.TrimSpace(symptom))] = normalized
	}
	return out, nil
}
