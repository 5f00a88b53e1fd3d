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

// Package fusion merges CBS and EMR streams into one FusedRecord timeline
// per subject, applying probabilistic matching when identifiers are absent,
// and enforces the hot/cold retention policy.
package fusion

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/openidsr/surveillance-server/internal/model"
	"github.com/openidsr/surveillance-server/pkg/errkinds"
	"github.com/openidsr/surveillance-server/pkg/logging"
	"go.opencensus.io/stats"
)

// AlertPublisher receives alerts raised when a fused record crosses the risk
// threshold.
type AlertPublisher interface {
	Publish(ctx context.Context, alert *model.Alert) error
}

// Engine is the fusion engine handle. Construct one per process with New;
// there are no package-level instances.
type Engine struct {
	config *Config
	scorer *scorer
	store  *store
	alerts AlertPublisher

	now func() time.Time

	fusionEvents int64
}

// Option modifies the Engine on creation.
type Option func(*Engine)

// WithClock overrides the engine clock, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithAlertPublisher installs the alert topic the engine publishes to.
func WithAlertPublisher(p AlertPublisher) Option {
	return func(e *Engine) {
		e.alerts = p
	}
}

// New creates a fusion engine from the provided configuration.
func New(cfg *Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fusion config: %w", err)
	}

	scorer, err := newScorer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build scorer: %w", err)
	}

	e := &Engine{
		config: cfg,
		scorer: scorer,
		store:  newStore(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// FuseRequest carries the sources for one fusion. At least one of CBS, EMR,
// IDSR must be present.
type FuseRequest struct {
	CBS       *model.CBSSignal `json:"cbs,omitempty"`
	EMR       *model.EMREvent  `json:"emr,omitempty"`
	IDSR      *model.IDSRInput `json:"idsr,omitempty"`
	SubjectID string           `json:"subject_id,omitempty"`
}

// Fuse merges the request sources into a new canonical record, stores it,
// and appends to the fusion log. Timestamp parse failures surface
// immediately as validation errors; a duplicate record id is an integrity
// error.
func (e *Engine) Fuse(ctx context.Context, req *FuseRequest) (*model.FusedRecord, error) {
	logger := logging.FromContext(ctx)

	if req == nil || (req.CBS == nil && req.EMR == nil && req.IDSR == nil) {
		stats.Record(ctx, mFuseRejected.M(1))
		return nil, errkinds.Validationf("fuse requires at least one of cbs, emr, idsr")
	}

	var cbsTS, emrTS, idsrTS time.Time
	var err error
	if req.CBS != nil {
		if cbsTS, err = req.CBS.Timestamp.Parse(); err != nil {
			stats.Record(ctx, mFuseRejected.M(1))
			return nil, fmt.Errorf("cbs: %w", err)
		}
	}
	if req.EMR != nil {
		if emrTS, err = req.EMR.Timestamp.Parse(); err != nil {
			stats.Record(ctx, mFuseRejected.M(1))
			return nil, fmt.Errorf("emr: %w", err)
		}
	}
	if req.IDSR != nil {
		if idsrTS, err = req.IDSR.Timestamp.Parse(); err != nil {
			stats.Record(ctx, mFuseRejected.M(1))
			return nil, fmt.Errorf("idsr: %w", err)
		}
	}

	now := e.now().UTC()
	canonical := minInstant(cbsTS, emrTS, idsrTS)

	record := &model.FusedRecord{
		RecordID:           uuid.NewString(),
		SubjectID:          e.subjectFor(req),
		Location:           e.locationFor(req),
		CanonicalTimestamp: model.NewUTCTime(canonical),
		Sources:            rawSources(req),
		CanonicalPayload:   canonicalPayload(req, e.scorer.symptomMap),
		EventType:          inferEventType(req),
	}

	chain := []model.ConfidenceStep{{
		Step:   1,
		Stage:  "ingest",
		Detail: sourceList(record),
		Score:  model.VerificationUnverified.Score(),
		At:     model.NewUTCTime(now),
	}}

	if req.CBS != nil && req.EMR != nil {
		tier, score := e.scorer.Classify(req.CBS, req.EMR, cbsTS, emrTS)
		record.Verification = tier
		chain = append(chain, model.ConfidenceStep{
			Step:   2,
			Stage:  "entanglement",
			Detail: fmt.Sprintf("delta=%s", emrTS.Sub(cbsTS).Abs()),
			Score:  score,
			At:     model.NewUTCTime(now),
		})
	} else {
		record.Verification = model.VerificationUnverified
	}

	chain = append(chain, model.ConfidenceStep{
		Step:   len(chain) + 1,
		Stage:  "synthesis",
		Detail: string(record.EventType),
		Score:  record.Verification.Score(),
		At:     model.NewUTCTime(now),
	})
	record.ConfidenceChain = chain

	// Retention tier holds the invariant at creation: a record already past
	// the threshold is born Cold.
	record.Retention = model.RetentionHot
	if now.Sub(canonical) > e.config.RetentionThreshold() {
		record.Retention = model.RetentionCold
	}

	record.IDSRReport = deriveIDSR(record, req.IDSR)

	if err := e.store.insert(record); err != nil {
		stats.Record(ctx, mFuseRejected.M(1))
		return nil, err
	}
	atomic.AddInt64(&e.fusionEvents, 1)
	stats.Record(ctx, mRecordsFused.M(1))

	logger.Infow("fused record",
		"record_id", record.RecordID,
		"event_type", record.EventType,
		"verification", record.Verification,
		"retention", record.Retention)

	e.maybePublishAlert(ctx, record)

	return record.Clone(), nil
}

// Timeline returns the subject's records ordered by canonical timestamp
// ascending. Returned records are copies and never reflect later retention
// transitions.
func (e *Engine) Timeline(subjectID string) []*model.FusedRecord {
	return e.store.timeline(subjectID)
}

// Statistics returns the aggregate view of the store. Cold records are
// excluded from the verification average.
func (e *Engine) Statistics() Statistics {
	s := e.store.statistics()
	s.FusionEvents = atomic.LoadInt64(&e.fusionEvents)
	return s
}

// SweepRetention transitions Hot records past the retention threshold to
// Cold and returns the transitioned ids. The sweep is idempotent within a
// clock tick and there is no reverse transition.
func (e *Engine) SweepRetention(ctx context.Context) []string {
	transitioned := e.store.sweepRetention(e.now().UTC(), e.config.RetentionThreshold())
	if len(transitioned) > 0 {
		stats.Record(ctx, mRetentionTransitions.M(int64(len(transitioned))))
		logging.FromContext(ctx).Infow("retention sweep", "transitioned", len(transitioned))
	}
	return transitioned
}

func (e *Engine) subjectFor(req *FuseRequest) string {
	if req.SubjectID != "" {
		return req.SubjectID
	}
	if req.EMR != nil && req.EMR.SubjectID != "" {
		return req.EMR.SubjectID
	}
	if req.CBS != nil && req.CBS.SubjectID != "" {
		return req.CBS.SubjectID
	}
	if req.IDSR != nil && req.IDSR.SubjectID != "" {
		return req.IDSR.SubjectID
	}
	return ""
}

// locationFor resolves the canonical location, EMR over CBS over IDSR, with
// the documented default for a fully absent location.
func (e *Engine) locationFor(req *FuseRequest) string {
	if req.EMR != nil && strings.TrimSpace(req.EMR.Location) != "" {
		return req.EMR.Location
	}
	if req.CBS != nil && strings.TrimSpace(req.CBS.Location) != "" {
		return req.CBS.Location
	}
	if req.IDSR != nil && strings.TrimSpace(req.IDSR.Location) != "" {
		return req.IDSR.Location
	}
	return model.DefaultLocation
}

// inferEventType applies the fixed priority chain over the present sources.
func inferEventType(req *FuseRequest) model.EventType {
	if req.EMR != nil {
		if req.EMR.Diagnosis != "" {
			return model.EventDiagnosis
		}
		if len(req.EMR.LabResults) > 0 {
			return model.EventLabResult
		}
		if req.EMR.Hospitalized {
			return model.EventHospitalization
		}
	}
	if req.CBS != nil && req.CBS.Symptom != "" {
		if strings.EqualFold(req.CBS.Symptom, "outbreak") {
			return model.EventOutbreakAlert
		}
		return model.EventSymptomReport
	}
	return model.EventUnknown
}

// canonicalPayload synthesizes the overlapping fields, EMR overriding CBS.
// A CBS symptom outside the configured vocabulary collapses to the
// documented default.
func canonicalPayload(req *FuseRequest, vocabulary map[string][]string) map[string]string {
	payload := make(map[string]string)

	if req.CBS != nil {
		symptom := strings.ToLower(strings.TrimSpace(req.CBS.Symptom))
		if symptom == "" {
			symptom = model.DefaultSymptom
		} else if _, known := vocabulary[symptom]; !known && !strings.EqualFold(symptom, "outbreak") {
			symptom = model.DefaultSymptom
		}
		payload["symptom"] = symptom
	}
	if req.EMR != nil {
		if req.EMR.Diagnosis != "" {
			payload["diagnosis"] = req.EMR.Diagnosis
		}
		if len(req.EMR.LabResults) > 0 {
			payload["lab_results"] = flattenLabResults(req.EMR.LabResults)
		}
		if req.EMR.Hospitalized {
			payload["hospitalized"] = "true"
		}
	}
	return payload
}

func flattenLabResults(results map[string]string) string {
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	// Stable output keeps IDSR derivation idempotent.
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+results[k])
	}
	return strings.Join(parts, ";")
}

func rawSources(req *FuseRequest) map[string]json.RawMessage {
	sources := make(map[string]json.RawMessage)
	if req.CBS != nil {
		if b, err := json.Marshal(req.CBS); err == nil {
			sources[model.SourceCBS] = b
		}
	}
	if req.EMR != nil {
		if b, err := json.Marshal(req.EMR); err == nil {
			sources[model.SourceEMR] = b
		}
	}
	if req.IDSR != nil {
		if b, err := json.Marshal(req.IDSR); err == nil {
			sources[model.SourceIDSR] = b
		}
	}
	return sources
}

// minInstant returns the earliest of the non-zero instants.
func minInstant(instants ...time.Time) time.Time {
	var min time.Time
	for _, t := range instants {
		if t.IsZero() {
			continue
		}
		if min.IsZero() || t.Before(min) {
			min = t
		}
	}
	return min
}
