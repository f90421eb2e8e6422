// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package normalize converts the heterogeneous raw JSON values emitted by
// the upstream vision model into the single canonical shape the domain
// model requires. This file defines the anomaly record: the non-fatal
// observability trail left behind whenever a raw value did not match its
// expected kind or an expected structure was missing entirely.
package normalize

import (
	"fmt"
	"log/slog"
)

// AnomalyKind classifies the non-fatal irregularities found while walking
// the raw payload.
type AnomalyKind string

const (
	// AnomalyFieldShape marks a field whose raw JSON type did not match its
	// declared kind and was coerced best-effort (e.g. a number where a
	// string was expected).
	AnomalyFieldShape AnomalyKind = "field_shape"
	// AnomalyStructuralGap marks an expected array or object that was
	// missing or null and was substituted with an empty default.
	AnomalyStructuralGap AnomalyKind = "structural_gap"
	// AnomalyTemporal marks a time range that violated a soft ordering or
	// containment expectation and was clamped or logged.
	AnomalyTemporal AnomalyKind = "temporal"
)

// Anomaly is one recorded irregularity: where it happened, what kind it
// was, and a short human-readable detail.
type Anomaly struct {
	Path   string      `json:"path"` // JSON-ish path into the raw payload, e.g. "scenes[2].shots[0].lighting".
	Kind   AnomalyKind `json:"kind"`
	Detail string      `json:"detail"`
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s: %s (%s)", a.Path, a.Kind, a.Detail)
}

// Recorder accumulates anomalies during a single assembly pass. It is not
// safe for concurrent use; each assembly owns its own recorder. A nil
// *Recorder is valid and drops every record, which keeps the conversion
// functions total even when the caller does not care about observability.
type Recorder struct {
	anomalies []Anomaly
}

// NewRecorder returns an empty anomaly recorder.
func NewRecorder() *Recorder {
	return &Recorder{anomalies: make([]Anomaly, 0)}
}

// Record appends one anomaly and emits it at debug level. Never fails.
func (r *Recorder) Record(path string, kind AnomalyKind, detail string) {
	if r == nil {
		return
	}
	a := Anomaly{Path: path, Kind: kind, Detail: detail}
	r.anomalies = append(r.anomalies, a)
	slog.Debug("normalization anomaly", "path", path, "kind", string(kind), "detail", detail)
}

// Anomalies returns everything recorded so far, in record order.
func (r *Recorder) Anomalies() []Anomaly {
	if r == nil {
		return nil
	}
	return r.anomalies
}

// Len returns the number of recorded anomalies.
func (r *Recorder) Len() int {
	if r == nil {
		return 0
	}
	return len(r.anomalies)
}
