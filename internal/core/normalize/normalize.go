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

// This file defines the per-kind conversion functions. Each is total over
// the raw JSON domain {string, object, null, missing, number, bool, array}:
// it never returns an error and never panics. Values outside a function's
// declared kind are coerced best-effort and recorded as field-shape
// anomalies rather than surfaced as failures, because the upstream model's
// schema drifts and a single odd field must not sink a whole report.
//
// The closed set of kinds here replaces ad hoc type switching scattered
// through the assembler: every leaf field declares its kind once in the
// assembler's defaults table and routes through exactly one of these
// functions.
package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Text coerces a raw value into a single descriptive string.
//
// Rules, in order:
//   - string: trimmed and returned; empty after trimming falls back to def.
//   - map: flattened into "key: value" fragments joined by "; ", keys in
//     sorted order so the output is stable across runs. This absorbs the
//     upstream habit of emitting a structured sub-object (e.g.
//     {"type": "neon", "direction": "side"}) where prose was expected.
//   - nil/missing: def.
//   - anything else: stringified best-effort and recorded as a field-shape
//     anomaly.
//
// Inputs:
//   - rec: The anomaly recorder for this assembly pass (nil allowed).
//   - path: The payload path, used only for anomaly records.
//   - raw: The raw decoded JSON value.
//   - def: The value to substitute for null/missing/blank input.
//
// Outputs:
//   - string: The canonical text value, never empty when def is non-empty.
func Text(rec *Recorder, path string, raw interface{}, def string) string {
	switch v := raw.(type) {
	case nil:
		return def
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return def
		}
		return trimmed
	case map[string]interface{}:
		flat := flattenMap(v)
		if flat == "" {
			return def
		}
		return flat
	default:
		rec.Record(path, AnomalyFieldShape, fmt.Sprintf("expected string, got %T", raw))
		coerced := strings.TrimSpace(Stringify(raw))
		if coerced == "" {
			return def
		}
		return coerced
	}
}

// MeasurementText is Text specialized for camera and spatial descriptors.
// The canonical form stays a human-readable string (the source expresses
// measurements as ranges and prose like "2-3 meters"); parsing to a float
// here would lose information or fail on ranges. A bare number is rendered
// back to its shortest decimal form instead of being flagged, since numeric
// measurements are an expected drift for these fields.
func MeasurementText(rec *Recorder, path string, raw interface{}, def string) string {
	if n, ok := asNumber(raw); ok {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return Text(rec, path, raw, def)
}

// StringList coerces a raw value into a slice of strings. A single string
// wraps into a one-element slice; null/missing yields a fresh empty slice
// (never a shared reference); list elements are themselves normalized via
// Text with an empty default, dropping blanks. Any other shape is coerced
// to a one-element slice and recorded.
func StringList(rec *Recorder, path string, raw interface{}) []string {
	switch v := raw.(type) {
	case nil:
		return make([]string, 0)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return make([]string, 0)
		}
		return []string{trimmed}
	case []interface{}:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s := Text(rec, fmt.Sprintf("%s[%d]", path, i), item, "")
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		rec.Record(path, AnomalyFieldShape, fmt.Sprintf("expected string list, got %T", raw))
		s := strings.TrimSpace(Stringify(raw))
		if s == "" {
			return make([]string, 0)
		}
		return []string{s}
	}
}

// Identifier resolves one logical field that the source spells under
// several key names (e.g. `name` vs `entity_id`). It returns the first
// candidate key whose value normalizes to a non-empty string, consulting
// keys in the given order, or "" when none is present. Keeping the key
// aliasing here means call sites carry no branching for the source's
// naming inconsistency.
func Identifier(rec *Recorder, path string, record map[string]interface{}, keys ...string) string {
	if record == nil {
		return ""
	}
	for _, key := range keys {
		raw, ok := record[key]
		if !ok {
			continue
		}
		if s := Text(rec, path+"."+key, raw, ""); s != "" {
			return s
		}
	}
	return ""
}

// Seconds coerces a raw value into a float64 number of seconds. It accepts
// JSON numbers, numeric strings, and strings with a leading number
// ("12.5s"); everything else degrades to def with a field-shape anomaly.
// Negative results are kept; range policy (clamping) is the assembler's
// concern, not the normalizer's.
func Seconds(rec *Recorder, path string, raw interface{}, def float64) float64 {
	if n, ok := asNumber(raw); ok {
		return n
	}
	switch v := raw.(type) {
	case nil:
		return def
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return n
		}
		if n, ok := leadingNumber(v); ok {
			rec.Record(path, AnomalyFieldShape, fmt.Sprintf("numeric value embedded in %q", v))
			return n
		}
		rec.Record(path, AnomalyFieldShape, fmt.Sprintf("expected number, got %q", v))
		return def
	default:
		rec.Record(path, AnomalyFieldShape, fmt.Sprintf("expected number, got %T", raw))
		return def
	}
}

// Stringify renders any decoded JSON value as display text without error.
// Maps flatten via flattenMap; lists join their stringified elements with
// ", "; floats drop a trailing ".0" so whole numbers read naturally.
func Stringify(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case map[string]interface{}:
		return flattenMap(v)
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(Stringify(item)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", raw)
	}
}

// flattenMap renders a JSON object as "key: value" fragments joined by
// "; ", with keys in sorted order for stable output. Empty values are
// skipped.
func flattenMap(m map[string]interface{}) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		val := strings.TrimSpace(Stringify(m[k]))
		if val == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", k, val))
	}
	return strings.Join(parts, "; ")
}

// asNumber reports whether raw is a JSON number (or bool, which is not a
// number) and returns its float64 value.
func asNumber(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// leadingNumber extracts a leading decimal number from a string like
// "12.5 seconds" or "-5s".
func leadingNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) {
		c := s[end]
		if c == '-' && end == 0 {
			end++
			continue
		}
		if (c >= '0' && c <= '9') || c == '.' {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
