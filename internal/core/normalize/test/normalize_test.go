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

package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moemoe9876/ai-video/internal/core/normalize"
)

func TestTextString(t *testing.T) {
	rec := normalize.NewRecorder()
	assert.Equal(t, "neon glow", normalize.Text(rec, "scenes[0].lighting", "  neon glow  ", "Natural lighting"))
	assert.Equal(t, "Natural lighting", normalize.Text(rec, "scenes[0].lighting", "   ", "Natural lighting"))
	assert.Equal(t, "Natural lighting", normalize.Text(rec, "scenes[0].lighting", nil, "Natural lighting"))
	assert.Equal(t, 0, rec.Len())
}

func TestTextFlattensObject(t *testing.T) {
	rec := normalize.NewRecorder()
	raw := map[string]interface{}{
		"type":      "neon",
		"direction": "side",
	}
	assert.Equal(t, "direction: side; type: neon", normalize.Text(rec, "scenes[0].lighting", raw, ""))
	assert.Equal(t, 0, rec.Len(), "object flattening is expected drift, not an anomaly")
}

func TestTextCoercesNumber(t *testing.T) {
	rec := normalize.NewRecorder()
	assert.Equal(t, "500", normalize.Text(rec, "scenes[0].film_stock_resemblance", float64(500), "def"))
	assert.Equal(t, 1, rec.Len())
	assert.Equal(t, normalize.AnomalyFieldShape, rec.Anomalies()[0].Kind)
	assert.Equal(t, "scenes[0].film_stock_resemblance", rec.Anomalies()[0].Path)
}

func TestTextNilRecorder(t *testing.T) {
	var rec *normalize.Recorder
	assert.Equal(t, "true", normalize.Text(rec, "path", true, "def"))
	assert.Equal(t, 0, rec.Len())
	assert.Nil(t, rec.Anomalies())
}

func TestMeasurementText(t *testing.T) {
	rec := normalize.NewRecorder()
	assert.Equal(t, "2-3 meters", normalize.MeasurementText(rec, "p", "2-3 meters", ""))
	assert.Equal(t, "2.5", normalize.MeasurementText(rec, "p", float64(2.5), ""))
	assert.Equal(t, "3", normalize.MeasurementText(rec, "p", float64(3.0), ""))
	assert.Equal(t, "unknown", normalize.MeasurementText(rec, "p", nil, "unknown"))
	assert.Equal(t, 0, rec.Len(), "bare numbers are expected for measurement fields")
}

func TestStringList(t *testing.T) {
	rec := normalize.NewRecorder()

	empty := normalize.StringList(rec, "p", nil)
	assert.NotNil(t, empty)
	assert.Len(t, empty, 0)

	assert.Equal(t, []string{"teal"}, normalize.StringList(rec, "p", "teal"))

	raw := []interface{}{" teal ", "", "orange", nil}
	assert.Equal(t, []string{"teal", "orange"}, normalize.StringList(rec, "p", raw))
	assert.Equal(t, 0, rec.Len())

	assert.Equal(t, []string{"7"}, normalize.StringList(rec, "p", float64(7)))
	assert.Equal(t, 1, rec.Len())
}

func TestIdentifier(t *testing.T) {
	rec := normalize.NewRecorder()
	record := map[string]interface{}{
		"name":      "  ",
		"entity_id": "drone-01",
		"id":        "ignored",
	}
	assert.Equal(t, "drone-01", normalize.Identifier(rec, "scenes[0].key_entities[1]", record, "name", "entity_id", "id"))
	assert.Equal(t, "", normalize.Identifier(rec, "p", record, "label"))
	assert.Equal(t, "", normalize.Identifier(rec, "p", nil, "name"))
}

func TestSeconds(t *testing.T) {
	rec := normalize.NewRecorder()

	assert.Equal(t, 12.5, normalize.Seconds(rec, "p", float64(12.5), 0))
	assert.Equal(t, 12.5, normalize.Seconds(rec, "p", "12.5", 0))
	assert.Equal(t, 0, rec.Len(), "clean numeric strings are not anomalous")

	assert.Equal(t, 12.5, normalize.Seconds(rec, "p", "12.5 seconds", 0))
	assert.Equal(t, 1, rec.Len())

	assert.Equal(t, -5.0, normalize.Seconds(rec, "p", "-5s", 0), "range policy belongs to the caller")

	assert.Equal(t, 9.0, normalize.Seconds(rec, "p", "around noon", 9.0))
	assert.Equal(t, 9.0, normalize.Seconds(rec, "p", true, 9.0))
	assert.Equal(t, 9.0, normalize.Seconds(rec, "p", nil, 9.0))
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", normalize.Stringify(nil))
	assert.Equal(t, "3", normalize.Stringify(float64(3.0)))
	assert.Equal(t, "false", normalize.Stringify(false))
	assert.Equal(t, "teal, orange", normalize.Stringify([]interface{}{"teal", "", "orange"}))
	assert.Equal(t, "a: 1; b: two", normalize.Stringify(map[string]interface{}{"b": "two", "a": float64(1)}))
}

func TestRecorderOrder(t *testing.T) {
	rec := normalize.NewRecorder()
	rec.Record("first", normalize.AnomalyStructuralGap, "scenes missing")
	rec.Record("second", normalize.AnomalyTemporal, "end before start")
	assert.Equal(t, 2, rec.Len())
	assert.Equal(t, "first", rec.Anomalies()[0].Path)
	assert.Equal(t, "second", rec.Anomalies()[1].Path)
}
