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

package assembler_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/moemoe9876/ai-video/internal/core/assembler"
	"github.com/moemoe9876/ai-video/internal/core/model"
	"github.com/moemoe9876/ai-video/internal/core/normalize"
	test "github.com/moemoe9876/ai-video/internal/testutil"
)

// hasAnomaly reports whether an anomaly of the given kind was recorded at a
// path containing the given fragment.
func hasAnomaly(anomalies []normalize.Anomaly, kind normalize.AnomalyKind, pathFragment string) bool {
	for _, a := range anomalies {
		if a.Kind == kind && strings.Contains(a.Path, pathFragment) {
			return true
		}
	}
	return false
}

func TestAssembleInvalidJSON(t *testing.T) {
	a := assembler.New(nil)
	_, err := a.AssembleJSON([]byte(`{"scenes": [`), "gs://bucket/video.mp4")
	assert.Error(t, err)
	var asmErr *assembler.AssemblyError
	assert.True(t, errors.As(err, &asmErr))
}

func TestAssembleTopLevelNotObject(t *testing.T) {
	a := assembler.New(nil)
	for _, payload := range []string{`[1, 2, 3]`, `"just a string"`, `42`, `null`} {
		_, err := a.AssembleJSON([]byte(payload), "gs://bucket/video.mp4")
		assert.Error(t, err, "payload %s must be terminal", payload)
		var asmErr *assembler.AssemblyError
		assert.True(t, errors.As(err, &asmErr), "payload %s must yield an AssemblyError", payload)
	}
}

func TestAssembleDriftedPayload(t *testing.T) {
	a := assembler.New(nil)
	result, err := a.AssembleJSON([]byte(test.GetTestRawAnalysisText()), "gs://bucket/test-trailer-001.mp4")
	assert.NoError(t, err)
	report := result.Report

	assert.Equal(t, "test-trailer-001", report.VideoId)
	assert.Equal(t, 20.0, report.DurationSeconds)
	assert.Equal(t, "handheld documentary", report.OverallStyle)
	assert.Equal(t, "restless", report.OverallMood)
	assert.Len(t, report.Scenes, 2)

	first := report.Scenes[0]
	assert.Equal(t, 1, first.SceneIndex)
	assert.Equal(t, 0.0, first.StartTime)
	assert.Equal(t, 12.5, first.EndTime)
	assert.Equal(t, 12.5, first.Duration)
	assert.Equal(t, "direction: side; type: neon", first.Lighting)
	assert.Equal(t, "Kodak Vision3 250D", first.FilmStockResemblance)

	// The entity identified only by entity_id survives under that id.
	assert.Len(t, first.KeyEntities, 2)
	assert.Equal(t, "Walker", first.KeyEntities[0].Name)
	assert.Equal(t, model.EntityTypePerson, first.KeyEntities[0].Type)
	assert.Equal(t, "drone-01", first.KeyEntities[1].Name)
	assert.Equal(t, model.EntityTypeObject, first.KeyEntities[1].Type)

	// The second shot's raw range [6, 27] spills past the scene end and is
	// clamped rather than rejected.
	assert.Len(t, first.Shots, 2)
	assert.Equal(t, 12.5, first.Shots[1].EndTime)
	assert.Equal(t, 6.5, first.Shots[1].Duration)
	assert.True(t, hasAnomaly(result.Anomalies, normalize.AnomalyTemporal, "shots[1]"))

	second := report.Scenes[1]
	assert.Equal(t, 2, second.SceneIndex)
	assert.Equal(t, 12.5, second.StartTime)
	assert.Equal(t, 20.0, second.EndTime)
	assert.Equal(t, "stairwell", second.Location)
	assert.Equal(t, "urgent", second.Mood)
	assert.NotNil(t, second.Shots)
	assert.Len(t, second.Shots, 0)
	assert.True(t, hasAnomaly(result.Anomalies, normalize.AnomalyStructuralGap, "scenes[1].shots"))
}

func TestAssembleNullScenes(t *testing.T) {
	a := assembler.New(nil)
	result, err := a.AssembleJSON([]byte(`{"video_id": "v1", "scenes": null}`), "src")
	assert.NoError(t, err)
	assert.NotNil(t, result.Report.Scenes)
	assert.Len(t, result.Report.Scenes, 0)
	assert.True(t, hasAnomaly(result.Anomalies, normalize.AnomalyStructuralGap, "scenes"))
}

func TestAssembleVideoIdFallback(t *testing.T) {
	a := assembler.New(nil)
	source := "gs://bucket/unnamed.mp4"
	result, err := a.AssembleJSON([]byte(`{"scenes": []}`), source)
	assert.NoError(t, err)
	expected := uuid.NewSHA1(uuid.NameSpaceURL, []byte(source)).String()
	assert.Equal(t, expected, result.Report.VideoId)
	assert.Equal(t, source, result.Report.Source)
}

func TestAssembleDefaults(t *testing.T) {
	a := assembler.New(nil)
	result, err := a.AssembleJSON([]byte(`{"scenes": [{"start_time": 0, "end_time": 5, "shots": [{}]}]}`), "src")
	assert.NoError(t, err)
	report := result.Report

	assert.Equal(t, "cinematic", report.OverallStyle)
	assert.Equal(t, "neutral", report.OverallMood)
	assert.Equal(t, assembler.DefaultDescriptor, report.FilmStockLook)
	assert.Equal(t, assembler.DefaultDescriptor, report.LensCharacteristics)
	assert.Equal(t, assembler.DefaultDescriptor, report.CulturalContext)

	scene := report.Scenes[0]
	assert.Equal(t, "Unknown location", scene.Location)
	assert.Equal(t, "neutral", scene.Mood)
	assert.Equal(t, "Natural lighting", scene.Lighting)
	assert.Equal(t, assembler.DefaultDescriptor, scene.TimeOfDay)
	assert.Equal(t, assembler.DefaultDescriptor, scene.FilmStockResemblance)
	assert.Equal(t, "cinematic", scene.Style)
	assert.NotNil(t, scene.PhysicalWorld)
	assert.NotNil(t, scene.KeyEntities)

	// An empty shot record inherits the scene's range and the documented
	// camera defaults.
	shot := scene.Shots[0]
	assert.Equal(t, 0.0, shot.StartTime)
	assert.Equal(t, 5.0, shot.EndTime)
	assert.Equal(t, 5.0, shot.Duration)
	assert.Equal(t, "medium", shot.ShotType)
	assert.Equal(t, "static", shot.CameraMovement)
	assert.Equal(t, assembler.DefaultTrajectory, shot.CameraMovementTrajectory)
	assert.Equal(t, assembler.DefaultDescriptor, shot.DepthOfField)
}

func TestAssembleSwapsReversedRange(t *testing.T) {
	a := assembler.New(nil)
	result, err := a.AssembleJSON([]byte(`{"scenes": [{"start_time": 10, "end_time": 4}]}`), "src")
	assert.NoError(t, err)
	scene := result.Report.Scenes[0]
	assert.Equal(t, 4.0, scene.StartTime)
	assert.Equal(t, 10.0, scene.EndTime)
	assert.Equal(t, 6.0, scene.Duration)
	assert.True(t, hasAnomaly(result.Anomalies, normalize.AnomalyTemporal, "scenes[0]"))
}

func TestAssemblePositionalSceneIndex(t *testing.T) {
	a := assembler.New(nil)
	payload := `{"scenes": [
		{"scene_index": 7, "start_time": 0, "end_time": 1},
		{"scene_index": 7, "start_time": 1, "end_time": 2}
	]}`
	result, err := a.AssembleJSON([]byte(payload), "src")
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Report.Scenes[0].SceneIndex)
	assert.Equal(t, 2, result.Report.Scenes[1].SceneIndex)
	assert.True(t, hasAnomaly(result.Anomalies, normalize.AnomalyFieldShape, "scene_index"))
}

func TestAssembleSkipsAnonymousEntities(t *testing.T) {
	a := assembler.New(nil)
	payload := `{"scenes": [{"start_time": 0, "end_time": 1, "key_entities": [
		{"type": "person", "description": "no identifier at all"},
		{"name": "Courier", "type": "dragon"}
	]}]}`
	result, err := a.AssembleJSON([]byte(payload), "src")
	assert.NoError(t, err)
	entities := result.Report.Scenes[0].KeyEntities
	assert.Len(t, entities, 1)
	assert.Equal(t, "Courier", entities[0].Name)
	assert.Equal(t, model.EntityTypeObject, entities[0].Type, "unknown types degrade to object")
	assert.True(t, hasAnomaly(result.Anomalies, normalize.AnomalyStructuralGap, "key_entities[0]"))
}

func TestAssembleNegativeDurationClamped(t *testing.T) {
	a := assembler.New(nil)
	result, err := a.AssembleJSON([]byte(`{"duration_seconds": -5, "scenes": []}`), "src")
	assert.NoError(t, err)
	assert.Equal(t, 0.0, result.Report.DurationSeconds)
	assert.True(t, hasAnomaly(result.Anomalies, normalize.AnomalyFieldShape, "duration_seconds"))
}

func TestAssemblePhysicalWorldProse(t *testing.T) {
	a := assembler.New(nil)
	payload := `{"scenes": [{"start_time": 0, "end_time": 1,
		"physical_world": "A cluttered workshop full of tools."}]}`
	result, err := a.AssembleJSON([]byte(payload), "src")
	assert.NoError(t, err)
	pw := result.Report.Scenes[0].PhysicalWorld
	assert.Equal(t, []string{"A cluttered workshop full of tools."}, pw.Objects)
	assert.True(t, hasAnomaly(result.Anomalies, normalize.AnomalyFieldShape, "physical_world"))
}

func TestAssembleIsDeterministic(t *testing.T) {
	a := assembler.New(nil)
	data := []byte(test.GetTestRawAnalysisText())
	first, err := a.AssembleJSON(data, "src")
	assert.NoError(t, err)
	second, err := a.AssembleJSON(data, "src")
	assert.NoError(t, err)

	// Whole-document equality: assembly carries no wall-clock or random
	// state, so identical bytes produce identical Reports.
	assert.Equal(t, first.Report, second.Report)
	assert.Equal(t, first.Anomalies, second.Anomalies)
}
