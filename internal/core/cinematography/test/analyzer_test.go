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

package cinematography_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moemoe9876/ai-video/internal/core/assembler"
	"github.com/moemoe9876/ai-video/internal/core/cinematography"
	"github.com/moemoe9876/ai-video/internal/core/model"
)

func analyzeOne(shot *model.Shot) *cinematography.ShotBreakdown {
	report := model.NewReport("src")
	scene := model.NewScene(1)
	scene.Mood = "tense"
	return cinematography.NewAnalyzer().AnalyzeShot(scene, shot, report)
}

func TestInferCameraAngleFromDegrees(t *testing.T) {
	cases := []struct {
		raw      string
		expected string
	}{
		{"30", "High"},
		{"-30 degrees", "Low"},
		{"15", "Slightly High"},
		{"-15", "Slightly Low"},
		{"0", "Eye-Level"},
	}
	for _, c := range cases {
		breakdown := analyzeOne(&model.Shot{ShotIndex: 1, CameraAngleDegrees: c.raw})
		assert.Equal(t, c.expected, breakdown.CameraAngle, "raw angle %q", c.raw)
	}
}

func TestInferCameraAngleFromKeywords(t *testing.T) {
	breakdown := analyzeOne(&model.Shot{
		ShotIndex:          1,
		CameraAngleDegrees: assembler.DefaultDescriptor,
		CameraDescription:  "overhead drone view of the rooftop",
	})
	assert.Equal(t, "High", breakdown.CameraAngle)

	breakdown = analyzeOne(&model.Shot{
		ShotIndex:         1,
		CameraDescription: "worm's eye looking upward",
	})
	assert.Equal(t, "Low", breakdown.CameraAngle)

	breakdown = analyzeOne(&model.Shot{ShotIndex: 1})
	assert.Equal(t, "Eye-Level", breakdown.CameraAngle)
}

func TestInferCameraHeightBuckets(t *testing.T) {
	breakdown := analyzeOne(&model.Shot{ShotIndex: 1, CameraHeightMeters: "1.6 meters"})
	assert.Equal(t, "Eye-level (~1.6m)", breakdown.CameraHeight)

	breakdown = analyzeOne(&model.Shot{ShotIndex: 1, CameraHeightMeters: "3m"})
	assert.Equal(t, "Overhead (~3.0m)", breakdown.CameraHeight)

	breakdown = analyzeOne(&model.Shot{ShotIndex: 1, CameraHeightMeters: "0.5"})
	assert.Equal(t, "Below waist (~0.5m)", breakdown.CameraHeight)
}

func TestInferCameraDistance(t *testing.T) {
	breakdown := analyzeOne(&model.Shot{ShotIndex: 1, CameraDistanceMeters: "2-3 meters"})
	assert.Equal(t, "Medium (~2.0m)", breakdown.CameraDistance, "a range classifies by its leading number")

	breakdown = analyzeOne(&model.Shot{ShotIndex: 1, CameraDistanceMeters: "12 meters"})
	assert.Equal(t, "Long (~12.0m)", breakdown.CameraDistance)

	breakdown = analyzeOne(&model.Shot{ShotIndex: 1, Description: "wide establishing view"})
	assert.Equal(t, "Long", breakdown.CameraDistance)
}

func TestInferLensType(t *testing.T) {
	breakdown := analyzeOne(&model.Shot{ShotIndex: 1, LensFocalLength: "24mm"})
	assert.Equal(t, "Wide (<=28mm)", breakdown.LensTypeEstimate)

	breakdown = analyzeOne(&model.Shot{ShotIndex: 1, LensFocalLength: "about 50mm"})
	assert.Equal(t, "Normal (35-50mm)", breakdown.LensTypeEstimate)

	breakdown = analyzeOne(&model.Shot{ShotIndex: 1, LensFocalLength: "85mm portrait"})
	assert.Equal(t, "Telephoto (70mm+)", breakdown.LensTypeEstimate)

	breakdown = analyzeOne(&model.Shot{ShotIndex: 1, LensFocalLength: "telephoto"})
	assert.Equal(t, "Telephoto (70mm+)", breakdown.LensTypeEstimate)
}

func TestInferDepthOfFieldDefaultsByShotType(t *testing.T) {
	breakdown := analyzeOne(&model.Shot{ShotIndex: 1, ShotType: "close-up"})
	assert.Equal(t, "Shallow", breakdown.DepthOfField)

	breakdown = analyzeOne(&model.Shot{ShotIndex: 1, ShotType: "wide"})
	assert.Equal(t, "Deep", breakdown.DepthOfField)

	breakdown = analyzeOne(&model.Shot{ShotIndex: 1, DepthOfField: "shallow focus on the face"})
	assert.Equal(t, "Shallow", breakdown.DepthOfField)
}

func TestAnalyzeShot(t *testing.T) {
	report := model.NewReport("src")
	scene := model.NewScene(3)
	scene.Mood = "tense"
	scene.Lighting = "neon signage throws side light"
	scene.PhysicalWorld.Signage = append(scene.PhysicalWorld.Signage, "neon bar sign")

	shot := &model.Shot{
		ShotIndex:          2,
		ShotType:           "wide",
		CameraMovement:     "slow dolly in",
		CameraHeightMeters: "1.2",
		LensFocalLength:    "35mm",
	}
	breakdown := cinematography.NewAnalyzer().AnalyzeShot(scene, shot, report)

	assert.Equal(t, "003-02", breakdown.ShotId)
	assert.Equal(t, "Wide", breakdown.CameraShotType)
	assert.Equal(t, "Slow Dolly In", breakdown.CameraMotion)
	assert.Equal(t, "tense", breakdown.LightingStyle.Mood)
	assert.NotEmpty(t, breakdown.LightingStyle.PracticalLights)
	assert.NotEmpty(t, breakdown.RecreationGuidance)
	assert.Contains(t, breakdown.RecreationGuidance, "dolly")
}

func TestAnalyzeSceneNoShots(t *testing.T) {
	report := model.NewReport("src")
	scene := model.NewScene(1)
	breakdowns := cinematography.NewAnalyzer().AnalyzeScene(scene, report)
	assert.NotNil(t, breakdowns)
	assert.Len(t, breakdowns, 0)
}
