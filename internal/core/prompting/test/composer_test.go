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

package prompting_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moemoe9876/ai-video/internal/core/assembler"
	"github.com/moemoe9876/ai-video/internal/core/model"
	"github.com/moemoe9876/ai-video/internal/core/prompting"
)

func testReport() (*model.Report, *model.Scene) {
	report := model.NewReport("src")
	report.OverallStyle = "neo-noir"
	report.OverallMood = "tense"

	scene := model.NewScene(1)
	scene.StartTime = 0
	scene.EndTime = 12.5
	scene.Duration = 12.5
	scene.Location = "city rooftop"
	scene.Mood = "tense"
	scene.Lighting = "neon side light"
	scene.Style = assembler.DefaultDescriptor
	scene.KeyEntities = append(scene.KeyEntities, &model.Entity{
		Name:       "Walker",
		Type:       model.EntityTypePerson,
		Appearance: "long gray coat",
	})
	report.Scenes = append(report.Scenes, scene)
	return report, scene
}

func TestComposeSceneWithShots(t *testing.T) {
	report, scene := testReport()
	scene.Shots = append(scene.Shots, &model.Shot{
		ShotIndex:         1,
		StartTime:         0,
		EndTime:           6,
		Duration:          6,
		Description:       "A figure paces the rooftop edge",
		Action:            "pacing along the parapet",
		ShotType:          "wide",
		CameraMovement:    "handheld",
		CameraDescription: assembler.DefaultDescriptor,
	})

	composer := prompting.NewComposer(nil)
	bundle := composer.ComposeScene(scene, report)

	assert.Equal(t, 1, bundle.SceneIndex)
	assert.Len(t, bundle.ImagePrompts, 1)
	assert.Len(t, bundle.VideoPrompts, 1)
	assert.Len(t, bundle.ShotDescriptions, 1)

	image := bundle.ImagePrompts[0]
	assert.Equal(t, prompting.TypeTextToImage, image.PromptType)
	assert.Equal(t, "Walker: long gray coat", image.Subject)
	assert.Contains(t, image.Text, "pacing along the parapet")
	assert.Contains(t, image.Text, "city rooftop")
	assert.Contains(t, image.Text, "wide shot")
	assert.Contains(t, image.Text, "neon side light")
	assert.Equal(t, prompting.DefaultNegativePrompt, image.NegativePrompt)
	assert.Equal(t, "neo-noir", image.Style, "scene placeholder falls through to the report style")

	video := bundle.VideoPrompts[0]
	assert.Equal(t, prompting.TypeImageToVideo, video.PromptType)
	assert.Contains(t, video.Text, "camera handheld")
	assert.Empty(t, video.NegativePrompt)

	assert.Contains(t, bundle.ShotDescriptions[0], "[0:00.0-0:06.0] Shot 1:")
	assert.Contains(t, bundle.Notes, "Mood: tense")
	assert.Contains(t, bundle.Notes, "Overall mood: tense")
}

func TestComposeShotlessScene(t *testing.T) {
	report, scene := testReport()
	scene.Description = "The rooftop sits empty under rain"

	composer := prompting.NewComposer(nil)
	bundle := composer.ComposeScene(scene, report)

	assert.Len(t, bundle.ImagePrompts, 1)
	assert.Len(t, bundle.VideoPrompts, 1)
	assert.Len(t, bundle.ShotDescriptions, 0)

	image := bundle.ImagePrompts[0]
	assert.Equal(t, prompting.TypeTextToImage, image.PromptType)
	assert.Contains(t, image.Text, "city rooftop")
	assert.Equal(t, "blur, blurry, low quality", image.NegativePrompt)

	video := bundle.VideoPrompts[0]
	assert.Equal(t, prompting.TypeTextToVideo, video.PromptType)
	assert.Contains(t, video.Text, "The rooftop sits empty under rain")
}

func TestComposeReportOrder(t *testing.T) {
	report, _ := testReport()
	second := model.NewScene(2)
	second.Location = "stairwell"
	report.Scenes = append(report.Scenes, second)

	composer := prompting.NewComposer(nil)
	bundles := composer.ComposeReport(report)
	assert.Len(t, bundles, 2)
	assert.Equal(t, 1, bundles[0].SceneIndex)
	assert.Equal(t, 2, bundles[1].SceneIndex)
}

func TestComposeTruncates(t *testing.T) {
	report, scene := testReport()
	scene.Description = strings.Repeat("very long scene description ", 40)

	composer := prompting.NewComposer(&prompting.Config{
		IncludeLighting: true,
		MaxPromptLength: 80,
	})
	bundle := composer.ComposeScene(scene, report)
	text := bundle.VideoPrompts[0].Text
	assert.Len(t, text, 80)
	assert.True(t, strings.HasSuffix(text, "..."))
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "0:00.0", prompting.FormatTimestamp(0))
	assert.Equal(t, "0:12.5", prompting.FormatTimestamp(12.5))
	assert.Equal(t, "1:15.2", prompting.FormatTimestamp(75.25))
	assert.Equal(t, "2:05.0", prompting.FormatTimestamp(125))
}
