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

package render_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moemoe9876/ai-video/internal/core/assembler"
	"github.com/moemoe9876/ai-video/internal/core/model"
	"github.com/moemoe9876/ai-video/internal/core/render"
	test "github.com/moemoe9876/ai-video/internal/testutil"
)

func assembledReport(t *testing.T) *model.Report {
	t.Helper()
	result, err := assembler.New(nil).AssembleJSON(
		[]byte(test.GetTestRawAnalysisText()), "gs://bucket/test-trailer-001.mp4")
	assert.NoError(t, err)
	return result.Report
}

func variantDocs(report *model.Report) []*model.VariantDocument {
	doc := model.NewVariantDocument(report.VideoId, 1)
	doc.Style = "neo-noir"
	doc.Variants = append(doc.Variants, &model.PromptVariant{
		VariantId:       "001-01",
		Title:           "Neon Vigil",
		ImagePrompt:     "A lone figure on a rain-slick rooftop.",
		VideoPrompt:     "Slow push-in toward the skyline.",
		FilmStock:       "CineStill 800T",
		Lens:            "35mm anamorphic",
		Mood:            "brooding",
		CulturalContext: "contemporary, neutral",
		Tags:            []string{"neon", "rooftop"},
	})
	return []*model.VariantDocument{doc}
}

func TestRenderAll(t *testing.T) {
	report := assembledReport(t)
	renderer := render.NewRenderer(nil)

	artifacts, err := renderer.RenderAll(report, variantDocs(report))
	assert.NoError(t, err)
	assert.Contains(t, artifacts, render.ArtifactPromptsMarkdown)
	assert.Contains(t, artifacts, render.ArtifactPromptsJSON)
	assert.Contains(t, artifacts, render.ArtifactShotList)
	assert.Contains(t, artifacts, render.ArtifactCameraBreakdown)
	assert.Contains(t, artifacts, render.ArtifactVariantReport)
	assert.Len(t, artifacts, 5)
}

func TestRenderAllOmitsEmptySections(t *testing.T) {
	renderer := render.NewRenderer(nil)

	// No variants, and the only scene carries no shots.
	report := model.NewReport("src")
	scene := model.NewScene(1)
	scene.Location = "stairwell"
	report.Scenes = append(report.Scenes, scene)

	artifacts, err := renderer.RenderAll(report, nil)
	assert.NoError(t, err)
	assert.NotContains(t, artifacts, render.ArtifactVariantReport)
	assert.NotContains(t, artifacts, render.ArtifactCameraBreakdown)
	assert.Contains(t, artifacts, render.ArtifactPromptsMarkdown)
	assert.Contains(t, artifacts, render.ArtifactShotList)
}

func TestRenderPromptsMarkdown(t *testing.T) {
	report := assembledReport(t)
	renderer := render.NewRenderer(nil)

	artifacts, err := renderer.RenderAll(report, nil)
	assert.NoError(t, err)
	doc := string(artifacts[render.ArtifactPromptsMarkdown])

	assert.Contains(t, doc, "# Prompts for Test Trailer")
	assert.Contains(t, doc, "**Video ID:** test-trailer-001")
	assert.Contains(t, doc, "## Scene 1")
	assert.Contains(t, doc, "## Scene 2")
	assert.Contains(t, doc, "### Shot List")
	assert.Contains(t, doc, "### Image Generation Prompts (Text-to-Image)")
	assert.Contains(t, doc, "*Negative:*")
}

func TestRenderPromptsJSON(t *testing.T) {
	report := assembledReport(t)
	renderer := render.NewRenderer(nil)

	artifacts, err := renderer.RenderAll(report, nil)
	assert.NoError(t, err)

	var doc struct {
		Metadata struct {
			VideoId  string  `json:"video_id"`
			Duration float64 `json:"duration"`
		} `json:"metadata"`
		Scenes []struct {
			SceneIndex   int           `json:"scene_index"`
			ImagePrompts []interface{} `json:"image_prompts"`
			VideoPrompts []interface{} `json:"video_prompts"`
		} `json:"scenes"`
	}
	assert.NoError(t, json.Unmarshal(artifacts[render.ArtifactPromptsJSON], &doc))
	assert.Equal(t, "test-trailer-001", doc.Metadata.VideoId)
	assert.Equal(t, 20.0, doc.Metadata.Duration)
	assert.Len(t, doc.Scenes, 2)
	assert.Len(t, doc.Scenes[0].ImagePrompts, 2, "one prompt per shot")
	assert.Len(t, doc.Scenes[1].ImagePrompts, 1, "shotless scenes still get a prompt pair")
}

func TestRenderShotList(t *testing.T) {
	report := assembledReport(t)
	renderer := render.NewRenderer(nil)

	artifacts, err := renderer.RenderAll(report, nil)
	assert.NoError(t, err)
	doc := string(artifacts[render.ArtifactShotList])

	assert.Contains(t, doc, "# Shot List")
	assert.Contains(t, doc, "## Scene 1 (0:00.0 - 0:12.5)")
	assert.Contains(t, doc, "Shot 1:")
	assert.Contains(t, doc, "- Scene duration: 7.5s", "shotless scenes list their duration")
}

func TestRenderCameraBreakdown(t *testing.T) {
	report := assembledReport(t)
	renderer := render.NewRenderer(nil)

	doc := renderer.RenderCameraBreakdown(report)
	assert.Contains(t, doc, "# Camera Breakdown - test-trailer-001")
	assert.Contains(t, doc, "## Scene 1 - city rooftop")
	assert.Contains(t, doc, "### Shot 001-01")
	assert.Contains(t, doc, "### Shot 001-02")
	assert.Contains(t, doc, "- **Angle:**")
	assert.NotContains(t, doc, "## Scene 2", "shotless scenes have nothing to break down")
}

func TestRenderVariantReport(t *testing.T) {
	report := assembledReport(t)
	renderer := render.NewRenderer(nil)

	doc := renderer.RenderVariantReport(report, variantDocs(report))
	assert.Contains(t, doc, "# Reimagined Prompt Variants - test-trailer-001")
	assert.Contains(t, doc, "**Scenes Processed:** 1")
	assert.Contains(t, doc, "**Total Variants:** 1")
	assert.Contains(t, doc, "**Global Style:** neo-noir")
	assert.Contains(t, doc, "**Neon Vigil** (tags: neon, rooftop)")
	assert.Contains(t, doc, "*Film stock:* CineStill 800T | *Lens:* 35mm anamorphic")
	assert.Contains(t, doc, "- **Location:** city rooftop")
}
