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

// Package render turns assembled reports and resolved variant documents
// into the human- and tool-facing artifact files: a detailed markdown
// prompts document, a machine-readable prompts.json, a terse shot list,
// a camera-recreation breakdown, and a variant report. Artifact content
// is a pure function of its inputs, so the render stage can be re-run at
// any time to regenerate every file.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/moemoe9876/ai-video/internal/core/cinematography"
	"github.com/moemoe9876/ai-video/internal/core/model"
	"github.com/moemoe9876/ai-video/internal/core/prompting"
)

// Artifact file names, stable because external tooling globs for them.
const (
	ArtifactPromptsMarkdown = "prompts.md"
	ArtifactPromptsJSON     = "prompts.json"
	ArtifactShotList        = "shot_list.md"
	ArtifactCameraBreakdown = "camera_breakdown.md"
	ArtifactVariantReport   = "variant_report.md"
)

// Renderer produces artifact files from a report and its variants.
type Renderer struct {
	composer *prompting.Composer
	analyzer *cinematography.Analyzer
}

// NewRenderer creates a renderer that composes prompts with the given
// composer. A nil composer gets the production defaults.
func NewRenderer(composer *prompting.Composer) *Renderer {
	if composer == nil {
		composer = prompting.NewComposer(nil)
	}
	return &Renderer{composer: composer, analyzer: cinematography.NewAnalyzer()}
}

// RenderAll produces every artifact for a video, keyed by file name.
// Variant documents may be empty, in which case the variant report is
// omitted. The camera breakdown is likewise omitted when no scene carries
// any shots.
func (r *Renderer) RenderAll(report *model.Report, docs []*model.VariantDocument) (map[string][]byte, error) {
	bundles := r.composer.ComposeReport(report)

	out := make(map[string][]byte)
	out[ArtifactPromptsMarkdown] = []byte(r.RenderPromptsMarkdown(report, bundles))
	out[ArtifactShotList] = []byte(r.RenderShotList(bundles))

	promptsJson, err := r.RenderPromptsJSON(report, bundles)
	if err != nil {
		return nil, err
	}
	out[ArtifactPromptsJSON] = promptsJson

	if breakdown := r.RenderCameraBreakdown(report); breakdown != "" {
		out[ArtifactCameraBreakdown] = []byte(breakdown)
	}

	if len(docs) > 0 {
		out[ArtifactVariantReport] = []byte(r.RenderVariantReport(report, docs))
	}
	return out, nil
}

// RenderPromptsMarkdown renders the detailed per-scene prompt document.
func (r *Renderer) RenderPromptsMarkdown(report *model.Report, bundles []*prompting.Bundle) string {
	var b strings.Builder

	title := report.Title
	if title == "" {
		title = report.VideoId
	}
	fmt.Fprintf(&b, "# Prompts for %s\n\n", title)
	fmt.Fprintf(&b, "**Video ID:** %s\n", report.VideoId)
	fmt.Fprintf(&b, "**Source:** %s\n", report.Source)
	fmt.Fprintf(&b, "**Duration:** %.1fs\n", report.DurationSeconds)
	if report.Summary != "" {
		fmt.Fprintf(&b, "**Summary:** %s\n", report.Summary)
	}
	b.WriteString("\n---\n")

	for _, bundle := range bundles {
		fmt.Fprintf(&b, "\n## Scene %d\n", bundle.SceneIndex)
		fmt.Fprintf(&b, "**Time:** %s - %s (%.1fs)\n",
			prompting.FormatTimestamp(bundle.StartTime),
			prompting.FormatTimestamp(bundle.EndTime),
			bundle.Duration)

		if bundle.Notes != "" {
			fmt.Fprintf(&b, "**Notes:** %s\n", bundle.Notes)
		}

		if len(bundle.ShotDescriptions) > 0 {
			b.WriteString("\n### Shot List\n\n")
			for _, desc := range bundle.ShotDescriptions {
				fmt.Fprintf(&b, "- %s\n", desc)
			}
		}

		if len(bundle.ImagePrompts) > 0 {
			b.WriteString("\n### Image Generation Prompts (Text-to-Image)\n\n")
			for i, prompt := range bundle.ImagePrompts {
				fmt.Fprintf(&b, "**Prompt %d:**\n", i+1)
				b.WriteString("```\n")
				b.WriteString(prompt.Text)
				b.WriteString("\n```\n")
				if prompt.NegativePrompt != "" {
					fmt.Fprintf(&b, "*Negative:* %s\n", prompt.NegativePrompt)
				}
				b.WriteString("\n")
			}
		}

		if len(bundle.VideoPrompts) > 0 {
			b.WriteString("\n### Video Generation Prompts (Image-to-Video / Text-to-Video)\n\n")
			for i, prompt := range bundle.VideoPrompts {
				fmt.Fprintf(&b, "**Prompt %d:**\n", i+1)
				b.WriteString("```\n")
				b.WriteString(prompt.Text)
				b.WriteString("\n```\n\n")
			}
		}

		b.WriteString("\n---\n")
	}

	return b.String()
}

// promptsDocument is the serialized shape of prompts.json. External
// tooling reads this file, so key names are part of the contract.
type promptsDocument struct {
	Metadata promptsMetadata     `json:"metadata"`
	Scenes   []*prompting.Bundle `json:"scenes"`
}

type promptsMetadata struct {
	VideoId  string  `json:"video_id"`
	Source   string  `json:"source"`
	Duration float64 `json:"duration"`
	Title    string  `json:"title"`
	Summary  string  `json:"summary"`
}

// RenderPromptsJSON renders the machine-readable prompt bundle document.
func (r *Renderer) RenderPromptsJSON(report *model.Report, bundles []*prompting.Bundle) ([]byte, error) {
	doc := promptsDocument{
		Metadata: promptsMetadata{
			VideoId:  report.VideoId,
			Source:   report.Source,
			Duration: report.DurationSeconds,
			Title:    report.Title,
			Summary:  report.Summary,
		},
		Scenes: bundles,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// RenderShotList renders the terse per-scene shot list.
func (r *Renderer) RenderShotList(bundles []*prompting.Bundle) string {
	var b strings.Builder
	b.WriteString("# Shot List\n")

	for _, bundle := range bundles {
		fmt.Fprintf(&b, "\n## Scene %d (%s - %s)\n\n",
			bundle.SceneIndex,
			prompting.FormatTimestamp(bundle.StartTime),
			prompting.FormatTimestamp(bundle.EndTime))

		if len(bundle.ShotDescriptions) == 0 {
			fmt.Fprintf(&b, "- Scene duration: %.1fs\n", bundle.Duration)
			continue
		}
		for _, desc := range bundle.ShotDescriptions {
			fmt.Fprintf(&b, "- %s\n", desc)
		}
	}

	return b.String()
}

// RenderCameraBreakdown renders the camera-recreation document: one
// classified breakdown per shot, grouped by scene. Returns "" when the
// report contains no shots at all.
func (r *Renderer) RenderCameraBreakdown(report *model.Report) string {
	var b strings.Builder
	rendered := false

	fmt.Fprintf(&b, "# Camera Breakdown - %s\n", report.VideoId)

	for _, scene := range report.Scenes {
		breakdowns := r.analyzer.AnalyzeScene(scene, report)
		if len(breakdowns) == 0 {
			continue
		}
		rendered = true

		fmt.Fprintf(&b, "\n## Scene %d - %s\n", scene.SceneIndex, scene.Location)
		for _, bd := range breakdowns {
			fmt.Fprintf(&b, "\n### Shot %s\n\n", bd.ShotId)
			if bd.CameraShotType != "" {
				fmt.Fprintf(&b, "- **Shot type:** %s\n", bd.CameraShotType)
			}
			fmt.Fprintf(&b, "- **Angle:** %s\n", bd.CameraAngle)
			fmt.Fprintf(&b, "- **Height:** %s\n", bd.CameraHeight)
			fmt.Fprintf(&b, "- **Distance:** %s\n", bd.CameraDistance)
			if bd.LensTypeEstimate != "" {
				fmt.Fprintf(&b, "- **Lens estimate:** %s\n", bd.LensTypeEstimate)
			}
			if bd.DepthOfField != "" {
				fmt.Fprintf(&b, "- **Depth of field:** %s\n", bd.DepthOfField)
			}
			if bd.FramingStyle != "" {
				fmt.Fprintf(&b, "- **Framing:** %s\n", bd.FramingStyle)
			}
			fmt.Fprintf(&b, "- **Motion:** %s\n", bd.CameraMotion)
			if bd.LightingStyle.Mood != "" {
				fmt.Fprintf(&b, "- **Lighting mood:** %s\n", bd.LightingStyle.Mood)
			}
			if bd.SetDesignNotes != "" {
				fmt.Fprintf(&b, "- **Set design:** %s\n", bd.SetDesignNotes)
			}
			if bd.RecreationGuidance != "" {
				fmt.Fprintf(&b, "\n%s.\n", bd.RecreationGuidance)
			}
		}
	}

	if !rendered {
		return ""
	}
	return b.String()
}

// RenderVariantReport renders a markdown summary of the resolved prompt
// variants, one section per scene.
func (r *Renderer) RenderVariantReport(report *model.Report, docs []*model.VariantDocument) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Reimagined Prompt Variants - %s\n\n", report.VideoId)

	total := 0
	for _, doc := range docs {
		total += len(doc.Variants)
	}
	fmt.Fprintf(&b, "**Scenes Processed:** %d\n", len(docs))
	fmt.Fprintf(&b, "**Total Variants:** %d\n", total)
	if len(docs) > 0 && docs[0].Style != "" {
		fmt.Fprintf(&b, "**Global Style:** %s\n", docs[0].Style)
	}
	b.WriteString("\n---\n\n## Scenes\n")

	for _, doc := range docs {
		fmt.Fprintf(&b, "\n### Scene %d\n\n", doc.SceneIndex)
		if scene := report.SceneAt(doc.SceneIndex); scene != nil {
			fmt.Fprintf(&b, "- **Location:** %s\n", scene.Location)
			fmt.Fprintf(&b, "- **Original Mood:** %s\n", scene.Mood)
		}
		b.WriteString("- **Variants:**\n")
		for _, v := range doc.Variants {
			tagStr := ""
			if len(v.Tags) > 0 {
				tagStr = fmt.Sprintf(" (tags: %s)", strings.Join(v.Tags, ", "))
			}
			fmt.Fprintf(&b, "  - **%s**%s\n", v.Title, tagStr)
			b.WriteString("    ```\n")
			fmt.Fprintf(&b, "    %s\n", v.ImagePrompt)
			b.WriteString("    ```\n")
			fmt.Fprintf(&b, "    *Film stock:* %s | *Lens:* %s | *Mood:* %s | *Cultural context:* %s\n",
				v.FilmStock, v.Lens, v.Mood, v.CulturalContext)
			if v.StyleNotes != "" {
				fmt.Fprintf(&b, "    *Style notes:* %s\n", v.StyleNotes)
			}
		}
	}

	return b.String()
}
