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

// Package prompting composes deterministic generation prompts from
// assembled reports. Composition is pure string assembly with a fixed
// priority order per field (shot -> scene -> report -> stock phrase), so
// the same report always yields the same prompts.
package prompting

import (
	"fmt"
	"strings"

	"github.com/moemoe9876/ai-video/internal/core/assembler"
	"github.com/moemoe9876/ai-video/internal/core/model"
)

// PromptType distinguishes the target generator for a composed prompt.
type PromptType string

const (
	TypeTextToImage  PromptType = "text_to_image"
	TypeTextToVideo  PromptType = "text_to_video"
	TypeImageToVideo PromptType = "image_to_video"
)

// DefaultNegativePrompt is appended to image prompts to steer generators
// away from common artifacts.
const DefaultNegativePrompt = "blur, blurry, out of focus, distorted, low quality, pixelated, watermark"

// Spec is one composed prompt plus the components it was assembled from,
// kept separate so consumers can recombine them.
type Spec struct {
	PromptType     PromptType `json:"prompt_type"`
	Text           string     `json:"text"`
	Subject        string     `json:"subject"`
	Action         string     `json:"action,omitempty"`
	Scene          string     `json:"scene"`
	Camera         string     `json:"camera,omitempty"`
	Lighting       string     `json:"lighting,omitempty"`
	Style          string     `json:"style,omitempty"`
	NegativePrompt string     `json:"negative_prompt,omitempty"`
}

// Bundle holds every prompt composed for one scene.
type Bundle struct {
	SceneIndex       int      `json:"scene_index"`
	StartTime        float64  `json:"start_time"`
	EndTime          float64  `json:"end_time"`
	Duration         float64  `json:"duration"`
	ImagePrompts     []*Spec  `json:"image_prompts"`
	VideoPrompts     []*Spec  `json:"video_prompts"`
	ShotDescriptions []string `json:"shot_descriptions"`
	Notes            string   `json:"notes,omitempty"`
}

// Config controls which optional components are folded into the prompt
// text and the hard length ceiling.
type Config struct {
	IncludeCameraDetails bool
	IncludeLighting      bool
	IncludeStyle         bool
	IncludeTimestamps    bool
	MaxPromptLength      int
}

// NewConfig returns the production composition settings.
func NewConfig() *Config {
	return &Config{
		IncludeCameraDetails: true,
		IncludeLighting:      true,
		IncludeStyle:         true,
		IncludeTimestamps:    true,
		MaxPromptLength:      2000,
	}
}

// Composer turns report scenes into prompt bundles.
type Composer struct {
	config *Config
}

func NewComposer(config *Config) *Composer {
	if config == nil {
		config = NewConfig()
	}
	return &Composer{config: config}
}

// ComposeReport builds one bundle per scene, in scene order.
func (c *Composer) ComposeReport(report *model.Report) []*Bundle {
	bundles := make([]*Bundle, 0, len(report.Scenes))
	for _, scene := range report.Scenes {
		bundles = append(bundles, c.ComposeScene(scene, report))
	}
	return bundles
}

// ComposeScene builds the bundle for one scene. Scenes with shots get one
// image and one video prompt per shot; shotless scenes get a single pair
// composed from scene-level fields so the bundle is never empty.
func (c *Composer) ComposeScene(scene *model.Scene, report *model.Report) *Bundle {
	bundle := &Bundle{
		SceneIndex:       scene.SceneIndex,
		StartTime:        scene.StartTime,
		EndTime:          scene.EndTime,
		Duration:         scene.Duration,
		ImagePrompts:     make([]*Spec, 0, len(scene.Shots)),
		VideoPrompts:     make([]*Spec, 0, len(scene.Shots)),
		ShotDescriptions: make([]string, 0, len(scene.Shots)),
	}

	for _, shot := range scene.Shots {
		bundle.ImagePrompts = append(bundle.ImagePrompts, c.imagePrompt(shot, scene, report))
		bundle.VideoPrompts = append(bundle.VideoPrompts, c.videoPrompt(shot, scene, report))
		bundle.ShotDescriptions = append(bundle.ShotDescriptions, c.shotDescription(shot))
	}
	if len(scene.Shots) == 0 {
		bundle.ImagePrompts = append(bundle.ImagePrompts, c.sceneImagePrompt(scene, report))
		bundle.VideoPrompts = append(bundle.VideoPrompts, c.sceneVideoPrompt(scene, report))
	}

	bundle.Notes = c.notes(scene, report)
	return bundle
}

func (c *Composer) imagePrompt(shot *model.Shot, scene *model.Scene, report *model.Report) *Spec {
	subject := subjectOf(shot.Entities, scene.KeyEntities, "Subject")
	action := present(shot.Action)
	sceneDesc := sceneDescription(scene)
	camera := cameraDescription(shot)
	lighting := firstPresent(scene.Lighting, report.ColorGrading, "natural lighting")
	style := firstPresent(scene.Style, report.OverallStyle, "cinematic, realistic")

	parts := []string{subject}
	if action != "" {
		parts = append(parts, action)
	}
	parts = append(parts, "in "+sceneDesc)
	if c.config.IncludeCameraDetails && camera != "" {
		parts = append(parts, camera)
	}
	if c.config.IncludeLighting {
		parts = append(parts, lighting)
	}
	if c.config.IncludeStyle {
		parts = append(parts, style)
	}

	spec := &Spec{
		PromptType:     TypeTextToImage,
		Text:           c.truncate(strings.Join(parts, ". ") + "."),
		Subject:        subject,
		Action:         action,
		Scene:          sceneDesc,
		NegativePrompt: DefaultNegativePrompt,
	}
	if c.config.IncludeCameraDetails {
		spec.Camera = camera
	}
	if c.config.IncludeLighting {
		spec.Lighting = lighting
	}
	if c.config.IncludeStyle {
		spec.Style = style
	}
	return spec
}

func (c *Composer) videoPrompt(shot *model.Shot, scene *model.Scene, report *model.Report) *Spec {
	subject := subjectOf(shot.Entities, scene.KeyEntities, "Subject")
	action := present(shot.Action)
	sceneDesc := sceneDescription(scene)
	camera := cameraMovementDescription(shot)
	lighting := firstPresent(scene.Lighting, report.ColorGrading, "natural lighting")
	style := firstPresent(scene.Style, report.OverallStyle, "cinematic")

	parts := []string{subject}
	if action != "" {
		parts = append(parts, action)
	}
	parts = append(parts, "in "+sceneDesc)
	if c.config.IncludeCameraDetails && camera != "" {
		parts = append(parts, camera)
	}
	if c.config.IncludeLighting {
		parts = append(parts, "with "+lighting)
	}
	if c.config.IncludeStyle {
		parts = append(parts, style+" style")
	}

	spec := &Spec{
		PromptType: TypeImageToVideo,
		Text:       c.truncate(strings.Join(parts, ". ") + "."),
		Subject:    subject,
		Action:     action,
		Scene:      sceneDesc,
	}
	if c.config.IncludeCameraDetails {
		spec.Camera = camera
	}
	if c.config.IncludeLighting {
		spec.Lighting = lighting
	}
	if c.config.IncludeStyle {
		spec.Style = style
	}
	return spec
}

func (c *Composer) sceneImagePrompt(scene *model.Scene, report *model.Report) *Spec {
	subject := subjectOf(nil, scene.KeyEntities, "Scene")
	lighting := firstPresent(scene.Lighting, "natural lighting")
	style := firstPresent(scene.Style, report.OverallStyle, "cinematic, realistic")

	return &Spec{
		PromptType:     TypeTextToImage,
		Text:           c.truncate(fmt.Sprintf("%s in %s. %s. %s.", subject, scene.Location, lighting, style)),
		Subject:        subject,
		Scene:          scene.Location,
		Lighting:       lighting,
		Style:          style,
		NegativePrompt: "blur, blurry, low quality",
	}
}

func (c *Composer) sceneVideoPrompt(scene *model.Scene, report *model.Report) *Spec {
	subject := subjectOf(nil, scene.KeyEntities, "Scene")
	lighting := firstPresent(scene.Lighting, "natural lighting")
	style := firstPresent(scene.Style, report.OverallStyle, "cinematic")

	return &Spec{
		PromptType: TypeTextToVideo,
		Text: c.truncate(fmt.Sprintf("%s. %s. Scene: %s. %s. %s style.",
			subject, scene.Description, scene.Location, lighting, style)),
		Subject:  subject,
		Action:   present(scene.Description),
		Scene:    scene.Location,
		Lighting: lighting,
		Style:    style,
	}
}

func (c *Composer) shotDescription(shot *model.Shot) string {
	timestamp := ""
	if c.config.IncludeTimestamps {
		timestamp = fmt.Sprintf("[%s-%s] ", FormatTimestamp(shot.StartTime), FormatTimestamp(shot.EndTime))
	}
	return fmt.Sprintf("%sShot %d: %s - %s", timestamp, shot.ShotIndex, shot.Description, shot.Action)
}

func (c *Composer) notes(scene *model.Scene, report *model.Report) string {
	parts := make([]string, 0, 4)
	if mood := present(scene.Mood); mood != "" {
		parts = append(parts, "Mood: "+mood)
	}
	if lighting := present(scene.Lighting); lighting != "" {
		parts = append(parts, "Lighting: "+lighting)
	}
	if style := present(scene.Style); style != "" {
		parts = append(parts, "Style: "+style)
	}
	if mood := present(report.OverallMood); mood != "" {
		parts = append(parts, "Overall mood: "+mood)
	}
	return strings.Join(parts, ". ")
}

func (c *Composer) truncate(text string) string {
	if c.config.MaxPromptLength > 0 && len(text) > c.config.MaxPromptLength {
		return text[:c.config.MaxPromptLength-3] + "..."
	}
	return text
}

// FormatTimestamp renders seconds as m:ss.d for shot listings.
func FormatTimestamp(seconds float64) string {
	minutes := int(seconds) / 60
	rest := seconds - float64(minutes*60)
	return fmt.Sprintf("%d:%04.1f", minutes, rest)
}

// subjectOf picks the first entity of the shot, then the scene, then the
// stock label. An entity with appearance detail is rendered "name:
// appearance".
func subjectOf(shotEntities, sceneEntities []*model.Entity, stock string) string {
	for _, entities := range [][]*model.Entity{shotEntities, sceneEntities} {
		if len(entities) > 0 {
			entity := entities[0]
			if appearance := present(entity.Appearance); appearance != "" {
				return entity.Name + ": " + appearance
			}
			return entity.Name
		}
	}
	return stock
}

func sceneDescription(scene *model.Scene) string {
	parts := []string{scene.Location}
	if mood := present(scene.Mood); mood != "" {
		parts = append(parts, mood+" atmosphere")
	}
	if palette := present(scene.ColorPalette); palette != "" {
		parts = append(parts, palette)
	}
	return strings.Join(parts, ", ")
}

func cameraDescription(shot *model.Shot) string {
	parts := make([]string, 0, 2)
	if shotType := present(shot.ShotType); shotType != "" {
		parts = append(parts, shotType+" shot")
	}
	if desc := present(shot.CameraDescription); desc != "" {
		parts = append(parts, desc)
	}
	if len(parts) == 0 {
		return "medium shot"
	}
	return strings.Join(parts, ", ")
}

func cameraMovementDescription(shot *model.Shot) string {
	parts := make([]string, 0, 2)
	if movement := present(shot.CameraMovement); movement != "" {
		parts = append(parts, "camera "+movement)
	}
	if desc := present(shot.CameraDescription); desc != "" {
		parts = append(parts, desc)
	}
	if len(parts) == 0 {
		return "static camera"
	}
	return strings.Join(parts, ", ")
}

// present treats the assembler's defaults as absent so prompt composition
// falls through its priority chain instead of printing placeholder text.
func present(v string) string {
	if v == assembler.DefaultDescriptor || v == assembler.DefaultTrajectory {
		return ""
	}
	return v
}

func firstPresent(values ...string) string {
	for _, v := range values {
		if p := present(strings.TrimSpace(v)); p != "" {
			return p
		}
	}
	return ""
}
