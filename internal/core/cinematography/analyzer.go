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

// Package cinematography derives camera-recreation breakdowns from
// assembled scenes. The upstream model describes camera work as prose
// ("roughly 2-3 meters away", "about 35mm"); this package classifies that
// prose into the discrete categories a director of photography would use
// when restaging the shot. Everything here is deterministic string
// inference, no model calls.
package cinematography

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/moemoe9876/ai-video/internal/core/assembler"
	"github.com/moemoe9876/ai-video/internal/core/model"
)

// LightingStyle is the consolidated lighting picture for one shot's scene.
type LightingStyle struct {
	KeyLight        string `json:"key_light,omitempty"`
	FillLight       string `json:"fill_light,omitempty"`
	PracticalLights string `json:"practical_lights,omitempty"`
	Mood            string `json:"mood,omitempty"`
}

// ShotBreakdown is the camera-recreation view of one shot.
type ShotBreakdown struct {
	ShotId             string        `json:"shot_id"` // "<scene:03d>-<shot:02d>"
	CameraShotType     string        `json:"camera_shot_type,omitempty"`
	CameraAngle        string        `json:"camera_angle"`
	CameraHeight       string        `json:"camera_height"`
	CameraDistance     string        `json:"camera_distance"`
	FramingStyle       string        `json:"framing_style,omitempty"`
	LensTypeEstimate   string        `json:"lens_type_estimate,omitempty"`
	DepthOfField       string        `json:"depth_of_field,omitempty"`
	LightingStyle      LightingStyle `json:"lighting_style"`
	CompositionNotes   string        `json:"composition_notes,omitempty"`
	SetDesignNotes     string        `json:"set_design_notes,omitempty"`
	CameraMotion       string        `json:"camera_motion"`
	CinematicPurpose   string        `json:"cinematic_purpose,omitempty"`
	RecreationGuidance string        `json:"recreation_guidance,omitempty"`
}

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Analyzer classifies the prose camera descriptors of assembled shots. It
// is stateless and safe for concurrent use.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// AnalyzeScene produces a breakdown for every shot in the scene. A scene
// with no shots yields no breakdowns; the analyzer never speculates about
// camera work it was not told about.
func (a *Analyzer) AnalyzeScene(scene *model.Scene, report *model.Report) []*ShotBreakdown {
	out := make([]*ShotBreakdown, 0, len(scene.Shots))
	for _, shot := range scene.Shots {
		out = append(out, a.AnalyzeShot(scene, shot, report))
	}
	return out
}

// AnalyzeShot builds the breakdown for one shot in the context of its scene
// and report.
func (a *Analyzer) AnalyzeShot(scene *model.Scene, shot *model.Shot, report *model.Report) *ShotBreakdown {
	lighting := a.buildLightingStyle(scene, report)
	height := a.inferCameraHeight(shot)
	distance := a.inferCameraDistance(shot)
	lens := a.inferLensType(shot)
	framing := a.inferFramingStyle(shot)
	motion := a.inferCameraMotion(shot)

	return &ShotBreakdown{
		ShotId:             fmt.Sprintf("%03d-%02d", scene.SceneIndex, shot.ShotIndex),
		CameraShotType:     titleWords(present(shot.ShotType)),
		CameraAngle:        a.inferCameraAngle(shot),
		CameraHeight:       height,
		CameraDistance:     distance,
		FramingStyle:       framing,
		LensTypeEstimate:   lens,
		DepthOfField:       a.inferDepthOfField(shot),
		LightingStyle:      lighting,
		CompositionNotes:   a.compositionNotes(scene, shot),
		SetDesignNotes:     a.setDesignNotes(scene),
		CameraMotion:       motion,
		CinematicPurpose:   a.cinematicPurpose(scene, shot),
		RecreationGuidance: a.recreationGuidance(height, distance, lens, framing, motion, lighting),
	}
}

// inferCameraAngle classifies the angle in degrees when one can be
// extracted, otherwise falls back to keyword matching across the angle and
// camera description fields.
func (a *Analyzer) inferCameraAngle(shot *model.Shot) string {
	text := strings.ToLower(present(shot.CameraAngleDegrees) + " " + present(shot.CameraDescription))

	if angle, ok := extractNumber(shot.CameraAngleDegrees); ok {
		switch {
		case angle >= 25:
			return "High"
		case angle <= -25:
			return "Low"
		case angle > 10:
			return "Slightly High"
		case angle < -10:
			return "Slightly Low"
		}
	}

	if containsAny(text, "overhead", "bird", "top", "downward", "high angle") {
		return "High"
	}
	if containsAny(text, "low", "worm", "upward", "under") {
		return "Low"
	}
	if containsAny(text, "dutch", "canted") {
		return "Dutch"
	}
	movement := strings.ToLower(present(shot.CameraMovement))
	if strings.Contains(movement, "tilt") {
		if strings.Contains(movement, "up") {
			return "Low"
		}
		if strings.Contains(movement, "down") {
			return "High"
		}
	}
	return "Eye-Level"
}

func (a *Analyzer) inferCameraHeight(shot *model.Shot) string {
	if h, ok := extractNumber(shot.CameraHeightMeters); ok {
		switch {
		case h < 1.0:
			return fmt.Sprintf("Below waist (~%.1fm)", h)
		case h < 1.3:
			return fmt.Sprintf("Waist-level (~%.1fm)", h)
		case h < 1.5:
			return fmt.Sprintf("Chest-level (~%.1fm)", h)
		case h < 1.75:
			return fmt.Sprintf("Eye-level (~%.1fm)", h)
		case h < 2.2:
			return fmt.Sprintf("Slightly overhead (~%.1fm)", h)
		default:
			return fmt.Sprintf("Overhead (~%.1fm)", h)
		}
	}

	text := strings.ToLower(present(shot.CameraPosition))
	switch {
	case containsAny(text, "overhead", "ceiling"):
		return "Overhead"
	case containsAny(text, "low", "floor"):
		return "Below waist"
	case strings.Contains(text, "chest"):
		return "Chest-level"
	}
	return "Eye-level"
}

func (a *Analyzer) inferCameraDistance(shot *model.Shot) string {
	if d, ok := extractNumber(shot.CameraDistanceMeters); ok {
		switch {
		case d < 1.2:
			return fmt.Sprintf("Close (~%.1fm)", d)
		case d < 2.5:
			return fmt.Sprintf("Medium (~%.1fm)", d)
		case d < 5.0:
			return fmt.Sprintf("Far (~%.1fm)", d)
		default:
			return fmt.Sprintf("Long (~%.1fm)", d)
		}
	}

	description := strings.ToLower(present(shot.Description))
	if strings.Contains(description, "close") {
		return "Close"
	}
	if containsAny(description, "wide", "establishing") {
		return "Long"
	}
	return "Medium"
}

func (a *Analyzer) inferFramingStyle(shot *model.Shot) string {
	text := strings.ToLower(present(shot.SubjectPositionFrame))
	if text == "" {
		text = strings.ToLower(present(shot.CameraDescription))
	}
	switch {
	case strings.Contains(text, "center"):
		return "Centered"
	case strings.Contains(text, "symmetr"):
		return "Symmetrical"
	case strings.Contains(text, "third"):
		return "Rule of Thirds"
	case containsAny(text, "leading", "diagonal"):
		return "Leading Lines"
	case text != "":
		return "Dynamic"
	}
	return ""
}

func (a *Analyzer) inferLensType(shot *model.Shot) string {
	if focal, ok := extractNumber(shot.LensFocalLength); ok {
		switch {
		case focal <= 28:
			return "Wide (<=28mm)"
		case focal <= 55:
			return "Normal (35-50mm)"
		case focal >= 70:
			return "Telephoto (70mm+)"
		default:
			return fmt.Sprintf("Normal (~%.0fmm)", focal)
		}
	}

	text := strings.ToLower(present(shot.LensFocalLength))
	switch {
	case strings.Contains(text, "wide"):
		return "Wide (<=28mm)"
	case containsAny(text, "tele", "zoom"):
		return "Telephoto (70mm+)"
	case text != "":
		return titleWords(text)
	}
	return ""
}

func (a *Analyzer) inferDepthOfField(shot *model.Shot) string {
	text := strings.ToLower(present(shot.DepthOfField))
	switch {
	case strings.Contains(text, "shallow"):
		return "Shallow"
	case strings.Contains(text, "deep"):
		return "Deep"
	case strings.Contains(text, "medium"):
		return "Medium"
	case text != "":
		return titleWords(text)
	}
	shotType := strings.ToLower(present(shot.ShotType))
	if strings.Contains(shotType, "close") {
		return "Shallow"
	}
	if containsAny(shotType, "wide", "establishing") {
		return "Deep"
	}
	return "Medium"
}

// buildLightingStyle consolidates the scene's four lighting fields and
// picks out key, fill, and practical descriptions.
func (a *Analyzer) buildLightingStyle(scene *model.Scene, report *model.Report) LightingStyle {
	sources := make([]string, 0, 4)
	for _, candidate := range []string{scene.Lighting, scene.LightingType, scene.LightingDirection, scene.LightingTemperature} {
		if v := present(candidate); v != "" {
			sources = append(sources, v)
		}
	}
	consolidated := strings.Join(sources, " ")

	practicals := extractSentence(consolidated, []string{"practical", "bulb", "lamp", "neon", "window"}, "")
	if practicals == "" {
		practicals = a.derivePracticals(scene)
	}

	mood := present(scene.Mood)
	if mood == "" {
		mood = present(report.OverallMood)
	}
	if mood == "" {
		mood = "Cinematic"
	}

	return LightingStyle{
		KeyLight:        cleanText(extractSentence(consolidated, []string{"key light", "key"}, present(scene.LightingType))),
		FillLight:       cleanText(extractSentence(consolidated, []string{"fill"}, present(scene.LightingDirection))),
		PracticalLights: cleanText(practicals),
		Mood:            cleanText(mood),
	}
}

func (a *Analyzer) compositionNotes(scene *model.Scene, shot *model.Shot) string {
	for _, text := range []string{shot.SpatialRelationships, shot.CameraDescription, scene.Description} {
		if cleaned := cleanText(present(text)); cleaned != "" {
			return cleaned
		}
	}
	return ""
}

// setDesignNotes flattens the physical-world inventories into one prose
// line per populated inventory.
func (a *Analyzer) setDesignNotes(scene *model.Scene) string {
	if scene.PhysicalWorld == nil {
		return ""
	}
	parts := make([]string, 0, 5)
	for _, group := range []struct {
		label string
		items []string
	}{
		{"Architecture", scene.PhysicalWorld.Architecture},
		{"Signage", scene.PhysicalWorld.Signage},
		{"Vehicles", scene.PhysicalWorld.Vehicles},
		{"Objects", scene.PhysicalWorld.Objects},
		{"Infrastructure", scene.PhysicalWorld.Infrastructure},
	} {
		if len(group.items) > 0 {
			parts = append(parts, group.label+": "+strings.Join(group.items, ", "))
		}
	}
	return strings.Join(parts, "; ")
}

func (a *Analyzer) inferCameraMotion(shot *model.Shot) string {
	movement := present(shot.CameraMovement)
	if movement == "" {
		movement = "static"
	}
	return titleWords(movement)
}

func (a *Analyzer) cinematicPurpose(scene *model.Scene, shot *model.Shot) string {
	parts := make([]string, 0, 2)
	if action := present(shot.Action); action != "" {
		parts = append(parts, "Highlights "+strings.ToLower(action))
	}
	if mood := present(scene.Mood); mood != "" {
		parts = append(parts, "reinforces "+strings.ToLower(mood))
	}
	if len(parts) == 0 {
		if desc := present(scene.Description); desc != "" {
			parts = append(parts, "Supports "+truncateLower(desc, 60))
		}
	}
	return joinPhrases(parts)
}

// recreationGuidance renders the classified attributes as imperative
// restaging instructions.
func (a *Analyzer) recreationGuidance(height, distance, lens, framing, motion string, lighting LightingStyle) string {
	parts := make([]string, 0, 6)
	if height != "" {
		parts = append(parts, "Set camera height to "+strings.ToLower(height))
	}
	if distance != "" {
		parts = append(parts, "Keep camera "+strings.ToLower(distance)+" from subject")
	}
	if lens != "" {
		parts = append(parts, "Use "+strings.ToLower(lens)+" optics")
	}
	if framing != "" {
		parts = append(parts, "Frame using a "+strings.ToLower(framing)+" composition")
	}

	lightingNotes := make([]string, 0, 3)
	if lighting.KeyLight != "" {
		lightingNotes = append(lightingNotes, "key light: "+strings.ToLower(lighting.KeyLight))
	}
	if lighting.FillLight != "" {
		lightingNotes = append(lightingNotes, "fill: "+strings.ToLower(lighting.FillLight))
	}
	if lighting.PracticalLights != "" {
		lightingNotes = append(lightingNotes, "practicals: "+strings.ToLower(lighting.PracticalLights))
	}
	if len(lightingNotes) > 0 {
		parts = append(parts, "Lighting setup with "+strings.Join(lightingNotes, "; "))
	}

	if motion != "" && !strings.EqualFold(motion, "static") {
		parts = append(parts, "Execute a "+strings.ToLower(motion)+" move")
	}
	return joinPhrases(parts)
}

// derivePracticals scans the physical world for light-emitting set pieces
// when the lighting prose never mentioned practicals.
func (a *Analyzer) derivePracticals(scene *model.Scene) string {
	if scene.PhysicalWorld == nil {
		return ""
	}
	for _, items := range [][]string{
		scene.PhysicalWorld.Objects,
		scene.PhysicalWorld.Signage,
		scene.PhysicalWorld.Infrastructure,
		scene.PhysicalWorld.Architecture,
	} {
		joined := strings.Join(items, ", ")
		if containsAny(strings.ToLower(joined), "light", "lamp", "bulb", "neon") {
			return joined
		}
	}
	return ""
}

// present treats the assembler's placeholder defaults as absent so
// inference falls through to the next signal instead of classifying the
// placeholder text.
func present(v string) string {
	if v == assembler.DefaultDescriptor || v == assembler.DefaultTrajectory {
		return ""
	}
	return v
}

func extractNumber(text string) (float64, bool) {
	match := numberPattern.FindString(present(text))
	if match == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

var sentenceSplit = regexp.MustCompile(`(?:[.!?])\s+`)

// extractSentence returns the first sentence of text containing any of the
// keywords, or the fallback.
func extractSentence(text string, keywords []string, fallback string) string {
	if text == "" {
		return fallback
	}
	for _, sentence := range sentenceSplit.Split(text, -1) {
		lower := strings.ToLower(sentence)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return strings.TrimSpace(sentence)
			}
		}
	}
	return fallback
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

var whitespacePattern = regexp.MustCompile(`\s+`)

func cleanText(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

func joinPhrases(phrases []string) string {
	cleaned := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if c := cleanText(p); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	return strings.Join(cleaned, "; ")
}

func truncateLower(s string, max int) string {
	s = strings.ToLower(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func titleWords(s string) string {
	if s == "" {
		return ""
	}
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
