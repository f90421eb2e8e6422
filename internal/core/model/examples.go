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

// This file provides factory functions that build hardcoded example
// instances of the data models. The examples are serialized into the
// prompts sent to the generative model ("few-shot" prompting): showing the
// model a concrete instance of the desired JSON makes its output far more
// consistent and parsable. They also double as fixtures in tests.
package model

// GetExampleScene creates a sample Scene demonstrating the full field set
// the analysis prompt asks the model to produce, including the nested
// physical-world inventories and a shot with prose camera measurements.
//
// Outputs:
//   - *Scene: A pointer to a hardcoded Scene object.
func GetExampleScene() *Scene {
	scene := NewScene(1)
	scene.StartTime = 0.0
	scene.EndTime = 8.5
	scene.Duration = 8.5
	scene.Location = "Modern kitchen with white counters"
	scene.TimeOfDay = "morning"
	scene.Description = "A woman prepares coffee as sunlight streams through the window."
	scene.Mood = "Calm, peaceful morning"
	scene.Lighting = "Soft morning light through windows"
	scene.LightingType = "natural key light"
	scene.LightingDirection = "side, from camera left"
	scene.LightingTemperature = "warm (3200K)"
	scene.ColorPalette = "Warm tones, bright whites"
	scene.ColorTemperature = "warm"
	scene.FilmStockResemblance = "Kodak Portra 400"
	scene.Style = "Cinematic, realistic"
	scene.PhysicalWorld.Architecture = append(scene.PhysicalWorld.Architecture, "open-plan kitchen", "large sash window")
	scene.PhysicalWorld.Objects = append(scene.PhysicalWorld.Objects, "ceramic mug", "chrome kettle")
	scene.HumanSubjects = append(scene.HumanSubjects, &HumanSubject{
		Description: "Woman in her thirties, long blonde hair",
		Position:    "center frame, facing the counter",
		Wardrobe:    "white t-shirt, blue jeans",
		Action:      "pouring water into a mug",
	})
	scene.Shots = append(scene.Shots, &Shot{
		ShotIndex:                1,
		StartTime:                0.0,
		EndTime:                  4.0,
		Duration:                 4.0,
		Description:              "Woman enters the kitchen",
		Action:                   "Walking from doorway to counter",
		ShotType:                 "medium",
		CameraMovement:           "tracking",
		CameraDescription:        "Camera follows the woman from behind",
		CameraPosition:           "Behind subject, slightly offset right",
		CameraAngleDegrees:       "0 (eye level)",
		CameraDistanceMeters:     "2-3 meters",
		CameraHeightMeters:       "1.5",
		CameraMovementTrajectory: "Smooth dolly forward matching walking pace",
		LensFocalLength:          "35mm",
		DepthOfField:             "Shallow, background softly defocused",
		SubjectPositionFrame:     "Rule of thirds, left vertical",
		SpatialRelationships:     "Subject between camera and window, counter to the right",
		Entities: []*Entity{{
			Name:        "Woman",
			Type:        EntityTypePerson,
			Description: "Main character",
			Appearance:  "Long blonde hair, white t-shirt, blue jeans",
		}},
	})
	scene.KeyEntities = append(scene.KeyEntities, scene.Shots[0].Entities[0])
	return scene
}

// GetExampleReport creates a sample Report wrapping GetExampleScene. The
// analysis command serializes it into the prompt so the model mirrors the
// exact top-level JSON shape the assembler expects.
//
// Outputs:
//   - *Report: A pointer to a hardcoded Report object.
func GetExampleReport() *Report {
	report := NewReport("assets/inputs/sample.mp4")
	report.DurationSeconds = 30.0
	report.FPS = 24.0
	report.Resolution = "1920x1080"
	report.Title = "Coffee Commercial"
	report.Summary = "A morning coffee commercial showing a woman preparing coffee."
	report.FilmStockLook = "Kodak Portra 400, fine grain"
	report.LensCharacteristics = "Spherical primes, mild vignette"
	report.OverallStyle = "Cinematic, commercial"
	report.OverallMood = "Warm, inviting"
	report.ColorGrading = "Warm tones with high contrast"
	report.CulturalContext = "Contemporary western domestic"
	report.Scenes = append(report.Scenes, GetExampleScene())
	report.MainEntities = append(report.MainEntities, &Entity{
		Name:       "Woman",
		Type:       EntityTypePerson,
		Appearance: "Long blonde hair, white t-shirt, blue jeans",
	})
	return report
}

// GetExampleVariantDocument creates a sample VariantDocument with one fully
// populated PromptVariant. The variant-generation command embeds it in the
// prompt so the model returns all four mandatory metadata fields by name.
//
// Outputs:
//   - *VariantDocument: A pointer to a hardcoded variant document.
func GetExampleVariantDocument() *VariantDocument {
	doc := NewVariantDocument("sample_video_001", 1)
	doc.Style = "neo-noir rain-soaked city"
	doc.Variants = append(doc.Variants, &PromptVariant{
		VariantId:       "1-01",
		Title:           "Neon Morning",
		ImagePrompt:     "A woman pours coffee in a rain-streaked neon-lit kitchen, reflections on chrome, cinematic still",
		VideoPrompt:     "Slow dolly forward as the woman pours coffee, neon reflections shifting across the counter",
		FilmStock:       "Cinestill 800T",
		Lens:            "35mm anamorphic",
		Mood:            "melancholic",
		CulturalContext: "near-future metropolitan",
		StyleNotes:      "Push the teal/magenta split, keep skin tones natural",
		Tags:            []string{"neo-noir", "neon", "rain"},
	})
	return doc
}
