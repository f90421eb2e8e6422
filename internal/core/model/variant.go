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

// This file defines the creative prompt-variant documents produced by the
// generation stage. A PromptVariant is a reinterpretation of one Scene; the
// fallback resolver guarantees that its four mandatory metadata fields
// (film stock, lens, mood, cultural context) are non-empty before the
// document is persisted.
package model

import "time"

// MandatoryVariantFields lists the metadata fields every persisted
// PromptVariant must carry as non-empty strings. The fallback resolver
// iterates this set; keeping it in one place keeps the resolver, the
// generation prompt, and the tests in agreement.
var MandatoryVariantFields = []string{"film_stock", "lens", "mood", "cultural_context"}

// PromptVariant is one creative reinterpretation of a scene's descriptive
// content. Candidates arrive from the generator with any subset of the
// mandatory fields missing; after resolution all four are non-empty.
type PromptVariant struct {
	VariantId   string `json:"variant_id"` // "<scene_index>-<nn>", assigned by the generator.
	Title       string `json:"title"`
	ImagePrompt string `json:"image_prompt"`
	VideoPrompt string `json:"video_prompt"`

	FilmStock       string `json:"film_stock"`
	Lens            string `json:"lens"`
	Mood            string `json:"mood"`
	CulturalContext string `json:"cultural_context"`

	StyleNotes string   `json:"style_notes,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// MandatoryField returns the named mandatory field's current value. Names
// outside MandatoryVariantFields return "".
func (v *PromptVariant) MandatoryField(name string) string {
	switch name {
	case "film_stock":
		return v.FilmStock
	case "lens":
		return v.Lens
	case "mood":
		return v.Mood
	case "cultural_context":
		return v.CulturalContext
	}
	return ""
}

// SetMandatoryField assigns the named mandatory field. Names outside
// MandatoryVariantFields are ignored.
func (v *PromptVariant) SetMandatoryField(name, value string) {
	switch name {
	case "film_stock":
		v.FilmStock = value
	case "lens":
		v.Lens = value
	case "mood":
		v.Mood = value
	case "cultural_context":
		v.CulturalContext = value
	}
}

// VariantDocument is the persisted collection of variants for one scene of
// one video. Writes are keyed by (video id, scene index), so re-running the
// generation stage overwrites rather than duplicates.
type VariantDocument struct {
	VideoId    string           `json:"video_id"`
	SceneIndex int              `json:"scene_index"`
	Style      string           `json:"style,omitempty"` // The global style directive the variants were generated under.
	Variants   []*PromptVariant `json:"variants"`
	CreateDate time.Time        `json:"create_date"`
}

// NewVariantDocument creates an empty variant document for a scene.
// CreateDate stays zero until the document is persisted.
func NewVariantDocument(videoId string, sceneIndex int) *VariantDocument {
	return &VariantDocument{
		VideoId:    videoId,
		SceneIndex: sceneIndex,
		Variants:   make([]*PromptVariant, 0),
	}
}
