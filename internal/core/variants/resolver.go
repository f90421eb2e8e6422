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

// Package variants completes generated prompt-variant candidates before
// persistence. The generator is allowed to omit any of the mandatory
// metadata fields; the resolver fills each one from the most specific
// source available, walking candidate -> scene -> report -> literal.
package variants

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/moemoe9876/ai-video/internal/core/assembler"
	"github.com/moemoe9876/ai-video/internal/core/model"
)

// Literal fallbacks, the last tier of each chain. They are deliberately
// bland: they exist so a persisted variant is always renderable, not to
// add creative signal.
const (
	LiteralFilmStock       = "Kodak Vision3 500T"
	LiteralLens            = "50mm standard"
	LiteralMood            = "cinematic"
	LiteralCulturalContext = "contemporary, neutral"
)

// Literals maps each mandatory field to its final fallback value.
type Literals map[string]string

// DefaultLiterals returns the production literal tier.
func DefaultLiterals() Literals {
	return Literals{
		"film_stock":       LiteralFilmStock,
		"lens":             LiteralLens,
		"mood":             LiteralMood,
		"cultural_context": LiteralCulturalContext,
	}
}

// Resolution records where one mandatory field's value came from, for
// logging and for the provenance block of rendered artifacts.
type Resolution struct {
	Field  string `json:"field"`
	Source string `json:"source"` // candidate | scene | report | literal
	Value  string `json:"value"`
}

// FallbackResolver fills the mandatory fields of variant candidates. It is
// stateless apart from its literal table and safe for concurrent use.
type FallbackResolver struct {
	literals Literals
}

// NewFallbackResolver creates a resolver. A nil or incomplete literal table
// is completed from DefaultLiterals so the final tier can never be empty.
func NewFallbackResolver(literals Literals) *FallbackResolver {
	merged := DefaultLiterals()
	for k, v := range literals {
		if strings.TrimSpace(v) != "" {
			merged[k] = v
		}
	}
	return &FallbackResolver{literals: merged}
}

// Resolve fills every empty mandatory field of the candidate in place and
// returns the provenance of each field. The only error condition is a
// candidate with no variant id, which has no stable identity to persist
// under. The candidate's creative fields (title, prompts) are never
// touched.
//
// Inputs:
//   - candidate: The generated variant, mutated in place.
//   - scene: The scene the variant reinterprets. May be nil when the scene
//     index could not be resolved; the chain then skips the scene tier.
//   - report: The report the scene belongs to. Must not be nil.
func (r *FallbackResolver) Resolve(candidate *model.PromptVariant, scene *model.Scene, report *model.Report) ([]Resolution, error) {
	if candidate == nil {
		return nil, fmt.Errorf("variant candidate is nil")
	}
	if strings.TrimSpace(candidate.VariantId) == "" {
		return nil, fmt.Errorf("variant candidate has no variant_id")
	}

	resolutions := make([]Resolution, 0, len(model.MandatoryVariantFields))
	for _, field := range model.MandatoryVariantFields {
		value, source := r.resolveField(field, candidate, scene, report)
		if value == "" {
			// The literal tier is constructed to be total; reaching this
			// branch means the resolver itself is misconfigured.
			return nil, fmt.Errorf("fallback chain for %q resolved to empty in variant %q", field, candidate.VariantId)
		}
		candidate.SetMandatoryField(field, value)
		resolutions = append(resolutions, Resolution{Field: field, Source: source, Value: value})
		if source != "candidate" {
			slog.Debug("variant field resolved by fallback",
				"variant_id", candidate.VariantId,
				"field", field,
				"source", source)
		}
	}
	return resolutions, nil
}

// ResolveDocument resolves every candidate in a variant document against
// its scene and report. Candidates that fail resolution are dropped from
// the document and reported, so one malformed candidate cannot block the
// rest of the scene's variants.
func (r *FallbackResolver) ResolveDocument(doc *model.VariantDocument, report *model.Report) ([]Resolution, error) {
	if doc == nil {
		return nil, fmt.Errorf("variant document is nil")
	}
	if report == nil {
		return nil, fmt.Errorf("report is nil")
	}
	scene := report.SceneAt(doc.SceneIndex)
	if scene == nil {
		slog.Warn("variant document references unknown scene, resolving without scene tier",
			"video_id", doc.VideoId,
			"scene_index", doc.SceneIndex)
	}

	all := make([]Resolution, 0, len(doc.Variants)*len(model.MandatoryVariantFields))
	kept := make([]*model.PromptVariant, 0, len(doc.Variants))
	var firstErr error
	for _, candidate := range doc.Variants {
		resolutions, err := r.Resolve(candidate, scene, report)
		if err != nil {
			slog.Warn("dropping unresolvable variant candidate",
				"video_id", doc.VideoId,
				"scene_index", doc.SceneIndex,
				"error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		kept = append(kept, candidate)
		all = append(all, resolutions...)
	}
	doc.Variants = kept
	if len(kept) == 0 && firstErr != nil {
		return nil, fmt.Errorf("no variant in scene %d survived resolution: %w", doc.SceneIndex, firstErr)
	}
	return all, nil
}

// resolveField walks one field's chain and reports which tier supplied the
// value.
func (r *FallbackResolver) resolveField(field string, candidate *model.PromptVariant, scene *model.Scene, report *model.Report) (string, string) {
	if v := strings.TrimSpace(candidate.MandatoryField(field)); v != "" {
		return v, "candidate"
	}
	if scene != nil {
		if v := strings.TrimSpace(sceneValue(field, scene)); v != "" {
			return v, "scene"
		}
	}
	if report != nil {
		if v := strings.TrimSpace(reportValue(field, report)); v != "" {
			return v, "report"
		}
	}
	return r.literals[field], "literal"
}

// sceneValue maps a mandatory field onto the scene attribute that can stand
// in for it. Scenes carry no lens information, so the lens tier is report
// and literal only.
func sceneValue(field string, scene *model.Scene) string {
	switch field {
	case "film_stock":
		return notDefault(scene.FilmStockResemblance)
	case "mood":
		return notDefault(scene.Mood)
	case "cultural_context":
		return notDefault(scene.Style)
	}
	return ""
}

func reportValue(field string, report *model.Report) string {
	switch field {
	case "film_stock":
		return notDefault(report.FilmStockLook)
	case "lens":
		return notDefault(report.LensCharacteristics)
	case "mood":
		return notDefault(report.OverallMood)
	case "cultural_context":
		return notDefault(report.CulturalContext)
	}
	return ""
}

// notDefault treats the assembler's placeholder text as absent so fallback
// keeps walking instead of stamping "Not specified" into a variant. The
// mood and style placeholders count too: a scene the payload never gave a
// mood must not shadow a mood the report states outright.
func notDefault(v string) string {
	switch v {
	case assembler.DefaultDescriptor, assembler.DefaultMood, assembler.DefaultStyle:
		return ""
	}
	return v
}
