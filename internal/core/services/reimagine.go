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

// This file defines the VariantGenerator, which asks the generative model
// for creative prompt variants of every scene in a report.
//
// Logic Flow:
// Variant generation is the slowest part of a run because it makes one
// model call per scene. To keep wall-clock time down the generator uses a
// worker pool:
//
//  1. A `jobs` channel carries one VariantJob per scene; a `results`
//     channel carries the parsed variant documents (or errors) back.
//  2. A configurable number of worker goroutines pull jobs, call the
//     model, and parse the response.
//  3. The candidate payloads the model returns drift in shape the same
//     way the analysis payload does, so parsing is tolerant: unknown keys
//     are ignored, known keys are coerced through the normalize package,
//     and a candidate that cannot be interpreted at all is dropped with a
//     log line rather than failing the scene.
//
// Candidates leave this service with whatever subset of the mandatory
// metadata fields the model supplied. Filling the gaps is the fallback
// resolver's job, not the generator's.
package services

import (
	"bytes"
	goctx "context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"text/template"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/moemoe9876/ai-video/internal/cloud"
	"github.com/moemoe9876/ai-video/internal/core/model"
	"github.com/moemoe9876/ai-video/internal/core/normalize"
	"google.golang.org/genai"
)

// VariantGenerator produces creative prompt variants for each scene of a
// report, fanning the per-scene model calls out across a worker pool.
type VariantGenerator struct {
	name                     string
	generativeAIModel        *cloud.QuotaAwareGenerativeAIModel // The rate-limited generative model client.
	promptTemplate           *template.Template                 // The Go template for the per-scene reimagination prompt.
	numberOfWorkers          int                                // The number of concurrent workers to spawn.
	tracer                   trace.Tracer
	geminiInputTokenCounter  metric.Int64Counter
	geminiOutputTokenCounter metric.Int64Counter
	geminiRetryCounter       metric.Int64Counter
}

// NewVariantGenerator is the constructor for the VariantGenerator service.
//
// Inputs:
//   - name: A name for this service instance, used for telemetry.
//   - model: The client for the generative AI model.
//   - prompt: The parsed Go template for the reimagination prompt.
//   - numberOfWorkers: The size of the worker pool for concurrent processing.
//
// Outputs:
//   - *VariantGenerator: The service with initialized telemetry counters.
func NewVariantGenerator(
	name string,
	model *cloud.QuotaAwareGenerativeAIModel,
	prompt *template.Template,
	numberOfWorkers int) *VariantGenerator {
	if numberOfWorkers < 1 {
		numberOfWorkers = 1
	}
	out := &VariantGenerator{
		name:              name,
		generativeAIModel: model,
		promptTemplate:    prompt,
		numberOfWorkers:   numberOfWorkers,
		tracer:            otel.Tracer(name),
	}

	meter := otel.Meter(name)
	out.geminiInputTokenCounter, _ = meter.Int64Counter(fmt.Sprintf("%s.gemini.token.input", name))
	out.geminiOutputTokenCounter, _ = meter.Int64Counter(fmt.Sprintf("%s.gemini.token.output", name))
	out.geminiRetryCounter, _ = meter.Int64Counter(fmt.Sprintf("%s.gemini.retry", name))

	return out
}

// Generate produces one VariantDocument per scene of the report. Scenes
// are processed concurrently; the returned documents are sorted by scene
// index. When some scenes fail the successful documents are still
// returned alongside the joined error so the caller can decide whether a
// partial result is acceptable.
//
// Inputs:
//   - ctx: The context for the run.
//   - report: The assembled report whose scenes are reimagined.
//   - style: The creative style the variants are generated under.
//   - numVariants: How many variants to request per scene.
//
// Outputs:
//   - []*model.VariantDocument: One document per successfully processed scene.
//   - error: The joined per-scene errors, nil when every scene succeeded.
func (s *VariantGenerator) Generate(
	ctx goctx.Context,
	report *model.Report,
	style cloud.ReimaginationStyle,
	numVariants int) ([]*model.VariantDocument, error) {

	if report == nil || len(report.Scenes) == 0 {
		return make([]*model.VariantDocument, 0), nil
	}
	if numVariants < 1 {
		numVariants = 3
	}

	exampleJson, _ := json.Marshal(model.GetExampleVariantDocument())
	exampleText := string(exampleJson)

	var wg sync.WaitGroup

	// Buffer both channels to scene count so distribution never blocks.
	jobs := make(chan *VariantJob, len(report.Scenes))
	results := make(chan *VariantResponse, len(report.Scenes))

	for w := 1; w <= s.numberOfWorkers; w++ {
		wg.Add(1)
		go variantWorker(jobs, results, &wg)
	}

	for _, scene := range report.Scenes {
		job := s.CreateVariantJob(ctx, report, scene, style, numVariants, exampleText)
		jobs <- job
	}

	// Closing the jobs channel lets the workers drain and exit.
	close(jobs)
	wg.Wait()
	close(results)

	docs := make([]*model.VariantDocument, 0, len(report.Scenes))
	var errs []error
	for r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		docs = append(docs, r.doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].SceneIndex < docs[j].SceneIndex })

	return docs, errors.Join(errs...)
}

// VariantResponse carries one scene's result or error back from a worker.
type VariantResponse struct {
	doc *model.VariantDocument
	err error
}

// VariantJob encapsulates everything one worker needs to reimagine a
// single scene.
type VariantJob struct {
	ctx                      goctx.Context
	span                     trace.Span
	geminiInputTokenCounter  metric.Int64Counter
	geminiOutputTokenCounter metric.Int64Counter
	geminiRetryCounter       metric.Int64Counter
	videoId                  string
	sceneIndex               int
	styleName                string
	contents                 []*genai.Content
	model                    *cloud.QuotaAwareGenerativeAIModel
	err                      error
}

// Close ends the OpenTelemetry span associated with this job.
func (j *VariantJob) Close(status codes.Code, description string) {
	j.span.SetStatus(status, description)
	j.span.End()
}

// CreateVariantJob builds the per-scene job, including the fully rendered
// prompt. The scene content is handed to the model as a JSON payload
// rather than prose so field boundaries survive the round trip.
func (s *VariantGenerator) CreateVariantJob(
	ctx goctx.Context,
	report *model.Report,
	scene *model.Scene,
	style cloud.ReimaginationStyle,
	numVariants int,
	exampleText string) *VariantJob {

	sceneCtx, sceneSpan := s.tracer.Start(ctx, fmt.Sprintf("%s_genai_scene_%d", s.name, scene.SceneIndex))
	sceneSpan.SetAttributes(
		attribute.Int("scene_index", scene.SceneIndex),
		attribute.String("video_id", report.VideoId),
		attribute.String("style", style.Name),
	)

	payload := map[string]interface{}{
		"global_style": map[string]interface{}{
			"name":       style.Name,
			"definition": style.Definition,
		},
		"scene": map[string]interface{}{
			"scene_index":    scene.SceneIndex,
			"location":       scene.Location,
			"time_of_day":    scene.TimeOfDay,
			"description":    scene.Description,
			"mood":           scene.Mood,
			"lighting":       scene.Lighting,
			"color_palette":  scene.ColorPalette,
			"film_stock":     scene.FilmStockResemblance,
			"original_style": scene.Style,
			"time_range":     fmt.Sprintf("%.1f-%.1f", scene.StartTime, scene.EndTime),
		},
		"requirements": map[string]interface{}{
			"num_variants":            numVariants,
			"preserve_subject_action": true,
			"max_prompt_length":       350,
		},
	}
	payloadJson, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return &VariantJob{err: err, span: sceneSpan}
	}

	vocabulary := make(map[string]interface{})
	vocabulary["STYLE_NAME"] = style.Name
	vocabulary["NUM_VARIANTS"] = numVariants
	vocabulary["PAYLOAD"] = string(payloadJson)
	vocabulary["EXAMPLE_JSON"] = exampleText

	var doc bytes.Buffer
	if err := s.promptTemplate.Execute(&doc, vocabulary); err != nil {
		return &VariantJob{err: err, span: sceneSpan}
	}

	contents := []*genai.Content{
		{Parts: []*genai.Part{
			{Text: doc.String()},
		},
			Role: "user"},
	}

	return &VariantJob{
		ctx:                      sceneCtx,
		span:                     sceneSpan,
		geminiInputTokenCounter:  s.geminiInputTokenCounter,
		geminiOutputTokenCounter: s.geminiOutputTokenCounter,
		geminiRetryCounter:       s.geminiRetryCounter,
		videoId:                  report.VideoId,
		sceneIndex:               scene.SceneIndex,
		styleName:                style.Name,
		contents:                 contents,
		model:                    s.generativeAIModel,
	}
}

// variantWorker is the function each concurrent goroutine runs. It takes
// jobs from the `jobs` channel until it closes and pushes each outcome
// onto `results`.
func variantWorker(jobs <-chan *VariantJob, results chan<- *VariantResponse, wg *sync.WaitGroup) {
	defer wg.Done()

	for j := range jobs {
		if j.err != nil {
			j.Close(codes.Error, "job construction failed")
			results <- &VariantResponse{err: j.err}
			continue
		}

		out, err := cloud.GenerateMultiModalResponse(j.ctx, j.geminiInputTokenCounter, j.geminiOutputTokenCounter, j.geminiRetryCounter, 0, j.model, j.contents)
		if err != nil {
			j.Close(codes.Error, "variant generation failed")
			results <- &VariantResponse{err: fmt.Errorf("scene %d: %w", j.sceneIndex, err)}
			continue
		}

		doc, err := ParseVariantDocument([]byte(out), j.videoId, j.sceneIndex, j.styleName)
		if err != nil {
			j.Close(codes.Error, "variant parse failed")
			results <- &VariantResponse{err: fmt.Errorf("scene %d: %w", j.sceneIndex, err)}
			continue
		}

		results <- &VariantResponse{doc: doc}
		j.Close(codes.Ok, "completed scene variants")
	}
}

// ParseVariantDocument interprets a raw model response as a variant
// document for one scene. Parsing is tolerant in the same spirit as the
// report assembler: the candidate array may appear under several keys,
// individual fields are coerced through the normalize package, and a
// candidate record with no usable prompt text is dropped with a warning.
// The only fatal condition is a response whose top level is not a JSON
// object.
func ParseVariantDocument(data []byte, videoId string, sceneIndex int, styleName string) (*model.VariantDocument, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("variant response is not valid JSON: %w", err)
	}
	root, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("variant response top level is %T, expected object", raw)
	}

	doc := model.NewVariantDocument(videoId, sceneIndex)
	doc.Style = styleName

	candidates := candidateList(root)
	for n, c := range candidates {
		rec, ok := c.(map[string]interface{})
		if !ok {
			slog.Warn("dropping non-object variant candidate",
				"video_id", videoId, "scene_index", sceneIndex, "position", n)
			continue
		}
		variant := parseCandidate(rec, sceneIndex, n)
		if variant.ImagePrompt == "" && variant.VideoPrompt == "" {
			slog.Warn("dropping variant candidate with no prompt text",
				"video_id", videoId, "scene_index", sceneIndex, "variant_id", variant.VariantId)
			continue
		}
		doc.Variants = append(doc.Variants, variant)
	}

	return doc, nil
}

// candidateList locates the variant array in the response under any of
// the key spellings observed across model versions. A missing array is
// treated as zero candidates, not an error.
func candidateList(root map[string]interface{}) []interface{} {
	for _, key := range []string{"reimagined_variants", "variants", "prompt_variants"} {
		if raw, found := root[key]; found {
			if list, ok := raw.([]interface{}); ok {
				return list
			}
		}
	}
	return nil
}

// parseCandidate coerces one candidate record into a PromptVariant.
// Missing mandatory fields stay empty here; the fallback resolver fills
// them before persistence.
func parseCandidate(rec map[string]interface{}, sceneIndex int, position int) *model.PromptVariant {
	variant := &model.PromptVariant{
		VariantId: normalize.Identifier(nil, "", rec, "variant_id", "id"),
	}
	if variant.VariantId == "" {
		variant.VariantId = fmt.Sprintf("%03d-%02d", sceneIndex, position+1)
	}

	variant.Title = normalize.Text(nil, "", firstValue(rec, "title", "name"), "")
	variant.ImagePrompt = normalize.Text(nil, "", firstValue(rec, "image_prompt", "prompt"), "")
	variant.VideoPrompt = normalize.Text(nil, "", firstValue(rec, "video_prompt", "motion_prompt"), "")
	variant.StyleNotes = normalize.Text(nil, "", firstValue(rec, "style_notes", "notes"), "")
	variant.Tags = normalize.StringList(nil, "", rec["tags"])

	variant.FilmStock = normalize.Text(nil, "", rec["film_stock"], "")
	variant.Lens = normalize.Text(nil, "", firstValue(rec, "lens", "lens_type"), "")
	variant.Mood = normalize.Text(nil, "", rec["mood"], "")
	variant.CulturalContext = normalize.Text(nil, "", rec["cultural_context"], "")

	return variant
}

// firstValue returns the first non-nil value among the given keys.
func firstValue(rec map[string]interface{}, keys ...string) interface{} {
	for _, key := range keys {
		if v, found := rec[key]; found && v != nil {
			return v
		}
	}
	return nil
}
