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

// This file implements the production stage set. Each stage rehydrates
// whatever inputs it needs from the document store when the in-memory Run
// arrived empty (the resume path), does its work, and persists its own
// outputs. Collaborator failures are marked Retryable; malformed-payload
// and not-found conditions are terminal.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/moemoe9876/ai-video/internal/cloud"
	"github.com/moemoe9876/ai-video/internal/core/assembler"
	"github.com/moemoe9876/ai-video/internal/core/model"
	"github.com/moemoe9876/ai-video/internal/core/render"
	"github.com/moemoe9876/ai-video/internal/core/variants"
	"github.com/moemoe9876/ai-video/internal/storage"
)

// Analyzer is the upstream model call that produces the raw analysis
// payload for a video.
type Analyzer interface {
	Analyze(ctx context.Context, videoURI string, mimeType string, source string) (string, error)
}

// Generator is the upstream model call that produces variant candidate
// documents for a report's scenes.
type Generator interface {
	Generate(ctx context.Context, report *model.Report, style cloud.ReimaginationStyle, numVariants int) ([]*model.VariantDocument, error)
}

// AnalysisStages is the production Stages implementation.
type AnalysisStages struct {
	Store            storage.DocumentStore
	Analyzer         Analyzer
	Generator        Generator
	Assembler        *assembler.Assembler
	Resolver         *variants.FallbackResolver
	Renderer         *render.Renderer
	Styles           map[string]cloud.ReimaginationStyle // Named styles from configuration.
	VariantsPerScene int
}

// NewAnalysisStages wires the production stage set. Nil assembler,
// resolver, or renderer get production defaults.
func NewAnalysisStages(
	store storage.DocumentStore,
	analyzer Analyzer,
	generator Generator,
	styles map[string]cloud.ReimaginationStyle,
	variantsPerScene int) *AnalysisStages {

	if variantsPerScene < 1 {
		variantsPerScene = 3
	}
	return &AnalysisStages{
		Store:            store,
		Analyzer:         analyzer,
		Generator:        generator,
		Assembler:        assembler.New(nil),
		Resolver:         variants.NewFallbackResolver(nil),
		Renderer:         render.NewRenderer(nil),
		Styles:           styles,
		VariantsPerScene: variantsPerScene,
	}
}

// StageFunc maps stage names to their implementations.
func (s *AnalysisStages) StageFunc(stage Stage) StageFunc {
	switch stage {
	case StageIngestRaw:
		return s.ingestRaw
	case StageAssembleReport:
		return s.assembleReport
	case StagePersistReport:
		return s.persistReport
	case StageGenerateVariants:
		return s.generateVariants
	case StageResolveFallbacks:
		return s.resolveFallbacks
	case StagePersistVariants:
		return s.persistVariants
	case StageRenderArtifacts:
		return s.renderArtifacts
	}
	return nil
}

// ingestRaw calls the analysis model and durably stores its raw payload,
// keyed by run id so the later video-id discovery cannot orphan it.
func (s *AnalysisStages) ingestRaw(ctx context.Context, run *Run) error {
	cp := run.Checkpoint
	raw, err := s.Analyzer.Analyze(ctx, cp.VideoURI, cp.MimeType, cp.Source)
	if err != nil {
		return Retryable(fmt.Errorf("video analysis: %w", err))
	}
	data := []byte(raw)
	if err := s.Store.Write(ctx, storage.RawAnalysisKey(cp.RunId), data); err != nil {
		return Retryable(fmt.Errorf("persisting raw analysis: %w", err))
	}
	run.RawAnalysis = data
	return nil
}

// assembleReport normalizes the raw payload into the domain report. A
// payload whose top level is not an object is a terminal AssemblyError;
// everything else degrades into recorded anomalies.
func (s *AnalysisStages) assembleReport(ctx context.Context, run *Run) error {
	cp := run.Checkpoint
	data := run.RawAnalysis
	if data == nil {
		var err error
		data, err = s.Store.Read(ctx, storage.RawAnalysisKey(cp.RunId))
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("raw analysis for run %s missing: %w", cp.RunId, err)
		}
		if err != nil {
			return Retryable(err)
		}
		run.RawAnalysis = data
	}

	result, err := s.Assembler.AssembleJSON(data, cp.Source)
	if err != nil {
		return err
	}
	run.Report = result.Report
	run.Anomalies = result.Anomalies

	// The payload may carry its own video id; the checkpoint follows the
	// assembled report from here on.
	cp.VideoId = result.Report.VideoId

	if len(result.Anomalies) > 0 {
		slog.Info("assembly recorded anomalies",
			"run_id", cp.RunId, "video_id", cp.VideoId, "count", len(result.Anomalies))
	}
	return nil
}

// persistReport writes the assembled report. On resume the report is
// recomputed from the stored raw payload, which is safe because assembly
// is a pure function of its input.
func (s *AnalysisStages) persistReport(ctx context.Context, run *Run) error {
	if run.Report == nil {
		if err := s.assembleReport(ctx, run); err != nil {
			return err
		}
	}
	if err := storage.SaveReport(ctx, s.Store, run.Report); err != nil {
		return Retryable(fmt.Errorf("persisting report: %w", err))
	}
	return nil
}

// generateVariants asks the model for candidate variants per scene and
// stores the unresolved candidates so a restart between this stage and
// resolution does not lose them.
func (s *AnalysisStages) generateVariants(ctx context.Context, run *Run) error {
	cp := run.Checkpoint
	report, err := s.report(ctx, run)
	if err != nil {
		return err
	}

	docs, err := s.Generator.Generate(ctx, report, s.styleFor(cp.Style), s.VariantsPerScene)
	if err != nil {
		return Retryable(fmt.Errorf("variant generation: %w", err))
	}
	for _, doc := range docs {
		if err := storage.SaveVariants(ctx, s.Store, doc); err != nil {
			return Retryable(fmt.Errorf("persisting variant candidates: %w", err))
		}
	}
	run.Documents = docs
	return nil
}

// resolveFallbacks completes every candidate's mandatory fields via the
// fallback chains. Resolver errors signal an invariant violation in the
// literal tier and are never retried.
func (s *AnalysisStages) resolveFallbacks(ctx context.Context, run *Run) error {
	report, err := s.report(ctx, run)
	if err != nil {
		return err
	}
	docs, err := s.documents(ctx, run)
	if err != nil {
		return err
	}

	for _, doc := range docs {
		if _, err := s.Resolver.ResolveDocument(doc, report); err != nil {
			return fmt.Errorf("resolving scene %d: %w", doc.SceneIndex, err)
		}
	}
	run.Documents = docs
	return nil
}

// persistVariants writes the resolved documents, overwriting the
// candidate versions stored by generate-variants.
func (s *AnalysisStages) persistVariants(ctx context.Context, run *Run) error {
	docs, err := s.documents(ctx, run)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := storage.SaveVariants(ctx, s.Store, doc); err != nil {
			return Retryable(fmt.Errorf("persisting variants: %w", err))
		}
	}
	return nil
}

// renderArtifacts regenerates every artifact file for the video.
func (s *AnalysisStages) renderArtifacts(ctx context.Context, run *Run) error {
	report, err := s.report(ctx, run)
	if err != nil {
		return err
	}
	docs, err := s.documents(ctx, run)
	if err != nil {
		return err
	}

	artifacts, err := s.Renderer.RenderAll(report, docs)
	if err != nil {
		return fmt.Errorf("rendering artifacts: %w", err)
	}

	names := make([]string, 0, len(artifacts))
	for name, data := range artifacts {
		if err := s.Store.Write(ctx, storage.ArtifactKey(report.VideoId, name), data); err != nil {
			return Retryable(fmt.Errorf("persisting artifact %s: %w", name, err))
		}
		names = append(names, name)
	}
	sort.Strings(names)
	run.Artifacts = names
	return nil
}

// report returns the run's report, reloading it from the store on the
// resume path. A missing report document is terminal; transient store
// failures are retryable.
func (s *AnalysisStages) report(ctx context.Context, run *Run) (*model.Report, error) {
	if run.Report != nil {
		return run.Report, nil
	}
	report, err := storage.LoadReport(ctx, s.Store, run.Checkpoint.VideoId)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, Retryable(err)
	}
	run.Report = report
	return report, nil
}

// documents returns the run's variant documents, reloading them on the
// resume path.
func (s *AnalysisStages) documents(ctx context.Context, run *Run) ([]*model.VariantDocument, error) {
	if run.Documents != nil {
		return run.Documents, nil
	}
	docs, err := storage.ListVariantDocuments(ctx, s.Store, run.Checkpoint.VideoId)
	if err != nil {
		return nil, Retryable(err)
	}
	run.Documents = docs
	return docs, nil
}

// styleFor maps a style directive to its configured profile. Unknown
// directives become ad-hoc styles; an empty directive asks the model to
// choose its own cohesive direction.
func (s *AnalysisStages) styleFor(directive string) cloud.ReimaginationStyle {
	if directive == "" {
		return cloud.ReimaginationStyle{
			Name:       "self-directed",
			Definition: "Choose a single cohesive creative direction appropriate to the footage and apply it across all scenes.",
		}
	}
	if style, found := s.Styles[directive]; found {
		return style
	}
	return cloud.ReimaginationStyle{
		Name:       directive,
		Definition: fmt.Sprintf("User-provided directive emphasizing %s", directive),
	}
}
