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

package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moemoe9876/ai-video/internal/cloud"
	"github.com/moemoe9876/ai-video/internal/core/model"
	"github.com/moemoe9876/ai-video/internal/core/pipeline"
	"github.com/moemoe9876/ai-video/internal/storage"
	test "github.com/moemoe9876/ai-video/internal/testutil"
)

// stubAnalyzer returns a fixed raw payload, failing the first failures
// calls with a transient error.
type stubAnalyzer struct {
	payload  string
	failures int
	calls    int
}

func (s *stubAnalyzer) Analyze(ctx context.Context, videoURI, mimeType, source string) (string, error) {
	s.calls++
	if s.calls <= s.failures {
		return "", errors.New("model timeout")
	}
	return s.payload, nil
}

// stubGenerator emits one candidate per scene with every mandatory field
// left empty, so the resolve stage has real work to do.
type stubGenerator struct {
	failures  int
	calls     int
	lastStyle cloud.ReimaginationStyle
}

func (g *stubGenerator) Generate(ctx context.Context, report *model.Report, style cloud.ReimaginationStyle, numVariants int) ([]*model.VariantDocument, error) {
	g.calls++
	g.lastStyle = style
	if g.calls <= g.failures {
		return nil, errors.New("model unavailable")
	}
	docs := make([]*model.VariantDocument, 0, len(report.Scenes))
	for _, scene := range report.Scenes {
		doc := model.NewVariantDocument(report.VideoId, scene.SceneIndex)
		doc.Style = style.Name
		doc.Variants = append(doc.Variants, &model.PromptVariant{
			VariantId:   fmt.Sprintf("%03d-01", scene.SceneIndex),
			Title:       "Stub Variant",
			ImagePrompt: "reimagined " + scene.Location,
		})
		docs = append(docs, doc)
	}
	return docs, nil
}

func newAnalysisOrchestrator(store storage.DocumentStore, analyzer *stubAnalyzer, generator *stubGenerator) *pipeline.Orchestrator {
	stages := pipeline.NewAnalysisStages(store, analyzer, generator, nil, 1)
	return pipeline.NewOrchestrator(store, stages, 3)
}

func TestAnalysisRunEndToEnd(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	analyzer := &stubAnalyzer{payload: test.GetTestRawAnalysisText()}
	generator := &stubGenerator{}
	orchestrator := newAnalysisOrchestrator(store, analyzer, generator)

	cp, err := orchestrator.Start(ctx, "run-1", "gs://b/test-trailer-001.mp4", "gs://b/test-trailer-001.mp4", "video/mp4", "")
	assert.NoError(t, err)
	assert.Equal(t, pipeline.StatusComplete, cp.Status)
	assert.Equal(t, "test-trailer-001", cp.VideoId, "the checkpoint follows the payload's video id")
	assert.Equal(t, "self-directed", generator.lastStyle.Name)

	report, err := storage.LoadReport(ctx, store, "test-trailer-001")
	assert.NoError(t, err)
	assert.Len(t, report.Scenes, 2)

	// The resolve stage filled every mandatory field before persistence.
	docs, err := storage.ListVariantDocuments(ctx, store, "test-trailer-001")
	assert.NoError(t, err)
	assert.Len(t, docs, 2)
	for _, doc := range docs {
		for _, variant := range doc.Variants {
			for _, field := range model.MandatoryVariantFields {
				assert.NotEmpty(t, variant.MandatoryField(field), "field %s of %s", field, variant.VariantId)
			}
		}
	}

	// Scene 1 names a film stock; scene 2 falls through to the literal.
	assert.Equal(t, "Kodak Vision3 250D", docs[0].Variants[0].FilmStock)
	assert.Equal(t, "Kodak Vision3 500T", docs[1].Variants[0].FilmStock)

	artifacts, err := store.List(ctx, "artifacts/test-trailer-001/")
	assert.NoError(t, err)
	assert.Contains(t, artifacts, storage.ArtifactKey("test-trailer-001", "prompts.md"))
	assert.Contains(t, artifacts, storage.ArtifactKey("test-trailer-001", "prompts.json"))
	assert.Contains(t, artifacts, storage.ArtifactKey("test-trailer-001", "shot_list.md"))
	assert.Contains(t, artifacts, storage.ArtifactKey("test-trailer-001", "camera_breakdown.md"))
	assert.Contains(t, artifacts, storage.ArtifactKey("test-trailer-001", "variant_report.md"))
}

func TestAnalysisRunRetriesAnalyzer(t *testing.T) {
	store := newStore(t)
	analyzer := &stubAnalyzer{payload: test.GetTestRawAnalysisText(), failures: 2}
	orchestrator := newAnalysisOrchestrator(store, analyzer, &stubGenerator{})

	cp, err := orchestrator.Start(context.Background(), "run-1", "src", "uri", "video/mp4", "")
	assert.NoError(t, err)
	assert.Equal(t, pipeline.StatusComplete, cp.Status)
	assert.Equal(t, 3, analyzer.calls)
}

func TestAnalysisRunMalformedPayloadIsTerminal(t *testing.T) {
	store := newStore(t)
	analyzer := &stubAnalyzer{payload: `["not", "an", "object"]`}
	orchestrator := newAnalysisOrchestrator(store, analyzer, &stubGenerator{})

	cp, err := orchestrator.Start(context.Background(), "run-1", "src", "uri", "video/mp4", "")
	assert.Error(t, err)
	var stageErr *pipeline.StageError
	assert.True(t, errors.As(err, &stageErr))
	assert.Equal(t, pipeline.StageAssembleReport, stageErr.Stage)
	assert.Equal(t, pipeline.StatusFailed, cp.Status)
	assert.Equal(t, 1, analyzer.calls, "ingest succeeded and is not repeated")
}

func TestAnalysisRunResumesAfterGeneratorOutage(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	analyzer := &stubAnalyzer{payload: test.GetTestRawAnalysisText()}
	generator := &stubGenerator{failures: 3}
	orchestrator := newAnalysisOrchestrator(store, analyzer, generator)

	_, err := orchestrator.Start(ctx, "run-1", "gs://b/test-trailer-001.mp4", "gs://b/test-trailer-001.mp4", "video/mp4", "sketch")
	assert.Error(t, err, "the generator outage outlasts the retry budget")

	// The report survived the failed run; resuming picks up at variant
	// generation without calling the analyzer again.
	cp, err := orchestrator.Resume(ctx, "run-1")
	assert.NoError(t, err)
	assert.Equal(t, pipeline.StatusComplete, cp.Status)
	assert.Equal(t, 1, analyzer.calls)
	assert.Equal(t, 4, generator.calls)
	assert.Equal(t, "sketch", generator.lastStyle.Name, "unknown directives become ad hoc styles")

	docs, err := storage.ListVariantDocuments(ctx, store, "test-trailer-001")
	assert.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestAnalysisRunNamedStyle(t *testing.T) {
	store := newStore(t)
	analyzer := &stubAnalyzer{payload: test.GetTestRawAnalysisText()}
	generator := &stubGenerator{}
	styles := map[string]cloud.ReimaginationStyle{
		"neo-noir": {Name: "Neo-noir", Definition: "High-contrast urban night palette."},
	}
	stages := pipeline.NewAnalysisStages(store, analyzer, generator, styles, 1)
	orchestrator := pipeline.NewOrchestrator(store, stages, 3)

	_, err := orchestrator.Start(context.Background(), "run-1", "src", "uri", "video/mp4", "neo-noir")
	assert.NoError(t, err)
	assert.Equal(t, "Neo-noir", generator.lastStyle.Name)
}
