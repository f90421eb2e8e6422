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

// Package workflow composes commands into the upload-triggered analysis
// pipeline: parse the GCS notification, probe the uploaded object, run
// the checkpointed analysis pipeline, and index the resulting scenes.
package workflow

import (
	"text/template"

	"github.com/moemoe9876/ai-video/internal/cloud"
	"github.com/moemoe9876/ai-video/internal/core/commands"
	"github.com/moemoe9876/ai-video/internal/core/cor"
	"github.com/moemoe9876/ai-video/internal/core/pipeline"
	"github.com/moemoe9876/ai-video/internal/core/services"
	"github.com/moemoe9876/ai-video/internal/core/variants"
	"github.com/moemoe9876/ai-video/internal/storage"
)

// VideoAnalysisWorkflow is the Chain of Responsibility triggered by a
// video landing in the input bucket. The heavy lifting happens inside the
// PipelineRun command; the surrounding commands translate the trigger in
// and fan the results out to the scene index.
type VideoAnalysisWorkflow struct {
	cor.BaseCommand
	chain cor.Chain
}

// Execute runs the workflow by invoking the underlying chain.
func (m *VideoAnalysisWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
}

// NewVideoAnalysisPipeline builds the upload-triggered analysis workflow
// and the checkpointed orchestrator underneath it.
//
// Inputs:
//   - config: The application configuration.
//   - serviceClients: Initialized GCP service clients.
//   - agentModelName: Which configured agent model profile to use.
//   - store: The document store for reports, variants, and checkpoints.
//
// Outputs:
//   - *VideoAnalysisWorkflow: The composed workflow.
//   - *pipeline.Orchestrator: The orchestrator, shared with the API layer
//     for on-demand and resumed runs.
func NewVideoAnalysisPipeline(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	agentModelName string,
	store storage.DocumentStore) (*VideoAnalysisWorkflow, *pipeline.Orchestrator) {

	// Prompt templates are mandatory configuration; the server cannot do
	// anything useful without them.
	analysisTemplate, err := template.New("analysis-template").Parse(config.PromptTemplates.AnalysisPrompt)
	if err != nil {
		panic(err)
	}
	reimaginationTemplate, err := template.New("reimagination-template").Parse(config.PromptTemplates.ReimaginationPrompt)
	if err != nil {
		panic(err)
	}

	agentModel := serviceClients.AgentModels[agentModelName]
	analyzer := services.NewVideoAnalyzer("video-analyzer", agentModel, analysisTemplate)
	generator := services.NewVariantGenerator("variant-generator", agentModel, reimaginationTemplate, config.Application.ThreadPoolSize)

	stages := pipeline.NewAnalysisStages(store, analyzer, generator, config.Styles, config.Pipeline.VariantsPerScene)
	stages.Resolver = variants.NewFallbackResolver(fallbackLiterals(config.VariantFallbacks))
	orchestrator := pipeline.NewOrchestrator(store, stages, config.Pipeline.MaxStageAttempts)

	workflow := &VideoAnalysisWorkflow{BaseCommand: *cor.NewBaseCommand("video-analysis-pipeline")}
	workflow.initializeChain(config, serviceClients, orchestrator, store)
	return workflow, orchestrator
}

// initializeChain builds the command sequence.
func (m *VideoAnalysisWorkflow) initializeChain(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	orchestrator *pipeline.Orchestrator,
	store storage.DocumentStore) {

	out := cor.NewBaseChain(m.GetName())

	// Step 1: Parse the incoming Pub/Sub notification into a GCS object
	// reference.
	out.AddCommand(commands.NewVideoTriggerToGCSObject("video-trigger-to-gcs-object"))

	// Step 2: Confirm the object is really a video and produce the
	// model-ready GCS URI reference. Objects with missing or generic
	// content types are sniffed by magic bytes.
	out.AddCommand(commands.NewVideoProbe("probe-video", serviceClients.StorageClient))

	// Step 3: Run the checkpointed pipeline end to end: analysis,
	// assembly, persistence, variant generation, fallback resolution, and
	// artifact rendering. Upload-triggered runs carry no style directive,
	// so the model chooses its own creative direction.
	out.AddCommand(commands.NewPipelineRun("run-analysis-pipeline", orchestrator, store, ""))

	// Step 4: Stream the completed report's scenes into the BigQuery
	// scene index for cross-video queries.
	out.AddCommand(commands.NewSceneIndexSink(
		"index-scenes",
		serviceClients.BigQueryClient,
		config.SceneIndexDataSource.DatasetName,
		config.SceneIndexDataSource.SceneTable,
		commands.GetReportParameterName()))

	m.chain = out
}

// fallbackLiterals converts the configured fallback table into resolver
// literals, dropping empty entries so the compiled-in defaults apply.
func fallbackLiterals(cfg cloud.VariantFallbacks) variants.Literals {
	literals := variants.Literals{}
	if cfg.FilmStock != "" {
		literals["film_stock"] = cfg.FilmStock
	}
	if cfg.Lens != "" {
		literals["lens"] = cfg.Lens
	}
	if cfg.Mood != "" {
		literals["mood"] = cfg.Mood
	}
	if cfg.CulturalContext != "" {
		literals["cultural_context"] = cfg.CulturalContext
	}
	return literals
}
