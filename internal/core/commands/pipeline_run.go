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

// This file defines the command that hands a probed video off to the
// checkpointed pipeline and surfaces the outcome to the chain. All stage
// sequencing, retries, and resumability live in the pipeline package; as
// far as the chain is concerned this is one long-running step.
package commands

import (
	"fmt"

	"github.com/moemoe9876/ai-video/internal/core/cor"
	"github.com/moemoe9876/ai-video/internal/core/pipeline"
	"github.com/moemoe9876/ai-video/internal/storage"
	"google.golang.org/genai"
)

// GetReportParameterName returns the canonical context key under which
// the completed run's report is stored.
func GetReportParameterName() string {
	return "__ANALYSIS_REPORT__"
}

// PipelineRun executes a full analysis run for the probed video.
type PipelineRun struct {
	cor.BaseCommand
	orchestrator *pipeline.Orchestrator
	store        storage.DocumentStore
	style        string // Style directive applied to every upload-triggered run; empty lets the model choose.
}

// NewPipelineRun is the constructor for the PipelineRun command.
func NewPipelineRun(name string, orchestrator *pipeline.Orchestrator, store storage.DocumentStore, style string) *PipelineRun {
	return &PipelineRun{
		BaseCommand:  *cor.NewBaseCommand(name),
		orchestrator: orchestrator,
		store:        store,
		style:        style,
	}
}

// IsExecutable requires the probed video reference in the context.
func (p *PipelineRun) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(GetVideoFileParameterName()) != nil
}

// Execute starts a run for the video and, on completion, loads the
// persisted report into the context for downstream commands.
func (p *PipelineRun) Execute(context cor.Context) {
	fileData := context.Get(GetVideoFileParameterName()).(*genai.FileData)

	// The GCS URI doubles as the source reference, which keeps video ids
	// stable across re-uploads of the same object.
	cp, err := p.orchestrator.Start(context.GetContext(), "", fileData.FileURI, fileData.FileURI, fileData.MIMEType, p.style)
	if err != nil {
		p.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(p.GetName(), err)
		return
	}

	report, err := storage.LoadReport(context.GetContext(), p.store, cp.VideoId)
	if err != nil {
		p.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(p.GetName(), fmt.Errorf("run %s completed but report %s unreadable: %w", cp.RunId, cp.VideoId, err))
		return
	}

	p.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetReportParameterName(), report)
	context.Add(p.GetOutputParam(), report)
}
