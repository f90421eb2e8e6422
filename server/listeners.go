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

// Package main contains the logic for setting up and starting the Pub/Sub message listeners.
// These listeners initiate the video analysis pipeline in response to events,
// such as new file uploads to Google Cloud Storage.
//
// Functions:
//   - SetupListeners: Builds the analysis workflow, attaches it to the video
//     upload topic listener, and returns the shared pipeline orchestrator.
package main

import (
	"context"

	"github.com/moemoe9876/ai-video/internal/cloud"
	"github.com/moemoe9876/ai-video/internal/core/pipeline"
	"github.com/moemoe9876/ai-video/internal/core/workflow"
	"github.com/moemoe9876/ai-video/internal/storage"
)

// SetupListeners configures and starts the background Pub/Sub listeners.
// It creates the video analysis workflow and attaches it to the upload
// topic listener.
//
// Inputs:
//   - config: The application's configuration, containing settings for storage, topics, etc.
//   - cloudClients: A struct containing all the initialized Google Cloud service clients.
//   - store: The document store the pipeline persists through.
//   - ctx: The application's root context, used to manage the lifecycle of the listeners.
//
// Outputs:
//   - *pipeline.Orchestrator: The orchestrator backing the workflow, shared
//     with the API layer for on-demand and resumed runs.
func SetupListeners(config *cloud.Config, cloudClients *cloud.ServiceClients, store storage.DocumentStore, ctx context.Context) *pipeline.Orchestrator {
	// Create the workflow for analyzing newly uploaded videos.
	// The workflow uses the "creative-flash" GenAI model profile for both
	// the full-video analysis and per-scene variant generation.
	analysisWorkflow, orchestrator := workflow.NewVideoAnalysisPipeline(config, cloudClients, "creative-flash", store)

	// Assign the workflow as the command to be executed by the listener for the upload topic.
	cloudClients.PubSubListeners["VideoUploads"].SetCommand(analysisWorkflow)
	// Start the listener in a background goroutine. It will now begin receiving and processing messages from its subscription.
	cloudClients.PubSubListeners["VideoUploads"].Listen(ctx)

	return orchestrator
}
