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

// Package cloud defines the application configuration structures, loaded
// from layered TOML files, plus the clients and wrappers for the Google
// Cloud services the analysis pipeline depends on.
//
// Structs:
//   - Storage: GCS buckets and the local document root.
//   - SceneIndexDataSource: BigQuery dataset and table for the scene index.
//   - PromptTemplates: Text templates for the analysis and reimagination
//     model calls.
//   - VertexAiLLMModel: Configuration for one Vertex AI model.
//   - TopicSubscription: One Pub/Sub subscription.
//   - VariantFallbacks: Literal values for the variant fallback chains.
//   - ReimaginationStyle: A named creative style with optional prompt
//     overrides.
//   - Config: The root container all of the above hang off.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings disables content blocking for all harm categories.
// The pipeline analyzes trusted footage; blocked responses would surface
// as malformed-payload anomalies downstream, which is worse than letting
// the analysis through.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// SceneIndexDataSource is the BigQuery destination for the flattened scene
// rows the analytics sink writes.
type SceneIndexDataSource struct {
	DatasetName string `toml:"dataset"`     // The BigQuery dataset name.
	SceneTable  string `toml:"scene_table"` // The table holding one row per analyzed scene.
}

// PromptTemplates holds the text templates for the model calls the
// pipeline makes. Templates use Go template syntax and are filled in by
// the commands that own them.
type PromptTemplates struct {
	AnalysisPrompt      string `toml:"analysis"`      // Template for the full-video analysis request.
	ReimaginationPrompt string `toml:"reimagination"` // Template for the per-scene variant generation request.
}

// VertexAiLLMModel configures one Vertex AI model invocation profile.
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // The Vertex AI model name.
	SystemInstructions string  `toml:"system_instructions"` // System instructions sent with every request.
	Temperature        float32 `toml:"temperature"`
	TopP               float32 `toml:"top_p"`
	TopK               float32 `toml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens"`
	OutputFormat       string  `toml:"output_format"` // Response MIME type, "application/json" for structured calls.
	RateLimit          int     `toml:"rate_limit"`    // Requests per second allowed against this model.
}

// TopicSubscription configures one Pub/Sub subscription the server
// listens on.
type TopicSubscription struct {
	Name             string `toml:"name"`
	DeadLetterTopic  string `toml:"dead_letter_topic"`
	TimeoutInSeconds int    `toml:"timeout_in_seconds"`
}

// Storage configures where videos arrive and where documents and
// artifacts are persisted.
type Storage struct {
	VideoInputBucket  string `toml:"video_input_bucket"` // Bucket uploads land in; its notifications trigger analysis.
	DocumentBucket    string `toml:"document_bucket"`    // Bucket the GCS document store writes to.
	DocumentPrefix    string `toml:"document_prefix"`    // Key prefix inside the document bucket.
	LocalDocumentRoot string `toml:"local_document_root"` // Root directory for the filesystem document store.
}

// VariantFallbacks carries the literal tier of the variant fallback
// chains. Empty values fall back to the compiled-in literals, so a partial
// table is valid.
type VariantFallbacks struct {
	FilmStock       string `toml:"film_stock"`
	Lens            string `toml:"lens"`
	Mood            string `toml:"mood"`
	CulturalContext string `toml:"cultural_context"`
}

// Pipeline holds orchestration tunables.
type Pipeline struct {
	MaxStageAttempts int `toml:"max_stage_attempts"` // Retry budget per stage before the run fails.
	VariantsPerScene int `toml:"variants_per_scene"` // How many variants the generator asks for per scene.
}

// ReimaginationStyle names a creative direction for variant generation and
// optionally overrides the reimagination prompt or system instructions for
// that style.
type ReimaginationStyle struct {
	Name               string `toml:"name"`                // User-facing style name (e.g. "Neo-noir").
	Definition         string `toml:"definition"`          // Short description folded into the prompt.
	SystemInstructions string `toml:"system_instructions"` // Optional model system-instruction override.
	Prompt             string `toml:"prompt"`              // Optional reimagination prompt override.
}

// Config is the root application configuration, populated by LoadConfig
// from the base TOML file plus the runtime-specific overlay.
type Config struct {
	Application struct {
		Name                      string `toml:"name"`
		GoogleProjectId           string `toml:"google_project_id"`
		GoogleLocation            string `toml:"location"`
		ThreadPoolSize            int    `toml:"thread_pool_size"`             // Worker count for per-scene fan-out.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"` // Service account used to sign artifact URLs.
	} `toml:"application"`
	Storage              Storage                       `toml:"storage"`
	SceneIndexDataSource SceneIndexDataSource          `toml:"scene_index_data_source"`
	PromptTemplates      PromptTemplates               `toml:"prompt_templates"`
	VariantFallbacks     VariantFallbacks              `toml:"variant_fallbacks"`
	Pipeline             Pipeline                      `toml:"pipeline"`
	TopicSubscriptions   map[string]TopicSubscription  `toml:"topic_subscriptions"`
	AgentModels          map[string]VertexAiLLMModel   `toml:"agent_models"`
	Styles               map[string]ReimaginationStyle `toml:"styles"`
}

// NewConfig returns a Config with its maps initialized so the TOML decoder
// can populate them directly.
func NewConfig() *Config {
	return &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
		Styles:             make(map[string]ReimaginationStyle),
	}
}
