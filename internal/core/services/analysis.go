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

// Package services contains the business logic of the analysis pipeline:
// the generative model calls that produce raw analysis payloads and
// variant candidates, and the read-side access to persisted documents.
//
// This file defines the VideoAnalyzer, which sends a whole video to the
// generative model in a single multi-modal request and returns the raw
// JSON analysis payload. The payload is deliberately NOT parsed here: the
// model's output schema drifts between model versions, so the tolerant
// assembler owns all interpretation and this service only moves bytes.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/moemoe9876/ai-video/internal/cloud"
	"github.com/moemoe9876/ai-video/internal/core/model"
	"google.golang.org/genai"
)

// VideoAnalyzer produces the raw analysis payload for one video via a
// single full-video model call.
type VideoAnalyzer struct {
	name                     string
	generativeAIModel        *cloud.QuotaAwareGenerativeAIModel // The rate-limited generative model client.
	template                 *template.Template                 // The Go template for building the analysis prompt.
	geminiInputTokenCounter  metric.Int64Counter
	geminiOutputTokenCounter metric.Int64Counter
	geminiRetryCounter       metric.Int64Counter
}

// NewVideoAnalyzer is the constructor for the VideoAnalyzer service.
//
// Inputs:
//   - name: A name for this service instance, used for telemetry metrics.
//   - generativeAIModel: The rate-limited wrapper for the generative model client.
//   - template: A parsed Go template for the analysis prompt.
//
// Outputs:
//   - *VideoAnalyzer: The service with initialized telemetry counters.
func NewVideoAnalyzer(
	name string,
	generativeAIModel *cloud.QuotaAwareGenerativeAIModel,
	template *template.Template) *VideoAnalyzer {

	out := &VideoAnalyzer{
		name:              name,
		generativeAIModel: generativeAIModel,
		template:          template,
	}

	meter := otel.Meter(name)
	out.geminiInputTokenCounter, _ = meter.Int64Counter(fmt.Sprintf("%s.gemini.token.input", name))
	out.geminiOutputTokenCounter, _ = meter.Int64Counter(fmt.Sprintf("%s.gemini.token.output", name))
	out.geminiRetryCounter, _ = meter.Int64Counter(fmt.Sprintf("%s.gemini.retry", name))

	return out
}

// GenerateParams creates the map of dynamic data injected into the
// analysis prompt template.
//
// Outputs:
//   - map[string]interface{}: A map of keys and values for template substitution.
func (t *VideoAnalyzer) GenerateParams(source string) map[string]interface{} {
	params := make(map[string]interface{})
	params["SOURCE"] = source

	// Provide a complete, well-formed JSON example in the prompt. Few-shot
	// prompting keeps the model's output close enough to the expected shape
	// that the assembler's tolerant parsing rarely has to work hard.
	exampleReport, _ := json.Marshal(model.GetExampleReport())
	params["EXAMPLE_JSON"] = string(exampleReport)
	return params
}

// Analyze sends the video at the given GCS URI to the generative model
// along with the templated analysis prompt and returns the raw JSON
// response text.
//
// Inputs:
//   - ctx: The context for the request.
//   - videoURI: The GCS URI of the video to analyze (gs://bucket/object).
//   - mimeType: The video's MIME type.
//   - source: The source reference recorded in the analysis (usually the URI).
//
// Outputs:
//   - string: The raw JSON analysis payload from the model.
//   - error: An error when prompt templating or the model call fails.
func (t *VideoAnalyzer) Analyze(ctx context.Context, videoURI string, mimeType string, source string) (string, error) {
	var buffer bytes.Buffer
	if err := t.template.Execute(&buffer, t.GenerateParams(source)); err != nil {
		return "", fmt.Errorf("failed to execute analysis prompt template: %w", err)
	}

	contents := []*genai.Content{
		{Parts: []*genai.Part{
			{Text: buffer.String()},
			{FileData: &genai.FileData{
				FileURI:  videoURI,
				MIMEType: mimeType,
			}},
		},
			Role: "user"},
	}

	out, err := cloud.GenerateMultiModalResponse(ctx, t.geminiInputTokenCounter, t.geminiOutputTokenCounter, t.geminiRetryCounter, 0, t.generativeAIModel, contents)
	if err != nil {
		return "", fmt.Errorf("analysis request failed: %w", err)
	}
	return out, nil
}
