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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// entry-point command for upload-triggered analysis.
//
// Logic Flow:
// GCS publishes a notification message to Pub/Sub when a video lands in
// the input bucket. This command parses that message and distills it to
// the three facts the rest of the chain needs: bucket, object name, and
// content type.
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/moemoe9876/ai-video/internal/cloud"
	"github.com/moemoe9876/ai-video/internal/core/cor"
)

// VideoTriggerToGCSObject parses a GCS Pub/Sub notification and extracts
// the uploaded video's location into a simplified GCSObject.
type VideoTriggerToGCSObject struct {
	cor.BaseCommand
}

// NewVideoTriggerToGCSObject is the constructor for the
// VideoTriggerToGCSObject command.
func NewVideoTriggerToGCSObject(name string) *VideoTriggerToGCSObject {
	return &VideoTriggerToGCSObject{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute parses the raw notification JSON from the context input
// parameter.
func (c *VideoTriggerToGCSObject) Execute(context cor.Context) {
	in := context.Get(c.GetInputParam()).(string)

	var out cloud.GCSPubSubNotification
	if err := json.Unmarshal([]byte(in), &out); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to unmarshal GCS notification: %w", err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)

	msg := &cloud.GCSObject{Bucket: out.Bucket, Name: out.Name, MIMEType: out.ContentType}

	// Publish under the well-known key for commands later in the chain,
	// and as the output parameter for the next command.
	context.Add(cloud.GetGCSObjectName(), msg)
	context.Add(c.GetOutputParam(), msg)
}
