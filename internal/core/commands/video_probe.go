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

// This file defines the command that turns an uploaded GCS object into a
// model-ready video reference.
//
// Logic Flow:
// The generative model takes videos by GCS URI, so no upload or transfer
// is needed; what is needed is a trustworthy MIME type. Upload tooling
// frequently omits or lies about content type, and handing the model a
// non-video object wastes a long, expensive call before failing. This
// command sniffs the object's magic bytes when the notification's content
// type is missing or generic, and rejects non-video objects outright.
package commands

import (
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"github.com/h2non/filetype"

	"github.com/moemoe9876/ai-video/internal/cloud"
	"github.com/moemoe9876/ai-video/internal/core/cor"
	"google.golang.org/genai"
)

// sniffLen is how many leading bytes are fetched for type detection.
// filetype only needs the first 262 bytes; one small ranged read is far
// cheaper than downloading the object.
const sniffLen = 512

// GetVideoFileParameterName returns the canonical context key under which
// the model-ready video reference is stored.
func GetVideoFileParameterName() string {
	return "__VIDEO_FILE__"
}

// VideoProbe validates that an uploaded object is a video and produces
// the genai.FileData reference the analysis call consumes.
type VideoProbe struct {
	cor.BaseCommand
	storageClient *gcs.Client
}

// NewVideoProbe is the constructor for the VideoProbe command.
func NewVideoProbe(name string, storageClient *gcs.Client) *VideoProbe {
	return &VideoProbe{BaseCommand: *cor.NewBaseCommand(name), storageClient: storageClient}
}

// IsExecutable requires the GCS object details in the context.
func (v *VideoProbe) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(cloud.GetGCSObjectName()) != nil
}

// Execute resolves the object's MIME type and publishes the FileData
// reference for the analysis stage.
func (v *VideoProbe) Execute(context cor.Context) {
	gcsFile := context.Get(cloud.GetGCSObjectName()).(*cloud.GCSObject)

	mimeType := gcsFile.MIMEType
	if !isVideoMIME(mimeType) {
		sniffed, err := v.sniffMIME(context, gcsFile)
		if err != nil {
			v.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(v.GetName(), err)
			return
		}
		mimeType = sniffed
	}
	if !isVideoMIME(mimeType) {
		v.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(v.GetName(), fmt.Errorf("object %s/%s is %q, not a video", gcsFile.Bucket, gcsFile.Name, mimeType))
		return
	}

	fileData := &genai.FileData{
		FileURI:  fmt.Sprintf("gs://%s/%s", gcsFile.Bucket, gcsFile.Name),
		MIMEType: mimeType,
	}

	v.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetVideoFileParameterName(), fileData)
	context.Add(v.GetOutputParam(), fileData)
}

// sniffMIME reads the object's leading bytes and detects its type from
// the magic numbers.
func (v *VideoProbe) sniffMIME(context cor.Context, gcsFile *cloud.GCSObject) (string, error) {
	reader, err := v.storageClient.Bucket(gcsFile.Bucket).Object(gcsFile.Name).NewRangeReader(context.GetContext(), 0, sniffLen)
	if err != nil {
		return "", fmt.Errorf("failed to read %s/%s for type detection: %w", gcsFile.Bucket, gcsFile.Name, err)
	}
	defer func() { _ = reader.Close() }()

	head, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read %s/%s for type detection: %w", gcsFile.Bucket, gcsFile.Name, err)
	}

	kind, err := filetype.Match(head)
	if err != nil {
		return "", fmt.Errorf("type detection failed for %s/%s: %w", gcsFile.Bucket, gcsFile.Name, err)
	}
	if kind == filetype.Unknown {
		return "", fmt.Errorf("could not determine content type of %s/%s", gcsFile.Bucket, gcsFile.Name)
	}
	return kind.MIME.Value, nil
}

// isVideoMIME reports whether the MIME type names a video format.
func isVideoMIME(mimeType string) bool {
	return len(mimeType) > 6 && mimeType[:6] == "video/"
}
