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

// Package storage persists analysis documents (reports, variant documents,
// pipeline checkpoints, rendered artifacts) as JSON under stable keys. Two
// implementations exist: a local filesystem store used by the CLI-style
// single-machine flow and tests, and a GCS-backed store used in
// deployment. Both guarantee that a read never observes a torn write.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Read for keys that have never been written.
// Callers distinguish it from transport errors with errors.Is.
var ErrNotFound = errors.New("document not found")

// DocumentStore is the persistence surface the pipeline writes through.
// Keys are slash-separated relative paths ("reports/<video_id>.json");
// implementations map them onto their own hierarchy. Write is atomic per
// key: concurrent readers observe either the prior document or the new
// one, never a mixture.
type DocumentStore interface {
	// Write persists data under key, creating parent namespaces as needed
	// and replacing any existing document.
	Write(ctx context.Context, key string, data []byte) error
	// Read returns the document stored under key, or ErrNotFound.
	Read(ctx context.Context, key string) ([]byte, error)
	// Exists reports whether key holds a document, without fetching it.
	Exists(ctx context.Context, key string) (bool, error)
	// List returns the keys under the given prefix, in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes the document under key. Deleting an absent key is not
	// an error.
	Delete(ctx context.Context, key string) error
}

// Key builders. Every component that persists or fetches a document goes
// through these so the layout is defined exactly once.

func ReportKey(videoId string) string {
	return fmt.Sprintf("reports/%s.json", videoId)
}

func VariantsKey(videoId string, sceneIndex int) string {
	return fmt.Sprintf("variants/%s/scene_%03d.json", videoId, sceneIndex)
}

func CheckpointKey(runId string) string {
	return fmt.Sprintf("runs/%s/checkpoint.json", runId)
}

// RawAnalysisKey is keyed by run id, not video id: the raw payload is a
// per-run capture and the video id is not known until assembly reads it.
func RawAnalysisKey(runId string) string {
	return fmt.Sprintf("raw/%s.json", runId)
}

func ArtifactKey(videoId, name string) string {
	return fmt.Sprintf("artifacts/%s/%s", videoId, name)
}
