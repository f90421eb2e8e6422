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

// Package pipeline sequences one video's analysis run through its named
// stages, recording a durable checkpoint after every stage transition so
// an interrupted run resumes at the first unfinished stage instead of
// restarting from scratch.
//
// The checkpoint is the only state that survives a process restart.
// Everything a later stage needs from an earlier one is persisted in the
// document store by the stage that produced it, which is what makes every
// stage idempotent: re-running a stage recomputes from durable inputs and
// overwrites its durable outputs under the same keys.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/moemoe9876/ai-video/internal/storage"
)

// Stage names one step of the analysis run.
type Stage string

const (
	StageIngestRaw        Stage = "ingest-raw"
	StageAssembleReport   Stage = "assemble-report"
	StagePersistReport    Stage = "persist-report"
	StageGenerateVariants Stage = "generate-variants"
	StageResolveFallbacks Stage = "resolve-fallbacks"
	StagePersistVariants  Stage = "persist-variants"
	StageRenderArtifacts  Stage = "render-artifacts"
)

// StageOrder is the execution sequence. Resumption logic depends on this
// order being stable across releases.
var StageOrder = []Stage{
	StageIngestRaw,
	StageAssembleReport,
	StagePersistReport,
	StageGenerateVariants,
	StageResolveFallbacks,
	StagePersistVariants,
	StageRenderArtifacts,
}

// Status is the lifecycle state of a run relative to its current stage.
type Status string

const (
	StatusPending  Status = "PENDING"  // Created, no stage started yet.
	StatusRunning  Status = "RUNNING"  // The checkpointed stage is in flight.
	StatusDone     Status = "DONE"     // The checkpointed stage finished; the next one has not started.
	StatusFailed   Status = "FAILED"   // The checkpointed stage exhausted its attempts.
	StatusComplete Status = "COMPLETE" // Every stage finished.
)

// Checkpoint is the durable per-run record. It is written after every
// status transition, so its (Stage, Status) pair always names the exact
// point a restarted process should pick up from.
type Checkpoint struct {
	RunId        string    `json:"run_id"`
	VideoId      string    `json:"video_id"`
	Source       string    `json:"source"`           // The video reference the run was started against.
	VideoURI     string    `json:"video_uri"`        // GCS URI of the uploaded video.
	MimeType     string    `json:"mime_type"`        // The video's MIME type.
	Style        string    `json:"style,omitempty"`  // The reimagination style directive, if any.
	Stage        Stage     `json:"stage"`
	Status       Status    `json:"status"`
	AttemptCount int       `json:"attempt_count"` // Attempts spent on the current stage.
	LastError    string    `json:"last_error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewCheckpoint creates the initial PENDING record for a run.
func NewCheckpoint(runId, videoId, source string) *Checkpoint {
	now := time.Now()
	return &Checkpoint{
		RunId:     runId,
		VideoId:   videoId,
		Source:    source,
		Stage:     StageOrder[0],
		Status:    StatusPending,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// NextStage returns the stage after the given one, or "" when it is the
// last.
func NextStage(stage Stage) Stage {
	for i, s := range StageOrder {
		if s == stage && i+1 < len(StageOrder) {
			return StageOrder[i+1]
		}
	}
	return ""
}

// stageIndex returns the position of a stage in StageOrder, or -1.
func stageIndex(stage Stage) int {
	for i, s := range StageOrder {
		if s == stage {
			return i
		}
	}
	return -1
}

// SaveCheckpoint durably records the checkpoint. The run must not
// advance until this returns nil.
func SaveCheckpoint(ctx context.Context, store storage.DocumentStore, cp *Checkpoint) error {
	cp.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint %s: %w", cp.RunId, err)
	}
	if err := store.Write(ctx, storage.CheckpointKey(cp.RunId), data); err != nil {
		return fmt.Errorf("failed to persist checkpoint %s: %w", cp.RunId, err)
	}
	return nil
}

// LoadCheckpoint reads a run's checkpoint. Returns storage.ErrNotFound
// (wrapped) for an unknown run id.
func LoadCheckpoint(ctx context.Context, store storage.DocumentStore, runId string) (*Checkpoint, error) {
	data, err := store.Read(ctx, storage.CheckpointKey(runId))
	if err != nil {
		return nil, err
	}
	cp := &Checkpoint{}
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %s: %w", runId, err)
	}
	return cp, nil
}
