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

// This file defines the Orchestrator, the state machine that drives a
// run through its stages.
//
// Logic Flow:
//  1. Start creates a PENDING checkpoint, then executes stages in order.
//  2. Before a stage runs its checkpoint is durably marked RUNNING; after
//     it succeeds, DONE. A run only advances once DONE is recorded.
//  3. A stage error marked Retryable is re-attempted up to the configured
//     budget, with the attempt count checkpointed so retries survive a
//     restart too. Terminal errors (and exhausted budgets) mark the stage
//     FAILED and stop the run.
//  4. Resume reloads the checkpoint and re-enters at the first stage that
//     is not DONE. Stage inputs are rehydrated from the document store,
//     not from process memory.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/moemoe9876/ai-video/internal/core/model"
	"github.com/moemoe9876/ai-video/internal/core/normalize"
	"github.com/moemoe9876/ai-video/internal/storage"
)

// StageFunc executes one stage of a run against the shared Run state.
type StageFunc func(ctx context.Context, run *Run) error

// Stages supplies one executable function per named stage.
type Stages interface {
	StageFunc(stage Stage) StageFunc
}

// Run is the in-memory state threaded through a single execution. Fields
// are populated as stages complete; a resumed run starts with only the
// checkpoint-derived fields set and stages reload the rest from the
// document store.
type Run struct {
	Checkpoint *Checkpoint

	RawAnalysis []byte                   // Output of ingest-raw.
	Report      *model.Report            // Output of assemble-report.
	Anomalies   []normalize.Anomaly      // Recorded during assembly, logged not fatal.
	Documents   []*model.VariantDocument // Output of generate-variants, resolved in place by resolve-fallbacks.
	Artifacts   []string                 // Names of files written by render-artifacts.
}

// Orchestrator drives runs through the stage sequence with checkpointing
// and bounded retries.
type Orchestrator struct {
	store       storage.DocumentStore
	stages      Stages
	maxAttempts int
}

// NewOrchestrator creates an orchestrator. maxAttempts is the per-stage
// retry budget for retryable failures; values below 1 are raised to 1.
func NewOrchestrator(store storage.DocumentStore, stages Stages, maxAttempts int) *Orchestrator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Orchestrator{store: store, stages: stages, maxAttempts: maxAttempts}
}

// Start begins a new run against the given video source. The run id is
// generated when empty. The returned checkpoint reflects the final state;
// on failure the error is a *StageError naming the failed stage.
func (o *Orchestrator) Start(ctx context.Context, runId, source, videoURI, mimeType, style string) (*Checkpoint, error) {
	if runId == "" {
		runId = uuid.NewString()
	}
	// The video id is a stable hash of the source, so re-analysis of the
	// same source overwrites its previous documents.
	videoId := uuid.NewSHA1(uuid.NameSpaceURL, []byte(source)).String()

	cp := NewCheckpoint(runId, videoId, source)
	cp.VideoURI = videoURI
	cp.MimeType = mimeType
	cp.Style = style
	if err := SaveCheckpoint(ctx, o.store, cp); err != nil {
		return nil, err
	}

	slog.Info("starting analysis run", "run_id", runId, "video_id", videoId, "source", source)
	run := &Run{Checkpoint: cp}
	return cp, o.execute(ctx, run, 0)
}

// Resume continues a previously interrupted run from its first
// unfinished stage. A COMPLETE run returns immediately.
func (o *Orchestrator) Resume(ctx context.Context, runId string) (*Checkpoint, error) {
	cp, err := LoadCheckpoint(ctx, o.store, runId)
	if err != nil {
		return nil, err
	}
	if cp.Status == StatusComplete {
		slog.Info("run already complete", "run_id", runId)
		return cp, nil
	}

	start := stageIndex(cp.Stage)
	if start < 0 {
		return cp, fmt.Errorf("checkpoint %s names unknown stage %q", runId, cp.Stage)
	}
	if cp.Status == StatusDone {
		start++
	}
	// A FAILED or RUNNING stage is re-entered from its start with a fresh
	// attempt budget.
	cp.AttemptCount = 0
	cp.LastError = ""

	slog.Info("resuming analysis run", "run_id", runId, "stage", StageOrder[min(start, len(StageOrder)-1)])
	run := &Run{Checkpoint: cp}
	return cp, o.execute(ctx, run, start)
}

// execute runs stages from the given index to the end, checkpointing
// every transition.
func (o *Orchestrator) execute(ctx context.Context, run *Run, from int) error {
	cp := run.Checkpoint

	for i := from; i < len(StageOrder); i++ {
		stage := StageOrder[i]
		fn := o.stages.StageFunc(stage)
		if fn == nil {
			return &StageError{RunId: cp.RunId, Stage: stage, Err: fmt.Errorf("no implementation registered")}
		}

		cp.Stage = stage
		cp.Status = StatusRunning
		if err := SaveCheckpoint(ctx, o.store, cp); err != nil {
			return err
		}

		if err := o.runStage(ctx, run, stage, fn); err != nil {
			cp.Status = StatusFailed
			cp.LastError = err.Error()
			if saveErr := SaveCheckpoint(ctx, o.store, cp); saveErr != nil {
				slog.Error("failed to record stage failure", "run_id", cp.RunId, "stage", stage, "error", saveErr)
			}
			return &StageError{RunId: cp.RunId, Stage: stage, Err: err}
		}

		cp.Status = StatusDone
		cp.AttemptCount = 0
		cp.LastError = ""
		if err := SaveCheckpoint(ctx, o.store, cp); err != nil {
			return err
		}
		slog.Info("stage complete", "run_id", cp.RunId, "stage", stage)
	}

	cp.Status = StatusComplete
	if err := SaveCheckpoint(ctx, o.store, cp); err != nil {
		return err
	}
	slog.Info("analysis run complete", "run_id", cp.RunId, "video_id", cp.VideoId)
	return nil
}

// runStage executes one stage with the retry policy. Only errors marked
// Retryable consume additional attempts; a terminal error fails the stage
// immediately.
func (o *Orchestrator) runStage(ctx context.Context, run *Run, stage Stage, fn StageFunc) error {
	cp := run.Checkpoint
	for {
		cp.AttemptCount++
		err := fn(ctx, run)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			slog.Error("stage failed with terminal error", "run_id", cp.RunId, "stage", stage, "error", err)
			return err
		}
		if cp.AttemptCount >= o.maxAttempts {
			slog.Error("stage retry budget exhausted", "run_id", cp.RunId, "stage", stage,
				"attempts", cp.AttemptCount, "error", err)
			return fmt.Errorf("exhausted %d attempts: %w", cp.AttemptCount, err)
		}
		slog.Warn("stage attempt failed, retrying", "run_id", cp.RunId, "stage", stage,
			"attempt", cp.AttemptCount, "error", err)
		cp.LastError = err.Error()
		// Attempt counts are durable so a crash mid-retry does not reset
		// the budget.
		if saveErr := SaveCheckpoint(ctx, o.store, cp); saveErr != nil {
			return saveErr
		}
	}
}
