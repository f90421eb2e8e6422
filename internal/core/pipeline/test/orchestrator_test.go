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

package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/moemoe9876/ai-video/internal/core/assembler"
	"github.com/moemoe9876/ai-video/internal/core/pipeline"
	"github.com/moemoe9876/ai-video/internal/storage"
)

// fakeStages counts invocations per stage and fails the stages listed in
// fail until their budget of failures is spent.
type fakeStages struct {
	calls map[pipeline.Stage]int
	fail  map[pipeline.Stage]func(call int) error
}

func newFakeStages() *fakeStages {
	return &fakeStages{
		calls: make(map[pipeline.Stage]int),
		fail:  make(map[pipeline.Stage]func(call int) error),
	}
}

func (f *fakeStages) StageFunc(stage pipeline.Stage) pipeline.StageFunc {
	return func(ctx context.Context, run *pipeline.Run) error {
		f.calls[stage]++
		if fn := f.fail[stage]; fn != nil {
			return fn(f.calls[stage])
		}
		return nil
	}
}

func newStore(t *testing.T) *storage.FileStore {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	assert.NoError(t, err)
	return store
}

func TestStartRunsAllStages(t *testing.T) {
	store := newStore(t)
	stages := newFakeStages()
	orchestrator := pipeline.NewOrchestrator(store, stages, 3)

	cp, err := orchestrator.Start(context.Background(), "run-1", "gs://b/v.mp4", "gs://b/v.mp4", "video/mp4", "")
	assert.NoError(t, err)
	assert.Equal(t, pipeline.StatusComplete, cp.Status)
	for _, stage := range pipeline.StageOrder {
		assert.Equal(t, 1, stages.calls[stage], "stage %s", stage)
	}

	// The durable checkpoint reflects the completed run.
	loaded, err := pipeline.LoadCheckpoint(context.Background(), store, "run-1")
	assert.NoError(t, err)
	assert.Equal(t, pipeline.StatusComplete, loaded.Status)
	assert.Equal(t, pipeline.StageRenderArtifacts, loaded.Stage)
}

func TestStartDerivesIdentity(t *testing.T) {
	store := newStore(t)
	orchestrator := pipeline.NewOrchestrator(store, newFakeStages(), 1)

	source := "gs://bucket/trailer.mp4"
	cp, err := orchestrator.Start(context.Background(), "", source, source, "video/mp4", "neo-noir")
	assert.NoError(t, err)
	assert.NotEmpty(t, cp.RunId)
	assert.Equal(t, uuid.NewSHA1(uuid.NameSpaceURL, []byte(source)).String(), cp.VideoId)
	assert.Equal(t, "neo-noir", cp.Style)
}

func TestRetryableErrorRetriedWithinBudget(t *testing.T) {
	store := newStore(t)
	stages := newFakeStages()
	stages.fail[pipeline.StageGenerateVariants] = func(call int) error {
		if call < 3 {
			return pipeline.Retryable(errors.New("model unavailable"))
		}
		return nil
	}
	orchestrator := pipeline.NewOrchestrator(store, stages, 3)

	cp, err := orchestrator.Start(context.Background(), "run-1", "src", "uri", "video/mp4", "")
	assert.NoError(t, err)
	assert.Equal(t, pipeline.StatusComplete, cp.Status)
	assert.Equal(t, 3, stages.calls[pipeline.StageGenerateVariants])
}

func TestRetryBudgetExhausted(t *testing.T) {
	store := newStore(t)
	stages := newFakeStages()
	stages.fail[pipeline.StageGenerateVariants] = func(call int) error {
		return pipeline.Retryable(errors.New("model unavailable"))
	}
	orchestrator := pipeline.NewOrchestrator(store, stages, 3)

	cp, err := orchestrator.Start(context.Background(), "run-1", "src", "uri", "video/mp4", "")
	assert.Error(t, err)
	var stageErr *pipeline.StageError
	assert.True(t, errors.As(err, &stageErr))
	assert.Equal(t, pipeline.StageGenerateVariants, stageErr.Stage)
	assert.Equal(t, 3, stages.calls[pipeline.StageGenerateVariants])
	assert.Equal(t, pipeline.StatusFailed, cp.Status)

	// Earlier stages completed exactly once and are not re-run by the
	// failure handling.
	assert.Equal(t, 1, stages.calls[pipeline.StageIngestRaw])
	assert.Equal(t, 0, stages.calls[pipeline.StageResolveFallbacks])
}

func TestTerminalErrorNotRetried(t *testing.T) {
	store := newStore(t)
	stages := newFakeStages()
	stages.fail[pipeline.StageAssembleReport] = func(call int) error {
		// Even wrapped as retryable, a structural failure stays terminal.
		return pipeline.Retryable(&assembler.AssemblyError{Reason: "top-level payload is []interface {}"})
	}
	orchestrator := pipeline.NewOrchestrator(store, stages, 5)

	cp, err := orchestrator.Start(context.Background(), "run-1", "src", "uri", "video/mp4", "")
	assert.Error(t, err)
	assert.Equal(t, 1, stages.calls[pipeline.StageAssembleReport])
	assert.Equal(t, pipeline.StatusFailed, cp.Status)
	assert.Equal(t, pipeline.StageAssembleReport, cp.Stage)
}

func TestResumeSkipsCompletedStages(t *testing.T) {
	store := newStore(t)
	stages := newFakeStages()
	failing := true
	stages.fail[pipeline.StageGenerateVariants] = func(call int) error {
		if failing {
			return errors.New("terminal outage")
		}
		return nil
	}
	orchestrator := pipeline.NewOrchestrator(store, stages, 2)

	_, err := orchestrator.Start(context.Background(), "run-1", "src", "uri", "video/mp4", "")
	assert.Error(t, err)

	failing = false
	cp, err := orchestrator.Resume(context.Background(), "run-1")
	assert.NoError(t, err)
	assert.Equal(t, pipeline.StatusComplete, cp.Status)

	// Stages before the failure point ran only during the first execution.
	assert.Equal(t, 1, stages.calls[pipeline.StageIngestRaw])
	assert.Equal(t, 1, stages.calls[pipeline.StageAssembleReport])
	assert.Equal(t, 1, stages.calls[pipeline.StagePersistReport])
	assert.Equal(t, 2, stages.calls[pipeline.StageGenerateVariants])
	assert.Equal(t, 1, stages.calls[pipeline.StageRenderArtifacts])
}

func TestResumeResetsAttemptBudget(t *testing.T) {
	store := newStore(t)
	stages := newFakeStages()
	stages.fail[pipeline.StagePersistVariants] = func(call int) error {
		if call <= 4 {
			return pipeline.Retryable(errors.New("store unavailable"))
		}
		return nil
	}
	orchestrator := pipeline.NewOrchestrator(store, stages, 2)

	_, err := orchestrator.Start(context.Background(), "run-1", "src", "uri", "video/mp4", "")
	assert.Error(t, err, "first execution exhausts its two attempts")

	_, err = orchestrator.Resume(context.Background(), "run-1")
	assert.Error(t, err, "second execution spends two more attempts")

	cp, err := orchestrator.Resume(context.Background(), "run-1")
	assert.NoError(t, err, "fifth attempt overall succeeds")
	assert.Equal(t, pipeline.StatusComplete, cp.Status)
	assert.Equal(t, 5, stages.calls[pipeline.StagePersistVariants])
}

func TestResumeCompletedRun(t *testing.T) {
	store := newStore(t)
	stages := newFakeStages()
	orchestrator := pipeline.NewOrchestrator(store, stages, 1)

	_, err := orchestrator.Start(context.Background(), "run-1", "src", "uri", "video/mp4", "")
	assert.NoError(t, err)

	cp, err := orchestrator.Resume(context.Background(), "run-1")
	assert.NoError(t, err)
	assert.Equal(t, pipeline.StatusComplete, cp.Status)
	assert.Equal(t, 1, stages.calls[pipeline.StageIngestRaw], "a complete run is not re-executed")
}

func TestResumeUnknownRun(t *testing.T) {
	store := newStore(t)
	orchestrator := pipeline.NewOrchestrator(store, newFakeStages(), 1)

	_, err := orchestrator.Resume(context.Background(), "no-such-run")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}
