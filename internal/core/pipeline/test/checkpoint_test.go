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

	"github.com/stretchr/testify/assert"

	"github.com/moemoe9876/ai-video/internal/core/pipeline"
	"github.com/moemoe9876/ai-video/internal/storage"
)

func TestNewCheckpoint(t *testing.T) {
	cp := pipeline.NewCheckpoint("run-1", "video-1", "gs://b/v.mp4")
	assert.Equal(t, pipeline.StageIngestRaw, cp.Stage)
	assert.Equal(t, pipeline.StatusPending, cp.Status)
	assert.Equal(t, 0, cp.AttemptCount)
	assert.False(t, cp.StartedAt.IsZero())
}

func TestNextStage(t *testing.T) {
	assert.Equal(t, pipeline.StageAssembleReport, pipeline.NextStage(pipeline.StageIngestRaw))
	assert.Equal(t, pipeline.StageRenderArtifacts, pipeline.NextStage(pipeline.StagePersistVariants))
	assert.Equal(t, pipeline.Stage(""), pipeline.NextStage(pipeline.StageRenderArtifacts))
	assert.Equal(t, pipeline.Stage(""), pipeline.NextStage(pipeline.Stage("bogus")))
}

func TestCheckpointRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	cp := pipeline.NewCheckpoint("run-1", "video-1", "src")
	cp.Stage = pipeline.StagePersistReport
	cp.Status = pipeline.StatusDone
	cp.AttemptCount = 2
	cp.LastError = "transient outage"
	assert.NoError(t, pipeline.SaveCheckpoint(ctx, store, cp))

	loaded, err := pipeline.LoadCheckpoint(ctx, store, "run-1")
	assert.NoError(t, err)
	assert.Equal(t, pipeline.StagePersistReport, loaded.Stage)
	assert.Equal(t, pipeline.StatusDone, loaded.Status)
	assert.Equal(t, 2, loaded.AttemptCount)
	assert.Equal(t, "transient outage", loaded.LastError)
}

func TestLoadCheckpointMissing(t *testing.T) {
	store := newStore(t)
	_, err := pipeline.LoadCheckpoint(context.Background(), store, "unknown")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestRetryableMarking(t *testing.T) {
	assert.Nil(t, pipeline.Retryable(nil))

	plain := errors.New("boom")
	assert.False(t, pipeline.IsRetryable(plain))
	assert.True(t, pipeline.IsRetryable(pipeline.Retryable(plain)))
	assert.True(t, errors.Is(pipeline.Retryable(plain), plain))
}
