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

package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moemoe9876/ai-video/internal/core/model"
	"github.com/moemoe9876/ai-video/internal/storage"
)

func TestSaveAndLoadReport(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	report := model.NewReport("gs://bucket/video.mp4")
	report.Title = "Round Trip"
	scene := model.NewScene(1)
	scene.Location = "rooftop"
	report.Scenes = append(report.Scenes, scene)

	assert.NoError(t, storage.SaveReport(ctx, store, report))

	loaded, err := storage.LoadReport(ctx, store, report.VideoId)
	assert.NoError(t, err)
	assert.Equal(t, report.VideoId, loaded.VideoId)
	assert.Equal(t, "Round Trip", loaded.Title)
	assert.Len(t, loaded.Scenes, 1)
	assert.Equal(t, "rooftop", loaded.Scenes[0].Location)
}

func TestSaveReportStampsCreateDate(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	report := model.NewReport("gs://bucket/video.mp4")
	assert.True(t, report.CreateDate.IsZero())

	assert.NoError(t, storage.SaveReport(ctx, store, report))
	assert.False(t, report.CreateDate.IsZero())
	stamped := report.CreateDate

	loaded, err := storage.LoadReport(ctx, store, report.VideoId)
	assert.NoError(t, err)
	assert.True(t, loaded.CreateDate.Equal(stamped))

	// A second save keeps the original date.
	assert.NoError(t, storage.SaveReport(ctx, store, loaded))
	assert.True(t, loaded.CreateDate.Equal(stamped))
}

func TestLoadReportMissing(t *testing.T) {
	store := newStore(t)
	_, err := storage.LoadReport(context.Background(), store, "unknown")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestSaveAndListVariantDocuments(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	// Written out of scene order; List returns lexical key order, which the
	// zero-padded key format makes scene order.
	for _, index := range []int{3, 1, 2} {
		doc := model.NewVariantDocument("video-1", index)
		doc.Variants = append(doc.Variants, &model.PromptVariant{
			VariantId:   "001-01",
			ImagePrompt: "prompt",
		})
		assert.NoError(t, storage.SaveVariants(ctx, store, doc))
	}

	docs, err := storage.ListVariantDocuments(ctx, store, "video-1")
	assert.NoError(t, err)
	assert.Len(t, docs, 3)
	for i, doc := range docs {
		assert.Equal(t, i+1, doc.SceneIndex)
		assert.Equal(t, "video-1", doc.VideoId)
	}

	docs, err = storage.ListVariantDocuments(ctx, store, "video-2")
	assert.NoError(t, err)
	assert.Len(t, docs, 0)
}

func TestSaveVariantsOverwrites(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	doc := model.NewVariantDocument("video-1", 1)
	doc.Variants = append(doc.Variants, &model.PromptVariant{VariantId: "001-01"})
	assert.NoError(t, storage.SaveVariants(ctx, store, doc))

	doc.Variants[0].Mood = "brooding"
	assert.NoError(t, storage.SaveVariants(ctx, store, doc))

	loaded, err := storage.LoadVariants(ctx, store, "video-1", 1)
	assert.NoError(t, err)
	assert.Len(t, loaded.Variants, 1)
	assert.Equal(t, "brooding", loaded.Variants[0].Mood)
}
