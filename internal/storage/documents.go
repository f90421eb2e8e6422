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

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/moemoe9876/ai-video/internal/core/model"
)

// Typed document accessors over a DocumentStore. Save functions verify the
// write by reading the document back and decoding it, so a stage that
// reports success has durably persisted a parseable document.

func SaveReport(ctx context.Context, store DocumentStore, report *model.Report) error {
	// The create date is a persistence fact, not an assembly fact. Stamping
	// it here keeps assembly deterministic for identical payloads.
	if report.CreateDate.IsZero() {
		report.CreateDate = time.Now()
	}
	if err := writeDocument(ctx, store, ReportKey(report.VideoId), report); err != nil {
		return err
	}
	_, err := LoadReport(ctx, store, report.VideoId)
	if err != nil {
		return fmt.Errorf("verifying report %q after write: %w", report.VideoId, err)
	}
	return nil
}

func LoadReport(ctx context.Context, store DocumentStore, videoId string) (*model.Report, error) {
	var report model.Report
	if err := readDocument(ctx, store, ReportKey(videoId), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func SaveVariants(ctx context.Context, store DocumentStore, doc *model.VariantDocument) error {
	if doc.CreateDate.IsZero() {
		doc.CreateDate = time.Now()
	}
	key := VariantsKey(doc.VideoId, doc.SceneIndex)
	if err := writeDocument(ctx, store, key, doc); err != nil {
		return err
	}
	_, err := LoadVariants(ctx, store, doc.VideoId, doc.SceneIndex)
	if err != nil {
		return fmt.Errorf("verifying variants %q after write: %w", key, err)
	}
	return nil
}

func LoadVariants(ctx context.Context, store DocumentStore, videoId string, sceneIndex int) (*model.VariantDocument, error) {
	var doc model.VariantDocument
	if err := readDocument(ctx, store, VariantsKey(videoId, sceneIndex), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListVariantDocuments loads every persisted variant document for a video,
// in scene order.
func ListVariantDocuments(ctx context.Context, store DocumentStore, videoId string) ([]*model.VariantDocument, error) {
	keys, err := store.List(ctx, fmt.Sprintf("variants/%s/", videoId))
	if err != nil {
		return nil, err
	}
	docs := make([]*model.VariantDocument, 0, len(keys))
	for _, key := range keys {
		var doc model.VariantDocument
		if err := readDocument(ctx, store, key, &doc); err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}

func writeDocument(ctx context.Context, store DocumentStore, key string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %q: %w", key, err)
	}
	return store.Write(ctx, key, data)
}

func readDocument(ctx context.Context, store DocumentStore, key string, v interface{}) error {
	data, err := store.Read(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %q: %w", key, err)
	}
	return nil
}
