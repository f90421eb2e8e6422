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

// This file defines the command that streams a completed report's scenes
// into the BigQuery scene index. The JSON documents stay the source of
// truth; the index only exists so scenes are queryable across videos.
package commands

import (
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"

	"github.com/moemoe9876/ai-video/internal/core/cor"
	"github.com/moemoe9876/ai-video/internal/core/model"
)

// SceneIndexSink flattens a report into scene rows and streams them into
// the index table.
type SceneIndexSink struct {
	cor.BaseCommand
	client      *bigquery.Client
	dataset     string
	table       string
	reportParam string // The context key holding the *model.Report to index.
}

// NewSceneIndexSink is the constructor for the SceneIndexSink command.
func NewSceneIndexSink(name string, client *bigquery.Client, dataset string, table string, reportParam string) *SceneIndexSink {
	return &SceneIndexSink{
		BaseCommand: *cor.NewBaseCommand(name),
		client:      client,
		dataset:     dataset,
		table:       table,
		reportParam: reportParam,
	}
}

// IsExecutable requires the report in the context.
func (s *SceneIndexSink) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(s.reportParam) != nil
}

// Execute streams the report's flattened scene rows into BigQuery. The
// inserter maps struct fields to table columns via the bigquery tags on
// model.SceneIndexRow.
func (s *SceneIndexSink) Execute(context cor.Context) {
	report := context.Get(s.reportParam).(*model.Report)

	rows := model.FlattenScenes(report)
	if len(rows) == 0 {
		slog.Info("report has no scenes to index", "video_id", report.VideoId)
		s.GetSuccessCounter().Add(context.GetContext(), 1)
		context.Add(cor.CtxOut, report)
		return
	}

	i := s.client.Dataset(s.dataset).Table(s.table).Inserter()
	if err := i.Put(context.GetContext(), rows); err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("scene index insert failed for video %s: %w", report.VideoId, err))
		return
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.Info("indexed scenes", "video_id", report.VideoId, "rows", len(rows))
	context.Add(cor.CtxOut, report)
}
