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

// This file defines the flattened scene row written to the BigQuery scene
// index. The index exists for cross-video analytics ("all night scenes",
// "all anamorphic-look shots"); the JSON documents remain the source of
// truth and the index is rebuilt by re-running the persist stage.
package model

import "time"

// SceneIndexRow is one analyzed scene, denormalized for BigQuery. One row
// per (video, scene); re-inserting the same video's rows is expected to
// be preceded by a delete of its previous rows.
type SceneIndexRow struct {
	VideoId     string    `bigquery:"video_id" json:"video_id"`
	SceneIndex  int       `bigquery:"scene_index" json:"scene_index"`
	StartTime   float64   `bigquery:"start_time" json:"start_time"`
	EndTime     float64   `bigquery:"end_time" json:"end_time"`
	Duration    float64   `bigquery:"duration" json:"duration"`
	Location    string    `bigquery:"location" json:"location"`
	TimeOfDay   string    `bigquery:"time_of_day" json:"time_of_day"`
	Mood        string    `bigquery:"mood" json:"mood"`
	Style       string    `bigquery:"style" json:"style"`
	Description string    `bigquery:"description" json:"description"`
	ShotCount   int       `bigquery:"shot_count" json:"shot_count"`
	CreateDate  time.Time `bigquery:"create_date" json:"create_date"`
}

// FlattenScenes converts a report into its scene index rows.
func FlattenScenes(report *Report) []*SceneIndexRow {
	rows := make([]*SceneIndexRow, 0, len(report.Scenes))
	for _, s := range report.Scenes {
		rows = append(rows, &SceneIndexRow{
			VideoId:     report.VideoId,
			SceneIndex:  s.SceneIndex,
			StartTime:   s.StartTime,
			EndTime:     s.EndTime,
			Duration:    s.Duration,
			Location:    s.Location,
			TimeOfDay:   s.TimeOfDay,
			Mood:        s.Mood,
			Style:       s.Style,
			Description: s.Description,
			ShotCount:   len(s.Shots),
			CreateDate:  report.CreateDate,
		})
	}
	return rows
}
