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

// This file centralizes the BigQuery SQL used against the scene index.
// The queries use `fmt.Sprintf` format verbs as placeholders for the
// fully qualified table name and filter values injected at runtime.
package services

const (
	// QryScenesByVideo retrieves every indexed scene for one video, in
	// chronological order.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the scene index table.
	// - `%s`: The video id whose scenes to list.
	QryScenesByVideo = "SELECT * FROM `%s` WHERE video_id = '%s' ORDER BY scene_index ASC"

	// QryScenesByLocation performs a case-insensitive substring match on
	// the location column across the whole index. This is the cross-video
	// lookup the index exists for.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the scene index table.
	// - `%s`: The lowercased location fragment to match.
	QryScenesByLocation = "SELECT * FROM `%s` WHERE CONTAINS_SUBSTR(LOWER(location), '%s') ORDER BY video_id, scene_index"

	// QryDeleteVideoScenes removes a video's rows ahead of re-insertion so
	// re-running the persist stage replaces rather than duplicates.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the scene index table.
	// - `%s`: The video id whose rows to remove.
	QryDeleteVideoScenes = "DELETE FROM `%s` WHERE video_id = '%s'"
)
