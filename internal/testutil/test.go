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

// Package test provides utility functions and mock data to support the application's
// test suite. It helps in setting up a consistent test environment, loading
// test-specific configurations, and providing sample data for workflows and services.
package test

import (
	"log"
	"os"
	"testing"

	"github.com/moemoe9876/ai-video/internal/cloud"
)

// StateManager acts as a simple in-memory cache for the application configuration
// during test runs. This prevents the need to reload configuration files for every
// test, speeding up the test suite.
type StateManager struct {
	config *cloud.Config
}

// state is a package-level variable that holds the singleton instance of StateManager,
// ensuring that the configuration is loaded only once per test run.
var state = &StateManager{}

// HandleErr is a simple test helper function that checks if an error is not nil.
// If an error exists, it fails the test immediately by calling t.Errorf.
// This is a convenience function to reduce boilerplate error-checking code in tests.
//
// Inputs:
//   - err: The error to check.
//   - t: The *testing.T object from the current test.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// GetTestUploadMessageText returns a hardcoded JSON string that simulates a
// Pub/Sub notification message from Google Cloud Storage for a video file
// finalized in the input bucket. This mock data is used to test the analysis
// workflow trigger.
//
// Returns:
//   - A string containing the JSON payload of a GCS notification.
func GetTestUploadMessageText() string {
	return `{
  "kind": "storage#object",
  "id": "video_input_resources/test-trailer-001.mp4/1728615848664286",
  "selfLink": "https://www.googleapis.com/storage/v1/b/video_input_resources/o/test-trailer-001.mp4",
  "name": "test-trailer-001.mp4",
  "bucket": "video_input_resources",
  "generation": "1728615848664286",
  "metageneration": "1",
  "contentType": "video/mp4",
  "timeCreated": "2024-10-11T03:04:08.672Z",
  "updated": "2024-10-11T03:04:08.672Z",
  "storageClass": "STANDARD",
  "timeStorageClassUpdated": "2024-10-11T03:04:08.672Z",
  "size": "259348037",
  "md5Hash": "67c1rAU+1RYZzK5zp8iBkA==",
  "mediaLink": "https://storage.googleapis.com/download/storage/v1/b/video_input_resources/o/test-trailer-001.mp4?generation=1728615848664286&alt=media",
  "metadata": { "touch": "18" },
  "crc32c": "IYeSTw==",
  "etag": "CN658+yrhYkDEAE="
	}`
}

// GetTestRawAnalysisText returns a raw model payload exhibiting the schema
// drift the assembler is built to tolerate: string-wrapped numbers, a
// lighting object instead of a string, an entity identified only by
// entity_id, and a shot whose range spills outside its parent scene. Tests
// use it to exercise the full ingest-and-assemble path without a live
// model call.
//
// Returns:
//   - A string containing the JSON payload of a model analysis response.
func GetTestRawAnalysisText() string {
	return `{
  "video_id": "test-trailer-001",
  "duration_seconds": "20",
  "title": "Test Trailer",
  "summary": "A mock two-scene trailer used by the test suite.",
  "overall_style": "handheld documentary",
  "overall_mood": "restless",
  "scenes": [
    {
      "scene_index": "1",
      "start_time": "0.0s",
      "end_time": "12.5 seconds",
      "location": "city rooftop",
      "time_of_day": "dusk",
      "description": "A figure paces along the rooftop edge.",
      "mood": "tense",
      "lighting": { "type": "neon", "direction": "side" },
      "color_palette": ["teal", "magenta"],
      "film_stock_resemblance": "Kodak Vision3 250D",
      "key_entities": [
        { "name": "Walker", "type": "person" },
        { "entity_id": "drone-01", "type": "object" }
      ],
      "shots": [
        { "start_time": 0, "end_time": 6, "shot_type": "wide", "camera_movement": "handheld" },
        { "start_time": 6, "end_time": 27, "shot_type": "overhead", "camera_movement": "crane" }
      ]
    },
    {
      "start_time": 12.5,
      "end_time": "20",
      "location": "stairwell",
      "description": "The figure descends in a hurry.",
      "mood": "urgent"
    }
  ]
}`
}

// GetTestVariantPayloadText returns a raw reimagination response with the
// key drift the variant parser tolerates: an alternate list key, a missing
// variant id, and a fallback field spelled under an alias.
//
// Returns:
//   - A string containing the JSON payload of a model reimagination response.
func GetTestVariantPayloadText() string {
	return `{
  "variants": [
    {
      "variant_id": "001-01",
      "title": "Neon Vigil",
      "image_prompt": "A lone figure on a rain-slick rooftop, lit by neon signage.",
      "video_prompt": "Slow push-in as the figure turns toward the skyline.",
      "film_stock": "CineStill 800T",
      "lens_type": "35mm anamorphic",
      "mood": "brooding",
      "tags": ["neon", "rooftop"]
    },
    {
      "title": "Dawn Patrol",
      "prompt": "The same rooftop at first light, palette washed to pale gold.",
      "notes": "Keep the subject silhouetted."
    }
  ]
}`
}

// SetupOS configures the necessary environment variables that the configuration
// loader (`cloud.LoadConfig`) depends on. By setting these variables, we can
// direct the loader to use the test-specific configuration files (e.g.,
// `configs/.env.test.toml`) instead of production or development ones.
//
// Returns:
//   - An error if setting any environment variable fails.
func SetupOS() (err error) {
	// Set the directory where the configuration files are located.
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	// Set the runtime environment identifier to "test". This causes the loader
	// to look for a file named ".env.test.toml" for overrides.
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig is a singleton accessor for the test configuration.
// It ensures that the configuration is loaded from TOML files only once and
// is cached in the package-level `state` variable for subsequent calls.
// This is the primary way tests should retrieve their configuration.
//
// Returns:
//   - A pointer to the loaded and cached cloud.Config struct.
func GetConfig() *cloud.Config {
	// Check if the config is already cached.
	if state.config == nil {
		// If not cached, set up the OS environment for the test configuration.
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		// Create a new, empty config struct.
		config := cloud.NewConfig()
		// Load the configuration from the TOML files into the struct.
		// `LoadConfig` handles the hierarchical loading (base file + test override).
		cloud.LoadConfig(&config)
		// Cache the loaded config in our state manager.
		state.config = config
	}
	// Return the cached configuration.
	return state.config
}
