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

// Package model defines the core data structures for the application.
// This file, `report.go`, contains the persistent domain model produced by
// the report assembler: one Report per analyzed video, holding an ordered
// list of Scenes, each of which holds an ordered list of Shots.
//
// Every descriptive field on these structs is a plain string that is
// guaranteed to be non-null after assembly. The assembler routes each raw
// field through the normalizer package and substitutes a documented default
// when the upstream model omitted it, so downstream consumers (prompt
// composition, markdown rendering, the API) never need to nil-check.
package model

import (
	"time"

	"github.com/google/uuid"
)

// EntityType enumerates the kinds of recurring subjects the upstream model
// describes. Unknown raw values degrade to EntityTypeObject during assembly.
type EntityType string

const (
	EntityTypePerson   EntityType = "person"
	EntityTypeVehicle  EntityType = "vehicle"
	EntityTypeObject   EntityType = "object"
	EntityTypeLocation EntityType = "location"
)

// Entity is a described recurring subject, vehicle, object, or location.
// Entities are value objects: identity across shots is name-string equality
// only, a deliberate simplification carried over from the analysis domain.
type Entity struct {
	Name        string     `json:"name"`        // Canonical identifier; the assembler unifies `name` / `entity_id` / `id`.
	Type        EntityType `json:"type"`        // One of person | vehicle | object | location.
	Description string     `json:"description"` // Free-text description, may be empty.
	Appearance  string     `json:"appearance"`  // Visual appearance details, may be empty.
}

// PhysicalWorld groups the five list-of-string inventories the upstream
// model reports for a scene's environment. Every slice is non-nil after
// assembly; an empty slice means "nothing observed", which is distinct from
// the field having been absent in the raw payload (the latter is recorded
// as a structural-gap anomaly).
type PhysicalWorld struct {
	Architecture   []string `json:"architecture"`
	Signage        []string `json:"signage"`
	Vehicles       []string `json:"vehicles"`
	Objects        []string `json:"objects"`
	Infrastructure []string `json:"infrastructure"`
}

// NewPhysicalWorld returns a PhysicalWorld with all inventories initialized
// to empty, non-nil slices.
func NewPhysicalWorld() *PhysicalWorld {
	return &PhysicalWorld{
		Architecture:   make([]string, 0),
		Signage:        make([]string, 0),
		Vehicles:       make([]string, 0),
		Objects:        make([]string, 0),
		Infrastructure: make([]string, 0),
	}
}

// HumanSubject is a person-descriptor record attached to a scene.
type HumanSubject struct {
	Description string `json:"description"`
	Position    string `json:"position"`
	Wardrobe    string `json:"wardrobe"`
	Action      string `json:"action"`
}

// Shot is a single camera setup within a Scene. Its time range is always a
// subset of the parent scene's range; the assembler clamps out-of-range raw
// values rather than rejecting them. All camera and spatial descriptors are
// prose strings ("2-3 meters", "35mm equivalent"), never parsed numbers,
// because the upstream model expresses measurements as ranges and losing
// that fidelity would hurt prompt reconstruction.
type Shot struct {
	ShotIndex   int     `json:"shot_index"` // 1-based position within the parent scene.
	StartTime   float64 `json:"start_time"` // Seconds, clamped to the parent scene's range.
	EndTime     float64 `json:"end_time"`   // Seconds, clamped to the parent scene's range.
	Duration    float64 `json:"duration"`   // Always recomputed as EndTime - StartTime.
	Description string  `json:"description"`
	Action      string  `json:"action"`

	ShotType                 string `json:"shot_type"`
	CameraMovement           string `json:"camera_movement"`
	CameraDescription        string `json:"camera_description"`
	CameraPosition           string `json:"camera_position"`
	CameraAngleDegrees       string `json:"camera_angle_degrees"`
	CameraDistanceMeters     string `json:"camera_distance_meters"`
	CameraHeightMeters       string `json:"camera_height_meters"`
	CameraMovementTrajectory string `json:"camera_movement_trajectory"`
	LensFocalLength          string `json:"lens_focal_length"`
	DepthOfField             string `json:"depth_of_field"`
	MotionPhysics            string `json:"motion_physics"`
	SubjectPositionFrame     string `json:"subject_position_frame"`
	SpatialRelationships     string `json:"spatial_relationships"`

	Entities []*Entity `json:"entities"` // Entities visible in this shot; non-nil after assembly.
}

// Scene is a temporal segment of a Report. A scene with duration > 0 is
// expected to contain at least one shot; the assembler records a
// structural-gap anomaly when it does not.
type Scene struct {
	SceneIndex  int     `json:"scene_index"` // 1-based, matches position in Report.Scenes.
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	Duration    float64 `json:"duration"` // Always recomputed, never trusted from the raw payload.
	Location    string  `json:"location"`
	TimeOfDay   string  `json:"time_of_day"`
	Weather     string  `json:"weather"`
	Season      string  `json:"season"`
	Description string  `json:"description"`
	Mood        string  `json:"mood"`

	Lighting             string `json:"lighting"`
	LightingType         string `json:"lighting_type"`
	LightingDirection    string `json:"lighting_direction"`
	LightingTemperature  string `json:"lighting_temperature"`
	ColorPalette         string `json:"color_palette"`
	ColorTemperature     string `json:"color_temperature"`
	FilmStockResemblance string `json:"film_stock_resemblance"`
	Style                string `json:"style"`

	PhysicalWorld *PhysicalWorld  `json:"physical_world"` // Non-nil after assembly.
	HumanSubjects []*HumanSubject `json:"human_subjects"` // Non-nil after assembly; empty means "none observed".
	Shots         []*Shot         `json:"shots"`
	KeyEntities   []*Entity       `json:"key_entities"`
}

// NewScene returns a Scene with all collection fields initialized so that
// serialization never emits null arrays.
func NewScene(index int) *Scene {
	return &Scene{
		SceneIndex:    index,
		PhysicalWorld: NewPhysicalWorld(),
		HumanSubjects: make([]*HumanSubject, 0),
		Shots:         make([]*Shot, 0),
		KeyEntities:   make([]*Entity, 0),
	}
}

// Report is the full normalized analysis of one video. It is created once
// per analysis run and is immutable after persistence; re-analysis replaces
// the whole document rather than mutating it in place. Prompt variants are
// persisted as separate documents and never embedded back into the Report.
type Report struct {
	VideoId         string `json:"video_id"` // Stable slug, unique within the persistence namespace.
	Source          string `json:"source"`   // Source file path or URL the analysis was run against.
	DurationSeconds float64 `json:"duration_seconds"`
	FPS             float64 `json:"fps"`
	Resolution      string `json:"resolution"`
	Title           string `json:"title"`
	Summary         string `json:"summary"`

	FilmStockLook       string `json:"film_stock_look"`
	LensCharacteristics string `json:"lens_characteristics"`
	OverallStyle        string `json:"overall_style"`
	OverallMood         string `json:"overall_mood"`
	ColorGrading        string `json:"color_grading"`
	CulturalContext     string `json:"cultural_context"`

	Scenes       []*Scene  `json:"scenes"`        // Insertion order is chronological order.
	MainEntities []*Entity `json:"main_entities"` // Entities recurring across the whole video.

	CreateDate time.Time `json:"create_date"`
}

// NewReport creates a Report whose VideoId is a UUIDv5 hash of the source
// reference, so repeated analysis of the same source overwrites the same
// document instead of accumulating duplicates. CreateDate is left zero;
// assembling the same payload twice yields equal Reports, and the
// persistence layer stamps the date on first write.
func NewReport(source string) *Report {
	return &Report{
		VideoId:      uuid.NewSHA1(uuid.NameSpaceURL, []byte(source)).String(),
		Source:       source,
		Scenes:       make([]*Scene, 0),
		MainEntities: make([]*Entity, 0),
	}
}

// SceneAt returns the scene with the given 1-based index, or nil when no
// such scene exists.
func (r *Report) SceneAt(index int) *Scene {
	for _, s := range r.Scenes {
		if s.SceneIndex == index {
			return s
		}
	}
	return nil
}
