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

// This file holds the static field table that drives assembly. Every leaf
// scalar field of the domain model is declared here once with its
// normalizer kind and its documented default; the table is the single
// source of truth for what an occasionally-null upstream field degrades
// to. The table is part of the assembler's configuration object rather
// than package state so tests can supply alternates.
package assembler

// FieldKind selects which normalizer function a field routes through.
type FieldKind int

const (
	// KindText routes through normalize.Text.
	KindText FieldKind = iota
	// KindMeasurement routes through normalize.MeasurementText, which keeps
	// prose measurements ("2-3 meters") intact and renders bare numbers.
	KindMeasurement
)

// FieldSpec declares how one raw leaf field is normalized.
type FieldSpec struct {
	Kind    FieldKind
	Default string
}

// Documented default literals. DefaultTrajectory applies only to the
// camera movement trajectory; DefaultMood and DefaultStyle to the mood and
// style fields at both report and scene level; DefaultDescriptor is the
// generic default for every other camera/spatial descriptor. All four are
// placeholders, not observed values, and downstream fallback chains treat
// them as absent.
const (
	DefaultDescriptor = "Not specified"
	DefaultTrajectory = "Static, no movement"
	DefaultMood       = "neutral"
	DefaultStyle      = "cinematic"
)

// DefaultFieldTable returns the production field table. Keys are qualified
// with the owning record ("report.", "scene.", "shot.") because a few
// names repeat across levels with different defaults.
func DefaultFieldTable() map[string]FieldSpec {
	return map[string]FieldSpec{
		"report.title":                {Kind: KindText, Default: ""},
		"report.summary":              {Kind: KindText, Default: ""},
		"report.resolution":           {Kind: KindText, Default: DefaultDescriptor},
		"report.film_stock_look":      {Kind: KindText, Default: DefaultDescriptor},
		"report.lens_characteristics": {Kind: KindText, Default: DefaultDescriptor},
		"report.overall_style":        {Kind: KindText, Default: DefaultStyle},
		"report.overall_mood":         {Kind: KindText, Default: DefaultMood},
		"report.color_grading":        {Kind: KindText, Default: DefaultDescriptor},
		"report.cultural_context":     {Kind: KindText, Default: DefaultDescriptor},

		"scene.location":               {Kind: KindText, Default: "Unknown location"},
		"scene.time_of_day":            {Kind: KindText, Default: DefaultDescriptor},
		"scene.weather":                {Kind: KindText, Default: DefaultDescriptor},
		"scene.season":                 {Kind: KindText, Default: DefaultDescriptor},
		"scene.description":            {Kind: KindText, Default: ""},
		"scene.mood":                   {Kind: KindText, Default: DefaultMood},
		"scene.lighting":               {Kind: KindText, Default: "Natural lighting"},
		"scene.lighting_type":          {Kind: KindText, Default: DefaultDescriptor},
		"scene.lighting_direction":     {Kind: KindText, Default: DefaultDescriptor},
		"scene.lighting_temperature":   {Kind: KindText, Default: DefaultDescriptor},
		"scene.color_palette":          {Kind: KindText, Default: DefaultDescriptor},
		"scene.color_temperature":      {Kind: KindText, Default: DefaultDescriptor},
		"scene.film_stock_resemblance": {Kind: KindText, Default: DefaultDescriptor},
		"scene.style":                  {Kind: KindText, Default: DefaultStyle},

		"shot.description":                {Kind: KindText, Default: ""},
		"shot.action":                     {Kind: KindText, Default: ""},
		"shot.shot_type":                  {Kind: KindText, Default: "medium"},
		"shot.camera_movement":            {Kind: KindText, Default: "static"},
		"shot.camera_description":         {Kind: KindText, Default: DefaultDescriptor},
		"shot.camera_position":            {Kind: KindMeasurement, Default: DefaultDescriptor},
		"shot.camera_angle_degrees":       {Kind: KindMeasurement, Default: DefaultDescriptor},
		"shot.camera_distance_meters":     {Kind: KindMeasurement, Default: DefaultDescriptor},
		"shot.camera_height_meters":       {Kind: KindMeasurement, Default: DefaultDescriptor},
		"shot.camera_movement_trajectory": {Kind: KindMeasurement, Default: DefaultTrajectory},
		"shot.lens_focal_length":          {Kind: KindMeasurement, Default: DefaultDescriptor},
		"shot.depth_of_field":             {Kind: KindMeasurement, Default: DefaultDescriptor},
		"shot.motion_physics":             {Kind: KindMeasurement, Default: DefaultDescriptor},
		"shot.subject_position_frame":     {Kind: KindMeasurement, Default: DefaultDescriptor},
		"shot.spatial_relationships":      {Kind: KindMeasurement, Default: DefaultDescriptor},

		"human_subject.description": {Kind: KindText, Default: ""},
		"human_subject.position":    {Kind: KindText, Default: ""},
		"human_subject.wardrobe":    {Kind: KindText, Default: ""},
		"human_subject.action":      {Kind: KindText, Default: ""},

		"entity.description": {Kind: KindText, Default: ""},
		"entity.appearance":  {Kind: KindText, Default: ""},
	}
}

// Config carries everything the assembler needs beyond the raw payload.
// It is immutable after construction; pass a fresh one per assembler.
type Config struct {
	// Fields maps qualified field names to their normalizer kind and
	// default. Missing entries fall back to KindText with an empty default.
	Fields map[string]FieldSpec
}

// NewConfig returns a Config populated with the production field table.
func NewConfig() *Config {
	return &Config{Fields: DefaultFieldTable()}
}

// spec looks up a field declaration, falling back to plain text with an
// empty default for fields the table does not name.
func (c *Config) spec(key string) FieldSpec {
	if s, ok := c.Fields[key]; ok {
		return s
	}
	return FieldSpec{Kind: KindText, Default: ""}
}
