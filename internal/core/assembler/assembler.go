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

// Package assembler walks the raw JSON tree returned by the vision model
// and produces a fully populated model.Report in one depth-first pass
// (report -> scenes -> shots/human_subjects/physical_world -> entities).
//
// The assembler degrades gracefully: a missing structural field needed to
// locate child records (the scenes array, a scene's shots array) is
// substituted with an empty sequence and recorded as a structural-gap
// anomaly. The single fatal condition is a top-level payload that is not a
// JSON object at all, which surfaces as a terminal *AssemblyError. Every
// leaf scalar routes through the normalize package using the field table
// in the assembler's Config, so the output carries zero null leaves.
package assembler

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/moemoe9876/ai-video/internal/core/model"
	"github.com/moemoe9876/ai-video/internal/core/normalize"
)

// AssemblyError is the terminal, non-retryable failure: the payload cannot
// be walked at all. Retrying the stage will not help; the orchestrator
// treats it as a terminal stage failure.
type AssemblyError struct {
	Reason string
}

func (e *AssemblyError) Error() string {
	return "assembly failed: " + e.Reason
}

// Result pairs the assembled report with the anomaly trail collected while
// walking the payload.
type Result struct {
	Report    *model.Report
	Anomalies []normalize.Anomaly
}

// Assembler converts raw payloads into Reports. It is stateless between
// calls and safe for concurrent use; each call owns its own anomaly
// recorder.
type Assembler struct {
	config *Config
}

// New creates an Assembler with the given configuration. A nil config gets
// the production field table.
func New(config *Config) *Assembler {
	if config == nil {
		config = NewConfig()
	}
	return &Assembler{config: config}
}

// AssembleJSON decodes raw bytes and assembles them. Invalid JSON and
// non-object top levels are terminal.
func (a *Assembler) AssembleJSON(data []byte, source string) (*Result, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &AssemblyError{Reason: fmt.Sprintf("payload is not valid JSON: %v", err)}
	}
	return a.Assemble(raw, source)
}

// Assemble builds a Report from a decoded payload. The payload must be a
// JSON object; everything below the top level is tolerated and defaulted.
//
// Inputs:
//   - raw: The decoded JSON payload as returned by the vision model.
//   - source: The video source reference, used for id derivation when the
//     payload carries no usable video_id.
//
// Outputs:
//   - *Result: The assembled report plus the anomaly trail.
//   - error: A terminal *AssemblyError when the top level is not an object.
func (a *Assembler) Assemble(raw interface{}, source string) (*Result, error) {
	root, ok := raw.(map[string]interface{})
	if !ok {
		return nil, &AssemblyError{Reason: fmt.Sprintf("top-level payload is %T, not a JSON object", raw)}
	}

	rec := normalize.NewRecorder()
	report := model.NewReport(source)

	if id := normalize.Identifier(rec, "", root, "video_id", "id"); id != "" {
		report.VideoId = id
	}
	report.DurationSeconds = normalize.Seconds(rec, "duration_seconds", firstPresent(root, "duration_seconds", "duration"), 0)
	if report.DurationSeconds < 0 {
		rec.Record("duration_seconds", normalize.AnomalyFieldShape, "negative duration clamped to 0")
		report.DurationSeconds = 0
	}
	report.FPS = normalize.Seconds(rec, "fps", root["fps"], 0)
	report.Title = a.text(rec, "title", "report.title", root["title"])
	report.Summary = a.text(rec, "summary", "report.summary", root["summary"])
	report.Resolution = a.text(rec, "resolution", "report.resolution", root["resolution"])
	report.FilmStockLook = a.text(rec, "film_stock_look", "report.film_stock_look", root["film_stock_look"])
	report.LensCharacteristics = a.text(rec, "lens_characteristics", "report.lens_characteristics", root["lens_characteristics"])
	report.OverallStyle = a.text(rec, "overall_style", "report.overall_style", root["overall_style"])
	report.OverallMood = a.text(rec, "overall_mood", "report.overall_mood", root["overall_mood"])
	report.ColorGrading = a.text(rec, "color_grading", "report.color_grading", root["color_grading"])
	report.CulturalContext = a.text(rec, "cultural_context", "report.cultural_context", root["cultural_context"])

	report.Scenes = a.assembleScenes(rec, root["scenes"])
	report.MainEntities = a.assembleEntities(rec, "main_entities", root["main_entities"])

	return &Result{Report: report, Anomalies: rec.Anomalies()}, nil
}

// assembleScenes walks the scenes array and enforces the soft temporal
// ordering invariant (non-decreasing, non-overlapping ranges). Violations
// are recorded, never fatal: the upstream model is not contractually
// temporally perfect.
func (a *Assembler) assembleScenes(rec *normalize.Recorder, raw interface{}) []*model.Scene {
	items, ok := raw.([]interface{})
	if !ok {
		if raw == nil {
			rec.Record("scenes", normalize.AnomalyStructuralGap, "scenes array missing or null")
		} else {
			rec.Record("scenes", normalize.AnomalyFieldShape, fmt.Sprintf("expected array, got %T", raw))
		}
		return make([]*model.Scene, 0)
	}

	scenes := make([]*model.Scene, 0, len(items))
	for i, item := range items {
		path := fmt.Sprintf("scenes[%d]", i)
		sceneRaw, ok := item.(map[string]interface{})
		if !ok {
			rec.Record(path, normalize.AnomalyStructuralGap, fmt.Sprintf("scene entry is %T, skipped", item))
			continue
		}
		scenes = append(scenes, a.assembleScene(rec, path, len(scenes)+1, sceneRaw))
	}

	for i := 1; i < len(scenes); i++ {
		if scenes[i].StartTime < scenes[i-1].EndTime {
			rec.Record(fmt.Sprintf("scenes[%d]", i), normalize.AnomalyTemporal,
				fmt.Sprintf("scene starts at %.2fs before previous scene ends at %.2fs", scenes[i].StartTime, scenes[i-1].EndTime))
		}
	}
	return scenes
}

// assembleScene builds one Scene. The scene index is always the 1-based
// position in the assembled list; a conflicting raw index is recorded and
// discarded so the index invariant holds.
func (a *Assembler) assembleScene(rec *normalize.Recorder, path string, index int, raw map[string]interface{}) *model.Scene {
	scene := model.NewScene(index)

	if rawIdx, ok := raw["scene_index"]; ok {
		if n := normalize.Seconds(nil, "", rawIdx, float64(index)); int(n) != index {
			rec.Record(path+".scene_index", normalize.AnomalyFieldShape,
				fmt.Sprintf("raw index %v conflicts with position %d", rawIdx, index))
		}
	}

	scene.StartTime = normalize.Seconds(rec, path+".start_time", raw["start_time"], 0)
	scene.EndTime = normalize.Seconds(rec, path+".end_time", raw["end_time"], scene.StartTime)
	if scene.EndTime < scene.StartTime {
		rec.Record(path, normalize.AnomalyTemporal, "end_time precedes start_time, swapped")
		scene.StartTime, scene.EndTime = scene.EndTime, scene.StartTime
	}
	// Recomputed, never trusted: the source sometimes ships an explicit
	// duration inconsistent with its own timestamps.
	scene.Duration = scene.EndTime - scene.StartTime

	scene.Location = a.text(rec, path+".location", "scene.location", raw["location"])
	scene.TimeOfDay = a.text(rec, path+".time_of_day", "scene.time_of_day", raw["time_of_day"])
	scene.Weather = a.text(rec, path+".weather", "scene.weather", raw["weather"])
	scene.Season = a.text(rec, path+".season", "scene.season", raw["season"])
	scene.Description = a.text(rec, path+".description", "scene.description", raw["description"])
	scene.Mood = a.text(rec, path+".mood", "scene.mood", raw["mood"])
	scene.Lighting = a.text(rec, path+".lighting", "scene.lighting", raw["lighting"])
	scene.LightingType = a.text(rec, path+".lighting_type", "scene.lighting_type", raw["lighting_type"])
	scene.LightingDirection = a.text(rec, path+".lighting_direction", "scene.lighting_direction", raw["lighting_direction"])
	scene.LightingTemperature = a.text(rec, path+".lighting_temperature", "scene.lighting_temperature", raw["lighting_temperature"])
	scene.ColorPalette = a.text(rec, path+".color_palette", "scene.color_palette", raw["color_palette"])
	scene.ColorTemperature = a.text(rec, path+".color_temperature", "scene.color_temperature", raw["color_temperature"])
	scene.FilmStockResemblance = a.text(rec, path+".film_stock_resemblance", "scene.film_stock_resemblance", raw["film_stock_resemblance"])
	scene.Style = a.text(rec, path+".style", "scene.style", raw["style"])

	scene.PhysicalWorld = a.assemblePhysicalWorld(rec, path+".physical_world", raw["physical_world"])
	scene.HumanSubjects = a.assembleHumanSubjects(rec, path+".human_subjects", raw["human_subjects"])
	scene.Shots = a.assembleShots(rec, path+".shots", scene, raw["shots"])
	scene.KeyEntities = a.assembleEntities(rec, path+".key_entities", raw["key_entities"])

	if scene.Duration > 0 && len(scene.Shots) == 0 {
		rec.Record(path+".shots", normalize.AnomalyStructuralGap,
			fmt.Sprintf("scene with %.2fs duration has no shots", scene.Duration))
	}
	return scene
}

// assemblePhysicalWorld fills the five environment inventories. The source
// occasionally emits the whole block as a prose string; that degrades to
// the objects inventory rather than being discarded.
func (a *Assembler) assemblePhysicalWorld(rec *normalize.Recorder, path string, raw interface{}) *model.PhysicalWorld {
	pw := model.NewPhysicalWorld()
	switch v := raw.(type) {
	case nil:
		rec.Record(path, normalize.AnomalyStructuralGap, "physical_world missing or null")
	case map[string]interface{}:
		pw.Architecture = normalize.StringList(rec, path+".architecture", v["architecture"])
		pw.Signage = normalize.StringList(rec, path+".signage", v["signage"])
		pw.Vehicles = normalize.StringList(rec, path+".vehicles", v["vehicles"])
		pw.Objects = normalize.StringList(rec, path+".objects", v["objects"])
		pw.Infrastructure = normalize.StringList(rec, path+".infrastructure", v["infrastructure"])
	case string:
		rec.Record(path, normalize.AnomalyFieldShape, "physical_world arrived as prose")
		if s := strings.TrimSpace(v); s != "" {
			pw.Objects = append(pw.Objects, s)
		}
	default:
		rec.Record(path, normalize.AnomalyFieldShape, fmt.Sprintf("expected object, got %T", raw))
	}
	return pw
}

func (a *Assembler) assembleHumanSubjects(rec *normalize.Recorder, path string, raw interface{}) []*model.HumanSubject {
	items, ok := raw.([]interface{})
	if !ok {
		if raw != nil {
			rec.Record(path, normalize.AnomalyFieldShape, fmt.Sprintf("expected array, got %T", raw))
		} else {
			rec.Record(path, normalize.AnomalyStructuralGap, "human_subjects missing or null")
		}
		return make([]*model.HumanSubject, 0)
	}
	out := make([]*model.HumanSubject, 0, len(items))
	for i, item := range items {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		record, ok := item.(map[string]interface{})
		if !ok {
			// Prose person descriptions keep their text instead of vanishing.
			if s := normalize.Text(rec, itemPath, item, ""); s != "" {
				rec.Record(itemPath, normalize.AnomalyFieldShape, "human subject arrived as prose")
				out = append(out, &model.HumanSubject{Description: s})
			}
			continue
		}
		out = append(out, &model.HumanSubject{
			Description: a.text(rec, itemPath+".description", "human_subject.description", firstPresent(record, "description", "appearance")),
			Position:    a.text(rec, itemPath+".position", "human_subject.position", record["position"]),
			Wardrobe:    a.text(rec, itemPath+".wardrobe", "human_subject.wardrobe", firstPresent(record, "wardrobe", "clothing")),
			Action:      a.text(rec, itemPath+".action", "human_subject.action", record["action"]),
		})
	}
	return out
}

// assembleShots builds a scene's shots, clamping each shot's range to the
// parent scene's range. Out-of-range times are anomalies, not rejections.
func (a *Assembler) assembleShots(rec *normalize.Recorder, path string, scene *model.Scene, raw interface{}) []*model.Shot {
	items, ok := raw.([]interface{})
	if !ok {
		if raw == nil {
			rec.Record(path, normalize.AnomalyStructuralGap, "shots array missing or null")
		} else {
			rec.Record(path, normalize.AnomalyFieldShape, fmt.Sprintf("expected array, got %T", raw))
		}
		return make([]*model.Shot, 0)
	}

	shots := make([]*model.Shot, 0, len(items))
	for i, item := range items {
		shotPath := fmt.Sprintf("%s[%d]", path, i)
		record, ok := item.(map[string]interface{})
		if !ok {
			rec.Record(shotPath, normalize.AnomalyStructuralGap, fmt.Sprintf("shot entry is %T, skipped", item))
			continue
		}
		shots = append(shots, a.assembleShot(rec, shotPath, len(shots)+1, scene, record))
	}
	return shots
}

func (a *Assembler) assembleShot(rec *normalize.Recorder, path string, index int, scene *model.Scene, raw map[string]interface{}) *model.Shot {
	shot := &model.Shot{ShotIndex: index, Entities: make([]*model.Entity, 0)}

	shot.StartTime = normalize.Seconds(rec, path+".start_time", raw["start_time"], scene.StartTime)
	shot.EndTime = normalize.Seconds(rec, path+".end_time", raw["end_time"], scene.EndTime)
	if shot.EndTime < shot.StartTime {
		rec.Record(path, normalize.AnomalyTemporal, "end_time precedes start_time, swapped")
		shot.StartTime, shot.EndTime = shot.EndTime, shot.StartTime
	}
	if shot.StartTime < scene.StartTime || shot.EndTime > scene.EndTime {
		rec.Record(path, normalize.AnomalyTemporal,
			fmt.Sprintf("shot range [%.2f, %.2f] clamped to scene range [%.2f, %.2f]",
				shot.StartTime, shot.EndTime, scene.StartTime, scene.EndTime))
		shot.StartTime = clamp(shot.StartTime, scene.StartTime, scene.EndTime)
		shot.EndTime = clamp(shot.EndTime, scene.StartTime, scene.EndTime)
	}
	shot.Duration = shot.EndTime - shot.StartTime

	shot.Description = a.text(rec, path+".description", "shot.description", raw["description"])
	shot.Action = a.text(rec, path+".action", "shot.action", raw["action"])
	shot.ShotType = a.text(rec, path+".shot_type", "shot.shot_type", raw["shot_type"])
	shot.CameraMovement = a.text(rec, path+".camera_movement", "shot.camera_movement", raw["camera_movement"])
	shot.CameraDescription = a.text(rec, path+".camera_description", "shot.camera_description", raw["camera_description"])
	shot.CameraPosition = a.text(rec, path+".camera_position", "shot.camera_position", raw["camera_position"])
	shot.CameraAngleDegrees = a.text(rec, path+".camera_angle_degrees", "shot.camera_angle_degrees", raw["camera_angle_degrees"])
	shot.CameraDistanceMeters = a.text(rec, path+".camera_distance_meters", "shot.camera_distance_meters", raw["camera_distance_meters"])
	shot.CameraHeightMeters = a.text(rec, path+".camera_height_meters", "shot.camera_height_meters", raw["camera_height_meters"])
	shot.CameraMovementTrajectory = a.text(rec, path+".camera_movement_trajectory", "shot.camera_movement_trajectory", raw["camera_movement_trajectory"])
	shot.LensFocalLength = a.text(rec, path+".lens_focal_length", "shot.lens_focal_length", raw["lens_focal_length"])
	shot.DepthOfField = a.text(rec, path+".depth_of_field", "shot.depth_of_field", raw["depth_of_field"])
	shot.MotionPhysics = a.text(rec, path+".motion_physics", "shot.motion_physics", raw["motion_physics"])
	shot.SubjectPositionFrame = a.text(rec, path+".subject_position_frame", "shot.subject_position_frame", raw["subject_position_frame"])
	shot.SpatialRelationships = a.text(rec, path+".spatial_relationships", "shot.spatial_relationships", raw["spatial_relationships"])

	shot.Entities = a.assembleEntities(rec, path+".entities", raw["entities"])
	return shot
}

// assembleEntities builds entity value objects, unifying the source's
// inconsistent identifier keys (name / entity_id / id) into Name. Records
// with no resolvable identifier are skipped with a structural-gap anomaly
// rather than producing an anonymous entity.
func (a *Assembler) assembleEntities(rec *normalize.Recorder, path string, raw interface{}) []*model.Entity {
	items, ok := raw.([]interface{})
	if !ok {
		if raw != nil {
			rec.Record(path, normalize.AnomalyFieldShape, fmt.Sprintf("expected array, got %T", raw))
		}
		return make([]*model.Entity, 0)
	}
	out := make([]*model.Entity, 0, len(items))
	for i, item := range items {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		record, ok := item.(map[string]interface{})
		if !ok {
			rec.Record(itemPath, normalize.AnomalyStructuralGap, fmt.Sprintf("entity entry is %T, skipped", item))
			continue
		}
		name := normalize.Identifier(rec, itemPath, record, "name", "entity_id", "id")
		if name == "" {
			rec.Record(itemPath, normalize.AnomalyStructuralGap, "entity has no name, entity_id, or id")
			continue
		}
		out = append(out, &model.Entity{
			Name:        name,
			Type:        entityType(rec, itemPath+".type", record["type"]),
			Description: a.text(rec, itemPath+".description", "entity.description", record["description"]),
			Appearance:  a.text(rec, itemPath+".appearance", "entity.appearance", record["appearance"]),
		})
	}
	return out
}

// entityType maps a raw type value onto the closed enum, degrading unknown
// values to object.
func entityType(rec *normalize.Recorder, path string, raw interface{}) model.EntityType {
	s := strings.ToLower(normalize.Text(rec, path, raw, string(model.EntityTypeObject)))
	switch model.EntityType(s) {
	case model.EntityTypePerson, model.EntityTypeVehicle, model.EntityTypeObject, model.EntityTypeLocation:
		return model.EntityType(s)
	}
	rec.Record(path, normalize.AnomalyFieldShape, fmt.Sprintf("unknown entity type %q, using object", s))
	return model.EntityTypeObject
}

// text routes one leaf value through the normalizer declared for it in the
// field table.
func (a *Assembler) text(rec *normalize.Recorder, path, tableKey string, raw interface{}) string {
	spec := a.config.spec(tableKey)
	if spec.Kind == KindMeasurement {
		return normalize.MeasurementText(rec, path, raw, spec.Default)
	}
	return normalize.Text(rec, path, raw, spec.Default)
}

// firstPresent returns the first key present in the record, or nil.
func firstPresent(record map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := record[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
