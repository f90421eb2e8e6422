// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// *****************************************************************************************************//
// Package main is the entry point for the video analysis backend server.
//
// This application sets up and runs a web server using the Gin framework. It provides a REST API
// for managing analysis runs, browsing assembled reports and their reimagined prompt variants,
// and uploading video files. The server is instrumented with OpenTelemetry for logging,
// tracing, and metrics, providing observability into the application's performance.
//
// The main function initializes the application's configuration, sets up logging and telemetry,
// and initializes the application state, including clients for Google Cloud services. It defines
// API routes for starting and resuming pipeline runs, retrieving reports, variants,
// scene index rows, and rendered artifacts, and uploading files.
//
// The server also sets up and manages a background Pub/Sub listener which triggers
// the analysis pipeline when new video files are uploaded to Google Cloud Storage.
//
// Functions:
//   - main: The main entry point of the application. It sets up the server, configures routes,
//     initializes services, and handles graceful shutdown.
//   - RunRouter: Sets up the API routes for starting, resuming, and inspecting pipeline runs.
//   - ReportRouter: Sets up the API routes for assembled reports, variant documents,
//     the scene index, and rendered artifacts.
//   - FileUpload: Configures the API endpoint for handling multipart/form-data file uploads,
//     saving the uploaded files to the video input bucket.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/moemoe9876/ai-video/internal/api"
	"github.com/moemoe9876/ai-video/internal/core/pipeline"
	"github.com/moemoe9876/ai-video/internal/storage"
	"github.com/moemoe9876/ai-video/internal/telemetry"
)

// main is the primary entry point for the application.
// It orchestrates the setup of logging, telemetry, configuration, cloud services,
// the web server, API routes, and background listeners. It also handles graceful
// shutdown of the server upon receiving an interrupt signal.
func main() {
	// Initialize structured logging for the application.
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	// Create a new context that can be cancelled. This is the root context for the application.
	ctx, cancel := context.WithCancel(context.Background())
	// Defer the cancel function to be called when main exits, ensuring all child contexts are cancelled.
	defer cancel()

	// Load application configuration from TOML files.
	config := GetConfig()

	// Initialize OpenTelemetry for distributed tracing and metrics.
	_, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	// Initialize the application's state, including all necessary service clients.
	InitState(ctx)
	slog.Info("Initialized State")

	// Set up the Gin web server with default middleware.
	r := gin.Default()

	// Add OpenTelemetry middleware to the Gin router to trace incoming requests.
	// This will automatically create spans for each request.
	r.Use(otelgin.Middleware("video-analysis-server"))

	// Configure Cross-Origin Resource Sharing (CORS) middleware.
	// Using cors.Default() provides a permissive configuration suitable for development,
	// allowing requests from any origin.
	r.Use(cors.Default())

	// Group routes under the "/api/v1" prefix.
	apiV1 := r.Group("/api/v1")
	{
		// Register the routes for pipeline runs, reports, and file uploads.
		RunRouter(apiV1)
		ReportRouter(apiV1)
		FileUpload(apiV1)
		api.Dashboard(apiV1, state.reportService)
	}

	// Configure the HTTP server with the address and handler.
	srv := &http.Server{
		Addr:         ":8080",
		Handler:      r,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	// Start the HTTP server in a separate goroutine so it doesn't block the main thread.
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen: ", "error", err)
		}
	}()
	slog.Info("Server Ready on port 8080")

	// Set up a channel to listen for OS interrupt signals (e.g., Ctrl+C).
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	// Block until a signal is received on the quit channel.
	<-quit
	slog.Info("Shutdown Server ...")

	// Create a context with a timeout for the graceful shutdown.
	// This gives active requests 5 seconds to complete.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// Attempt to gracefully shut down the server.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed:", "error", err)
	}

	log.Println("Server exiting")
}

// startRunRequest is the JSON body for POST /runs.
type startRunRequest struct {
	Source   string `json:"source" binding:"required"` // Video source identifier, typically a gs:// URI.
	VideoURI string `json:"video_uri"`                 // Location the model reads the footage from; defaults to Source.
	MimeType string `json:"mime_type"`                 // Video MIME type; defaults to video/mp4.
	Style    string `json:"style"`                     // Optional reimagination style directive.
}

// RunRouter sets up the API routes for pipeline run management.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the run routes will be added. This allows
//     nesting routes under a common path prefix (e.g., "/api/v1").
//
// This function defines the following endpoints:
//   - POST /runs: Starts a new analysis run for a video source. The run executes
//     in the background; the response carries the run id for polling.
//   - GET /runs/:id: Returns the checkpoint for a run, including its current
//     stage, status, and attempt count.
//   - POST /runs/:id/resume: Resumes a failed or interrupted run from its first
//     incomplete stage. The resumed run also executes in the background.
func RunRouter(r *gin.RouterGroup) {
	runs := r.Group("/runs")
	{
		// Handler for POST /runs
		runs.POST("", func(c *gin.Context) {
			var req startRunRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if req.VideoURI == "" {
				req.VideoURI = req.Source
			}
			if req.MimeType == "" {
				req.MimeType = "video/mp4"
			}

			// Generate the run id here so the caller can poll for the
			// checkpoint while the pipeline executes in the background.
			runId := uuid.NewString()
			go func() {
				// The run outlives the HTTP request, so it gets its own context.
				if _, err := state.orchestrator.Start(context.Background(), runId, req.Source, req.VideoURI, req.MimeType, req.Style); err != nil {
					slog.Error("pipeline run failed", "run_id", runId, "error", err)
				}
			}()
			c.JSON(http.StatusAccepted, gin.H{"run_id": runId})
		})

		// Handler for GET /runs/:id
		runs.GET("/:id", func(c *gin.Context) {
			cp, err := pipeline.LoadCheckpoint(c, state.store, c.Param("id"))
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					c.Status(http.StatusNotFound)
					return
				}
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, cp)
		})

		// Handler for POST /runs/:id/resume
		runs.POST("/:id/resume", func(c *gin.Context) {
			runId := c.Param("id")
			// Confirm the run exists before accepting the resume so the
			// caller gets a 404 instead of a silently failing goroutine.
			if _, err := pipeline.LoadCheckpoint(c, state.store, runId); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					c.Status(http.StatusNotFound)
					return
				}
				c.Status(http.StatusInternalServerError)
				return
			}
			go func() {
				if _, err := state.orchestrator.Resume(context.Background(), runId); err != nil {
					slog.Error("pipeline resume failed", "run_id", runId, "error", err)
				}
			}()
			c.JSON(http.StatusAccepted, gin.H{"run_id": runId})
		})
	}
}

// ReportRouter sets up the API routes for the analysis output surfaces.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the report routes will be added.
//
// This function defines the following endpoints:
//   - GET /reports: Lists the video ids of every persisted report.
//   - GET /reports/:id: Retrieves a full assembled report by video id.
//   - GET /reports/:id/variants: Returns every variant document for a video.
//   - GET /reports/:id/variants/:scene_id: Returns the variant document for one scene.
//   - GET /reports/:id/scenes: Returns the BigQuery scene index rows for a video.
//   - GET /reports/:id/artifacts: Lists the rendered artifact names for a video.
//   - GET /reports/:id/artifacts/:name: Serves a rendered artifact's content.
//   - GET /reports/:id/artifacts/:name/url: Generates a time-limited, signed URL
//     for downloading an artifact directly from Cloud Storage.
//   - GET /scenes: Searches the scene index by location substring.
func ReportRouter(r *gin.RouterGroup) {
	reports := r.Group("/reports")
	{
		// Handler for GET /reports
		reports.GET("", func(c *gin.Context) {
			ids, err := state.reportService.ListReports(c)
			if err != nil {
				log.Printf("Error listing reports: %v\n", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, ids)
		})

		// Handler for GET /reports/:id
		reports.GET("/:id", func(c *gin.Context) {
			out, err := state.reportService.GetReport(c, c.Param("id"))
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		// Handler for GET /reports/:id/variants
		reports.GET("/:id/variants", func(c *gin.Context) {
			out, err := state.reportService.GetVariants(c, c.Param("id"))
			if err != nil {
				log.Printf("Error listing variants: %v\n", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		// Handler for GET /reports/:id/variants/:scene_id
		reports.GET("/:id/variants/:scene_id", func(c *gin.Context) {
			sceneIndex, err := strconv.Atoi(c.Param("scene_id"))
			if err != nil {
				c.Status(http.StatusBadRequest)
				return
			}
			out, err := state.reportService.GetSceneVariants(c, c.Param("id"), sceneIndex)
			if err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		// Handler for GET /reports/:id/scenes
		reports.GET("/:id/scenes", func(c *gin.Context) {
			out, err := state.reportService.FindScenesByVideo(c, c.Param("id"))
			if err != nil {
				log.Printf("Error querying scene index: %v\n", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		// Handler for GET /reports/:id/artifacts
		reports.GET("/:id/artifacts", func(c *gin.Context) {
			out, err := state.reportService.ListArtifacts(c, c.Param("id"))
			if err != nil {
				log.Printf("Error listing artifacts: %v\n", err)
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, out)
		})

		// Handler for GET /reports/:id/artifacts/:name
		reports.GET("/:id/artifacts/:name", func(c *gin.Context) {
			data, err := state.store.Read(c, storage.ArtifactKey(c.Param("id"), c.Param("name")))
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					c.Status(http.StatusNotFound)
					return
				}
				c.Status(http.StatusInternalServerError)
				return
			}
			contentType := "text/markdown"
			if filepath.Ext(c.Param("name")) == ".json" {
				contentType = "application/json"
			}
			c.Data(http.StatusOK, contentType, data)
		})

		// Handler for GET /reports/:id/artifacts/:name/url
		// This endpoint provides a secure, time-limited URL for clients to download
		// an artifact directly from Cloud Storage.
		reports.GET("/:id/artifacts/:name/url", func(c *gin.Context) {
			signedURL, err := state.reportService.SignedArtifactURL(c, c.Param("id"), c.Param("name"), 15*time.Minute)
			if err != nil {
				log.Printf("Error generating signed URL: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate download URL"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"url": signedURL})
		})
	}

	// Handler for GET /scenes?location=<substring>
	r.GET("/scenes", func(c *gin.Context) {
		location := c.Query("location")
		if len(location) == 0 {
			c.Status(http.StatusBadRequest)
			return
		}
		out, err := state.reportService.FindScenesByLocation(c, location)
		if err != nil {
			log.Printf("Error searching scene index: %v\n", err)
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, out)
	})
}

// FileUpload sets up the route for handling file uploads.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the file upload route will be added.
//
// This function configures a POST endpoint at "/uploads" that accepts multipart/form-data.
// It processes one or more files sent under the "files" form field, saves them
// temporarily to the local disk, and then uploads them to the configured video
// input bucket before deleting the local temporary file. The bucket's
// notification topic then triggers the analysis pipeline.
func FileUpload(r *gin.RouterGroup) {
	// Group the upload route under "/uploads".
	upload := r.Group("/uploads")
	{
		// Handler for POST /uploads
		upload.POST("", func(c *gin.Context) {
			// Parse the multipart form from the request.
			form, err := c.MultipartForm()
			if err != nil {
				c.String(http.StatusBadRequest, "get form err: %s", err.Error())
				return
			}
			// Get all files associated with the "files" field.
			files := form.File["files"]
			// Get a handle to the configured video input bucket.
			bucket := state.cloud.StorageClient.Bucket(state.config.Storage.VideoInputBucket)

			// Loop through all the uploaded files.
			for _, file := range files {
				// Define a temporary local path to save the file.
				localPath := filepath.Join(os.TempDir(), file.Filename)
				// Save the uploaded file to the local temporary path.
				if err := c.SaveUploadedFile(file, localPath); err != nil {
					c.String(http.StatusBadRequest, "upload file err: %s", err.Error())
					return
				}

				// Read the file content from the local path.
				content, err := os.ReadFile(localPath)
				if err != nil {
					log.Println(err)
					c.Status(http.StatusInternalServerError)
					return
				}
				// Get a writer for the new object in the GCS bucket.
				wc := bucket.Object(file.Filename).NewWriter(c)
				// Carry the declared content type through so the probe can
				// skip magic-byte sniffing for well-behaved clients.
				wc.ContentType = file.Header.Get("Content-Type")
				if wc.ContentType == "" {
					wc.ContentType = "video/mp4"
				}
				// Write the file content to the GCS object.
				if _, err = wc.Write(content); err != nil {
					c.String(http.StatusInternalServerError, "write file to bucket err: %s", err.Error())
					return
				}
				// Close the GCS writer to finalize the upload.
				if err := wc.Close(); err != nil {
					log.Printf("failed to close bucket handle: %v\n", err)
				}
				// Remove the temporary local file after successful upload.
				if err := os.Remove(localPath); err != nil {
					log.Printf("failed to remove file from server: %v\n", err)
				}
			}
			// Respond with a success message.
			c.String(http.StatusOK, "Uploaded successfully %d files.", len(files))
		})
	}
}
