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

// Package api holds auxiliary route handlers that sit beside the core run
// and report surfaces defined by the server.
//
// Functions:
//   - Dashboard: Sets up the statistics route group. Currently exposes a
//     single `/stats` endpoint summarizing what the document store holds.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moemoe9876/ai-video/internal/core/services"
)

// Dashboard configures the statistics endpoints under "/stats".
//
// Inputs:
//   - r: A *gin.RouterGroup the "/stats" group is nested under
//     (e.g. "/api/v1").
//   - reports: The report service used to count persisted documents.
//
// The GET endpoint at the root of the group returns a small JSON summary
// of the analyzed corpus.
func Dashboard(r *gin.RouterGroup, reports *services.ReportService) {
	stats := r.Group("/stats")
	{
		stats.GET("", func(c *gin.Context) {
			ids, err := reports.ListReports(c)
			if err != nil {
				c.Status(http.StatusInternalServerError)
				return
			}
			c.JSON(http.StatusOK, gin.H{"report_count": len(ids)})
		})
	}
}
