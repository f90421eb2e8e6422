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

// This file defines the ReportService, the read side of the pipeline: it
// serves persisted reports and variant documents from the document store,
// answers scene-index queries from BigQuery, and mints time-limited signed
// URLs so clients can fetch rendered artifacts straight from GCS without
// their own credentials.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/moemoe9876/ai-video/internal/core/model"
	"github.com/moemoe9876/ai-video/internal/storage"
)

// ReportService is the data access layer over the persisted analysis
// documents and the BigQuery scene index.
type ReportService struct {
	Store          storage.DocumentStore             // The document store holding reports, variants, and artifacts.
	BigqueryClient *bigquery.Client                  // Client for scene index queries.
	StorageClient  *gcs.Client                       // Client for signing artifact URLs.
	IAMClient      *credentials.IamCredentialsClient // Used to sign URL payloads without a local key file.
	SignerEmail    string                            // The service account email used to sign URLs.
	ArtifactBucket string                            // The GCS bucket rendered artifacts live in.
	ArtifactPrefix string                            // Key prefix inside the artifact bucket.
	DatasetName    string                            // The BigQuery dataset holding the scene index.
	SceneTable     string                            // The scene index table name.
}

// GetFQN returns the complete, queryable name for the scene index table,
// formatted with dots instead of colons.
// Example: `gcp-project-id.video_analysis.scene_index`
func (s *ReportService) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.SceneTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

// GetReport retrieves one assembled report by video id.
//
// Inputs:
//   - ctx: The context for the request.
//   - videoId: The id of the report to retrieve.
//
// Outputs:
//   - *model.Report: The persisted report.
//   - error: storage.ErrNotFound (wrapped) when no such report exists.
func (s *ReportService) GetReport(ctx context.Context, videoId string) (*model.Report, error) {
	return storage.LoadReport(ctx, s.Store, videoId)
}

// ListReports returns the video ids of every persisted report.
func (s *ReportService) ListReports(ctx context.Context) ([]string, error) {
	keys, err := s.Store.List(ctx, "reports/")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		id := strings.TrimSuffix(strings.TrimPrefix(key, "reports/"), ".json")
		ids = append(ids, id)
	}
	return ids, nil
}

// GetVariants returns every persisted variant document for a video,
// ordered by scene index.
func (s *ReportService) GetVariants(ctx context.Context, videoId string) ([]*model.VariantDocument, error) {
	return storage.ListVariantDocuments(ctx, s.Store, videoId)
}

// GetSceneVariants returns the variant document for one scene of a video.
func (s *ReportService) GetSceneVariants(ctx context.Context, videoId string, sceneIndex int) (*model.VariantDocument, error) {
	return storage.LoadVariants(ctx, s.Store, videoId, sceneIndex)
}

// ListArtifacts returns the artifact names rendered for a video.
func (s *ReportService) ListArtifacts(ctx context.Context, videoId string) ([]string, error) {
	prefix := fmt.Sprintf("artifacts/%s/", videoId)
	keys, err := s.Store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, strings.TrimPrefix(key, prefix))
	}
	return names, nil
}

// FindScenesByVideo queries the BigQuery scene index for every scene of
// one video, in chronological order.
func (s *ReportService) FindScenesByVideo(ctx context.Context, videoId string) ([]*model.SceneIndexRow, error) {
	queryText := fmt.Sprintf(QryScenesByVideo, s.GetFQN(), videoId)
	return s.runSceneQuery(ctx, queryText)
}

// FindScenesByLocation searches the scene index across every video for
// scenes whose location mentions the given fragment.
func (s *ReportService) FindScenesByLocation(ctx context.Context, location string) ([]*model.SceneIndexRow, error) {
	queryText := fmt.Sprintf(QryScenesByLocation, s.GetFQN(), strings.ToLower(location))
	return s.runSceneQuery(ctx, queryText)
}

// runSceneQuery executes a scene index query and scans all rows.
func (s *ReportService) runSceneQuery(ctx context.Context, queryText string) ([]*model.SceneIndexRow, error) {
	q := s.BigqueryClient.Query(queryText)
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]*model.SceneIndexRow, 0)
	for {
		row := &model.SceneIndexRow{}
		err := itr.Next(row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// SignedArtifactURL creates a time-limited, secure URL for one rendered
// artifact so clients can download it directly from GCS. The URL is
// signed through the IAM Credentials API using the configured service
// account, which avoids distributing key files with the server.
//
// Inputs:
//   - ctx: The context for the request.
//   - videoId: The video whose artifact to link.
//   - name: The artifact file name (e.g. "prompts.md").
//   - expires: How long the URL stays valid.
//
// Outputs:
//   - string: The signed GET URL.
//   - error: An error when signing fails.
func (s *ReportService) SignedArtifactURL(ctx context.Context, videoId string, name string, expires time.Duration) (string, error) {
	objectName := s.ArtifactPrefix + storage.ArtifactKey(videoId, name)

	opts := &gcs.SignedURLOptions{
		Scheme:         gcs.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(expires),
		GoogleAccessID: s.SignerEmail,
		SignBytes: func(b []byte) ([]byte, error) {
			req := &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: b,
			}
			resp, err := s.IAMClient.SignBlob(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		},
	}

	u, err := s.StorageClient.Bucket(s.ArtifactBucket).SignedURL(objectName, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).SignedURL(%q): %w", s.ArtifactBucket, objectName, err)
	}
	return u, nil
}
