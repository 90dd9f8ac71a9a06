package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

type stubStore struct {
	lastRun        *models.PipelineRun
	lastRunErr     error
	pending        []models.TrackedProperty
	pendingErr     error
}

func (s *stubStore) SaveScraped(ctx context.Context, properties []models.CanonicalProperty) error {
	return nil
}
func (s *stubStore) GetUnenrichedProperties(ctx context.Context) ([]models.TrackedProperty, error) {
	return nil, nil
}
func (s *stubStore) GetRecentPropertiesForDedup(ctx context.Context, since time.Time) ([]models.CanonicalProperty, error) {
	return nil, nil
}
func (s *stubStore) MarkEnriched(ctx context.Context, uniqueID string, images []models.PropertyImage, floorplan *models.PropertyImage) error {
	return nil
}
func (s *stubStore) MarkEnrichmentFailed(ctx context.Context, uniqueID string, maxAttempts int) error {
	return nil
}
func (s *stubStore) SavePreAnalysisProperties(ctx context.Context, properties []models.TrackedProperty) error {
	return nil
}
func (s *stubStore) GetPendingAnalysisProperties(ctx context.Context, excludeIDs []string) ([]models.TrackedProperty, error) {
	return nil, nil
}
func (s *stubStore) CompleteAnalysis(ctx context.Context, uniqueID string, analysis *models.QualityAnalysis, fitScore *int) error {
	return nil
}
func (s *stubStore) ResetFailedAnalyses(ctx context.Context) (int, error) { return 0, nil }
func (s *stubStore) RequestReanalysis(ctx context.Context, uniqueIDs []string) (int, error) {
	return 0, nil
}
func (s *stubStore) RequestReanalysisByFilter(ctx context.Context, outcodes []string, allProperties bool) (int, error) {
	return 0, nil
}
func (s *stubStore) GetReanalysisQueue(ctx context.Context, outcode string) ([]models.TrackedProperty, error) {
	return nil, nil
}
func (s *stubStore) CompleteReanalysis(ctx context.Context, uniqueID string, analysis models.QualityAnalysis) error {
	return nil
}
func (s *stubStore) GetPendingNotification(ctx context.Context) ([]models.TrackedProperty, error) {
	return s.pending, s.pendingErr
}
func (s *stubStore) MarkNotified(ctx context.Context, uniqueID string) error        { return nil }
func (s *stubStore) MarkNotificationFailed(ctx context.Context, uniqueID string) error { return nil }
func (s *stubStore) CreatePipelineRun(ctx context.Context) (*models.PipelineRun, error) {
	return nil, nil
}
func (s *stubStore) UpdatePipelineRun(ctx context.Context, runID int64, counts map[string]int) error {
	return nil
}
func (s *stubStore) CompletePipelineRun(ctx context.Context, runID int64, status models.RunStatus, errs []string) error {
	return nil
}
func (s *stubStore) GetLastPipelineRun(ctx context.Context) (*models.PipelineRun, error) {
	return s.lastRun, s.lastRunErr
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHandleHealth_ReturnsLastRunStatus(t *testing.T) {
	st := &stubStore{lastRun: &models.PipelineRun{RunUUID: "abc", Status: models.RunCompleted}}
	srv := NewServer(st)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, string(models.RunCompleted), body["last_run_status"])
}

func TestHandleLastRun_NotFoundWhenNoRuns(t *testing.T) {
	st := &stubStore{}
	srv := NewServer(st)

	req := httptest.NewRequest(http.MethodGet, "/runs/last", nil)
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleProperties_RespectsLimit(t *testing.T) {
	st := &stubStore{pending: []models.TrackedProperty{
		{Property: models.CanonicalProperty{Canonical: models.Listing{Source: models.SourceRightmove, SourceID: "1"}}},
		{Property: models.CanonicalProperty{Canonical: models.Listing{Source: models.SourceRightmove, SourceID: "2"}}},
	}}
	srv := NewServer(st)

	req := httptest.NewRequest(http.MethodGet, "/properties?limit=1", nil)
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["count"])
}
