package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcelCutts/home-finder-sub001/internal/errs"
	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

// newMockStore opens a sqlmock-backed PostgresStore, grounded on
// kubernaut's datastorage/repository sqlmock.New(sqlmock.MonitorPingsOption(true))
// style.
func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db), mock
}

func sampleProperty() models.CanonicalProperty {
	return models.CanonicalProperty{
		Canonical: models.Listing{
			Source:    models.SourceRightmove,
			SourceID:  "123",
			Title:     "2 bed flat",
			Address:   "1 Test Street",
			Postcode:  "E8 3RH",
			Bedrooms:  2,
			PricePCM:  1500,
			FirstSeen: time.Now().UTC(),
		},
		Sources:      []models.PropertySource{models.SourceRightmove},
		SourceURLs:   map[models.PropertySource]string{models.SourceRightmove: "https://rightmove.test/123"},
		Descriptions: map[models.PropertySource]string{},
		MinPrice:     1500,
		MaxPrice:     1500,
	}
}

func TestSaveScraped_InsertsOneRowPerProperty(t *testing.T) {
	st, mock := newMockStore(t)
	p := sampleProperty()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO properties`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := st.SaveScraped(context.Background(), []models.CanonicalProperty{p})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveScraped_RollsBackOnInsertError(t *testing.T) {
	st, mock := newMockStore(t)
	p := sampleProperty()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO properties`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := st.SaveScraped(context.Background(), []models.CanonicalProperty{p})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveMergedProperty_UnionsSourcesAndWidensPriceRange(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT sources, source_urls, descriptions, min_price_pcm, max_price_pcm`).
		WithArgs("openrent:OR-100").
		WillReturnRows(sqlmock.NewRows([]string{"sources", "source_urls", "descriptions", "min_price_pcm", "max_price_pcm"}).
			AddRow("openrent", []byte(`{"openrent":"https://openrent.test/OR-100"}`), []byte(`{}`), 1500, 1500))
	mock.ExpectExec(`UPDATE properties SET`).
		WithArgs("openrent,zoopla", []byte(`{"openrent":"https://openrent.test/OR-100","zoopla":"https://zoopla.test/ZP-200"}`), []byte(`{}`), 1500, 1550, "openrent:OR-100").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	update := models.CanonicalProperty{
		Sources:      []models.PropertySource{models.SourceZoopla},
		SourceURLs:   map[models.PropertySource]string{models.SourceZoopla: "https://zoopla.test/ZP-200"},
		Descriptions: map[models.PropertySource]string{},
		MinPrice:     1550,
		MaxPrice:     1550,
	}
	err := st.SaveMergedProperty(context.Background(), "openrent:OR-100", update)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveMergedProperty_ReturnsNotFoundForMissingAnchor(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT sources, source_urls, descriptions, min_price_pcm, max_price_pcm`).
		WithArgs("openrent:missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := st.SaveMergedProperty(context.Background(), "openrent:missing", models.CanonicalProperty{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecentPropertiesForDedup_ExcludesPendingEnrichment(t *testing.T) {
	st, mock := newMockStore(t)

	rows := sqlmock.NewRows(propertyRowColumns()).
		AddRow(propertyRowValues("rightmove:123", models.EnrichmentEnriched, models.NotificationSent)...)
	mock.ExpectQuery(`SELECT .* FROM properties WHERE first_seen >= \$1 AND enrichment_status != \$2`).
		WithArgs(sqlmock.AnyArg(), models.EnrichmentPending).WillReturnRows(rows)
	mock.ExpectQuery(`SELECT url, source, image_type, local_path, width_pixels`).
		WithArgs("rightmove:123").WillReturnRows(sqlmock.NewRows([]string{"url", "source", "image_type", "local_path", "width_pixels"}))
	mock.ExpectQuery(`SELECT analysis FROM quality_analyses`).
		WithArgs("rightmove:123").WillReturnError(sql.ErrNoRows)

	got, err := st.GetRecentPropertiesForDedup(context.Background(), time.Now().UTC().AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2 bed flat", got[0].Canonical.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func propertyRowColumns() []string {
	return []string{
		"unique_id", "canonical_source", "canonical_source_id", "title", "address", "postcode",
		"latitude", "longitude", "min_price_pcm", "max_price_pcm", "bedrooms", "sources",
		"source_urls", "descriptions", "first_seen", "enrichment_status", "enrichment_attempts",
		"notification_status", "notified_at", "commute_minutes", "transport_mode", "fit_score",
		"created_at", "updated_at",
	}
}

func propertyRowValues(uniqueID string, enrichmentStatus models.EnrichmentStatus, notificationStatus models.NotificationStatus) []driverValue {
	now := time.Now().UTC()
	return []driverValue{
		uniqueID, "rightmove", "123", "2 bed flat", "1 Test Street", "E8 3RH",
		nil, nil, 1500, 1500, 2, "rightmove",
		[]byte(`{"rightmove":"https://rightmove.test/123"}`), []byte(`{}`), now, string(enrichmentStatus), 0,
		string(notificationStatus), nil, nil, nil, nil,
		now, now,
	}
}

// driverValue exists purely to give propertyRowValues a named return type;
// sqlmock's AddRow accepts ...driver.Value but any works equally well here.
type driverValue = any

func TestGetUnenrichedProperties_ScansRowsAndLoadsImagesAndQuality(t *testing.T) {
	st, mock := newMockStore(t)

	rows := sqlmock.NewRows(propertyRowColumns()).
		AddRow(propertyRowValues("rightmove:123", models.EnrichmentPending, models.NotificationPendingEnrichment)...)
	mock.ExpectQuery(`SELECT .* FROM properties`).WithArgs(models.EnrichmentPending).WillReturnRows(rows)

	imageRows := sqlmock.NewRows([]string{"url", "source", "image_type", "local_path", "width_pixels"})
	mock.ExpectQuery(`SELECT url, source, image_type, local_path, width_pixels`).
		WithArgs("rightmove:123").WillReturnRows(imageRows)

	mock.ExpectQuery(`SELECT analysis FROM quality_analyses`).
		WithArgs("rightmove:123").WillReturnError(sql.ErrNoRows)

	got, err := st.GetUnenrichedProperties(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2 bed flat", got[0].Property.Canonical.Title)
	assert.Nil(t, got[0].Quality)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkEnriched_CommitsStatusAndImageRows(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE properties`).
		WithArgs(models.EnrichmentEnriched, models.NotificationPendingAnalysis, "rightmove:123").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO property_images`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	images := []models.PropertyImage{{URL: "https://cdn.test/a.jpg", Source: models.SourceRightmove, ImageType: models.ImageGallery}}
	err := st.MarkEnriched(context.Background(), "rightmove:123", images, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkEnriched_ReturnsNotFoundWhenNoRowsAffected(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE properties`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := st.MarkEnriched(context.Background(), "missing-id", nil, nil)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkEnrichmentFailed_IncrementsAttempts(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE properties`).
		WithArgs("rightmove:123", 3, models.EnrichmentFailed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := st.MarkEnrichmentFailed(context.Background(), "rightmove:123", 3)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteAnalysis_SavesQualityAndFitScoreThenFlipsStatus(t *testing.T) {
	st, mock := newMockStore(t)
	rating := 4
	score := 72

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO quality_analyses`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE properties SET notification_status`).
		WithArgs(models.NotificationPending, score, "rightmove:123", models.NotificationPendingAnalysis).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	analysis := &models.QualityAnalysis{OverallRating: &rating}
	err := st.CompleteAnalysis(context.Background(), "rightmove:123", analysis, &score)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteAnalysis_NilAnalysisSkipsQualityInsert(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE properties SET notification_status`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := st.CompleteAnalysis(context.Background(), "rightmove:123", nil, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetFailedAnalyses_NoRowsFoundIsANoop(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT p.unique_id FROM properties`).
		WithArgs(models.NotificationPendingAnalysis).
		WillReturnRows(sqlmock.NewRows([]string{"unique_id"}))

	n, err := st.ResetFailedAnalyses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetFailedAnalyses_DeletesFallbackAndResetsStatus(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT p.unique_id FROM properties`).
		WithArgs(models.NotificationPendingAnalysis).
		WillReturnRows(sqlmock.NewRows([]string{"unique_id"}).AddRow("rightmove:123"))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM quality_analyses`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE properties SET notification_status`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := st.ResetFailedAnalyses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestReanalysisByFilter_AllPropertiesBypassesOutcodeFilter(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE quality_analyses SET reanalysis_requested_at = now\(\)\s+WHERE property_unique_id IN \(SELECT unique_id FROM properties\)`).
		WillReturnResult(sqlmock.NewResult(0, 5))

	n, err := st.RequestReanalysisByFilter(context.Background(), nil, true)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestReanalysisByFilter_NoOutcodesAndNotAllIsANoop(t *testing.T) {
	st, mock := newMockStore(t)

	n, err := st.RequestReanalysisByFilter(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePipelineRun_ReturnsGeneratedID(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO pipeline_runs`).WillReturnRows(
		sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	run, err := st.CreatePipelineRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), run.ID)
	assert.Equal(t, models.RunRunning, run.Status)
	assert.NotEmpty(t, run.RunUUID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePipelineRun_RejectsUnknownColumn(t *testing.T) {
	st, _ := newMockStore(t)

	err := st.UpdatePipelineRun(context.Background(), 1, map[string]int{"not_a_real_column": 1})
	assert.Error(t, err)
}

func TestUpdatePipelineRun_NoopOnEmptyCounts(t *testing.T) {
	st, mock := newMockStore(t)

	err := st.UpdatePipelineRun(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLastPipelineRun_NoRowsReturnsNilNoError(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, run_uuid, started_at`).
		WithArgs(models.RunCompleted, models.RunFailed).
		WillReturnError(sql.ErrNoRows)

	run, err := st.GetLastPipelineRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, run)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLastPipelineRun_ParsesErrorsAndFinishedAt(t *testing.T) {
	st, mock := newMockStore(t)
	finished := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "run_uuid", "started_at", "finished_at", "status", "listings_scraped", "listings_gated",
		"properties_merged", "properties_enriched", "properties_analyzed", "notifications_sent", "errors",
	}).AddRow(int64(9), "run-uuid", finished.Add(-time.Hour), finished, string(models.RunCompleted), 10, 8, 4, 3, 3, 1, "boom\nagain")

	mock.ExpectQuery(`SELECT id, run_uuid, started_at`).
		WithArgs(models.RunCompleted, models.RunFailed).
		WillReturnRows(rows)

	run, err := st.GetLastPipelineRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, int64(9), run.ID)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, []string{"boom", "again"}, run.Errors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPendingNotification_ScansTrackedProperties(t *testing.T) {
	st, mock := newMockStore(t)

	rows := sqlmock.NewRows(propertyRowColumns()).
		AddRow(propertyRowValues("rightmove:123", models.EnrichmentEnriched, models.NotificationPending)...)
	mock.ExpectQuery(`SELECT .* FROM properties`).WithArgs(models.NotificationPending).WillReturnRows(rows)
	mock.ExpectQuery(`SELECT url, source, image_type, local_path, width_pixels`).
		WithArgs("rightmove:123").WillReturnRows(sqlmock.NewRows([]string{"url", "source", "image_type", "local_path", "width_pixels"}))
	mock.ExpectQuery(`SELECT analysis FROM quality_analyses`).
		WithArgs("rightmove:123").WillReturnError(sql.ErrNoRows)

	got, err := st.GetPendingNotification(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.NotificationPending, got[0].NotificationStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkNotified_UpdatesStatusAndTimestamp(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE properties`).
		WithArgs(models.NotificationSent, "rightmove:123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := st.MarkNotified(context.Background(), "rightmove:123")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkNotificationFailed_UpdatesStatus(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE properties`).
		WithArgs(models.NotificationFailed, "rightmove:123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := st.MarkNotificationFailed(context.Background(), "rightmove:123")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
