package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lattes-dw/config"
	"lattes-dw/models"
	"lattes-dw/pipeline"
	"lattes-dw/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func s(v string) *string { return &v }

func testServer(t *testing.T, apiKey string) (*gin.Engine, *pipeline.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		DBDriver:         config.DriverSQLite,
		APISecretKey:     apiKey,
		Sentinel:         "Não se aplica.",
		MinYear:          1900,
		MaxYear:          2025,
		FactYearCutoff:   2026,
		ValidatorMaxYear: 2026,
		InsertBatchSize:  100,
	}
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := storage.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	require.NoError(t, storage.Migrate(context.Background(), db, storage.Schemas{}, true))
	require.NoError(t, db.Create(&models.StageResearcher{LattesID: s("7"), Name: s("maria")}).Error)
	require.NoError(t, db.Create(&models.StageArticle{LattesID: s("7"), Year: s("2018")}).Error)

	svc, err := pipeline.NewService(context.Background(), cfg, db, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	return newRouter(cfg, svc, zaptest.NewLogger(t)), svc
}

func do(r http.Handler, method, path string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAPIKeyMiddleware(t *testing.T) {
	r, _ := testServer(t, "secret")

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/pipeline/runs").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/pipeline/runs", "X-API-KEY", "secret").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz").Code)
}

func TestPipelineRoutes_RunAndInspect(t *testing.T) {
	r, _ := testServer(t, "")

	w := do(r, http.MethodPost, "/pipeline/run")
	require.Equal(t, http.StatusAccepted, w.Code)

	var runs []models.PipelineRun
	require.Eventually(t, func() bool {
		w := do(r, http.MethodGet, "/pipeline/runs")
		if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &runs) != nil {
			return false
		}
		return len(runs) == 1 && runs[0].Status != models.RunRunning
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, models.RunSucceeded, runs[0].Status)
	assert.Equal(t, "api", runs[0].Trigger)

	w = do(r, http.MethodGet, fmt.Sprintf("/pipeline/runs/%d", runs[0].ID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dim_pesquisador")
	assert.Contains(t, w.Body.String(), "ANOMALY", "empty area facts are reported, not fatal")

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/pipeline/runs/999").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/pipeline/runs/abc").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/pipeline/runs?limit=0").Code)
}

func TestPipelineRoutes_Steps(t *testing.T) {
	r, _ := testServer(t, "")

	w := do(r, http.MethodGet, "/pipeline/steps")
	require.Equal(t, http.StatusOK, w.Code)
	var steps []struct {
		Name      string   `json:"name"`
		DependsOn []string `json:"depends_on"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &steps))
	assert.Equal(t, pipeline.StepTruncate, steps[0].Name)
	assert.Equal(t, pipeline.StepValidate, steps[len(steps)-1].Name)

	w = do(r, http.MethodPost, "/pipeline/steps/dim_pesquisador")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"inserted":1`)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/pipeline/steps/nope").Code)
}

func TestValidationRoute(t *testing.T) {
	r, svc := testServer(t, "")
	_, err := svc.Runner.Run(context.Background(), "test")
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/validation")
	require.Equal(t, http.StatusOK, w.Code)
	var report struct {
		RowCounts map[string]int64 `json:"row_counts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, int64(1), report.RowCounts["dim_pesquisador"])

	w = do(r, http.MethodGet, "/validation?format=text")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "anomalies")
}
