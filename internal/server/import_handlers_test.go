package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/config"
	"storefront/internal/controller"
	"storefront/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeImportController records the arguments handlers pass down and returns
// canned results
type fakeImportController struct {
	submitted *model.ImportJob
	submitErr error
	submitCfg model.ImportConfig

	job    *model.ImportJob
	getErr error

	jobs    []*model.ImportJob
	listErr error

	cancelled bool
	cancelErr error
}

func (f *fakeImportController) SubmitImport(ctx context.Context, storeID, filename string, file io.Reader,
	cfg model.ImportConfig, tokenID string) (*model.ImportJob, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitCfg = cfg
	f.submitted = &model.ImportJob{
		ID:       primitive.NewObjectID(),
		StoreID:  storeID,
		Filename: filename,
		Status:   model.ImportPending,
		Config:   cfg,
		TokenID:  tokenID,
	}
	return f.submitted, nil
}

func (f *fakeImportController) GetImport(ctx context.Context, jobID string) (*model.ImportJob, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.job, nil
}

func (f *fakeImportController) ListImports(ctx context.Context, storeID string, limit, offset int) ([]*model.ImportJob, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.jobs, nil
}

func (f *fakeImportController) CancelImport(ctx context.Context, jobID string) (bool, error) {
	if f.cancelErr != nil {
		return false, f.cancelErr
	}
	return f.cancelled, nil
}

func (f *fakeImportController) Template() []byte {
	return []byte("name,sku,price\n")
}

func testServer(ic controller.ImportController) *Server {
	return &Server{
		ic: ic,
		config: config.Config{
			Imports: config.ImportsConfig{MaxFileSizeMB: 1},
		},
	}
}

func multipartUpload(t *testing.T, filename, contents string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(contents))
	require.NoError(t, err)

	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	require.NoError(t, writer.Close())

	return &body, writer.FormDataContentType()
}

func TestSubmitImportHandler_CreatesJob(t *testing.T) {
	ic := &fakeImportController{}
	s := testServer(ic)

	body, contentType := multipartUpload(t, "catalog.csv", "name,sku,price\nCamiseta,SKU-1,10\n",
		map[string]string{"createCategories": "true", "strictValidation": "true"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/stores/store-9/imports", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Params = gin.Params{{Key: "storeId", Value: "store-9"}}
	c.Set("tokenID", "tok-1")

	s.SubmitImportHandler(c)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Success bool   `json:"success"`
		JobID   string `json:"jobId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, ic.submitted.ID.Hex(), resp.JobID)

	require.Equal(t, "store-9", ic.submitted.StoreID)
	require.Equal(t, "catalog.csv", ic.submitted.Filename)
	require.Equal(t, "tok-1", ic.submitted.TokenID)
	require.True(t, ic.submitCfg.CreateCategories)
	require.True(t, ic.submitCfg.StrictValidation)
	require.False(t, ic.submitCfg.UpdateExisting)
}

func TestSubmitImportHandler_RequiresFile(t *testing.T) {
	s := testServer(&fakeImportController{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/stores/store-9/imports", nil)
	c.Params = gin.Params{{Key: "storeId", Value: "store-9"}}
	c.Set("tokenID", "tok-1")

	s.SubmitImportHandler(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "spreadsheet file is required")
}

func TestSubmitImportHandler_RejectsOversizedFile(t *testing.T) {
	s := testServer(&fakeImportController{})

	big := make([]byte, 2<<20) // 2 MB against a 1 MB cap
	body, contentType := multipartUpload(t, "catalog.csv", string(big), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/stores/store-9/imports", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Params = gin.Params{{Key: "storeId", Value: "store-9"}}
	c.Set("tokenID", "tok-1")

	s.SubmitImportHandler(c)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestSubmitImportHandler_RequiresToken(t *testing.T) {
	s := testServer(&fakeImportController{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/stores/store-9/imports", nil)
	c.Params = gin.Params{{Key: "storeId", Value: "store-9"}}

	s.SubmitImportHandler(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetImportHandler_ReturnsSnapshot(t *testing.T) {
	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	job := &model.ImportJob{
		ID:                 primitive.NewObjectID(),
		StoreID:            "store-9",
		Filename:           "catalog.csv",
		Status:             model.ImportProcessing,
		TotalProducts:      10,
		ProcessedProducts:  5,
		SuccessfulProducts: 4,
		FailedProducts:     1,
		CreatedAt:          started,
		StartedAt:          &started,
		Logs: []model.ImportLog{
			{RowNumber: 2, ProductName: "Caneca", Status: model.RowError, Message: "price is required"},
		},
	}

	s := testServer(&fakeImportController{job: job})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/imports/"+job.ID.Hex(), nil)
	c.Params = gin.Params{{Key: "id", Value: job.ID.Hex()}}

	s.GetImportHandler(c)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool             `json:"success"`
		Data    ImportStatusData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, job.ID.Hex(), resp.Data.Job.ID)
	require.Equal(t, "processing", resp.Data.Job.Status)
	require.Equal(t, 5, resp.Data.Job.ProcessedProducts)
	require.Equal(t, started.Format(time.RFC3339), resp.Data.Job.StartedAt)
	require.Empty(t, resp.Data.Job.CompletedAt)
	require.Equal(t, 10, resp.Data.Statistics.Total)
	require.Equal(t, 4, resp.Data.Statistics.Success)
	require.Len(t, resp.Data.Logs, 1)
}

func TestGetImportHandler_UnknownJobIs404(t *testing.T) {
	s := testServer(&fakeImportController{getErr: controller.ErrImportNotFound})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/imports/unknown", nil)
	c.Params = gin.Params{{Key: "id", Value: "unknown"}}

	s.GetImportHandler(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "Import job not found")
}

func TestListImportsHandler_ReturnsJobs(t *testing.T) {
	jobs := []*model.ImportJob{
		{ID: primitive.NewObjectID(), StoreID: "store-9", Filename: "nov.csv", Status: model.ImportCompleted},
		{ID: primitive.NewObjectID(), StoreID: "store-9", Filename: "out.csv", Status: model.ImportFailed},
	}
	s := testServer(&fakeImportController{jobs: jobs})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/imports?storeId=store-9", nil)

	s.ListImportsHandler(c)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                `json:"success"`
		Jobs    []ImportJobResponse `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Jobs, 2)
	require.Equal(t, jobs[0].ID.Hex(), resp.Jobs[0].ID)
	require.Equal(t, "completed", resp.Jobs[0].Status)
	require.Equal(t, "failed", resp.Jobs[1].Status)
}

func TestCancelImportHandler_ReportsGateOutcome(t *testing.T) {
	cases := []struct {
		name      string
		cancelled bool
	}{
		{"guard matched", true},
		{"guard missed", false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			s := testServer(&fakeImportController{cancelled: tc.cancelled})

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/imports/abc/cancel", nil)
			c.Params = gin.Params{{Key: "id", Value: "abc"}}

			s.CancelImportHandler(c)

			require.Equal(t, http.StatusOK, w.Code)

			var resp struct {
				Success   bool `json:"success"`
				Cancelled bool `json:"cancelled"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.True(t, resp.Success)
			require.Equal(t, tc.cancelled, resp.Cancelled)
		})
	}
}

func TestCancelImportHandler_UnknownJobIs404(t *testing.T) {
	s := testServer(&fakeImportController{cancelErr: controller.ErrImportNotFound})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/imports/abc/cancel", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	s.CancelImportHandler(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportTemplateHandler_ServesCSVDownload(t *testing.T) {
	s := testServer(&fakeImportController{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/imports/template", nil)

	s.ImportTemplateHandler(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "catalog_template.csv")
	require.Equal(t, "name,sku,price\n", w.Body.String())
}
