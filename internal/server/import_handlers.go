package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/controller"
	"storefront/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ImportJobResponse is the wire representation of an import job
type ImportJobResponse struct {
	ID                 string             `json:"id"`
	StoreID            string             `json:"storeId"`
	Filename           string             `json:"filename"`
	Status             string             `json:"status"`
	Config             model.ImportConfig `json:"config"`
	TotalProducts      int                `json:"totalProducts"`
	ProcessedProducts  int                `json:"processedProducts"`
	SuccessfulProducts int                `json:"successfulProducts"`
	FailedProducts     int                `json:"failedProducts"`
	WarningProducts    int                `json:"warningProducts"`
	ErrorMessage       string             `json:"errorMessage,omitempty"`
	CreatedAt          string             `json:"createdAt"`
	StartedAt          string             `json:"startedAt,omitempty"`
	CompletedAt        string             `json:"completedAt,omitempty"`
}

// ImportStatusData is the payload of the status endpoint
type ImportStatusData struct {
	Job        ImportJobResponse      `json:"job"`
	Statistics model.ImportStatistics `json:"statistics"`
	Logs       []model.ImportLog      `json:"logs"`
}

// SubmitImportHandler accepts a multipart spreadsheet upload and starts an
// import job for the store
func (s *Server) SubmitImportHandler(c *gin.Context) {
	storeID := c.Param("storeId")
	if storeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Store ID is required"})
		return
	}

	tokenID := getTokenID(c)
	if tokenID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Token ID not found"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "A spreadsheet file is required"})
		return
	}

	maxBytes := int64(s.config.Imports.MaxFileSizeMB) << 20
	if fileHeader.Size > maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "File exceeds the maximum allowed size"})
		return
	}

	cfg := model.ImportConfig{
		CreateCategories: c.PostForm("createCategories") == "true",
		UpdateExisting:   c.PostForm("updateExisting") == "true",
		StrictValidation: c.PostForm("strictValidation") == "true",
		UploadImages:     c.PostForm("uploadImages") == "true",
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Could not read uploaded file"})
		return
	}
	defer file.Close()

	job, err := s.ic.SubmitImport(c.Request.Context(), storeID, fileHeader.Filename, file, cfg, tokenID)
	if err != nil {
		log.Error().Err(err).Str("storeId", storeID).Msg("Import submission failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to submit import: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "jobId": job.ID.Hex()})
}

// GetImportHandler returns the job snapshot, statistics and row logs
func (s *Server) GetImportHandler(c *gin.Context) {
	jobID := c.Param("id")

	job, err := s.ic.GetImport(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, controller.ErrImportNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Import job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to get import: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": ImportStatusData{
			Job:        convertImportToResponse(job),
			Statistics: job.Statistics(),
			Logs:       job.Logs,
		},
	})
}

// ListImportsHandler returns import jobs, newest first
func (s *Server) ListImportsHandler(c *gin.Context) {
	limit, offset := getPaginationParams(c)
	storeID := c.Query("storeId")

	jobs, err := s.ic.ListImports(c.Request.Context(), storeID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to list imports: " + err.Error()})
		return
	}

	response := make([]ImportJobResponse, 0, len(jobs))
	for _, job := range jobs {
		response = append(response, convertImportToResponse(job))
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "jobs": response})
}

// CancelImportHandler runs the pending-only cancellation gate. A guard miss
// is not an error: the response only reports whether the cancel took effect.
func (s *Server) CancelImportHandler(c *gin.Context) {
	jobID := c.Param("id")

	cancelled, err := s.ic.CancelImport(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, controller.ErrImportNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Import job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to cancel import: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "cancelled": cancelled})
}

// ImportTemplateHandler serves the CSV template download
func (s *Server) ImportTemplateHandler(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="catalog_template.csv"`)
	c.Data(http.StatusOK, "text/csv", s.ic.Template())
}

// convertImportToResponse converts a job model to its wire format
func convertImportToResponse(job *model.ImportJob) ImportJobResponse {
	resp := ImportJobResponse{
		ID:                 job.ID.Hex(),
		StoreID:            job.StoreID,
		Filename:           job.Filename,
		Status:             string(job.Status),
		Config:             job.Config,
		TotalProducts:      job.TotalProducts,
		ProcessedProducts:  job.ProcessedProducts,
		SuccessfulProducts: job.SuccessfulProducts,
		FailedProducts:     job.FailedProducts,
		WarningProducts:    job.WarningProducts,
		ErrorMessage:       job.ErrorMessage,
		CreatedAt:          job.CreatedAt.Format(time.RFC3339),
	}

	if job.StartedAt != nil {
		resp.StartedAt = job.StartedAt.Format(time.RFC3339)
	}
	if job.CompletedAt != nil {
		resp.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}

	return resp
}

// getPaginationParams extracts pagination parameters from request
func getPaginationParams(c *gin.Context) (int, int) {
	limit := 20
	offset := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		if parsedOffset, err := strconv.Atoi(offsetStr); err == nil && parsedOffset >= 0 {
			offset = parsedOffset
		}
	}

	return limit, offset
}
