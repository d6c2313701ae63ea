package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultPollInterval is the fixed cadence of the status poller
	DefaultPollInterval = 2 * time.Second

	// DefaultMaxAttempts caps one polling session at roughly five minutes
	DefaultMaxAttempts = 150
)

// Client talks to the storefront import API: it submits spreadsheets, polls
// job status, lists historical jobs and operates the cancellation gate. One
// Client is safe for concurrent use; each Watch call is its own session.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	clock        Clock
	pollInterval time.Duration
	maxAttempts  int
}

// New creates an import API client with the default polling budget
func New(baseURL, token string) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      baseURL,
		token:        token,
		clock:        systemClock{},
		pollInterval: DefaultPollInterval,
		maxAttempts:  DefaultMaxAttempts,
	}
}

// Submit uploads a catalog spreadsheet for a store and returns the job id
// assigned by the server. Transport errors, auth errors and server-side
// rejections are all surfaced as a single error string; none of them are
// retried here.
func (c *Client) Submit(ctx context.Context, storeID, filename string, file io.Reader, cfg ImportConfig) SubmitOutcome {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return SubmitOutcome{Error: fmt.Sprintf("could not build upload: %v", err)}
	}
	if _, err := io.Copy(part, file); err != nil {
		return SubmitOutcome{Error: fmt.Sprintf("could not read file: %v", err)}
	}

	fields := map[string]bool{
		"createCategories": cfg.CreateCategories,
		"updateExisting":   cfg.UpdateExisting,
		"strictValidation": cfg.StrictValidation,
		"uploadImages":     cfg.UploadImages,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, strconv.FormatBool(value)); err != nil {
			return SubmitOutcome{Error: fmt.Sprintf("could not build upload: %v", err)}
		}
	}

	if err := writer.Close(); err != nil {
		return SubmitOutcome{Error: fmt.Sprintf("could not build upload: %v", err)}
	}

	url := fmt.Sprintf("%s/stores/%s/imports", c.baseURL, storeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return SubmitOutcome{Error: fmt.Sprintf("could not create request: %v", err)}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SubmitOutcome{Error: fmt.Sprintf("upload failed: %v", err)}
	}
	defer resp.Body.Close()

	var envelope struct {
		Success bool   `json:"success"`
		JobID   string `json:"jobId"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return SubmitOutcome{Error: fmt.Sprintf("unreadable server response: %v", err)}
	}

	if !envelope.Success || envelope.JobID == "" {
		msg := envelope.Error
		if msg == "" {
			msg = fmt.Sprintf("server rejected the upload (HTTP %d)", resp.StatusCode)
		}
		return SubmitOutcome{Error: msg}
	}

	log.Debug().Str("jobId", envelope.JobID).Str("storeId", storeID).Msg("Import submitted")
	return SubmitOutcome{Success: true, JobID: envelope.JobID}
}

// ListImports returns the import job registry, newest first, optionally
// scoped to one store. This is a point-in-time read, independent of any
// polling session, and always returns a fresh list.
func (c *Client) ListImports(ctx context.Context, storeID string) ListOutcome {
	url := c.baseURL + "/imports"
	if storeID != "" {
		url += "?storeId=" + storeID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ListOutcome{Error: fmt.Sprintf("could not create request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ListOutcome{Error: fmt.Sprintf("listing failed: %v", err)}
	}
	defer resp.Body.Close()

	var envelope struct {
		Success bool         `json:"success"`
		Jobs    []JobSummary `json:"jobs"`
		Error   string       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return ListOutcome{Error: fmt.Sprintf("unreadable server response: %v", err)}
	}

	if !envelope.Success {
		msg := envelope.Error
		if msg == "" {
			msg = fmt.Sprintf("server refused the listing (HTTP %d)", resp.StatusCode)
		}
		return ListOutcome{Error: msg}
	}

	return ListOutcome{Success: true, Jobs: envelope.Jobs}
}

// Cancel attempts the pending-only cancellation gate. The boolean reports
// whether the job was actually cancelled; false means the guard did not
// match, and the caller cannot tell "already processing" from "already
// gone" — that ambiguity is part of the contract.
func (c *Client) Cancel(ctx context.Context, jobID string) (bool, error) {
	url := fmt.Sprintf("%s/imports/%s/cancel", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return false, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("cancel failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Success   bool   `json:"success"`
		Cancelled bool   `json:"cancelled"`
		Error     string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return false, fmt.Errorf("unreadable server response: %w", err)
	}

	if !envelope.Success {
		if envelope.Error != "" {
			return false, fmt.Errorf("cancel failed: %s", envelope.Error)
		}
		return false, fmt.Errorf("cancel failed (HTTP %d)", resp.StatusCode)
	}

	return envelope.Cancelled, nil
}

// DownloadTemplate fetches the catalog CSV template and writes it to a
// local file. Download only: no polling, no state.
func (c *Client) DownloadTemplate(ctx context.Context, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/imports/template", nil)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("template download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("template download failed (HTTP %d)", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("template download failed: %w", err)
	}

	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return fmt.Errorf("could not write template: %w", err)
	}

	return nil
}

// jobSnapshot mirrors the status endpoint payload
type jobSnapshot struct {
	Job struct {
		ID                 string `json:"id"`
		Status             string `json:"status"`
		TotalProducts      int    `json:"totalProducts"`
		ProcessedProducts  int    `json:"processedProducts"`
		SuccessfulProducts int    `json:"successfulProducts"`
		FailedProducts     int    `json:"failedProducts"`
		ErrorMessage       string `json:"errorMessage"`
	} `json:"job"`
	Statistics struct {
		Total   int `json:"total"`
		Success int `json:"success"`
		Errors  int `json:"errors"`
	} `json:"statistics"`
	Logs []ImportLog `json:"logs"`
}

// checkCounters rejects snapshots that violate the counter invariants. A
// store that reports impossible numbers cannot be trusted for progress.
func (s *jobSnapshot) checkCounters() error {
	j := s.Job
	if j.TotalProducts < 0 || j.ProcessedProducts < 0 || j.SuccessfulProducts < 0 || j.FailedProducts < 0 {
		return fmt.Errorf("invalid job snapshot: negative counter")
	}
	if j.ProcessedProducts > j.TotalProducts {
		return fmt.Errorf("invalid job snapshot: processed %d exceeds total %d", j.ProcessedProducts, j.TotalProducts)
	}
	if j.SuccessfulProducts+j.FailedProducts > j.ProcessedProducts {
		return fmt.Errorf("invalid job snapshot: successful %d + failed %d exceed processed %d",
			j.SuccessfulProducts, j.FailedProducts, j.ProcessedProducts)
	}
	return nil
}

// fetchStatus performs one status query. The caller treats any error as
// terminal; the query itself is never retried.
func (c *Client) fetchStatus(ctx context.Context, jobID string) (*jobSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/imports/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status query failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Success bool         `json:"success"`
		Data    *jobSnapshot `json:"data"`
		Error   string       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("unreadable status response: %w", err)
	}

	if !envelope.Success || envelope.Data == nil {
		if envelope.Error != "" {
			return nil, fmt.Errorf("status query failed: %s", envelope.Error)
		}
		return nil, fmt.Errorf("status query failed (HTTP %d)", resp.StatusCode)
	}

	return envelope.Data, nil
}
