package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"storefront/internal/aws"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/model"
	"storefront/internal/orchestrator"
	"storefront/internal/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrImportNotFound is re-exported so handlers can branch without importing
// the database package directly.
var ErrImportNotFound = database.ErrImportNotFound

// ImportController handles the lifecycle of bulk catalog imports on the
// server side: submission, status reads, listings and the cancellation gate.
type ImportController interface {
	// SubmitImport stores the uploaded spreadsheet, records a pending job
	// and dispatches it to the worker queue
	SubmitImport(ctx context.Context, storeID, filename string, file io.Reader, cfg model.ImportConfig, tokenID string) (*model.ImportJob, error)

	// GetImport returns the current job snapshot, serving terminal jobs
	// from the result cache when possible
	GetImport(ctx context.Context, jobID string) (*model.ImportJob, error)

	// ListImports returns jobs newest first, optionally scoped to a store
	ListImports(ctx context.Context, storeID string, limit, offset int) ([]*model.ImportJob, error)

	// CancelImport attempts the guarded pending-only cancellation. The
	// boolean reports whether the job was actually cancelled.
	CancelImport(ctx context.Context, jobID string) (bool, error)

	// Template returns the CSV template operators download before filling
	// in their catalog
	Template() []byte
}

type importController struct {
	db        database.ImportDatabase
	files     aws.FileService
	cache     cache.Cache
	rabbit    rabbitmq.Client
	rabbitCfg config.RabbitMQConfig
}

// NewImportController creates a new import controller
func NewImportController(db database.ImportDatabase, files aws.FileService, cache cache.Cache,
	rabbit rabbitmq.Client, rabbitCfg config.RabbitMQConfig) ImportController {
	return &importController{
		db:        db,
		files:     files,
		cache:     cache,
		rabbit:    rabbit,
		rabbitCfg: rabbitCfg,
	}
}

// SubmitImport creates a pending job and enqueues it for the worker
func (c *importController) SubmitImport(ctx context.Context, storeID, filename string, file io.Reader,
	cfg model.ImportConfig, tokenID string) (*model.ImportJob, error) {

	fileKey := aws.ImportObjectKey(storeID, filename)
	if _, err := c.files.UploadFile(ctx, fileKey, file); err != nil {
		return nil, fmt.Errorf("failed to store uploaded file: %w", err)
	}

	job := &model.ImportJob{
		ID:       primitive.NewObjectID(),
		StoreID:  storeID,
		Filename: filename,
		FileKey:  fileKey,
		Config:   cfg,
		TokenID:  tokenID,
	}

	if err := c.db.CreateImport(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create import job: %w", err)
	}

	if err := c.enqueueImport(job); err != nil {
		// The job exists but will never be picked up; fail it so the
		// operator is not left polling a dead pending job
		if failErr := c.db.FailImport(ctx, job.ID, "failed to dispatch import job"); failErr != nil {
			log.Error().Err(failErr).Str("jobId", job.ID.Hex()).Msg("Failed to mark undispatched job as failed")
		}
		return job, fmt.Errorf("failed to enqueue import job: %w", err)
	}

	log.Info().
		Str("jobId", job.ID.Hex()).
		Str("storeId", storeID).
		Str("filename", filename).
		Msg("Import job created and enqueued")

	return job, nil
}

// enqueueImport publishes the job id to RabbitMQ; the full job lives in
// MongoDB
func (c *importController) enqueueImport(job *model.ImportJob) error {
	headers := amqp.Table{
		"job_id":   job.ID.Hex(),
		"store_id": job.StoreID,
	}

	message := map[string]string{
		"job_id": job.ID.Hex(),
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = c.rabbit.Publish(
		c.rabbitCfg.ExchangeName,
		c.rabbitCfg.RoutingKey,
		messageBytes,
		headers,
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

// GetImport returns the current snapshot of a job
func (c *importController) GetImport(ctx context.Context, jobID string) (*model.ImportJob, error) {
	id, err := primitive.ObjectIDFromHex(jobID)
	if err != nil {
		return nil, ErrImportNotFound
	}

	// Terminal jobs never change again, so the cached snapshot is safe
	if c.cache != nil {
		if payload, err := c.cache.Get(ctx, orchestrator.ResultCacheKey(id)); err == nil {
			var job model.ImportJob
			if err := json.Unmarshal(payload, &job); err == nil {
				return &job, nil
			}
			log.Warn().Str("jobId", jobID).Msg("Discarding undecodable cached import result")
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Err(err).Str("jobId", jobID).Msg("Result cache read failed, falling back to database")
		}
	}

	return c.db.GetImportByID(ctx, id)
}

// ListImports lists jobs newest first
func (c *importController) ListImports(ctx context.Context, storeID string, limit, offset int) ([]*model.ImportJob, error) {
	if storeID != "" {
		return c.db.ListImportsByStore(ctx, storeID, limit, offset)
	}
	return c.db.ListImports(ctx, limit, offset)
}

// CancelImport runs the guarded pending-only cancellation
func (c *importController) CancelImport(ctx context.Context, jobID string) (bool, error) {
	id, err := primitive.ObjectIDFromHex(jobID)
	if err != nil {
		return false, ErrImportNotFound
	}

	cancelled, err := c.db.CancelPendingImport(ctx, id)
	if err != nil {
		return false, err
	}

	if cancelled {
		log.Info().Str("jobId", jobID).Msg("Import job cancelled")
	}

	return cancelled, nil
}

// Template returns the catalog CSV template
func (c *importController) Template() []byte {
	return []byte(orchestrator.TemplateCSV)
}
