package database

import (
	"context"
	"errors"
	"storefront/internal/model"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrImportNotFound is returned when no import job matches the given id
var ErrImportNotFound = errors.New("import job not found")

// ImportDatabase defines import-job-related database operations
type ImportDatabase interface {
	// Create a new import job in state pending
	CreateImport(ctx context.Context, job *model.ImportJob) error

	// Get an import job by ID
	GetImportByID(ctx context.Context, id primitive.ObjectID) (*model.ImportJob, error)

	// List import jobs, newest first
	ListImports(ctx context.Context, limit, offset int) ([]*model.ImportJob, error)

	// List import jobs for one store, newest first
	ListImportsByStore(ctx context.Context, storeID string, limit, offset int) ([]*model.ImportJob, error)

	// Transition pending -> processing and stamp started_at
	MarkImportProcessing(ctx context.Context, id primitive.ObjectID, totalProducts int) error

	// Update the processing counters
	UpdateImportCounters(ctx context.Context, id primitive.ObjectID, processed, successful, failed, warnings int) error

	// Append row-level outcome logs
	AppendImportLogs(ctx context.Context, id primitive.ObjectID, logs []model.ImportLog) error

	// Transition processing -> completed and stamp completed_at
	CompleteImport(ctx context.Context, id primitive.ObjectID) error

	// Transition to failed with an error message
	FailImport(ctx context.Context, id primitive.ObjectID, errorMsg string) error

	// Conditionally transition pending -> cancelled. Returns true when the
	// guard matched and the job was cancelled, false when it was a no-op.
	CancelPendingImport(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// CreateImport inserts a new import job
func (m *mongoDB) CreateImport(ctx context.Context, job *model.ImportJob) error {
	if job.ID.IsZero() {
		job.ID = primitive.NewObjectID()
	}

	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	job.Status = model.ImportPending

	if job.Logs == nil {
		job.Logs = []model.ImportLog{}
	}

	_, err := m.importsCol.InsertOne(ctx, job)
	if err != nil {
		log.Error().Err(err).Str("jobID", job.ID.Hex()).Msg("Failed to create import job")
		return err
	}

	log.Debug().Str("jobID", job.ID.Hex()).Str("storeID", job.StoreID).Str("filename", job.Filename).Msg("Created import job")
	return nil
}

// GetImportByID retrieves an import job by its ID
func (m *mongoDB) GetImportByID(ctx context.Context, id primitive.ObjectID) (*model.ImportJob, error) {
	var job model.ImportJob
	err := m.importsCol.FindOne(ctx, bson.M{"_id": id}).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrImportNotFound
		}
		log.Error().Err(err).Str("jobID", id.Hex()).Msg("Failed to get import job")
		return nil, err
	}

	return &job, nil
}

// ListImports retrieves import jobs across all stores, newest first
func (m *mongoDB) ListImports(ctx context.Context, limit, offset int) ([]*model.ImportJob, error) {
	return m.findImports(ctx, bson.M{}, limit, offset)
}

// ListImportsByStore retrieves import jobs for a single store, newest first
func (m *mongoDB) ListImportsByStore(ctx context.Context, storeID string, limit, offset int) ([]*model.ImportJob, error) {
	return m.findImports(ctx, bson.M{"store_id": storeID}, limit, offset)
}

func (m *mongoDB) findImports(ctx context.Context, filter bson.M, limit, offset int) ([]*model.ImportJob, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(int64(offset)).
		SetSort(bson.M{"created_at": -1})

	cursor, err := m.importsCol.Find(ctx, filter, opts)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list import jobs")
		return nil, err
	}
	defer cursor.Close(ctx)

	var jobs []*model.ImportJob
	if err := cursor.All(ctx, &jobs); err != nil {
		log.Error().Err(err).Msg("Failed to decode import jobs")
		return nil, err
	}

	return jobs, nil
}

// MarkImportProcessing flips a job to processing and records the row count
func (m *mongoDB) MarkImportProcessing(ctx context.Context, id primitive.ObjectID, totalProducts int) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"status":         model.ImportProcessing,
			"total_products": totalProducts,
			"started_at":     now,
			"updated_at":     now,
		},
	}

	result, err := m.importsCol.UpdateOne(ctx, bson.M{"_id": id, "status": model.ImportPending}, update)
	if err != nil {
		log.Error().Err(err).Str("jobID", id.Hex()).Msg("Failed to mark import processing")
		return err
	}
	if result.MatchedCount == 0 {
		return ErrImportNotFound
	}

	log.Debug().Str("jobID", id.Hex()).Int("totalProducts", totalProducts).Msg("Import job processing")
	return nil
}

// UpdateImportCounters updates the progress counters for a job
func (m *mongoDB) UpdateImportCounters(ctx context.Context, id primitive.ObjectID, processed, successful, failed, warnings int) error {
	update := bson.M{
		"$set": bson.M{
			"processed_products":  processed,
			"successful_products": successful,
			"failed_products":     failed,
			"warning_products":    warnings,
			"updated_at":          time.Now(),
		},
	}

	_, err := m.importsCol.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		log.Error().Err(err).Str("jobID", id.Hex()).Msg("Failed to update import counters")
		return err
	}

	log.Debug().Str("jobID", id.Hex()).Int("processed", processed).Msg("Updated import counters")
	return nil
}

// AppendImportLogs appends row-level outcomes to the job's log list
func (m *mongoDB) AppendImportLogs(ctx context.Context, id primitive.ObjectID, logs []model.ImportLog) error {
	if len(logs) == 0 {
		return nil
	}

	update := bson.M{
		"$push": bson.M{
			"logs": bson.M{
				"$each": logs,
			},
		},
		"$set": bson.M{
			"updated_at": time.Now(),
		},
	}

	_, err := m.importsCol.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		log.Error().Err(err).Str("jobID", id.Hex()).Int("logCount", len(logs)).Msg("Failed to append import logs")
		return err
	}

	log.Debug().Str("jobID", id.Hex()).Int("logCount", len(logs)).Msg("Appended import logs")
	return nil
}

// CompleteImport marks a processing job as completed. The worker must have
// persisted the full log list before calling this; pollers treat the
// completed snapshot as final.
func (m *mongoDB) CompleteImport(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"status":       model.ImportCompleted,
			"completed_at": now,
			"updated_at":   now,
		},
	}

	result, err := m.importsCol.UpdateOne(ctx, bson.M{"_id": id, "status": model.ImportProcessing}, update)
	if err != nil {
		log.Error().Err(err).Str("jobID", id.Hex()).Msg("Failed to complete import")
		return err
	}
	if result.MatchedCount == 0 {
		return ErrImportNotFound
	}

	log.Debug().Str("jobID", id.Hex()).Msg("Import job completed")
	return nil
}

// FailImport marks a non-terminal job as failed with an error message. The
// status guard keeps jobs that already reached a terminal state untouched,
// so a late failure report can never overwrite a cancellation.
func (m *mongoDB) FailImport(ctx context.Context, id primitive.ObjectID, errorMsg string) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"status":        model.ImportFailed,
			"error_message": errorMsg,
			"completed_at":  now,
			"updated_at":    now,
		},
	}

	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": []model.ImportStatus{model.ImportPending, model.ImportProcessing}},
	}

	result, err := m.importsCol.UpdateOne(ctx, filter, update)
	if err != nil {
		log.Error().Err(err).Str("jobID", id.Hex()).Str("error", errorMsg).Msg("Failed to mark import failed")
		return err
	}
	if result.MatchedCount == 0 {
		log.Debug().Str("jobID", id.Hex()).Msg("Job already terminal, failure not recorded")
		return nil
	}

	log.Debug().Str("jobID", id.Hex()).Str("error", errorMsg).Msg("Import job failed")
	return nil
}

// CancelPendingImport performs the guarded cancellation update. The filter
// carries the status so the check and the write are a single atomic
// operation; a job that already moved to processing is left untouched.
func (m *mongoDB) CancelPendingImport(ctx context.Context, id primitive.ObjectID) (bool, error) {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"status":       model.ImportCancelled,
			"completed_at": now,
			"updated_at":   now,
		},
	}

	result, err := m.importsCol.UpdateOne(ctx, bson.M{"_id": id, "status": model.ImportPending}, update)
	if err != nil {
		log.Error().Err(err).Str("jobID", id.Hex()).Msg("Failed to cancel import")
		return false, err
	}

	cancelled := result.MatchedCount > 0
	log.Debug().Str("jobID", id.Hex()).Bool("cancelled", cancelled).Msg("Cancellation attempt")
	return cancelled, nil
}
