package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront/internal/aws"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/model"
	"storefront/internal/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ImportWorker consumes catalog import jobs from the broker and executes
// them: it streams the uploaded spreadsheet out of S3, validates each row,
// keeps the job's counters and logs current in the job store, and performs
// the terminal transition.
type ImportWorker struct {
	db          database.ImportDatabase
	files       aws.FileService
	cache       cache.Cache
	rabbit      rabbitmq.Client
	rabbitCfg   config.RabbitMQConfig
	importsCfg  config.ImportsConfig
	consumerTag string
	shutdown    chan struct{}
	wg          sync.WaitGroup
}

func NewImportWorker(db database.ImportDatabase, files aws.FileService, cache cache.Cache,
	rabbit rabbitmq.Client, rabbitCfg config.RabbitMQConfig, importsCfg config.ImportsConfig) *ImportWorker {
	if importsCfg.BatchSize <= 0 {
		importsCfg.BatchSize = 25
	}

	return &ImportWorker{
		db:         db,
		files:      files,
		cache:      cache,
		rabbit:     rabbit,
		rabbitCfg:  rabbitCfg,
		importsCfg: importsCfg,
		shutdown:   make(chan struct{}),
	}
}

// Start declares the broker topology and begins consuming import jobs
func (w *ImportWorker) Start(ctx context.Context) error {
	if err := w.rabbit.DeclareExchange(w.rabbitCfg.ExchangeName, "direct"); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	queue, err := w.rabbit.DeclareQueue(w.rabbitCfg.QueueName)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", w.rabbitCfg.QueueName, err)
	}

	if err := w.rabbit.BindQueue(w.rabbitCfg.QueueName, w.rabbitCfg.ExchangeName, w.rabbitCfg.RoutingKey); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", w.rabbitCfg.QueueName, err)
	}

	w.consumerTag = fmt.Sprintf("imports-consumer-%s", primitive.NewObjectID().Hex())
	w.startConsumer(ctx, queue.Name, w.consumerTag)

	log.Info().Str("queue", queue.Name).Msg("Import worker started")
	return nil
}

// Stop shuts down the consumer loop and waits for in-flight work
func (w *ImportWorker) Stop() {
	close(w.shutdown)
	w.wg.Wait()
	log.Info().Msg("Import worker stopped")
}

func (w *ImportWorker) startConsumer(ctx context.Context, queueName, consumerTag string) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		log.Info().
			Str("queue", queueName).
			Str("consumerTag", consumerTag).
			Msg("Starting import consumer")

		for {
			select {
			case <-ctx.Done():
				log.Info().Str("consumerTag", consumerTag).Msg("Context cancelled, stopping consumer")
				return
			case <-w.shutdown:
				log.Info().Str("consumerTag", consumerTag).Msg("Shutdown signal received, stopping consumer")
				return
			default:
				// Continue processing
			}

			deliveries, err := w.rabbit.Consume(queueName, consumerTag)
			if err != nil {
				log.Error().
					Err(err).
					Str("queue", queueName).
					Msg("Failed to consume from queue")

				time.Sleep(5 * time.Second)
				continue
			}

			for delivery := range deliveries {
				w.processDelivery(ctx, delivery)
			}

			log.Warn().
				Str("queue", queueName).
				Str("consumerTag", consumerTag).
				Msg("Consumer channel closed, reconnecting...")

			time.Sleep(5 * time.Second)
		}
	}()
}

// processDelivery handles a single delivery
func (w *ImportWorker) processDelivery(ctx context.Context, delivery amqp.Delivery) {
	jobIDStr, ok := delivery.Headers["job_id"].(string)
	if !ok {
		log.Error().Msg("Message missing job_id header, rejecting")
		delivery.Nack(false, false) // Don't requeue malformed messages
		return
	}

	jobID, err := primitive.ObjectIDFromHex(jobIDStr)
	if err != nil {
		log.Error().Str("jobId", jobIDStr).Msg("Malformed job_id header, rejecting")
		delivery.Nack(false, false)
		return
	}

	logger := log.With().Str("jobId", jobID.Hex()).Logger()
	logger.Info().Msg("Processing import message")

	job, err := w.db.GetImportByID(ctx, jobID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to retrieve import job from database")
		delivery.Nack(false, false)
		return
	}

	if err := w.Process(ctx, job); err != nil {
		logger.Error().Err(err).Msg("Import processing failed")
		if failErr := w.db.FailImport(ctx, job.ID, err.Error()); failErr != nil {
			logger.Error().Err(failErr).Msg("Failed to mark import as failed")
		}
	}

	delivery.Ack(false)
}

// Process runs one import job end to end. The job must be in state pending;
// anything else (a cancellation won the race, a redelivered message) is
// skipped without touching the job.
func (w *ImportWorker) Process(ctx context.Context, job *model.ImportJob) error {
	logger := log.With().Str("jobId", job.ID.Hex()).Str("storeId", job.StoreID).Logger()

	if job.Status != model.ImportPending {
		logger.Info().Str("status", string(job.Status)).Msg("Import job no longer pending, skipping")
		return nil
	}

	body, err := w.files.DownloadFile(ctx, job.FileKey)
	if err != nil {
		return fmt.Errorf("could not read uploaded file: %w", err)
	}
	defer body.Close()

	rows, err := ParseCatalog(body)
	if err != nil {
		return fmt.Errorf("invalid spreadsheet: %w", err)
	}

	if err := w.db.MarkImportProcessing(ctx, job.ID, len(rows)); err != nil {
		if errors.Is(err, database.ErrImportNotFound) {
			// The cancellation gate won between our read and the claim;
			// the job is terminal now and must stay that way
			logger.Info().Msg("Import job claim lost, skipping")
			return nil
		}
		return fmt.Errorf("failed to claim import job: %w", err)
	}

	var processed, successful, failed, warnings int
	seenSKUs := make(map[string]bool, len(rows))

	for _, batch := range SplitIntoBatches(rows, w.importsCfg.BatchSize) {
		logs := make([]model.ImportLog, 0, len(batch))
		for _, row := range batch {
			entry := ProcessRow(row, job.Config, seenSKUs)
			logs = append(logs, entry)

			processed++
			switch entry.Status {
			case model.RowSuccess:
				successful++
			case model.RowError:
				failed++
			case model.RowWarning:
				warnings++
			}
		}

		// Logs land before counters so a poller never sees counts
		// that claim rows whose outcomes are not yet readable.
		if err := w.db.AppendImportLogs(ctx, job.ID, logs); err != nil {
			return fmt.Errorf("failed to persist row logs: %w", err)
		}
		if err := w.db.UpdateImportCounters(ctx, job.ID, processed, successful, failed, warnings); err != nil {
			return fmt.Errorf("failed to persist counters: %w", err)
		}
	}

	if err := w.db.CompleteImport(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to complete import: %w", err)
	}

	w.cacheResult(ctx, job.ID)

	logger.Info().
		Int("total", len(rows)).
		Int("successful", successful).
		Int("failed", failed).
		Int("warnings", warnings).
		Msg("Import job completed")

	return nil
}

// ResultCacheKey names the cached terminal snapshot for a job
func ResultCacheKey(id primitive.ObjectID) string {
	return "import_result:" + id.Hex()
}

// cacheResult stores the terminal snapshot so status polls of a finished
// job are served from Redis. Best effort: a cache failure never fails the
// import.
func (w *ImportWorker) cacheResult(ctx context.Context, id primitive.ObjectID) {
	if w.cache == nil {
		return
	}

	job, err := w.db.GetImportByID(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("jobId", id.Hex()).Msg("Could not reload job for result caching")
		return
	}

	payload, err := json.Marshal(job)
	if err != nil {
		log.Warn().Err(err).Str("jobId", id.Hex()).Msg("Could not marshal job for result caching")
		return
	}

	ttl := time.Duration(w.importsCfg.ResultCacheTTL) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}

	if err := w.cache.Set(ctx, ResultCacheKey(id), payload, ttl); err != nil {
		log.Warn().Err(err).Str("jobId", id.Hex()).Msg("Could not cache import result")
	}
}
