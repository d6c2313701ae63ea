package model

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ImportStatus represents the current state of a catalog import job
type ImportStatus string

const (
	ImportPending    ImportStatus = "pending"
	ImportProcessing ImportStatus = "processing"
	ImportCompleted  ImportStatus = "completed"
	ImportFailed     ImportStatus = "failed"
	ImportCancelled  ImportStatus = "cancelled"
)

// IsTerminal reports whether no further status transitions can occur
func (s ImportStatus) IsTerminal() bool {
	return s == ImportCompleted || s == ImportFailed || s == ImportCancelled
}

// RowStatus represents the outcome of a single imported product row
type RowStatus string

const (
	RowSuccess RowStatus = "success"
	RowError   RowStatus = "error"
	RowWarning RowStatus = "warning"
)

// ImportConfig holds the options an operator chooses before submitting a file.
// The flags are independent booleans and are immutable once the job exists.
type ImportConfig struct {
	CreateCategories bool `bson:"create_categories" json:"createCategories"`
	UpdateExisting   bool `bson:"update_existing" json:"updateExisting"`
	StrictValidation bool `bson:"strict_validation" json:"strictValidation"`
	UploadImages     bool `bson:"upload_images" json:"uploadImages"`
}

// ImportLog records the outcome of processing one product row
type ImportLog struct {
	RowNumber   int       `bson:"row_number" json:"rowNumber"`
	ProductName string    `bson:"product_name" json:"productName"`
	SKU         string    `bson:"sku,omitempty" json:"sku,omitempty"`
	Status      RowStatus `bson:"status" json:"status"`
	Message     string    `bson:"message" json:"message"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
}

// ImportJob represents one bulk catalog import attempt
type ImportJob struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StoreID            string             `bson:"store_id" json:"storeId"`
	Filename           string             `bson:"filename" json:"filename"`
	FileKey            string             `bson:"file_key" json:"-"`
	Status             ImportStatus       `bson:"status" json:"status"`
	Config             ImportConfig       `bson:"config" json:"config"`
	TotalProducts      int                `bson:"total_products" json:"totalProducts"`
	ProcessedProducts  int                `bson:"processed_products" json:"processedProducts"`
	SuccessfulProducts int                `bson:"successful_products" json:"successfulProducts"`
	FailedProducts     int                `bson:"failed_products" json:"failedProducts"`
	WarningProducts    int                `bson:"warning_products" json:"warningProducts"`
	Logs               []ImportLog        `bson:"logs" json:"logs"`
	ErrorMessage       string             `bson:"error_message,omitempty" json:"errorMessage,omitempty"`
	CreatedAt          time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updatedAt"`
	StartedAt          *time.Time         `bson:"started_at,omitempty" json:"startedAt,omitempty"`
	CompletedAt        *time.Time         `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
	TokenID            string             `bson:"token_id" json:"tokenId"`
}

// ImportStatistics summarizes a job's counters for the status endpoint
type ImportStatistics struct {
	Total   int `bson:"total" json:"total"`
	Success int `bson:"success" json:"success"`
	Errors  int `bson:"errors" json:"errors"`
}

// Statistics derives the summary counters from the job
func (j *ImportJob) Statistics() ImportStatistics {
	return ImportStatistics{
		Total:   j.TotalProducts,
		Success: j.SuccessfulProducts,
		Errors:  j.FailedProducts,
	}
}

// CheckCounters validates the counter invariants that must hold on every
// snapshot: counters are non-negative, processed never exceeds total, and
// successful plus failed never exceed processed.
func (j *ImportJob) CheckCounters() error {
	if j.TotalProducts < 0 || j.ProcessedProducts < 0 || j.SuccessfulProducts < 0 || j.FailedProducts < 0 {
		return fmt.Errorf("negative counter on job %s", j.ID.Hex())
	}
	if j.ProcessedProducts > j.TotalProducts {
		return fmt.Errorf("processed %d exceeds total %d on job %s",
			j.ProcessedProducts, j.TotalProducts, j.ID.Hex())
	}
	if j.SuccessfulProducts+j.FailedProducts > j.ProcessedProducts {
		return fmt.Errorf("successful %d + failed %d exceed processed %d on job %s",
			j.SuccessfulProducts, j.FailedProducts, j.ProcessedProducts, j.ID.Hex())
	}
	return nil
}
