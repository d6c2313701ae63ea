package importer

// ImportConfig holds the options an operator chooses before submitting a
// catalog spreadsheet. The flags are independent booleans.
type ImportConfig struct {
	CreateCategories bool `json:"createCategories"`
	UpdateExisting   bool `json:"updateExisting"`
	StrictValidation bool `json:"strictValidation"`
	UploadImages     bool `json:"uploadImages"`
}

// Stage identifies where a running import currently is, from the
// operator's point of view.
type Stage string

const (
	StageUpload     Stage = "upload"
	StageProcessing Stage = "processing"
	StageValidation Stage = "validation"
	StageImporting  Stage = "importing"
	StageCompleted  Stage = "completed"
	StageError      Stage = "error"
)

// ImportProgress is the transient, client-derived projection of a job's
// state. It is recomputed from scratch on every poll tick and fully replaces
// the previous projection; it is never persisted.
type ImportProgress struct {
	Stage       Stage  `json:"stage"`
	Percentage  int    `json:"percentage"`
	Message     string `json:"message"`
	CurrentItem string `json:"currentItem,omitempty"`
}

// ImportLog is one row-level outcome from the terminal result. Row failures
// are data, not errors: the batch keeps going when a single row fails.
type ImportLog struct {
	RowNumber   int    `json:"rowNumber"`
	ProductName string `json:"productName"`
	SKU         string `json:"sku,omitempty"`
	Status      string `json:"status"` // success | error | warning
	Message     string `json:"message"`
}

// ImportResult is the immutable terminal summary of a completed import,
// built exactly once from the terminal snapshot. Partial success is
// distinguishable through Failed, not through job status.
type ImportResult struct {
	JobID      string      `json:"jobId"`
	Total      int         `json:"total"`
	Successful int         `json:"successful"`
	Failed     int         `json:"failed"`
	Logs       []ImportLog `json:"logs"`
}

// OutcomeKind classifies how a polling session ended
type OutcomeKind string

const (
	// OutcomeCompleted is the single success exit: the job completed and
	// an ImportResult was aggregated
	OutcomeCompleted OutcomeKind = "completed"

	// OutcomeFailed covers job failure, transport failure of a status
	// query, and invariant violations in a snapshot
	OutcomeFailed OutcomeKind = "failed"

	// OutcomeCancelled means the job was cancelled before processing
	// began; no result exists
	OutcomeCancelled OutcomeKind = "cancelled"

	// OutcomeTimedOut means the attempt budget ran out while the job was
	// still non-terminal. The server-side job is untouched and may still
	// finish on its own.
	OutcomeTimedOut OutcomeKind = "timed_out"
)

// PollOutcome is the terminal value of one polling session
type PollOutcome struct {
	Kind         OutcomeKind
	Result       *ImportResult // set only when Kind == OutcomeCompleted
	Error        string        // set only when Kind == OutcomeFailed
	LastProgress ImportProgress
}

// SubmitOutcome is the result of one upload submission. All failure modes
// (transport, auth, server rejection) collapse into a single error string;
// the caller resubmits from scratch.
type SubmitOutcome struct {
	Success bool
	JobID   string
	Error   string
}

// JobSummary is one entry in the import job registry listing
type JobSummary struct {
	ID                 string `json:"id"`
	StoreID            string `json:"storeId"`
	Filename           string `json:"filename"`
	Status             string `json:"status"`
	TotalProducts      int    `json:"totalProducts"`
	ProcessedProducts  int    `json:"processedProducts"`
	SuccessfulProducts int    `json:"successfulProducts"`
	FailedProducts     int    `json:"failedProducts"`
	ErrorMessage       string `json:"errorMessage,omitempty"`
	CreatedAt          string `json:"createdAt"`
}

// ListOutcome is the result of a registry listing. Failures are values,
// never panics, so a listing failure cannot take down a page that is also
// tracking an active import.
type ListOutcome struct {
	Success bool
	Jobs    []JobSummary
	Error   string
}
