package dataset

import (
	"time"
)

// DatasetStatus represents the processing state of a dataset on the backend
type DatasetStatus string

const (
	StatusUploaded DatasetStatus = "uploaded"
	StatusCleaning DatasetStatus = "cleaning"
	StatusCleaned  DatasetStatus = "cleaned"
	StatusTraining DatasetStatus = "training"
	StatusTrained  DatasetStatus = "trained"
	StatusError    DatasetStatus = "error"
)

// Dataset is the backend's description of an uploaded file
type Dataset struct {
	ID            string            `json:"id" db:"id"`
	FileName      string            `json:"file_name" db:"file_name"`
	FilePath      string            `json:"file_path" db:"file_path"`
	Status        DatasetStatus     `json:"status" db:"status"`
	Rows          int               `json:"rows" db:"row_count"`
	Columns       int               `json:"columns" db:"column_count"`
	ColumnTypes   map[string]string `json:"column_types,omitempty" db:"-"`
	MissingValues map[string]int    `json:"missing_values,omitempty" db:"-"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt     *time.Time        `json:"updated_at,omitempty" db:"updated_at"`
}

// PreviewResponse is the payload of GET /api/upload/{id}. Preview carries
// every row the backend is willing to show; there is no paging.
type PreviewResponse struct {
	Success bool    `json:"success"`
	Dataset Dataset `json:"dataset"`
	Preview []Row   `json:"preview"`
}

// ListResponse is the payload of GET /api/upload/list
type ListResponse struct {
	Success  bool      `json:"success"`
	Datasets []Dataset `json:"datasets"`
}

// UploadResponse is the payload of POST /api/upload
type UploadResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	FileID   string `json:"file_id,omitempty"`
	FileName string `json:"file_name,omitempty"`
	Rows     int    `json:"rows,omitempty"`
	Columns  int    `json:"columns,omitempty"`
	Preview  []Row  `json:"preview,omitempty"`
}

// CleaningAction names a backend cleaning step
type CleaningAction string

const (
	ActionRemoveDuplicates  CleaningAction = "remove_duplicates"
	ActionFillNullsMean     CleaningAction = "fill_nulls_mean"
	ActionFillNullsMedian   CleaningAction = "fill_nulls_median"
	ActionFillNullsMode     CleaningAction = "fill_nulls_mode"
	ActionDropNulls         CleaningAction = "drop_nulls"
	ActionNormalize         CleaningAction = "normalize"
	ActionStandardize       CleaningAction = "standardize"
	ActionEncodeCategorical CleaningAction = "encode_categorical"
	ActionRemoveOutliers    CleaningAction = "remove_outliers"
)

var knownActions = map[CleaningAction]bool{
	ActionRemoveDuplicates:  true,
	ActionFillNullsMean:     true,
	ActionFillNullsMedian:   true,
	ActionFillNullsMode:     true,
	ActionDropNulls:         true,
	ActionNormalize:         true,
	ActionStandardize:       true,
	ActionEncodeCategorical: true,
	ActionRemoveOutliers:    true,
}

// IsKnown reports whether the backend understands a.
func (a CleaningAction) IsKnown() bool { return knownActions[a] }

// CleaningRequest is the body of POST /api/clean
type CleaningRequest struct {
	FileID         string           `json:"file_id"`
	Actions        []CleaningAction `json:"actions"`
	TargetColumn   string           `json:"target_column,omitempty"`
	FillValue      interface{}      `json:"fill_value,omitempty"`
	EncodingMethod string           `json:"encoding_method,omitempty"` // "label" or "onehot"
	OutlierMethod  string           `json:"outlier_method,omitempty"`  // "iqr" or "zscore"
}

// CleaningResponse is the payload of POST /api/clean
type CleaningResponse struct {
	Success        bool     `json:"success"`
	Message        string   `json:"message"`
	FileID         string   `json:"file_id,omitempty"`
	OriginalRows   int      `json:"original_rows,omitempty"`
	CleanedRows    int      `json:"cleaned_rows,omitempty"`
	ActionsApplied []string `json:"actions_applied,omitempty"`
}
