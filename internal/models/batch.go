package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// BatchStatus represents the derived status of an ingestion batch
type BatchStatus string

const (
	BatchStatusPending   BatchStatus = "PENDING"
	BatchStatusCompleted BatchStatus = "COMPLETED"
	BatchStatusPartial   BatchStatus = "PARTIAL"
	BatchStatusFailed    BatchStatus = "FAILED"
)

// BatchItemStatus represents the status of a single batch item
type BatchItemStatus string

const (
	BatchItemStatusCreated BatchItemStatus = "CREATED"
	BatchItemStatusUpdated BatchItemStatus = "UPDATED"
	BatchItemStatusError   BatchItemStatus = "ERROR"
)

// DeriveBatchStatus maps ingest counters to the batch status.
// An empty batch stays PENDING.
func DeriveBatchStatus(successCount, errorCount int) BatchStatus {
	switch {
	case successCount > 0 && errorCount == 0:
		return BatchStatusCompleted
	case successCount > 0 && errorCount > 0:
		return BatchStatusPartial
	case errorCount > 0:
		return BatchStatusFailed
	default:
		return BatchStatusPending
	}
}

// Batch represents one bulk upload and aggregates its per-row audit records
type Batch struct {
	ID         uuid.UUID   `json:"id" gorm:"type:uuid;primary_key"`
	Status     BatchStatus `json:"status" gorm:"not null;default:'PENDING';index"`
	ItemCount  int         `json:"itemCount" gorm:"not null;default:0"`
	ErrorCount int         `json:"errorCount" gorm:"not null;default:0"`
	Items      []BatchItem `json:"items,omitempty" gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time   `json:"createdAt" gorm:"index"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// BatchItem is the per-row audit record of an upload. Exactly one item exists
// per input row, in input order. An ERROR item has no product and carries an
// error message; a non-error item always references the product it created.
type BatchItem struct {
	ID           uuid.UUID       `json:"id" gorm:"type:uuid;primary_key"`
	BatchID      uuid.UUID       `json:"batchId" gorm:"type:uuid;not null;index"`
	ProductID    *uuid.UUID      `json:"productId,omitempty" gorm:"type:uuid;index"`
	RowNumber    int             `json:"rowNumber" gorm:"not null"`
	Title        string          `json:"title"`
	Slug         string          `json:"slug"`
	Price        int64           `json:"price"`
	Manufacturer *string         `json:"manufacturer,omitempty"`
	Description  *string         `json:"description,omitempty"`
	MainImage    *string         `json:"mainImage,omitempty"`
	CategoryID   string          `json:"categoryId"`
	InStock      bool            `json:"inStock"`
	Status       BatchItemStatus `json:"status" gorm:"not null;index"`
	Error        *string         `json:"error,omitempty"`
	RawRow       datatypes.JSON  `json:"rawRow,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// TableName returns the table name for the Batch model
func (Batch) TableName() string {
	return "batches"
}

// TableName returns the table name for the BatchItem model
func (BatchItem) TableName() string {
	return "batch_items"
}

// ProductDraft is a validated, normalized row ready to become a Product
type ProductDraft struct {
	Title        string
	Slug         string
	Price        int64
	Manufacturer *string
	Description  *string
	MainImage    *string
	CategoryID   string
	InStock      bool
}

// BatchRow is one planned item of an ingest: either a category-resolved draft
// or the error message that will be recorded instead.
type BatchRow struct {
	Number int
	Draft  *ProductDraft
	Error  string
	Raw    map[string]string
}

// RowError reports a single rejected input row in the upload response
type RowError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// UploadBatchResponse summarizes one processed upload
type UploadBatchResponse struct {
	BatchID          uuid.UUID   `json:"batchId"`
	Status           BatchStatus `json:"status"`
	Total            int         `json:"total"`
	Errors           int         `json:"errors"`
	Created          int         `json:"created"`
	Updated          int         `json:"updated"`
	ValidationErrors []RowError  `json:"validationErrors"`
}

// BatchDetailResponse returns a batch together with its items
type BatchDetailResponse struct {
	Batch *Batch      `json:"batch"`
	Items []BatchItem `json:"items"`
}

// BatchItemUpdate is one correction from the client, as uploaded values
type BatchItemUpdate struct {
	ItemID  uuid.UUID `json:"itemId" binding:"required"`
	Price   float64   `json:"price"`
	InStock int       `json:"inStock"`
}

// UpdateBatchItemsRequest represents a bulk correction request for a batch
type UpdateBatchItemsRequest struct {
	Items []BatchItemUpdate `json:"items" binding:"required,min=1,dive"`
}

// ItemCorrection is a normalized correction applied by the repository
type ItemCorrection struct {
	ItemID  uuid.UUID
	Price   int64
	InStock bool
}

// UpdateBatchItemsResponse reports the corrections that were applied
type UpdateBatchItemsResponse struct {
	UpdatedCount int         `json:"updatedCount"`
	Items        []BatchItem `json:"items"`
}
