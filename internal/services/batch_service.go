package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"catalog-import-service/internal/events"
	"catalog-import-service/internal/importer"
	"catalog-import-service/internal/models"
	"catalog-import-service/internal/repository"
)

var ErrBatchNotFound = errors.New("batch not found")

// BatchReferencedError blocks a deletion because products created by the
// batch appear in orders.
type BatchReferencedError struct {
	ProductIDs []uuid.UUID
}

func (e *BatchReferencedError) Error() string {
	ids := make([]string, len(e.ProductIDs))
	for i, id := range e.ProductIDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("Cannot delete batch, products referenced in orders: %s", strings.Join(ids, ", "))
}

// IngestResult summarizes one processed upload
type IngestResult struct {
	Batch            *models.Batch
	Created          int
	Errors           int
	ValidationErrors []models.RowError
}

// BatchServiceInterface abstracts the batch business logic for handlers
type BatchServiceInterface interface {
	IngestRows(ctx context.Context, rows []importer.Row) (*IngestResult, error)
	ListBatches(ctx context.Context) ([]models.Batch, error)
	GetBatch(ctx context.Context, id uuid.UUID) (*models.Batch, []models.BatchItem, error)
	UpdateItems(ctx context.Context, batchID uuid.UUID, updates []models.BatchItemUpdate) (*models.UpdateBatchItemsResponse, error)
	DeleteBatch(ctx context.Context, id uuid.UUID) error
}

// BatchService orchestrates validation, category resolution and ingestion
type BatchService struct {
	repo      repository.BatchRepositoryInterface
	publisher *events.Publisher
	logger    *logrus.Entry
}

// NewBatchService creates a new BatchService. The publisher is optional.
func NewBatchService(repo repository.BatchRepositoryInterface, publisher *events.Publisher, logger *logrus.Logger) *BatchService {
	return &BatchService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithField("component", "batch-service"),
	}
}

// IngestRows validates every row independently, resolves category references
// in one query, and hands the resulting plan to the repository. Per-row
// failures become ERROR items; only infrastructure failures return an error.
func (s *BatchService) IngestRows(ctx context.Context, rows []importer.Row) (*IngestResult, error) {
	planned := make([]models.BatchRow, len(rows))
	validationErrors := make([]models.RowError, 0)

	categoryIDs := make([]string, 0)
	seenCategories := make(map[string]bool)

	for i, row := range rows {
		number := row.Number()
		planned[i] = models.BatchRow{Number: number, Raw: row}

		draft, fieldErrs := importer.ValidateRow(row)
		if len(fieldErrs) > 0 {
			message := importer.JoinFieldErrors(fieldErrs)
			planned[i].Error = fmt.Sprintf("Row %d: %s", number, message)
			validationErrors = append(validationErrors, models.RowError{Index: number, Error: message})
			continue
		}

		planned[i].Draft = draft
		if !seenCategories[draft.CategoryID] {
			seenCategories[draft.CategoryID] = true
			categoryIDs = append(categoryIDs, draft.CategoryID)
		}
	}

	existing, err := s.repo.ExistingCategoryIDs(ctx, categoryIDs)
	if err != nil {
		return nil, err
	}

	for i := range planned {
		if planned[i].Draft == nil {
			continue
		}
		if !existing[planned[i].Draft.CategoryID] {
			planned[i].Draft = nil
			planned[i].Error = "Invalid categoryId"
			validationErrors = append(validationErrors, models.RowError{Index: planned[i].Number, Error: "Invalid categoryId"})
		}
	}

	batch, err := s.repo.IngestBatch(ctx, planned)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"batchId":    batch.ID,
		"status":     batch.Status,
		"itemCount":  batch.ItemCount,
		"errorCount": batch.ErrorCount,
	}).Info("Batch ingested")

	if s.publisher != nil {
		s.publisher.PublishBatchCompleted(batch)
	}

	return &IngestResult{
		Batch:            batch,
		Created:          batch.ItemCount - batch.ErrorCount,
		Errors:           batch.ErrorCount,
		ValidationErrors: validationErrors,
	}, nil
}

// ListBatches returns all batches, newest first
func (s *BatchService) ListBatches(ctx context.Context) ([]models.Batch, error) {
	return s.repo.ListBatches(ctx)
}

// GetBatch returns a batch with its items in input order
func (s *BatchService) GetBatch(ctx context.Context, id uuid.UUID) (*models.Batch, []models.BatchItem, error) {
	batch, items, err := s.repo.GetBatchWithItems(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return batch, items, nil
}

// UpdateItems applies bulk corrections to a batch. Values are normalized
// the same way uploads are; corrections for items of other batches are
// silently skipped, which also makes the operation idempotent.
func (s *BatchService) UpdateItems(ctx context.Context, batchID uuid.UUID, updates []models.BatchItemUpdate) (*models.UpdateBatchItemsResponse, error) {
	if _, err := s.repo.GetBatchByID(ctx, batchID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBatchNotFound
		}
		return nil, err
	}

	corrections := make([]models.ItemCorrection, len(updates))
	for i, u := range updates {
		corrections[i] = models.ItemCorrection{
			ItemID:  u.ItemID,
			Price:   int64(math.Round(u.Price)),
			InStock: u.InStock != 0,
		}
	}

	items, err := s.repo.ApplyCorrections(ctx, batchID, corrections)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"batchId":      batchID,
		"updatedCount": len(items),
	}).Info("Batch items updated")

	return &models.UpdateBatchItemsResponse{
		UpdatedCount: len(items),
		Items:        items,
	}, nil
}

// DeleteBatch reverses a batch unless any of its products is referenced by
// an order. The check and the cascade cover only non-error items, since
// error items never created products.
func (s *BatchService) DeleteBatch(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetBatchByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrBatchNotFound
		}
		return err
	}

	productIDs, err := s.repo.ProductIDsForBatch(ctx, id)
	if err != nil {
		return err
	}

	referenced, err := s.repo.ReferencedProductIDs(ctx, productIDs)
	if err != nil {
		return err
	}
	if len(referenced) > 0 {
		return &BatchReferencedError{ProductIDs: referenced}
	}

	if err := s.repo.DeleteBatchCascade(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrBatchNotFound
		}
		return err
	}

	s.logger.WithField("batchId", id).Info("Batch deleted")

	if s.publisher != nil {
		s.publisher.PublishBatchDeleted(id)
	}
	return nil
}
