package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"catalog-import-service/internal/models"
)

// Cache TTL constants
const (
	BatchListCacheKey = "catalog:batches:list"
	BatchListCacheTTL = 2 * time.Minute
)

var ErrNotFound = errors.New("not found")

// BatchRepositoryInterface abstracts storage for the batch service
type BatchRepositoryInterface interface {
	ExistingCategoryIDs(ctx context.Context, ids []string) (map[string]bool, error)
	IngestBatch(ctx context.Context, rows []models.BatchRow) (*models.Batch, error)
	ListBatches(ctx context.Context) ([]models.Batch, error)
	GetBatchByID(ctx context.Context, id uuid.UUID) (*models.Batch, error)
	GetBatchWithItems(ctx context.Context, id uuid.UUID) (*models.Batch, []models.BatchItem, error)
	ProductIDsForBatch(ctx context.Context, batchID uuid.UUID) ([]uuid.UUID, error)
	ReferencedProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]uuid.UUID, error)
	DeleteBatchCascade(ctx context.Context, batchID uuid.UUID) error
	ApplyCorrections(ctx context.Context, batchID uuid.UUID, corrections []models.ItemCorrection) ([]models.BatchItem, error)
}

// BatchRepository handles database operations for batches and their products
type BatchRepository struct {
	db            *gorm.DB
	redis         *redis.Client
	defaultRating float64
}

// NewBatchRepository creates a new BatchRepository. The redis client is
// optional; a nil client disables caching. New products start with the
// given rating.
func NewBatchRepository(db *gorm.DB, redis *redis.Client, defaultRating float64) *BatchRepository {
	return &BatchRepository{db: db, redis: redis, defaultRating: defaultRating}
}

// ExistingCategoryIDs returns which of the given category ids exist.
// Unparseable ids are never looked up and therefore never resolve.
func (r *BatchRepository) ExistingCategoryIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(ids))

	lookup := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if parsed, err := uuid.Parse(id); err == nil {
			lookup = append(lookup, parsed)
		}
	}
	if len(lookup) == 0 {
		return existing, nil
	}

	var found []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.Category{}).
		Where("id IN ?", lookup).
		Pluck("id", &found).Error
	if err != nil {
		return nil, err
	}

	for _, id := range found {
		existing[id.String()] = true
	}
	return existing, nil
}

// IngestBatch creates a batch and one item per planned row, in row order,
// inside a single transaction. Each product create runs in a nested
// transaction (a savepoint), so a failed row becomes an ERROR item without
// aborting the rest of the ingest. Infrastructure failures roll back the
// whole batch.
func (r *BatchRepository) IngestBatch(ctx context.Context, rows []models.BatchRow) (*models.Batch, error) {
	batch := &models.Batch{
		ID:     uuid.New(),
		Status: models.BatchStatusPending,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(batch).Error; err != nil {
			return err
		}

		created := 0
		failed := 0

		for _, row := range rows {
			item := newBatchItem(batch.ID, row)

			if row.Error != "" {
				markItemFailed(item, row.Error)
				failed++
			} else {
				product := r.productFromDraft(row.Draft)
				if err := tx.Transaction(func(rtx *gorm.DB) error {
					return createProduct(rtx, product)
				}); err != nil {
					markItemFailed(item, createFailureMessage(err))
					failed++
				} else {
					item.ProductID = &product.ID
					item.Status = models.BatchItemStatusCreated
					created++
				}
			}

			if err := tx.Create(item).Error; err != nil {
				return err
			}
		}

		batch.ItemCount = created + failed
		batch.ErrorCount = failed
		batch.Status = models.DeriveBatchStatus(created, failed)

		return tx.Model(&models.Batch{}).Where("id = ?", batch.ID).
			Updates(map[string]interface{}{
				"status":      batch.Status,
				"item_count":  batch.ItemCount,
				"error_count": batch.ErrorCount,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	r.invalidateBatchListCache(ctx)
	return batch, nil
}

// createProduct inserts a product after checking for a slug collision, so
// duplicate rows get a readable message instead of a raw constraint error.
func createProduct(tx *gorm.DB, product *models.Product) error {
	var count int64
	if err := tx.Model(&models.Product{}).
		Where("slug = ?", product.Slug).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("product with slug '%s' already exists", product.Slug)
	}
	return tx.Create(product).Error
}

// ListBatches returns all batches, newest first, with a short-lived cache
func (r *BatchRepository) ListBatches(ctx context.Context) ([]models.Batch, error) {
	if cached, ok := r.cachedBatchList(ctx); ok {
		return cached, nil
	}

	var batches []models.Batch
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&batches).Error
	if err != nil {
		return nil, err
	}

	r.cacheBatchList(ctx, batches)
	return batches, nil
}

// GetBatchByID retrieves a batch by ID
func (r *BatchRepository) GetBatchByID(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	var batch models.Batch
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&batch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// GetBatchWithItems retrieves a batch and its items in input row order
func (r *BatchRepository) GetBatchWithItems(ctx context.Context, id uuid.UUID) (*models.Batch, []models.BatchItem, error) {
	batch, err := r.GetBatchByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var items []models.BatchItem
	err = r.db.WithContext(ctx).
		Where("batch_id = ?", id).
		Order("row_number ASC").
		Find(&items).Error
	if err != nil {
		return nil, nil, err
	}
	return batch, items, nil
}

// ProductIDsForBatch returns the product ids of the batch's non-error items
func (r *BatchRepository) ProductIDsForBatch(ctx context.Context, batchID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.BatchItem{}).
		Where("batch_id = ? AND product_id IS NOT NULL", batchID).
		Pluck("product_id", &ids).Error
	return ids, err
}

// ReferencedProductIDs returns which of the given products appear in order items
func (r *BatchRepository) ReferencedProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Distinct("product_id").
		Where("product_id IN ?", productIDs).
		Pluck("product_id", &ids).Error
	return ids, err
}

// DeleteBatchCascade removes a batch, its items and the products it created,
// all or nothing.
func (r *BatchRepository) DeleteBatchCascade(ctx context.Context, batchID uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var productIDs []uuid.UUID
		if err := tx.Model(&models.BatchItem{}).
			Where("batch_id = ? AND product_id IS NOT NULL", batchID).
			Pluck("product_id", &productIDs).Error; err != nil {
			return err
		}

		if len(productIDs) > 0 {
			if err := tx.Where("id IN ?", productIDs).Delete(&models.Product{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("batch_id = ?", batchID).Delete(&models.BatchItem{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", batchID).Delete(&models.Batch{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.invalidateBatchListCache(ctx)
	return nil
}

// ApplyCorrections updates items of the batch with normalized corrections.
// Each correction updates the linked product (when one exists) and the item
// together; corrections naming items of other batches are silently skipped.
func (r *BatchRepository) ApplyCorrections(ctx context.Context, batchID uuid.UUID, corrections []models.ItemCorrection) ([]models.BatchItem, error) {
	updated := make([]models.BatchItem, 0, len(corrections))

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range corrections {
			var item models.BatchItem
			err := tx.Where("id = ? AND batch_id = ?", c.ItemID, batchID).First(&item).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return err
			}

			now := time.Now()

			if item.ProductID != nil {
				if err := tx.Model(&models.Product{}).
					Where("id = ?", *item.ProductID).
					Updates(map[string]interface{}{
						"price":      c.Price,
						"in_stock":   c.InStock,
						"updated_at": now,
					}).Error; err != nil {
					return err
				}
			}

			if err := tx.Model(&models.BatchItem{}).
				Where("id = ?", item.ID).
				Updates(map[string]interface{}{
					"price":      c.Price,
					"in_stock":   c.InStock,
					"status":     models.BatchItemStatusUpdated,
					"error":      nil,
					"updated_at": now,
				}).Error; err != nil {
				return err
			}

			item.Price = c.Price
			item.InStock = c.InStock
			item.Status = models.BatchItemStatusUpdated
			item.Error = nil
			item.UpdatedAt = now
			updated = append(updated, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// newBatchItem builds the audit record for one planned row. Error rows keep
// whatever the raw row carried so the audit trail stays inspectable.
func newBatchItem(batchID uuid.UUID, row models.BatchRow) *models.BatchItem {
	item := &models.BatchItem{
		ID:        uuid.New(),
		BatchID:   batchID,
		RowNumber: row.Number,
	}

	if raw, err := json.Marshal(row.Raw); err == nil {
		item.RawRow = datatypes.JSON(raw)
	}

	if row.Draft != nil {
		item.Title = row.Draft.Title
		item.Slug = row.Draft.Slug
		item.Price = row.Draft.Price
		item.Manufacturer = row.Draft.Manufacturer
		item.Description = row.Draft.Description
		item.MainImage = row.Draft.MainImage
		item.CategoryID = row.Draft.CategoryID
		item.InStock = row.Draft.InStock
	} else {
		item.Title = row.Raw["title"]
		item.Slug = row.Raw["slug"]
		item.CategoryID = row.Raw["categoryid"]
	}

	return item
}

func markItemFailed(item *models.BatchItem, message string) {
	item.ProductID = nil
	item.Status = models.BatchItemStatusError
	item.Error = &message
}

func (r *BatchRepository) productFromDraft(draft *models.ProductDraft) *models.Product {
	return &models.Product{
		ID:           uuid.New(),
		Title:        draft.Title,
		Slug:         draft.Slug,
		Price:        draft.Price,
		Manufacturer: draft.Manufacturer,
		Description:  draft.Description,
		MainImage:    draft.MainImage,
		CategoryID:   draft.CategoryID,
		InStock:      draft.InStock,
		Rating:       r.defaultRating,
	}
}

// createFailureMessage derives the ERROR item message from a create failure
func createFailureMessage(err error) string {
	if err == nil || err.Error() == "" {
		return "Create failed"
	}
	return err.Error()
}

// --- batch list cache helpers ---

func (r *BatchRepository) cachedBatchList(ctx context.Context) ([]models.Batch, bool) {
	if r.redis == nil {
		return nil, false
	}

	data, err := r.redis.Get(ctx, BatchListCacheKey).Result()
	if err != nil {
		return nil, false
	}

	var batches []models.Batch
	if err := json.Unmarshal([]byte(data), &batches); err != nil {
		return nil, false
	}
	return batches, true
}

func (r *BatchRepository) cacheBatchList(ctx context.Context, batches []models.Batch) {
	if r.redis == nil {
		return
	}
	if data, err := json.Marshal(batches); err == nil {
		r.redis.Set(ctx, BatchListCacheKey, data, BatchListCacheTTL)
	}
}

func (r *BatchRepository) invalidateBatchListCache(ctx context.Context) {
	if r.redis == nil {
		return
	}
	r.redis.Del(ctx, BatchListCacheKey)
}
