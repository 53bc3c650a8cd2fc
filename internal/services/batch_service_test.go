package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"catalog-import-service/internal/importer"
	"catalog-import-service/internal/models"
	"catalog-import-service/internal/repository"
)

// MockBatchRepository is a mock implementation of BatchRepositoryInterface
type MockBatchRepository struct {
	mock.Mock
}

// Ensure MockBatchRepository implements the interface
var _ repository.BatchRepositoryInterface = (*MockBatchRepository)(nil)

func (m *MockBatchRepository) ExistingCategoryIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *MockBatchRepository) IngestBatch(ctx context.Context, rows []models.BatchRow) (*models.Batch, error) {
	args := m.Called(ctx, rows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Batch), args.Error(1)
}

func (m *MockBatchRepository) ListBatches(ctx context.Context) ([]models.Batch, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Batch), args.Error(1)
}

func (m *MockBatchRepository) GetBatchByID(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Batch), args.Error(1)
}

func (m *MockBatchRepository) GetBatchWithItems(ctx context.Context, id uuid.UUID) (*models.Batch, []models.BatchItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Batch), args.Get(1).([]models.BatchItem), args.Error(2)
}

func (m *MockBatchRepository) ProductIDsForBatch(ctx context.Context, batchID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockBatchRepository) ReferencedProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockBatchRepository) DeleteBatchCascade(ctx context.Context, batchID uuid.UUID) error {
	args := m.Called(ctx, batchID)
	return args.Error(0)
}

func (m *MockBatchRepository) ApplyCorrections(ctx context.Context, batchID uuid.UUID, corrections []models.ItemCorrection) ([]models.BatchItem, error) {
	args := m.Called(ctx, batchID, corrections)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BatchItem), args.Error(1)
}

func newTestService(repo repository.BatchRepositoryInterface) *BatchService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewBatchService(repo, nil, logger)
}

func uploadRow(number, title, slug, price, categoryID, inStock string) importer.Row {
	return importer.Row{
		"title":         title,
		"slug":          slug,
		"price":         price,
		"categoryid":    categoryID,
		"instock":       inStock,
		importer.RowKey: number,
	}
}

func TestIngestRowsPlansRows(t *testing.T) {
	repo := new(MockBatchRepository)
	service := newTestService(repo)

	knownCategory := uuid.NewString()
	missingCategory := uuid.NewString()

	rows := []importer.Row{
		uploadRow("1", "Desk Lamp", "desk-lamp", "25.50", knownCategory, "1"),
		uploadRow("2", "", "chair", "99", knownCategory, "0"),
		uploadRow("3", "Sofa", "sofa", "400", missingCategory, "1"),
	}

	repo.On("ExistingCategoryIDs", mock.Anything, []string{knownCategory, missingCategory}).
		Return(map[string]bool{knownCategory: true}, nil)

	var planned []models.BatchRow
	batch := &models.Batch{
		ID:         uuid.New(),
		Status:     models.BatchStatusPartial,
		ItemCount:  3,
		ErrorCount: 2,
	}
	repo.On("IngestBatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			planned = args.Get(1).([]models.BatchRow)
		}).
		Return(batch, nil)

	result, err := service.IngestRows(context.Background(), rows)
	require.NoError(t, err)

	require.Len(t, planned, 3)

	require.NotNil(t, planned[0].Draft)
	assert.Equal(t, 1, planned[0].Number)
	assert.Equal(t, int64(26), planned[0].Draft.Price)

	assert.Nil(t, planned[1].Draft)
	assert.Equal(t, "Row 2: title is required", planned[1].Error)

	assert.Nil(t, planned[2].Draft)
	assert.Equal(t, "Invalid categoryId", planned[2].Error)

	assert.Equal(t, batch, result.Batch)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 2, result.Errors)
	require.Len(t, result.ValidationErrors, 2)
	assert.Equal(t, models.RowError{Index: 2, Error: "title is required"}, result.ValidationErrors[0])
	assert.Equal(t, models.RowError{Index: 3, Error: "Invalid categoryId"}, result.ValidationErrors[1])

	repo.AssertExpectations(t)
}

func TestIngestRowsCombinesFieldErrors(t *testing.T) {
	repo := new(MockBatchRepository)
	service := newTestService(repo)

	rows := []importer.Row{
		uploadRow("1", "", "lamp", "abc", "", "1"),
	}

	repo.On("ExistingCategoryIDs", mock.Anything, []string{}).Return(map[string]bool{}, nil)

	var planned []models.BatchRow
	repo.On("IngestBatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			planned = args.Get(1).([]models.BatchRow)
		}).
		Return(&models.Batch{ID: uuid.New(), Status: models.BatchStatusFailed, ItemCount: 1, ErrorCount: 1}, nil)

	result, err := service.IngestRows(context.Background(), rows)
	require.NoError(t, err)

	require.Len(t, planned, 1)
	assert.Equal(t, "Row 1: title is required; price must be a valid number; categoryId is required", planned[0].Error)
	require.Len(t, result.ValidationErrors, 1)
	assert.Equal(t, 1, result.ValidationErrors[0].Index)
}

func TestIngestRowsRepositoryFailure(t *testing.T) {
	repo := new(MockBatchRepository)
	service := newTestService(repo)

	categoryID := uuid.NewString()
	repo.On("ExistingCategoryIDs", mock.Anything, mock.Anything).Return(map[string]bool{categoryID: true}, nil)
	repo.On("IngestBatch", mock.Anything, mock.Anything).Return(nil, errors.New("connection lost"))

	_, err := service.IngestRows(context.Background(), []importer.Row{
		uploadRow("1", "Desk Lamp", "desk-lamp", "26", categoryID, "1"),
	})
	assert.EqualError(t, err, "connection lost")
}

func TestUpdateItemsNormalizesCorrections(t *testing.T) {
	repo := new(MockBatchRepository)
	service := newTestService(repo)

	batchID := uuid.New()
	itemID := uuid.New()

	repo.On("GetBatchByID", mock.Anything, batchID).Return(&models.Batch{ID: batchID}, nil)
	repo.On("ApplyCorrections", mock.Anything, batchID, []models.ItemCorrection{
		{ItemID: itemID, Price: 100, InStock: true},
	}).Return([]models.BatchItem{{ID: itemID, Price: 100, InStock: true, Status: models.BatchItemStatusUpdated}}, nil)

	resp, err := service.UpdateItems(context.Background(), batchID, []models.BatchItemUpdate{
		{ItemID: itemID, Price: 99.7, InStock: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.UpdatedCount)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, models.BatchItemStatusUpdated, resp.Items[0].Status)
	repo.AssertExpectations(t)
}

func TestUpdateItemsBatchNotFound(t *testing.T) {
	repo := new(MockBatchRepository)
	service := newTestService(repo)

	batchID := uuid.New()
	repo.On("GetBatchByID", mock.Anything, batchID).Return(nil, repository.ErrNotFound)

	_, err := service.UpdateItems(context.Background(), batchID, []models.BatchItemUpdate{
		{ItemID: uuid.New(), Price: 1, InStock: 1},
	})
	assert.ErrorIs(t, err, ErrBatchNotFound)
	repo.AssertNotCalled(t, "ApplyCorrections", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteBatchBlockedByOrders(t *testing.T) {
	repo := new(MockBatchRepository)
	service := newTestService(repo)

	batchID := uuid.New()
	productIDs := []uuid.UUID{uuid.New(), uuid.New()}

	repo.On("GetBatchByID", mock.Anything, batchID).Return(&models.Batch{ID: batchID}, nil)
	repo.On("ProductIDsForBatch", mock.Anything, batchID).Return(productIDs, nil)
	repo.On("ReferencedProductIDs", mock.Anything, productIDs).Return(productIDs[:1], nil)

	err := service.DeleteBatch(context.Background(), batchID)

	var refErr *BatchReferencedError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, productIDs[:1], refErr.ProductIDs)
	assert.Contains(t, err.Error(), "Cannot delete batch, products referenced in orders: ")
	assert.Contains(t, err.Error(), productIDs[0].String())
	repo.AssertNotCalled(t, "DeleteBatchCascade", mock.Anything, mock.Anything)
}

func TestDeleteBatchSuccess(t *testing.T) {
	repo := new(MockBatchRepository)
	service := newTestService(repo)

	batchID := uuid.New()
	repo.On("GetBatchByID", mock.Anything, batchID).Return(&models.Batch{ID: batchID}, nil)
	repo.On("ProductIDsForBatch", mock.Anything, batchID).Return([]uuid.UUID{uuid.New()}, nil)
	repo.On("ReferencedProductIDs", mock.Anything, mock.Anything).Return(nil, nil)
	repo.On("DeleteBatchCascade", mock.Anything, batchID).Return(nil)

	require.NoError(t, service.DeleteBatch(context.Background(), batchID))
	repo.AssertExpectations(t)
}

func TestDeleteBatchNotFound(t *testing.T) {
	repo := new(MockBatchRepository)
	service := newTestService(repo)

	batchID := uuid.New()
	repo.On("GetBatchByID", mock.Anything, batchID).Return(nil, repository.ErrNotFound)

	assert.ErrorIs(t, service.DeleteBatch(context.Background(), batchID), ErrBatchNotFound)
}

func TestGetBatchNotFound(t *testing.T) {
	repo := new(MockBatchRepository)
	service := newTestService(repo)

	id := uuid.New()
	repo.On("GetBatchWithItems", mock.Anything, id).Return(nil, nil, repository.ErrNotFound)

	_, _, err := service.GetBatch(context.Background(), id)
	assert.ErrorIs(t, err, ErrBatchNotFound)
}
