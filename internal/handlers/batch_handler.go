package handlers

import (
	"encoding/csv"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"catalog-import-service/internal/importer"
	"catalog-import-service/internal/models"
	"catalog-import-service/internal/services"
)

// BatchHandler handles HTTP requests for ingestion batches
type BatchHandler struct {
	service services.BatchServiceInterface
}

// NewBatchHandler creates a new BatchHandler
func NewBatchHandler(service services.BatchServiceInterface) *BatchHandler {
	return &BatchHandler{service: service}
}

// UploadBatch ingests a CSV or XLSX product upload
// @Summary Upload a product batch
// @Tags Batches
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV or XLSX file"
// @Success 201 {object} models.UploadBatchResponse
// @Router /api/v1/batches [post]
func (h *BatchHandler) UploadBatch(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "CSV file is required"})
		return
	}
	defer file.Close()

	var rows []importer.Row
	var parseErr error

	filename := strings.ToLower(header.Filename)
	switch {
	case strings.HasSuffix(filename, ".csv"):
		rows, parseErr = importer.ParseCSV(file)
	case strings.HasSuffix(filename, ".xlsx"):
		rows, parseErr = importer.ParseXLSX(file)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only CSV and XLSX files are supported"})
		return
	}

	if parseErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": parseErr.Error()})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "CSV has no rows"})
		return
	}

	result, err := h.service.IngestRows(c.Request.Context(), rows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		return
	}

	c.JSON(http.StatusCreated, models.UploadBatchResponse{
		BatchID:          result.Batch.ID,
		Status:           result.Batch.Status,
		Total:            result.Batch.ItemCount,
		Errors:           result.Errors,
		Created:          result.Created,
		Updated:          0,
		ValidationErrors: result.ValidationErrors,
	})
}

// ListBatches returns all batches, newest first
// @Summary List batches
// @Tags Batches
// @Produce json
// @Success 200 {array} models.Batch
// @Router /api/v1/batches [get]
func (h *BatchHandler) ListBatches(c *gin.Context) {
	batches, err := h.service.ListBatches(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		return
	}
	c.JSON(http.StatusOK, batches)
}

// GetBatch returns a batch with its items
// @Summary Get a batch with items
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} models.BatchDetailResponse
// @Router /api/v1/batches/{id} [get]
func (h *BatchHandler) GetBatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
		return
	}

	batch, items, err := h.service.GetBatch(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrBatchNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		return
	}

	c.JSON(http.StatusOK, models.BatchDetailResponse{Batch: batch, Items: items})
}

// UpdateBatchItems applies bulk corrections to a batch
// @Summary Correct batch items
// @Tags Batches
// @Accept json
// @Produce json
// @Param id path string true "Batch ID"
// @Param request body models.UpdateBatchItemsRequest true "Corrections"
// @Success 200 {object} models.UpdateBatchItemsResponse
// @Router /api/v1/batches/{id} [put]
func (h *BatchHandler) UpdateBatchItems(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
		return
	}

	var req models.UpdateBatchItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.UpdateItems(c.Request.Context(), id, req.Items)
	if err != nil {
		if errors.Is(err, services.ErrBatchNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteBatch reverses a batch unless its products are referenced by orders
// @Summary Delete a batch
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 204
// @Failure 409 {object} map[string]string
// @Router /api/v1/batches/{id} [delete]
func (h *BatchHandler) DeleteBatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
		return
	}

	if err := h.service.DeleteBatch(c.Request.Context(), id); err != nil {
		var refErr *services.BatchReferencedError
		switch {
		case errors.Is(err, services.ErrBatchNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
		case errors.As(err, &refErr):
			c.JSON(http.StatusConflict, gin.H{"error": refErr.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// DownloadTemplate returns the upload header template as CSV or XLSX
// @Summary Download the upload template
// @Tags Batches
// @Produce octet-stream
// @Param format query string false "csv or xlsx" default(csv)
// @Router /api/v1/batches/template [get]
func (h *BatchHandler) DownloadTemplate(c *gin.Context) {
	headers := importer.TemplateHeaders()

	switch c.DefaultQuery("format", "csv") {
	case "xlsx":
		h.writeXLSXTemplate(c, headers)
	case "csv":
		h.writeCSVTemplate(c, headers)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only CSV and XLSX templates are supported"})
	}
}

func (h *BatchHandler) writeCSVTemplate(c *gin.Context, headers []string) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=batch_upload_template.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()
	writer.Write(headers)
}

func (h *BatchHandler) writeXLSXTemplate(c *gin.Context, headers []string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Products"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})

	for i, name := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, name)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 20)
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=batch_upload_template.xlsx")

	f.Write(c.Writer)
}
