package importer

import (
	"math"
	"strconv"
	"strings"

	"catalog-import-service/internal/models"
)

// FieldError describes one invalid field of an input row
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// JoinFieldErrors renders all field problems of a row as one message
func JoinFieldErrors(errs []FieldError) string {
	messages := make([]string, len(errs))
	for i, e := range errs {
		messages[i] = e.Message
	}
	return strings.Join(messages, "; ")
}

// ValidateRow checks one decoded row and returns a normalized draft when the
// row is acceptable. All field problems are accumulated, never short-circuited.
// Prices are rounded to the nearest integer currency unit.
func ValidateRow(row Row) (*models.ProductDraft, []FieldError) {
	var errs []FieldError

	addError := func(field, message string) {
		errs = append(errs, FieldError{Field: field, Message: message})
	}

	if row["title"] == "" {
		addError("title", "title is required")
	}
	if row["slug"] == "" {
		addError("slug", "slug is required")
	}

	var price int64
	if row["price"] == "" {
		addError("price", "price is required")
	} else if parsed, err := strconv.ParseFloat(row["price"], 64); err != nil {
		addError("price", "price must be a valid number")
	} else if parsed < 0 {
		addError("price", "price must not be negative")
	} else {
		price = int64(math.Round(parsed))
	}

	if row["categoryid"] == "" {
		addError("categoryId", "categoryId is required")
	}

	inStock := false
	switch row["instock"] {
	case "0":
	case "1":
		inStock = true
	default:
		addError("inStock", "inStock must be 0 or 1")
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &models.ProductDraft{
		Title:        row["title"],
		Slug:         row["slug"],
		Price:        price,
		Manufacturer: optionalString(row["manufacturer"]),
		Description:  optionalString(row["description"]),
		MainImage:    optionalString(row["mainimage"]),
		CategoryID:   row["categoryid"],
		InStock:      inStock,
	}, nil
}

// optionalString returns nil for empty strings, pointer otherwise
func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
