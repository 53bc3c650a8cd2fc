package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// RowKey is the synthetic column carrying the 1-based data row number
const RowKey = "_row"

// Row is one decoded data row keyed by normalized (lowercased) header name
type Row map[string]string

// Number returns the 1-based data row number tracked during decoding
func (r Row) Number() int {
	n, _ := strconv.Atoi(r[RowKey])
	return n
}

// TemplateHeaders returns the expected upload columns in template order
func TemplateHeaders() []string {
	return []string{"title", "slug", "price", "manufacturer", "inStock", "mainImage", "description", "categoryId"}
}

// ParseCSV parses a CSV upload into rows. The first record is the header;
// a file with only a header yields an empty slice, not an error.
func ParseCSV(file io.Reader) ([]Row, error) {
	reader := csv.NewReader(file)

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	normalizeHeaders(headers)

	var rows []Row
	rowNum := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading line %d: %w", rowNum+2, err)
		}

		rowNum++
		rows = append(rows, buildRow(headers, record, rowNum))
	}

	return rows, nil
}

// ParseXLSX parses an Excel upload into rows using the first sheet
func ParseXLSX(file io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	excelRows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(excelRows) == 0 {
		return nil, fmt.Errorf("file has no header row")
	}

	headers := excelRows[0]
	normalizeHeaders(headers)

	var rows []Row
	for idx, excelRow := range excelRows[1:] {
		rows = append(rows, buildRow(headers, excelRow, idx+1))
	}

	return rows, nil
}

// normalizeHeaders lowercases headers and strips the required marker the
// downloadable template adds.
func normalizeHeaders(headers []string) {
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.ToLower(headers[i]))
		headers[i] = strings.TrimSuffix(headers[i], " *")
	}
}

func buildRow(headers, record []string, rowNum int) Row {
	row := make(Row)
	for i, value := range record {
		if i < len(headers) {
			row[headers[i]] = strings.TrimSpace(value)
		}
	}
	row[RowKey] = strconv.Itoa(rowNum)
	return row
}
