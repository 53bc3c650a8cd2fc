package importer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	input := "Title,Slug,price,categoryId,inStock\n" +
		" Desk Lamp ,desk-lamp,25.50,cat-1,1\n" +
		"Chair,chair,99,cat-2,0\n"

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Desk Lamp", rows[0]["title"])
	assert.Equal(t, "desk-lamp", rows[0]["slug"])
	assert.Equal(t, "25.50", rows[0]["price"])
	assert.Equal(t, "cat-1", rows[0]["categoryid"])
	assert.Equal(t, "1", rows[0]["instock"])
	assert.Equal(t, 1, rows[0].Number())

	assert.Equal(t, "Chair", rows[1]["title"])
	assert.Equal(t, 2, rows[1].Number())
}

func TestParseCSVHeaderOnly(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader("title,slug,price\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseCSVEmptyInput(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseCSVMalformedRow(t *testing.T) {
	input := "title,slug\n\"unterminated,oops\n"
	_, err := ParseCSV(strings.NewReader(input))
	assert.Error(t, err)
}

func TestParseCSVStripsTemplateMarkers(t *testing.T) {
	input := "title *,slug *,price\nLamp,lamp,10\n"
	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Lamp", rows[0]["title"])
	assert.Equal(t, "lamp", rows[0]["slug"])
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Title", "Slug", "price"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Lamp", "lamp", "10"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"Chair", "chair", "99"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rows, err := ParseXLSX(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Lamp", rows[0]["title"])
	assert.Equal(t, 1, rows[0].Number())
	assert.Equal(t, "chair", rows[1]["slug"])
	assert.Equal(t, 2, rows[1].Number())
}

func TestParseXLSXRejectsGarbage(t *testing.T) {
	_, err := ParseXLSX(strings.NewReader("not a spreadsheet"))
	assert.Error(t, err)
}
