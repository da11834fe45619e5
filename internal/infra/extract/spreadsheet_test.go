package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	domain "github.com/statreport/statreport/internal/domain/analysis"
)

func buildXLSX(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &rows[i]))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func keys(r domain.Row) []string {
	out := make([]string, 0, len(r))
	for _, c := range r {
		out = append(out, c.Key)
	}
	return out
}

func TestSpreadsheet_HeaderKeysEqualFirstRow(t *testing.T) {
	data := buildXLSX(t,
		[]any{"subject", "dose", "response"},
		[]any{"s1", 10, 1.5},
		[]any{"s2", 20, 2.25},
	)

	c, err := Spreadsheet{}.Extract(data)
	require.NoError(t, err)
	require.Equal(t, domain.ContentTabular, c.Kind)
	assert.Equal(t, []string{"subject", "dose", "response"}, c.Table.Header)
	require.Len(t, c.Table.Rows, 2)
	for _, r := range c.Table.Rows {
		assert.Equal(t, c.Table.Header, keys(r))
	}

	v, ok := c.Table.Rows[0].Get("dose")
	require.True(t, ok)
	assert.Equal(t, float64(10), v)
	v, _ = c.Table.Rows[1].Get("subject")
	assert.Equal(t, "s2", v)
}

func TestSpreadsheet_EmptyCellsOmitted(t *testing.T) {
	data := buildXLSX(t,
		[]any{"subject", "dose", "response"},
		[]any{"s1", "", 3},
	)

	c, err := Spreadsheet{}.Extract(data)
	require.NoError(t, err)
	require.Len(t, c.Table.Rows, 1)
	assert.Equal(t, []string{"subject", "response"}, keys(c.Table.Rows[0]))
}

func TestSpreadsheet_BlankAndDuplicateHeaders(t *testing.T) {
	data := buildXLSX(t,
		[]any{"x", "", "x", "", "x"},
		[]any{"1", "2", "3", "4", "5"},
	)

	c, err := Spreadsheet{}.Extract(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "__EMPTY", "x_1", "__EMPTY_1", "x_2"}, c.Table.Header)
}

func TestSpreadsheet_HeaderOnlyIsCorrupt(t *testing.T) {
	data := buildXLSX(t, []any{"subject", "dose"})

	_, err := Spreadsheet{}.Extract(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCorruptSpreadsheet)
}

func TestSpreadsheet_GarbageIsCorrupt(t *testing.T) {
	_, err := Spreadsheet{}.Extract([]byte("definitely not a workbook"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCorruptSpreadsheet)
}

func TestHeaderKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "a_1", "__EMPTY"}, headerKeys([]string{"a", "a"}, 3))
	assert.Equal(t, []string{"a_1", "a", "a_2"}, headerKeys([]string{"a_1", "a", "a"}, 3))
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, float64(42), cellValue("42"))
	assert.Equal(t, 0.5, cellValue("0.5"))
	assert.Equal(t, "007", cellValue("007"))
	assert.Equal(t, "n/a", cellValue("n/a"))
}
