package extract

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	domain "github.com/statreport/statreport/internal/domain/analysis"
)

// emptyHeader names header cells that are blank.
const emptyHeader = "__EMPTY"

// Spreadsheet reads the first sheet of an xlsx workbook into a table. The
// first non-blank row is the header; every later non-blank row is a record.
type Spreadsheet struct{}

func (Spreadsheet) Extract(data []byte) (domain.Content, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return domain.Content{}, corruptSpreadsheet("open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.Content{}, corruptSpreadsheet("workbook has no sheets", nil)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return domain.Content{}, corruptSpreadsheet(fmt.Sprintf("read sheet %q", sheets[0]), err)
	}

	var nonBlank [][]string
	width := 0
	for _, r := range rows {
		if isBlank(r) {
			continue
		}
		nonBlank = append(nonBlank, r)
		width = max(width, len(r))
	}
	if len(nonBlank) < 2 {
		return domain.Content{}, corruptSpreadsheet(fmt.Sprintf("sheet %q has no data rows", sheets[0]), nil)
	}

	header := headerKeys(nonBlank[0], width)
	table := domain.Table{Header: header, Rows: make([]domain.Row, 0, len(nonBlank)-1)}
	for _, r := range nonBlank[1:] {
		row := make(domain.Row, 0, len(r))
		for i, v := range r {
			if v == "" {
				continue
			}
			row = append(row, domain.Cell{Key: header[i], Value: cellValue(v)})
		}
		table.Rows = append(table.Rows, row)
	}
	return domain.TabularContent(table), nil
}

// headerKeys labels width columns from the header row. Blank labels become
// __EMPTY, __EMPTY_1, ...; repeated labels get _1, _2, ... suffixes.
func headerKeys(labels []string, width int) []string {
	keys := make([]string, width)
	used := make(map[string]bool, width)
	suffix := make(map[string]int)
	for i := range keys {
		label := emptyHeader
		if i < len(labels) && labels[i] != "" {
			label = labels[i]
		}
		key := label
		for used[key] {
			suffix[label]++
			key = fmt.Sprintf("%s_%d", label, suffix[label])
		}
		used[key] = true
		keys[i] = key
	}
	return keys
}

// cellValue turns canonical numeric text into a number and leaves
// everything else as text.
func cellValue(s string) any {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || strconv.FormatFloat(f, 'f', -1, 64) != s {
		return s
	}
	return f
}

func isBlank(r []string) bool {
	for _, v := range r {
		if v != "" {
			return false
		}
	}
	return true
}

func corruptSpreadsheet(msg string, err error) error {
	return domain.NewError(domain.KindCorruptSpreadsheet, msg, err)
}
