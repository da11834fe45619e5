package analysis

import (
	"bytes"
	"encoding/json"
)

// ContentKind tells which variant of Content is populated.
type ContentKind string

const (
	ContentTabular ContentKind = "tabular"
	ContentText    ContentKind = "text"
)

// Cell is one non-empty value of a spreadsheet row. Value is either a
// float64 or a string.
type Cell struct {
	Key   string
	Value any
}

// Row keeps cells in header order. It marshals to a JSON object whose keys
// follow that order.
type Row []Cell

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the value stored under key.
func (r Row) Get(key string) (any, bool) {
	for _, c := range r {
		if c.Key == key {
			return c.Value, true
		}
	}
	return nil, false
}

// Table is the tabular form of a spreadsheet's first sheet.
type Table struct {
	Header []string
	Rows   []Row
}

// Content is what extraction produced: a table for spreadsheets, plain text
// for PDFs.
type Content struct {
	Kind  ContentKind
	Table Table
	Text  string
}

func TabularContent(t Table) Content { return Content{Kind: ContentTabular, Table: t} }

func TextContent(s string) Content { return Content{Kind: ContentText, Text: s} }
