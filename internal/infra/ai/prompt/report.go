package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	domain "github.com/statreport/statreport/internal/domain/analysis"
)

// TruncationMarker ends a data block that was cut to fit the budget.
const TruncationMarker = "…(truncated)"

// DefaultMaxDataChars keeps a prompt well inside common context windows.
const DefaultMaxDataChars = 60000

var sectionGuide = map[string]string{
	"Introduction":       "Brief overview of the analysis type and its purpose",
	"Methodology":        "Describe the statistical method used",
	"Results":            "Detailed findings from the analysis",
	"Data Visualization": "Suggestions for appropriate charts or graphs (describe them in detail, do not render them)",
	"Interpretation":     "Explain the meaning of the results in context",
	"Conclusion":         "Summarize the key takeaways",
	"Limitations":        "Any potential limitations of the analysis",
	"References":         "Cite relevant statistical sources or methods used",
}

// Composer builds the report prompt from extracted content and parameters.
type Composer struct {
	// MaxDataChars caps the data block in characters; <= 0 means DefaultMaxDataChars.
	MaxDataChars int
}

func NewComposer(maxDataChars int) *Composer {
	return &Composer{MaxDataChars: maxDataChars}
}

// Compose implements analysis.Composer.
func (c *Composer) Compose(t domain.Type, content domain.Content, params domain.Params) (string, error) {
	data, err := dataBlock(content)
	if err != nil {
		return "", fmt.Errorf("encode data block: %w", err)
	}
	data = truncate(data, c.budget())

	p := []byte("{}")
	if params != nil {
		if p, err = json.Marshal(params); err != nil {
			return "", fmt.Errorf("encode parameters: %w", err)
		}
	}

	info := t.Info()
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following data using %s analysis (%s).\n", info.Name, t)
	if info.Description != "" {
		fmt.Fprintf(&b, "About this analysis: %s\n", info.Description)
	}
	fmt.Fprintf(&b, "Additional parameters: %s\n", p)
	fmt.Fprintf(&b, "Data: %s\n\n", data)
	b.WriteString("Please provide a comprehensive report including:\n")
	for i, s := range domain.ReportSections {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, s, sectionGuide[s])
	}
	b.WriteString("\nFormat the report using Markdown syntax for headers, lists, and emphasis. ")
	b.WriteString("Use one heading per section, in the order listed above.")
	return b.String(), nil
}

func (c *Composer) budget() int {
	if c == nil || c.MaxDataChars <= 0 {
		return DefaultMaxDataChars
	}
	return c.MaxDataChars
}

func dataBlock(content domain.Content) (string, error) {
	switch content.Kind {
	case domain.ContentTabular:
		rows := content.Table.Rows
		if rows == nil {
			rows = []domain.Row{}
		}
		b, err := json.Marshal(rows)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case domain.ContentText:
		return content.Text, nil
	}
	return "", nil
}

// truncate cuts s to at most max runes and appends TruncationMarker.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + TruncationMarker
		}
		n++
	}
	return s
}
