package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/statreport/statreport/internal/domain/analysis"
)

func doseTable() domain.Content {
	return domain.TabularContent(domain.Table{
		Header: []string{"subject", "dose", "response"},
		Rows: []domain.Row{
			{{Key: "subject", Value: "s1"}, {Key: "dose", Value: 10.0}, {Key: "response", Value: 1.5}},
			{{Key: "subject", Value: "s2"}, {Key: "dose", Value: 20.0}, {Key: "response", Value: 2.25}},
		},
	})
}

func TestCompose_Tabular(t *testing.T) {
	c := NewComposer(0)
	out, err := c.Compose(domain.TypeOneWayANOVA, doseTable(), domain.OneWayANOVAParams{Factor: "dose"})
	require.NoError(t, err)

	assert.Contains(t, out, "one-way-anova")
	assert.Contains(t, out, `"factor":"dose"`)
	assert.Contains(t, out, `[{"subject":"s1","dose":10,"response":1.5},{"subject":"s2","dose":20,"response":2.25}]`)
	assert.NotContains(t, out, TruncationMarker)
}

func TestCompose_SectionsInOrder(t *testing.T) {
	out, err := NewComposer(0).Compose(domain.TypeDescriptive, domain.TextContent("some text"), domain.GeneralParams{})
	require.NoError(t, err)

	last := -1
	for i, s := range domain.ReportSections {
		idx := strings.Index(out, fmt.Sprintf("%d. %s: ", i+1, s))
		require.GreaterOrEqual(t, idx, 0, "section %q missing", s)
		assert.Greater(t, idx, last, "section %q out of order", s)
		last = idx
	}
	assert.Contains(t, out, "Markdown")
}

func TestCompose_TextContentAndEmptyParams(t *testing.T) {
	out, err := NewComposer(0).Compose(domain.TypeDescriptive, domain.TextContent("Mean height was 172 cm."), nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Data: Mean height was 172 cm.")
	assert.Contains(t, out, "Additional parameters: {}")
}

func TestCompose_Truncates(t *testing.T) {
	text := strings.Repeat("é", 500)
	out, err := NewComposer(100).Compose(domain.TypeDescriptive, domain.TextContent(text), nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Data: "+strings.Repeat("é", 100)+TruncationMarker)
	assert.NotContains(t, out, strings.Repeat("é", 101))
}

func TestCompose_Deterministic(t *testing.T) {
	c := NewComposer(0)
	a, err := c.Compose(domain.TypeTTest, doseTable(), domain.TTestParams{TestType: "paired", Variables: []string{"dose", "response"}})
	require.NoError(t, err)
	b, err := c.Compose(domain.TypeTTest, doseTable(), domain.TTestParams{TestType: "paired", Variables: []string{"dose", "response"}})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab"+TruncationMarker, truncate("abc", 2))
	assert.Equal(t, "", truncate("", 0))
}
