package export

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	domain "github.com/statreport/statreport/internal/domain/analysis"
)

// MissingSections lists the required report sections that no Markdown
// heading of report mentions. Matching is case-insensitive, so headings
// like "## 3. Results" count.
func MissingSections(report string) []string {
	source := []byte(report)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var headings []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		h, ok := n.(*ast.Heading)
		if !ok || !entering {
			return ast.WalkContinue, nil
		}
		headings = append(headings, strings.ToLower(nodeText(h, source)))
		return ast.WalkSkipChildren, nil
	})

	var missing []string
	for _, s := range domain.ReportSections {
		want := strings.ToLower(s)
		found := false
		for _, h := range headings {
			if strings.Contains(h, want) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, s)
		}
	}
	return missing
}

func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering {
			b.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
