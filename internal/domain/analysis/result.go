package analysis

import (
	"regexp"
	"time"
)

// ID identifies a persisted analysis.
type ID string

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Valid reports whether id is safe to use as a storage key.
func (id ID) Valid() bool { return idPattern.MatchString(string(id)) }

// Analysis is a generated report persisted by id.
type Analysis struct {
	ID        ID        `json:"id"`
	Type      Type      `json:"analysisType"`
	Report    string    `json:"analysis"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ReportSections is the fixed section order every report is asked to follow.
var ReportSections = []string{
	"Introduction",
	"Methodology",
	"Results",
	"Data Visualization",
	"Interpretation",
	"Conclusion",
	"Limitations",
	"References",
}
