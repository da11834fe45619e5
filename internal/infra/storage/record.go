// Package storage holds the file and object-store backends of the analysis store.
package storage

import (
	"encoding/json"
	"time"

	domain "github.com/statreport/statreport/internal/domain/analysis"
)

// record is the persisted JSON document of one analysis. The id is the key
// and is not repeated inside.
type record struct {
	Analysis     string    `json:"analysis"`
	AnalysisType string    `json:"analysisType"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func encodeRecord(a *domain.Analysis) ([]byte, error) {
	return json.Marshal(record{
		Analysis:     a.Report,
		AnalysisType: string(a.Type),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	})
}

func decodeRecord(id domain.ID, b []byte) (*domain.Analysis, error) {
	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, domain.NewError(domain.KindStorage, "decode analysis "+string(id), err)
	}
	return &domain.Analysis{
		ID:        id,
		Type:      domain.Type(r.AnalysisType),
		Report:    r.Analysis,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

func notFound(id domain.ID) error {
	return domain.NewError(domain.KindNotFound, "analysis "+string(id)+" not found", nil)
}

func alreadyExists(id domain.ID) error {
	return domain.NewError(domain.KindAlreadyExists, "analysis "+string(id)+" already exists", nil)
}

func storageErr(op string, err error) error {
	return domain.NewError(domain.KindStorage, op, err)
}
