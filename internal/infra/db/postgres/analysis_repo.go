package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	domain "github.com/statreport/statreport/internal/domain/analysis"
)

// uniqueViolation is the SQLSTATE of a duplicate key.
const uniqueViolation = pq.ErrorCode("23505")

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
  id            VARCHAR(64) PRIMARY KEY,
  analysis_type VARCHAR(64) NOT NULL,
  report        TEXT        NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL,
  updated_at    TIMESTAMPTZ NOT NULL
);
`

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Create inserts a; a unique violation maps to ErrAlreadyExists.
func (r *AnalysisRepository) Create(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO analyses
  (id, analysis_type, report, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5);
`
	_, err := r.db.ExecContext(ctx, q, string(a.ID), string(a.Type), a.Report, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(domain.KindAlreadyExists, "analysis "+string(a.ID)+" already exists", err)
		}
		return domain.NewError(domain.KindStorage, "insert analysis", err)
	}
	return nil
}

func (r *AnalysisRepository) Update(ctx context.Context, id domain.ID, report string, at time.Time) error {
	const q = `UPDATE analyses SET report=$1, updated_at=$2 WHERE id=$3;`
	res, err := r.db.ExecContext(ctx, q, report, at, string(id))
	if err != nil {
		return domain.NewError(domain.KindStorage, "update analysis", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.NewError(domain.KindStorage, "update analysis", err)
	}
	if n == 0 {
		return domain.NewError(domain.KindNotFound, "analysis "+string(id)+" not found", nil)
	}
	return nil
}

func (r *AnalysisRepository) Load(ctx context.Context, id domain.ID) (*domain.Analysis, error) {
	const q = `
SELECT id, analysis_type, report, created_at, updated_at
FROM analyses
WHERE id=$1;
`
	var a domain.Analysis
	err := r.db.QueryRowContext(ctx, q, string(id)).Scan(&a.ID, &a.Type, &a.Report, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewError(domain.KindNotFound, "analysis "+string(id)+" not found", nil)
	}
	if err != nil {
		return nil, domain.NewError(domain.KindStorage, "select analysis", err)
	}
	return &a, nil
}

func (r *AnalysisRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
