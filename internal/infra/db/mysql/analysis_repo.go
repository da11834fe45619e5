package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/statreport/statreport/internal/domain/analysis"
)

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
  id            VARCHAR(64)  NOT NULL PRIMARY KEY,
  analysis_type VARCHAR(64)  NOT NULL,
  report        LONGTEXT     NOT NULL,
  created_at    DATETIME(3)  NOT NULL,
  updated_at    DATETIME(3)  NOT NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
`

// AnalysisRepository stores analyses in the analyses table.
type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Migrate creates the analyses table when it does not exist.
func (r *AnalysisRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Create inserts a; a duplicate primary key maps to ErrAlreadyExists.
func (r *AnalysisRepository) Create(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO analyses
  (id, analysis_type, report, created_at, updated_at)
VALUES (?,?,?,?,?);
`
	_, err := r.db.ExecContext(ctx, q, string(a.ID), string(a.Type), a.Report, a.CreatedAt.UTC(), a.UpdatedAt.UTC())
	if err != nil {
		if isDuplicateKey(err) {
			return domain.NewError(domain.KindAlreadyExists, "analysis "+string(a.ID)+" already exists", err)
		}
		return domain.NewError(domain.KindStorage, "insert analysis", err)
	}
	return nil
}

func (r *AnalysisRepository) Update(ctx context.Context, id domain.ID, report string, at time.Time) error {
	const q = `UPDATE analyses SET report=?, updated_at=? WHERE id=?;`
	res, err := r.db.ExecContext(ctx, q, report, at.UTC(), string(id))
	if err != nil {
		return domain.NewError(domain.KindStorage, "update analysis", err)
	}
	// RowsAffected is 0 for an unchanged row too, so confirm the id exists
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.Load(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *AnalysisRepository) Load(ctx context.Context, id domain.ID) (*domain.Analysis, error) {
	const q = `
SELECT id, analysis_type, report, created_at, updated_at
FROM analyses
WHERE id=?;
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
