package mysql

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/statreport/statreport/internal/domain/analysis"
)

// Runs against a live database when STATREPORT_TEST_MYSQL_DSN is set.
func TestAnalysisRepository_Live(t *testing.T) {
	dsn := os.Getenv("STATREPORT_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("STATREPORT_TEST_MYSQL_DSN not set")
	}
	ctx := context.Background()
	db, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewAnalysisRepository(db)
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Ping(ctx))

	at := time.Now().UTC().Truncate(time.Millisecond)
	a := &domain.Analysis{
		ID:        domain.ID("it-" + uuid.NewString()[:8]),
		Type:      domain.TypeRegression,
		Report:    "# Results\nslope 0.4",
		CreatedAt: at,
		UpdatedAt: at,
	}
	require.NoError(t, repo.Create(ctx, a))
	assert.ErrorIs(t, repo.Create(ctx, a), domain.ErrAlreadyExists)

	got, err := repo.Load(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Report, got.Report)
	assert.Equal(t, a.Type, got.Type)
	assert.True(t, a.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, repo.Update(ctx, a.ID, "edited", at.Add(time.Minute)))
	require.NoError(t, repo.Update(ctx, a.ID, "edited", at.Add(time.Minute)))
	got, err = repo.Load(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Report)

	assert.ErrorIs(t, repo.Update(ctx, "missing-id", "x", at), domain.ErrNotFound)
	_, err = repo.Load(ctx, "missing-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
