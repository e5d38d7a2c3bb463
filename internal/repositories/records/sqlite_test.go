package records

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlodari/camposanto/internal/common"
	"github.com/mlodari/camposanto/internal/models"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE records (
  domain     TEXT NOT NULL,
  id         TEXT NOT NULL,
  descriptor TEXT NOT NULL DEFAULT '',
  data       BLOB NOT NULL,
  deleted    INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (domain, id)
);
CREATE INDEX idx_records_descriptor ON records (domain, descriptor);
`)
	require.NoError(t, err)

	return db
}

func TestUpsert_InsertAndUpdate(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	rec := models.Record{"Id": "7", "Descrizione": "Cimitero Nord"}
	require.NoError(t, r.Upsert(ctx, "Cimitero", "Descrizione", rec))

	got, err := r.GetByID(ctx, "Cimitero", "7")
	require.NoError(t, err)
	assert.Equal(t, "Cimitero Nord", got["Descrizione"])

	// same key, new content
	rec2 := models.Record{"Id": "7", "Descrizione": "Cimitero Est"}
	require.NoError(t, r.Upsert(ctx, "Cimitero", "Descrizione", rec2))

	got, err = r.GetByID(ctx, "Cimitero", "7")
	require.NoError(t, err)
	assert.Equal(t, "Cimitero Est", got["Descrizione"])

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestGetAll_OrdersByDescriptorAndScopesDomain(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, "Cimitero", "Descrizione", models.Record{"Id": "1", "Descrizione": "Sud"}))
	require.NoError(t, r.Upsert(ctx, "Cimitero", "Descrizione", models.Record{"Id": "2", "Descrizione": "Est"}))
	require.NoError(t, r.Upsert(ctx, "Settore", "Descrizione", models.Record{"Id": "1", "Descrizione": "A"}))

	recs, err := r.GetAll(ctx, "Cimitero")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Est", recs[0]["Descrizione"])
	assert.Equal(t, "Sud", recs[1]["Descrizione"])
}

func TestFindByDescriptor(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, "Cimitero", "Descrizione", models.Record{"Id": "1", "Descrizione": "Nord"}))
	require.NoError(t, r.Upsert(ctx, "Cimitero", "Descrizione", models.Record{"Id": "2", "Descrizione": "Est"}))

	recs, err := r.FindByDescriptor(ctx, "Cimitero", "Est")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "2", recs[0].ID())

	recs, err = r.FindByDescriptor(ctx, "Cimitero", "Ovest")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestMarkDeleted_HidesFromReads(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, "Cimitero", "Descrizione", models.Record{"Id": "7", "Descrizione": "x"}))
	require.NoError(t, r.MarkDeleted(ctx, "Cimitero", "7"))

	_, err := r.GetByID(ctx, "Cimitero", "7")
	assert.True(t, errors.Is(err, common.ErrorNotFound))

	recs, err := r.GetAll(ctx, "Cimitero")
	require.NoError(t, err)
	assert.Empty(t, recs)

	// the tombstoned row is still there until purged
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM records WHERE deleted=1`).Scan(&n))
	assert.Equal(t, 1, n)

	// tombstoning twice fails: the row is no longer live
	assert.Error(t, r.MarkDeleted(ctx, "Cimitero", "7"))
}

func TestUpsert_ClearsTombstone(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, "Cimitero", "Descrizione", models.Record{"Id": "7", "Descrizione": "x"}))
	require.NoError(t, r.MarkDeleted(ctx, "Cimitero", "7"))
	require.NoError(t, r.Upsert(ctx, "Cimitero", "Descrizione", models.Record{"Id": "7", "Descrizione": "y"}))

	got, err := r.GetByID(ctx, "Cimitero", "7")
	require.NoError(t, err)
	assert.Equal(t, "y", got["Descrizione"])
}

func TestReplaceAll_SwapsDomainContents(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, "Cimitero", "Descrizione", models.Record{"Id": "1", "Descrizione": "old"}))
	require.NoError(t, r.Upsert(ctx, "Settore", "Descrizione", models.Record{"Id": "9", "Descrizione": "other domain"}))

	require.NoError(t, r.ReplaceAll(ctx, "Cimitero", "Descrizione", []models.Record{
		{"Id": "2", "Descrizione": "new A"},
		{"Id": "3", "Descrizione": "new B"},
	}))

	recs, err := r.GetAll(ctx, "Cimitero")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2", recs[0].ID())

	_, err = r.GetByID(ctx, "Cimitero", "1")
	assert.True(t, errors.Is(err, common.ErrorNotFound))

	// other domains untouched
	other, err := r.GetAll(ctx, "Settore")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestPurge(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, "Cimitero", "Descrizione", models.Record{"Id": "7"}))
	require.NoError(t, r.Purge(ctx, "Cimitero", "7"))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&n))
	assert.Equal(t, 0, n)
}
