package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mlodari/camposanto/internal/common"
	"github.com/mlodari/camposanto/internal/dbx"
	"github.com/mlodari/camposanto/internal/models"
)

// SQLiteRepository implements Repository on the local sqlite mirror.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DB.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) GetAll(ctx context.Context, domain string) ([]models.Record, error) {
	query := `SELECT data FROM records WHERE domain = ? AND deleted = 0 ORDER BY descriptor`
	return r.queryRecords(ctx, query, domain)
}

func (r *SQLiteRepository) FindByDescriptor(ctx context.Context, domain, descriptor string) ([]models.Record, error) {
	query := `SELECT data FROM records WHERE domain = ? AND descriptor = ? AND deleted = 0 ORDER BY id`
	return r.queryRecords(ctx, query, domain, descriptor)
}

func (r *SQLiteRepository) queryRecords(ctx context.Context, query string, args ...any) ([]models.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		rec, err := models.UnmarshalData(data)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, domain, id string) (models.Record, error) {
	query := `SELECT data FROM records WHERE domain = ? AND id = ? AND deleted = 0`
	var data []byte
	err := r.db.QueryRowContext(ctx, query, domain, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s/%s: %w", domain, id, err)
	}
	return models.UnmarshalData(data)
}

func (r *SQLiteRepository) Upsert(ctx context.Context, domain, descriptorField string, rec models.Record) error {
	return upsert(ctx, r.db, domain, descriptorField, rec)
}

func upsert(ctx context.Context, db dbx.DBTX, domain, descriptorField string, rec models.Record) error {
	data, err := rec.MarshalData()
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	query := `INSERT INTO records (domain, id, descriptor, data, deleted)
			VALUES (?, ?, ?, ?, 0)
			ON CONFLICT(domain, id) DO UPDATE SET descriptor = excluded.descriptor,
				data = excluded.data,
				deleted = 0
	`
	_, err = db.ExecContext(ctx, query, domain, rec.ID(), rec.Descriptor(descriptorField), data)
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

// ReplaceAll runs in a single transaction so readers never observe a
// half-replaced domain.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, domain, descriptorField string, recs []models.Record) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE domain = ?`, domain); err != nil {
			return fmt.Errorf("failed to clear domain %s: %w", domain, err)
		}
		for _, rec := range recs {
			if err := upsert(ctx, tx, domain, descriptorField, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) MarkDeleted(ctx context.Context, domain, id string) error {
	query := `UPDATE records SET deleted = 1 WHERE domain = ? AND id = ? AND deleted = 0`
	res, err := r.db.ExecContext(ctx, query, domain, id)
	if err != nil {
		return fmt.Errorf("failed to tombstone record: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) Purge(ctx context.Context, domain, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE domain = ? AND id = ?`, domain, id)
	if err != nil {
		return fmt.Errorf("failed to purge record: %w", err)
	}
	return nil
}
