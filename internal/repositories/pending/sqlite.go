package pending

import (
	"context"
	"fmt"
	"time"

	"github.com/mlodari/camposanto/internal/dbx"
	"github.com/mlodari/camposanto/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Append(ctx context.Context, ch models.PendingChange) error {
	payload, err := ch.Payload.MarshalData()
	if err != nil {
		return fmt.Errorf("failed to encode change payload: %w", err)
	}
	query := `INSERT INTO pending_changes (change_id, domain, op, record_id, payload, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		ch.ChangeID, ch.Domain, string(ch.Op), ch.RecordID, payload, ch.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to append pending change: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) All(ctx context.Context) ([]models.PendingChange, error) {
	query := `SELECT change_id, domain, op, record_id, payload, created_at FROM pending_changes`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending changes: %w", err)
	}
	defer rows.Close()

	var result []models.PendingChange
	for rows.Next() {
		var (
			ch        models.PendingChange
			op        string
			payload   []byte
			createdAt int64
		)
		if err := rows.Scan(&ch.ChangeID, &ch.Domain, &op, &ch.RecordID, &payload, &createdAt); err != nil {
			return nil, err
		}
		ch.Op = models.Op(op)
		ch.CreatedAt = time.Unix(0, createdAt)
		if ch.Payload, err = models.UnmarshalData(payload); err != nil {
			return nil, err
		}
		result = append(result, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, changeID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_changes WHERE change_id = ?`, changeID)
	if err != nil {
		return fmt.Errorf("failed to delete pending change %s: %w", changeID, err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_changes`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending changes: %w", err)
	}
	return n, nil
}
