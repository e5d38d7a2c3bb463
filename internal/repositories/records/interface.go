// Package records persists the local mirror of remote domain records.
//
// Rows are keyed by (domain, id) and carry a denormalized descriptor column
// so lookup-by-name stays indexed. Offline deletes are tombstones: the row
// keeps its data but is hidden from reads until the remote delete is
// confirmed and the row purged.
package records

import (
	"context"

	"github.com/mlodari/camposanto/internal/models"
)

type Repository interface {
	// GetAll lists all live (non-tombstoned) records of a domain, ordered by
	// descriptor.
	GetAll(ctx context.Context, domain string) ([]models.Record, error)

	// GetByID returns a single live record or common.ErrorNotFound.
	GetByID(ctx context.Context, domain, id string) (models.Record, error)

	// FindByDescriptor lists live records whose descriptor matches exactly.
	FindByDescriptor(ctx context.Context, domain, descriptor string) ([]models.Record, error)

	// Upsert mirrors a record, clearing any tombstone on the row.
	Upsert(ctx context.Context, domain, descriptorField string, rec models.Record) error

	// ReplaceAll atomically swaps a domain's contents for the given set.
	ReplaceAll(ctx context.Context, domain, descriptorField string, recs []models.Record) error

	// MarkDeleted tombstones a record, hiding it from reads.
	MarkDeleted(ctx context.Context, domain, id string) error

	// Purge removes a row outright, tombstoned or not.
	Purge(ctx context.Context, domain, id string) error
}
