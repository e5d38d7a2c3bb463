// Package pending persists the queue of mutations made while offline.
package pending

import (
	"context"

	"github.com/mlodari/camposanto/internal/models"
)

type Repository interface {
	// Append stores a new change. Changes are never updated in place.
	Append(ctx context.Context, ch models.PendingChange) error

	// All returns every queued change in unspecified order; the caller sorts
	// by creation timestamp before replaying.
	All(ctx context.Context) ([]models.PendingChange, error)

	// Delete removes a single change after it was applied remotely.
	Delete(ctx context.Context, changeID string) error

	// Count reports the queue length.
	Count(ctx context.Context) (int, error)
}
